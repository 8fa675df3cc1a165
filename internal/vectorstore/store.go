// Package vectorstore is the gateway's adapter over
// github.com/qdrant/go-client. It exposes only the narrow surface the
// sync workers and query planner consume: upsert, partial payload
// update, vector search, scroll, count, point retrieval, and deletion.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/agentauri/gateway/internal/agent"
	"github.com/agentauri/gateway/internal/payload"
	"github.com/agentauri/gateway/internal/vectorstore/filter"
	"github.com/agentauri/gateway/pkg/ptr"
)

// maxUpsertBatch caps the number of points per upsert request.
const maxUpsertBatch = 100

// Config holds the pieces needed to bootstrap and address a single
// collection.
type Config struct {
	Client           *qdrant.Client
	CollectionName   string
	VectorDimensions uint64
	InitializeSchema bool
}

// Store is the Vector Store Adapter.
type Store struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("vectorstore: client is required")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("vectorstore: collection name is required")
	}

	s := &Store{
		client:     cfg.Client,
		collection: cfg.CollectionName,
		dimensions: cfg.VectorDimensions,
	}

	if cfg.InitializeSchema {
		if err := s.initialize(ctx); err != nil {
			return nil, fmt.Errorf("vectorstore: initialize: %w", err)
		}
	}

	return s, nil
}

// Ping reports whether the collection backing this store is still
// reachable, used by the gateway's health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.CollectionExists(ctx, s.collection)
	return err
}

func (s *Store) initialize(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

// Point is the unit of upsert.
type Point struct {
	ID      agent.Identifier
	Vector  []float32
	Payload payload.Payload
}

// Upsert is an idempotent insert-or-replace, chunked at maxUpsertBatch
// points per request.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	for start := 0; start < len(points); start += maxUpsertBatch {
		end := start + maxUpsertBatch
		if end > len(points) {
			end = len(points)
		}
		if err := s.upsertChunk(ctx, points[start:end]); err != nil {
			return fmt.Errorf("vectorstore: upsert chunk [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (s *Store) upsertChunk(ctx context.Context, chunk []Point) error {
	structs := make([]*qdrant.PointStruct, 0, len(chunk))
	for _, p := range chunk {
		pv, err := payloadValues(p.Payload)
		if err != nil {
			return fmt.Errorf("point %s: payload conversion: %w", p.ID.String(), err)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointIDHash(p.ID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: pv,
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           ptr.Pointer(true),
		Points:         structs,
	})
	return err
}

// SetPayloadByAgentID merges partial into the existing payload without
// touching the vector.
func (s *Store) SetPayloadByAgentID(ctx context.Context, id agent.Identifier, partial payload.Payload) error {
	pv, err := payloadValues(partial)
	if err != nil {
		return fmt.Errorf("vectorstore: set payload: payload conversion: %w", err)
	}

	_, err = s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.collection,
		Wait:           ptr.Pointer(true),
		Payload:        pv,
		PointsSelector: qdrant.NewPointsSelector(qdrant.NewIDNum(pointIDHash(id))),
	})
	return err
}

// SearchResult wraps the points returned by Search plus the has_more
// flag derived from the limit+1 fetch trick.
type SearchResult struct {
	Points  []ScoredPoint
	HasMore bool
}

type ScoredPoint struct {
	AgentID string
	Score   float32
	Payload map[string]any
}

// Search returns points ordered by cosine similarity descending,
// requesting limit+1 so has_more can be detected without a second
// round trip.
func (s *Store) Search(ctx context.Context, vector []float32, f *qdrant.Filter, limit uint64, offset uint64, scoreThreshold *float32) (SearchResult, error) {
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          ptr.Pointer(limit + 1),
		Offset:         ptr.Pointer(offset),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold != nil {
		req.ScoreThreshold = scoreThreshold
	}
	if f != filter.NoFilter && f != nil {
		req.Filter = f
	}

	scored, err := s.client.Query(ctx, req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("vectorstore: search: %w", err)
	}

	hasMore := uint64(len(scored)) > limit
	if hasMore {
		scored = scored[:limit]
	}

	out := make([]ScoredPoint, 0, len(scored))
	for _, p := range scored {
		out = append(out, ScoredPoint{
			AgentID: agentIDFromPayload(p.GetPayload()),
			Score:   p.GetScore(),
			Payload: convertPayload(p.GetPayload()),
		})
	}

	return SearchResult{Points: out, HasMore: hasMore}, nil
}

// ScrollResult is cursor-paginated listing output.
type ScrollResult struct {
	Points     []ScoredPoint
	NextOffset string
}

// Scroll lists points under a filter, optionally ordered by a numeric
// or datetime field. order_by is only valid on those field types; the
// store cannot order by string keywords.
func (s *Store) Scroll(ctx context.Context, f *qdrant.Filter, limit uint64, orderBy string, cursor string) (ScrollResult, error) {
	return s.scroll(ctx, f, limit, orderBy, false, cursor)
}

// ScrollDesc is Scroll with the order_by direction pinned to
// descending, used by the query planner's non-relevance numeric sort
// path.
func (s *Store) ScrollDesc(ctx context.Context, f *qdrant.Filter, limit uint64, orderBy string, cursor string) (ScrollResult, error) {
	return s.scroll(ctx, f, limit, orderBy, true, cursor)
}

func (s *Store) scroll(ctx context.Context, f *qdrant.Filter, limit uint64, orderBy string, desc bool, cursor string) (ScrollResult, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          ptr.Pointer(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if f != filter.NoFilter && f != nil {
		req.Filter = f
	}
	if orderBy != "" {
		ob := &qdrant.OrderBy{Key: orderBy}
		if desc {
			direction := qdrant.Direction_Desc
			ob.Direction = &direction
		}
		req.OrderBy = ob
	}
	if cursor != "" {
		num, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return ScrollResult{}, fmt.Errorf("vectorstore: scroll: invalid cursor %q: %w", cursor, err)
		}
		req.Offset = qdrant.NewIDNum(num)
	}

	resp, err := s.client.Scroll(ctx, req)
	if err != nil {
		return ScrollResult{}, fmt.Errorf("vectorstore: scroll: %w", err)
	}

	out := make([]ScoredPoint, 0, len(resp))
	for _, p := range resp {
		out = append(out, ScoredPoint{
			AgentID: agentIDFromPayload(p.GetPayload()),
			Payload: convertPayload(p.GetPayload()),
		})
	}

	var next string
	if len(resp) > 0 {
		next = strconv.FormatUint(resp[len(resp)-1].GetId().GetNum(), 10)
	}

	return ScrollResult{Points: out, NextOffset: next}, nil
}

// Count returns the exact count of points matching f.
func (s *Store) Count(ctx context.Context, f *qdrant.Filter) (uint64, error) {
	req := &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          ptr.Pointer(true),
	}
	if f != filter.NoFilter && f != nil {
		req.Filter = f
	}

	count, err := s.client.Count(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: count: %w", err)
	}
	return count, nil
}

// GetByIDs retrieves points by agent identifier.
func (s *Store) GetByIDs(ctx context.Context, ids []agent.Identifier) ([]ScoredPoint, error) {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDNum(pointIDHash(id)))
	}

	resp, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: get by ids: %w", err)
	}

	out := make([]ScoredPoint, 0, len(resp))
	for _, p := range resp {
		out = append(out, ScoredPoint{
			AgentID: agentIDFromPayload(p.GetPayload()),
			Payload: convertPayload(p.GetPayload()),
		})
	}
	return out, nil
}

// Delete removes points by agent identifier.
func (s *Store) Delete(ctx context.Context, ids []agent.Identifier) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDNum(pointIDHash(id)))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	return err
}

// DeleteByFilter removes every point matching f.
func (s *Store) DeleteByFilter(ctx context.Context, f *qdrant.Filter) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	return err
}

// payloadValues converts a typed Payload into the client's value map.
// The typed cases cover every shape the payload builder emits: scalars,
// string lists, and the nested slug-with-confidence entries. chain_id
// must stay an integer value, since the filter compiler matches it with
// an integer condition and the store does not match integers against
// doubles.
func payloadValues(p payload.Payload) (map[string]*qdrant.Value, error) {
	out := make(map[string]*qdrant.Value, len(p))
	for k, v := range p {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

func toValue(v any) (*qdrant.Value, error) {
	switch v := v.(type) {
	case nil:
		return qdrant.NewValueNull(), nil
	case string:
		return qdrant.NewValueString(v), nil
	case bool:
		return qdrant.NewValueBool(v), nil
	case int:
		return qdrant.NewValueInt(int64(v)), nil
	case int64:
		return qdrant.NewValueInt(v), nil
	case float64:
		return qdrant.NewValueDouble(v), nil
	case []string:
		vals := make([]*qdrant.Value, len(v))
		for i, s := range v {
			vals[i] = qdrant.NewValueString(s)
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: vals}), nil
	case []map[string]any:
		vals := make([]*qdrant.Value, len(v))
		for i, entry := range v {
			fields, err := payloadValues(entry)
			if err != nil {
				return nil, err
			}
			vals[i] = qdrant.NewValueStruct(&qdrant.Struct{Fields: fields})
		}
		return qdrant.NewValueList(&qdrant.ListValue{Values: vals}), nil
	default:
		return nil, fmt.Errorf("vectorstore: unsupported payload value type %T", v)
	}
}

func agentIDFromPayload(p map[string]*qdrant.Value) string {
	if p == nil {
		return ""
	}
	if v, ok := p["agent_id"]; ok {
		return v.GetStringValue()
	}
	return ""
}

func convertPayload(p map[string]*qdrant.Value) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = convertValue(v)
	}
	return out
}

func convertValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.Kind.(type) {
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		out := make([]any, len(kind.ListValue.Values))
		for i, lv := range kind.ListValue.Values {
			out[i] = convertValue(lv)
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(kind.StructValue.Fields))
		for k, sv := range kind.StructValue.Fields {
			out[k] = convertValue(sv)
		}
		return out
	default:
		return nil
	}
}

// pointIDHash maps an agent Identifier onto a stable numeric point ID.
// Qdrant point IDs are either a UUID or an unsigned 64-bit integer; the
// identifier's "chain_token" form is not itself a valid point ID shape,
// so it is carried verbatim in the "agent_id" payload field (used by
// agentIDFromPayload) and mapped here to a deterministic uint64 via
// FNV-1a, giving every component a single stable id to point
// translation.
func pointIDHash(id agent.Identifier) uint64 {
	h := fnv64a(id.PointID())
	return h
}

func fnv64a(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
