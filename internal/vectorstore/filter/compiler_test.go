package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

// TestCompileEmptyFilterReturnsSentinel checks that an empty request
// compiles to the no-filter sentinel, never an empty object.
func TestCompileEmptyFilterReturnsSentinel(t *testing.T) {
	f, err := Compile(Request{}, fixedNow)
	require.NoError(t, err)
	require.Nil(t, f)
}

// TestCompileORModeTwoBooleans checks that two protocol booleans in OR
// mode land in should, wrapped to require at least one match.
func TestCompileORModeTwoBooleans(t *testing.T) {
	f, err := Compile(Request{
		FilterMode: ModeOr,
		HasMCP:     True,
		HasA2A:     True,
	}, fixedNow)
	require.NoError(t, err)
	require.Empty(t, f.Should)
	require.NotNil(t, f.MinShould)
	require.Equal(t, uint64(1), f.MinShould.MinCount)
	require.Len(t, f.MinShould.Conditions, 2)
}

// TestCompileORModeSingleBooleanDemotesToMust covers the "otherwise
// demoted to must" branch: OR mode with only one boolean present.
func TestCompileORModeSingleBooleanDemotesToMust(t *testing.T) {
	f, err := Compile(Request{
		FilterMode: ModeOr,
		HasMCP:     True,
	}, fixedNow)
	require.NoError(t, err)
	require.Len(t, f.Must, 1)
	require.Nil(t, f.MinShould)
}

// TestCompileRangeAndLowercasing checks that owner addresses are
// lowercased and reputation bounds become a single range leaf.
func TestCompileRangeAndLowercasing(t *testing.T) {
	f, err := Compile(Request{
		Owner:  "0xAB",
		MinRep: F(50),
		MaxRep: F(90),
	}, fixedNow)
	require.NoError(t, err)
	require.Len(t, f.Must, 2)

	owner := f.Must[0].GetField()
	require.Equal(t, "owner", owner.Key)
	require.Equal(t, "0xab", owner.Match.GetKeyword())

	rep := f.Must[1].GetField()
	require.Equal(t, "reputation", rep.Key)
	require.InDelta(t, 50, rep.Range.GetGte(), 1e-9)
	require.InDelta(t, 90, rep.Range.GetLte(), 1e-9)
}

// TestCompileHasFieldTrueFalseAreNegations checks that hasX=true and
// hasX=false compile to exact logical negations of one another.
func TestCompileHasFieldTrueFalseAreNegations(t *testing.T) {
	fTrue, err := Compile(Request{HasENS: True}, fixedNow)
	require.NoError(t, err)
	require.Len(t, fTrue.MustNot, 1)
	require.Empty(t, fTrue.Must)

	fFalse, err := Compile(Request{HasENS: False}, fixedNow)
	require.NoError(t, err)
	require.Len(t, fFalse.Must, 1)
	require.Empty(t, fFalse.MustNot)

	require.Equal(t, fTrue.MustNot[0].GetField().Match.GetKeyword(), fFalse.Must[0].GetField().Match.GetKeyword())
}

// TestCompileHasItemsUsesValuesCount covers the genuine-array branch of
// the "has items" policy.
func TestCompileHasItemsUsesValuesCount(t *testing.T) {
	f, err := Compile(Request{HasSkills: True}, fixedNow)
	require.NoError(t, err)
	require.Len(t, f.Must, 1)
	vc := f.Must[0].GetField().ValuesCount
	require.NotNil(t, vc)
	require.Equal(t, uint64(1), vc.GetGte())
}

// TestCompileSingleKeyProducesSingleLeaf checks that a lone match-any
// key produces exactly one leaf.
func TestCompileSingleKeyProducesSingleLeaf(t *testing.T) {
	f, err := Compile(Request{Skills: []string{"nlp", "vision"}}, fixedNow)
	require.NoError(t, err)
	require.Len(t, f.Must, 1)
	require.Equal(t, "skills", f.Must[0].GetField().Key)
}

// TestCompileRecentReachabilityWindow covers the within-N-days policy.
func TestCompileRecentReachabilityWindow(t *testing.T) {
	f, err := Compile(Request{HasRecentReachability: True}, fixedNow)
	require.NoError(t, err)
	require.Len(t, f.Must, 1)
	r := f.Must[0].GetField().DatetimeRange
	require.NotNil(t, r)

	wantSince := fixedNow.Add(-14 * 24 * time.Hour)
	require.Equal(t, wantSince.Unix(), r.GetGte().AsTime().Unix())
}

func TestCompileChainIDMatch(t *testing.T) {
	chain := int64(11155111)
	f, err := Compile(Request{ChainID: &chain}, fixedNow)
	require.NoError(t, err)
	require.Len(t, f.Must, 1)
	require.Equal(t, int64(11155111), f.Must[0].GetField().Match.GetInteger())
}
