package agent

import "time"

// ClassificationSource tags where a classification came from. Priority
// on resolution is CreatorDefined > LLMClassification > None.
type ClassificationSource string

const (
	ClassificationSourceCreatorDefined   ClassificationSource = "creator-defined"
	ClassificationSourceLLMClassification ClassificationSource = "llm-classification"
	ClassificationSourceNone             ClassificationSource = "none"
)

// Classification is the per-agent classification result persisted by
// the relational store and forwarded into the vector payload.
type Classification struct {
	AgentID Identifier

	Skills  []ConfidentSlug
	Domains []ConfidentSlug

	OverallConfidence float64
	Source            ClassificationSource
	ModelVersion      string
	ClassifiedAt      time.Time
}

// Resolve picks the classification with the highest source priority
// among the candidates passed in (typically: a creator-declared OASF
// result and an LLM result for the same agent). Returns the zero value
// with ClassificationSourceNone if no candidate is given.
func Resolve(candidates ...Classification) Classification {
	best := Classification{Source: ClassificationSourceNone}
	bestRank := sourceRank(best.Source)
	for _, c := range candidates {
		if rank := sourceRank(c.Source); rank > bestRank {
			best = c
			bestRank = rank
		}
	}
	return best
}

func sourceRank(s ClassificationSource) int {
	switch s {
	case ClassificationSourceCreatorDefined:
		return 2
	case ClassificationSourceLLMClassification:
		return 1
	default:
		return 0
	}
}

// BuildCreatorDeclared derives a creator-declared Classification from a
// Record's own OASF slug lists, dropping any slug the taxonomy doesn't
// recognize. Declared slugs carry
// full confidence: the creator asserted them directly, there is no
// model score to attach.
func BuildCreatorDeclared(r *Record) Classification {
	c := Classification{AgentID: r.ID, Source: ClassificationSourceNone}

	for _, slug := range r.OASFSkillSlugs {
		if IsValidTaxonomySlug(slug, TaxonomySkill) {
			c.Skills = append(c.Skills, ConfidentSlug{Slug: slug, Confidence: 1.0})
		}
	}
	for _, slug := range r.OASFDomainSlugs {
		if IsValidTaxonomySlug(slug, TaxonomyDomain) {
			c.Domains = append(c.Domains, ConfidentSlug{Slug: slug, Confidence: 1.0})
		}
	}

	if len(c.Skills) > 0 || len(c.Domains) > 0 {
		c.Source = ClassificationSourceCreatorDefined
		c.OverallConfidence = 1.0
	}
	return c
}
