package agent

// TaxonomyKind distinguishes a skill slug from a domain slug in the
// OASF taxonomy.
type TaxonomyKind string

const (
	TaxonomySkill  TaxonomyKind = "skill"
	TaxonomyDomain TaxonomyKind = "domain"
)

// TaxonomyEntry is one row of the static OASF taxonomy table.
type TaxonomyEntry struct {
	Slug        string       `json:"slug"`
	Kind        TaxonomyKind `json:"kind"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
}

// taxonomy is a static, versioned OASF skill/domain taxonomy, used
// both to validate creator-declared classifications and to serve
// GET /taxonomy. It is intentionally small and representative rather
// than exhaustive: the upstream OASF taxonomy is externally
// maintained, and this table tracks the slugs this gateway actually
// resolves against.
var taxonomy = []TaxonomyEntry{
	{Slug: "text-generation", Kind: TaxonomySkill, Label: "Text Generation", Description: "Produces natural-language text from a prompt."},
	{Slug: "code-generation", Kind: TaxonomySkill, Label: "Code Generation", Description: "Produces source code from a specification or prompt."},
	{Slug: "image-generation", Kind: TaxonomySkill, Label: "Image Generation", Description: "Produces images from a text or image prompt."},
	{Slug: "data-extraction", Kind: TaxonomySkill, Label: "Data Extraction", Description: "Extracts structured data from unstructured sources."},
	{Slug: "translation", Kind: TaxonomySkill, Label: "Translation", Description: "Translates text between natural languages."},
	{Slug: "summarization", Kind: TaxonomySkill, Label: "Summarization", Description: "Condenses longer text into a shorter summary."},
	{Slug: "classification", Kind: TaxonomySkill, Label: "Classification", Description: "Assigns labels or categories to input data."},
	{Slug: "web-search", Kind: TaxonomySkill, Label: "Web Search", Description: "Retrieves information from the live web."},
	{Slug: "transaction-execution", Kind: TaxonomySkill, Label: "Transaction Execution", Description: "Executes on-chain transactions on behalf of a user."},
	{Slug: "portfolio-management", Kind: TaxonomySkill, Label: "Portfolio Management", Description: "Manages a collection of on-chain or financial positions."},

	{Slug: "finance", Kind: TaxonomyDomain, Label: "Finance", Description: "Financial services and instruments."},
	{Slug: "defi", Kind: TaxonomyDomain, Label: "DeFi", Description: "Decentralized finance protocols and markets."},
	{Slug: "gaming", Kind: TaxonomyDomain, Label: "Gaming", Description: "Games and interactive entertainment."},
	{Slug: "social", Kind: TaxonomyDomain, Label: "Social", Description: "Social networking and communication."},
	{Slug: "developer-tools", Kind: TaxonomyDomain, Label: "Developer Tools", Description: "Tools and infrastructure for software developers."},
	{Slug: "research", Kind: TaxonomyDomain, Label: "Research", Description: "Research, analysis, and information synthesis."},
	{Slug: "identity", Kind: TaxonomyDomain, Label: "Identity", Description: "Identity, reputation, and credentialing."},
	{Slug: "security", Kind: TaxonomyDomain, Label: "Security", Description: "Security auditing and monitoring."},
}

// Taxonomy returns every entry, optionally filtered by kind. A zero
// TaxonomyKind returns the full table.
func Taxonomy(kind TaxonomyKind) []TaxonomyEntry {
	if kind == "" {
		return append([]TaxonomyEntry(nil), taxonomy...)
	}
	out := make([]TaxonomyEntry, 0, len(taxonomy))
	for _, e := range taxonomy {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

var taxonomySlugs = buildTaxonomySlugIndex()

func buildTaxonomySlugIndex() map[string]TaxonomyKind {
	idx := make(map[string]TaxonomyKind, len(taxonomy))
	for _, e := range taxonomy {
		idx[e.Slug] = e.Kind
	}
	return idx
}

// IsValidTaxonomySlug reports whether slug is a known entry of the
// given kind, used to validate creator-declared classifications before
// granting them top resolution priority.
func IsValidTaxonomySlug(slug string, kind TaxonomyKind) bool {
	k, ok := taxonomySlugs[slug]
	return ok && k == kind
}
