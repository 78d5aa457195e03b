package domain

import "time"

// Category classifies a piece of evidence independently of the source
// that produced it. Weight is always a function of the category, never
// of the source: where one source can produce the same kind of finding
// at two distinguishable strengths, the category is split (exact vs
// keyword) instead of carrying a variable weight.
type Category string

const (
	ConfigFileExact   Category = "config-file-exact"
	ConfigFileKeyword Category = "config-file-keyword"
	SDKDependency     Category = "sdk-dependency"
	APIKeyReference   Category = "api-key-reference"
	CIWorkflow        Category = "ci-workflow"
	SocialMention     Category = "social-mention"
	JobPosting        Category = "job-posting"
	PackageDependency Category = "package-dependency"
)

// Categories lists every known category. Weight tables must cover all
// of them.
var Categories = []Category{
	ConfigFileExact,
	ConfigFileKeyword,
	SDKDependency,
	APIKeyReference,
	CIWorkflow,
	SocialMention,
	JobPosting,
	PackageDependency,
}

// Subject is the organization being evaluated. Immutable for the
// duration of one scan.
type Subject struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"` // normalized org slugs, e.g. GitHub logins
}

// Candidates returns the name followed by the aliases, the order in
// which probes should try to resolve the subject upstream.
func (s Subject) Candidates() []string {
	out := make([]string, 0, 1+len(s.Aliases))
	out = append(out, s.Name)
	out = append(out, s.Aliases...)
	return out
}

// Signal is a raw, source-specific evidence unit. Probes create
// signals and hand them to the normalizer; they are never mutated
// afterwards. Kind is a source-private tag that the normalizer's
// per-source table resolves to a Category.
type Signal struct {
	SourceID     string
	Kind         string
	Description  string
	Locator      string // URL or identifier, optional
	DiscoveredAt time.Time
}

// Evidence is a normalized, canonical evidence unit. One signal maps
// to exactly one evidence record; signals that fail normalization are
// dropped and counted, never propagated.
type Evidence struct {
	SourceID    string   `json:"source_id"`
	Category    Category `json:"category"`
	Weight      int      `json:"weight"`
	Description string   `json:"description"`
	Locator     string   `json:"locator,omitempty"`
}
