package scan

import (
	"fmt"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

// Source ids and the signal kinds each source emits. The kind is the
// only contract between a probe and the normalizer; everything else in
// a raw signal is source-private.
const (
	SourceGitHub     = "github"
	SourceJobBoard   = "jobboard"
	SourceHackerNews = "hackernews"
	SourceNPM        = "npm-registry"

	KindConfigFileExact   = "config_file_exact"
	KindConfigFileKeyword = "config_file_keyword"
	KindWorkflowAction    = "workflow_action"
	KindAPIKeyEnv         = "api_key_env"
	KindSDKImport         = "sdk_import"
	KindPostingKeyword    = "posting_keyword"
	KindPostingStrong     = "posting_strong_keyword"
	KindStoryMention      = "story_mention"
	KindManifestDep       = "manifest_dependency"
)

// DefaultKindTables maps each source's signal kinds to canonical
// categories. A kind absent from its source's table is a
// normalization failure, not evidence.
func DefaultKindTables() map[string]map[string]domain.Category {
	return map[string]map[string]domain.Category{
		SourceGitHub: {
			KindConfigFileExact:   domain.ConfigFileExact,
			KindConfigFileKeyword: domain.ConfigFileKeyword,
			KindWorkflowAction:    domain.CIWorkflow,
			KindAPIKeyEnv:         domain.APIKeyReference,
			KindSDKImport:         domain.SDKDependency,
		},
		SourceJobBoard: {
			// Strong and plain keyword matches are distinguishable to
			// the job board but carry the same evidential strength.
			KindPostingKeyword: domain.JobPosting,
			KindPostingStrong:  domain.JobPosting,
		},
		SourceHackerNews: {
			KindStoryMention: domain.SocialMention,
		},
		SourceNPM: {
			KindManifestDep: domain.PackageDependency,
		},
	}
}

// Normalizer converts raw signals into canonical evidence. The kind
// tables and weight table are fixed at construction.
type Normalizer struct {
	tables  map[string]map[string]domain.Category
	weights domain.WeightTable
}

func NewNormalizer(tables map[string]map[string]domain.Category, weights domain.WeightTable) *Normalizer {
	return &Normalizer{tables: tables, weights: weights}
}

// Normalize maps one signal to exactly one evidence record. Signals
// with an unknown source or kind, or without a description, are
// malformed; the caller counts them and moves on.
func (n *Normalizer) Normalize(sig domain.Signal) (domain.Evidence, error) {
	kinds, ok := n.tables[sig.SourceID]
	if !ok {
		return domain.Evidence{}, fmt.Errorf("no kind table for source %q", sig.SourceID)
	}
	category, ok := kinds[sig.Kind]
	if !ok {
		return domain.Evidence{}, fmt.Errorf("source %q emitted unknown kind %q", sig.SourceID, sig.Kind)
	}
	if sig.Description == "" {
		return domain.Evidence{}, fmt.Errorf("signal from %q missing description", sig.SourceID)
	}

	return domain.Evidence{
		SourceID:    sig.SourceID,
		Category:    category,
		Weight:      n.weights[category],
		Description: sig.Description,
		Locator:     sig.Locator,
	}, nil
}
