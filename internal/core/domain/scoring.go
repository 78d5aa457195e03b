package domain

import "fmt"

// ConfidenceTier is the categorical bucket derived from the total
// score.
type ConfidenceTier string

const (
	TierVeryHigh ConfidenceTier = "very_high"
	TierHigh     ConfidenceTier = "high"
	TierMedium   ConfidenceTier = "medium"
	TierLow      ConfidenceTier = "low"
)

// Verdict is the human-facing conclusion derived from the tier.
type Verdict string

const (
	VerdictYes        Verdict = "yes"
	VerdictLikely     Verdict = "likely"
	VerdictPossibly   Verdict = "possibly"
	VerdictNoEvidence Verdict = "no_evidence"
)

// WeightTable assigns a strength weight to every evidence category.
// It is immutable configuration: built once at startup, validated, and
// passed by reference to the scoring path.
type WeightTable map[Category]int

// DefaultWeightTable returns the shipped weights. Exact config files
// and CI workflows are the strongest single signals but neither alone
// reaches the very_high tier; a yes verdict requires corroboration
// from a second category.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		ConfigFileExact:   40,
		CIWorkflow:        40,
		APIKeyReference:   30,
		SDKDependency:     30,
		PackageDependency: 25,
		JobPosting:        20,
		ConfigFileKeyword: 15,
		SocialMention:     10,
	}
}

// Validate checks the table covers every category with a positive
// weight. A table that fails validation is an engine misconfiguration,
// not an upstream problem, and must abort the scan.
func (w WeightTable) Validate() error {
	for _, cat := range Categories {
		weight, ok := w[cat]
		if !ok {
			return fmt.Errorf("weight table missing category %q", cat)
		}
		if weight <= 0 {
			return fmt.Errorf("weight table has non-positive weight %d for category %q", weight, cat)
		}
	}
	return nil
}

// MaxPossibleScore is the sum of all weights across all categories,
// reported alongside the score so consumers can normalize.
func (w WeightTable) MaxPossibleScore() int {
	total := 0
	for _, weight := range w {
		total += weight
	}
	return total
}

// ThresholdRule maps a minimum total score to a tier and verdict.
type ThresholdRule struct {
	MinScore int            `yaml:"min_score"`
	Tier     ConfidenceTier `yaml:"tier"`
	Verdict  Verdict        `yaml:"verdict"`
}

// ThresholdTable is evaluated in descending MinScore order; the first
// rule the score reaches wins. Scores below every rule fall through to
// low / no_evidence.
type ThresholdTable []ThresholdRule

// DefaultThresholdTable returns the shipped tier boundaries.
func DefaultThresholdTable() ThresholdTable {
	return ThresholdTable{
		{MinScore: 60, Tier: TierVeryHigh, Verdict: VerdictYes},
		{MinScore: 40, Tier: TierHigh, Verdict: VerdictLikely},
		{MinScore: 20, Tier: TierMedium, Verdict: VerdictPossibly},
	}
}

// Validate rejects empty, non-descending, or non-positive rule sets.
func (t ThresholdTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("threshold table is empty")
	}
	prev := 0
	for i, rule := range t {
		if rule.MinScore <= 0 {
			return fmt.Errorf("threshold rule %d has non-positive min score %d", i, rule.MinScore)
		}
		if i > 0 && rule.MinScore >= prev {
			return fmt.Errorf("threshold table not strictly descending at rule %d (%d >= %d)", i, rule.MinScore, prev)
		}
		if rule.Tier == "" || rule.Verdict == "" {
			return fmt.Errorf("threshold rule %d missing tier or verdict", i)
		}
		prev = rule.MinScore
	}
	return nil
}

// Resolve maps a total score to its tier and verdict. Pure function of
// the score and the table; inclusive on the rule boundary.
func (t ThresholdTable) Resolve(score int) (ConfidenceTier, Verdict) {
	for _, rule := range t {
		if score >= rule.MinScore {
			return rule.Tier, rule.Verdict
		}
	}
	return TierLow, VerdictNoEvidence
}

// Score sums the weights of an already-deduplicated evidence set and
// resolves the tier and verdict. Order of the input does not affect
// the result.
func Score(merged []Evidence, thresholds ThresholdTable) (total int, tier ConfidenceTier, verdict Verdict) {
	for _, ev := range merged {
		total += ev.Weight
	}
	tier, verdict = thresholds.Resolve(total)
	return total, tier, verdict
}
