package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoreReport is the result of one subject scan. Constructed once,
// immutable afterwards. Partial data is explicit: every attempted
// source appears in SourcesAttempted, and failures and skips are
// reported per source instead of being silently merged with full
// evidence.
type ScoreReport struct {
	ScanID      uuid.UUID `json:"scan_id"`
	Subject     Subject   `json:"subject"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalScore       int            `json:"total_score"`
	MaxPossibleScore int            `json:"max_possible_score"`
	Tier             ConfidenceTier `json:"tier"`
	Verdict          Verdict        `json:"verdict"`

	EvidenceBySource map[string][]Evidence  `json:"evidence_by_source"`
	SourcesAttempted []string               `json:"sources_attempted"`
	SourcesFailed    map[string]FailureKind `json:"sources_failed,omitempty"`
	SourcesSkipped   map[string]string      `json:"sources_skipped,omitempty"`

	NormalizationFailures int `json:"normalization_failures,omitempty"`

	// NoSourcesAvailable marks the degenerate scan in which no probe
	// had its prerequisites satisfied. Distinguishes "nothing was
	// asked" from "everything was asked and nothing came back".
	NoSourcesAvailable bool `json:"no_sources_available,omitempty"`

	// Cancelled marks a subject that was never scanned because its
	// batch was cancelled before the subject was submitted.
	Cancelled bool `json:"cancelled,omitempty"`
}

// EvidenceCount returns the size of the deduplicated evidence set.
func (r ScoreReport) EvidenceCount() int {
	n := 0
	for _, list := range r.EvidenceBySource {
		n += len(list)
	}
	return n
}
