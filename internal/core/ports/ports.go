package ports

import (
	"context"
	"time"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

// SourceProbe is the integration against one external signal source.
// A probe must not fail for absence of evidence: no hits is an OK
// outcome with zero signals. Probes own their query construction and
// may short-circuit remaining queries once a maximum-strength signal
// for their source has been found.
type SourceProbe interface {
	// ID is the stable source identifier carried on every signal the
	// probe emits.
	ID() string

	// Enabled reports whether the probe's prerequisites (credentials,
	// configuration) are satisfied. Disabled probes are never invoked.
	Enabled() bool

	// Probe evaluates one subject. The context carries the probe's
	// deadline; implementations must return promptly once it expires.
	Probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome
}

// CredentialProvider is the read-only lookup probes are built from.
type CredentialProvider interface {
	IsConfigured(sourceID string) bool
	Credential(sourceID string) (string, bool)
}

// Scanner is the engine surface exposed to presentation layers.
type Scanner interface {
	ScanOne(ctx context.Context, subject domain.Subject) domain.ScoreReport
	ScanBatch(ctx context.Context, subjects []domain.Subject) []domain.ScoreReport
}

// ReportRepository persists finished reports for consumers (CRM sync,
// export). The engine itself stays stateless; persistence is strictly
// a downstream concern.
type ReportRepository interface {
	SaveReport(ctx context.Context, report domain.ScoreReport) error
	FindBySubject(ctx context.Context, subject string, limit int) ([]domain.ScoreReport, error)
	FindSince(ctx context.Context, since time.Time, limit int) ([]domain.ScoreReport, error)
}
