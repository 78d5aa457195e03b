package scan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/ports"
)

// Config bounds the orchestrator's concurrency and pacing. Zero values
// fall back to the defaults below.
type Config struct {
	// ProbeTimeout is the independent deadline applied to each probe
	// invocation. The scan itself has no overall timeout: its wall
	// time is the max, not the sum, of probe latencies.
	ProbeTimeout time.Duration

	// ProbeTimeouts overrides ProbeTimeout per source id.
	ProbeTimeouts map[string]time.Duration

	// MaxConcurrentProbes bounds the fan-out within one subject.
	MaxConcurrentProbes int

	// MaxConcurrentScans bounds how many subjects of a batch run at
	// once.
	MaxConcurrentScans int

	// SubjectPacing is the delay inserted between subject submissions
	// in batch mode. Pacing sits between subjects, not between probes
	// within a subject; per-source rate budgets are enforced inside
	// the probes themselves.
	SubjectPacing time.Duration
}

const (
	defaultProbeTimeout        = 30 * time.Second
	defaultMaxConcurrentProbes = 4
	defaultMaxConcurrentScans  = 4
)

// Orchestrator drives the scan pipeline: resolve enabled probes, fan
// out, collect outcomes, normalize, merge, score.
type Orchestrator struct {
	probes     []ports.SourceProbe
	normalizer *Normalizer
	weights    domain.WeightTable
	thresholds domain.ThresholdTable
	cfg        Config
}

// New validates the scoring configuration and builds an orchestrator.
// A malformed weight or threshold table is the one error class that
// aborts scanning outright: it means the engine itself is
// misconfigured, not that an upstream source misbehaved.
func New(probes []ports.SourceProbe, normalizer *Normalizer, weights domain.WeightTable, thresholds domain.ThresholdTable, cfg Config) (*Orchestrator, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator fault: %w", err)
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator fault: %w", err)
	}

	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.MaxConcurrentProbes <= 0 {
		cfg.MaxConcurrentProbes = defaultMaxConcurrentProbes
	}
	if cfg.MaxConcurrentScans <= 0 {
		cfg.MaxConcurrentScans = defaultMaxConcurrentScans
	}

	return &Orchestrator{
		probes:     probes,
		normalizer: normalizer,
		weights:    weights,
		thresholds: thresholds,
		cfg:        cfg,
	}, nil
}

type probeResult struct {
	sourceID string
	outcome  domain.ProbeOutcome
}

// ScanOne runs the full pipeline for one subject. Per-source failures
// are absorbed into the report; a scan in which every probe fails
// still returns a valid report with score zero.
func (o *Orchestrator) ScanOne(ctx context.Context, subject domain.Subject) domain.ScoreReport {
	report := domain.ScoreReport{
		ScanID:           uuid.New(),
		Subject:          subject,
		GeneratedAt:      time.Now().UTC(),
		MaxPossibleScore: o.weights.MaxPossibleScore(),
		EvidenceBySource: map[string][]domain.Evidence{},
		SourcesAttempted: []string{},
	}

	// Init: resolve the probes whose prerequisites are satisfied.
	var enabled []ports.SourceProbe
	for _, p := range o.probes {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		report.NoSourcesAvailable = true
		report.Tier, report.Verdict = o.thresholds.Resolve(0)
		return report
	}

	// Fanout: every enabled probe runs concurrently under its own
	// deadline. The orchestrator blocks only once, at collection.
	results := make([]probeResult, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentProbes)

	for i, p := range enabled {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, o.probeTimeout(p.ID()))
			defer cancel()

			outcome := p.Probe(tctx, subject)
			// Probes that give up on an expired context may not
			// classify the failure themselves.
			if tctx.Err() != nil && outcome.Status == domain.ProbeFailed && outcome.Failure == "" {
				outcome.Failure = domain.FailTimeout
			}
			results[i] = probeResult{sourceID: p.ID(), outcome: outcome}
			return nil
		})
	}
	_ = g.Wait() // probe goroutines never return errors

	// Collecting: record per-source status.
	var evidenceLists [][]domain.Evidence
	normFailures := 0

	for _, res := range results {
		report.SourcesAttempted = append(report.SourcesAttempted, res.sourceID)

		switch res.outcome.Status {
		case domain.ProbeFailed:
			if report.SourcesFailed == nil {
				report.SourcesFailed = map[string]domain.FailureKind{}
			}
			report.SourcesFailed[res.sourceID] = res.outcome.Failure
		case domain.ProbeSkipped:
			if report.SourcesSkipped == nil {
				report.SourcesSkipped = map[string]string{}
			}
			report.SourcesSkipped[res.sourceID] = res.outcome.SkipReason
		case domain.ProbeOK:
			var evidence []domain.Evidence
			for _, sig := range res.outcome.Signals {
				ev, err := o.normalizer.Normalize(sig)
				if err != nil {
					normFailures++
					continue
				}
				evidence = append(evidence, ev)
			}
			if len(evidence) > 0 {
				evidenceLists = append(evidenceLists, evidence)
			}
		}
	}
	sort.Strings(report.SourcesAttempted)

	// Aggregating: dedup, partition, score.
	merged := domain.Merge(evidenceLists...)
	report.EvidenceBySource = domain.PartitionBySource(merged)
	report.NormalizationFailures = normFailures
	report.TotalScore, report.Tier, report.Verdict = domain.Score(merged, o.thresholds)

	return report
}

// ScanBatch repeats the single-subject pipeline for each subject.
// Subject scans run concurrently (bounded) but submission is paced so
// the shared per-source rate budgets are not hammered all at once;
// the budgets themselves are enforced inside the probes and shared
// across every scan in the batch.
func (o *Orchestrator) ScanBatch(ctx context.Context, subjects []domain.Subject) []domain.ScoreReport {
	reports := make([]domain.ScoreReport, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentScans)

	for i, subject := range subjects {
		if i > 0 && o.cfg.SubjectPacing > 0 {
			select {
			case <-time.After(o.cfg.SubjectPacing):
			case <-gctx.Done():
			}
		}
		if gctx.Err() != nil {
			// Cancelled mid-batch: remaining subjects get empty
			// no-sources reports rather than holes in the result.
			for j := i; j < len(subjects); j++ {
				reports[j] = o.cancelledReport(subjects[j])
			}
			break
		}

		g.Go(func() error {
			reports[i] = o.ScanOne(gctx, subject)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func (o *Orchestrator) probeTimeout(sourceID string) time.Duration {
	if t, ok := o.cfg.ProbeTimeouts[sourceID]; ok && t > 0 {
		return t
	}
	return o.cfg.ProbeTimeout
}

func (o *Orchestrator) cancelledReport(subject domain.Subject) domain.ScoreReport {
	tier, verdict := o.thresholds.Resolve(0)
	return domain.ScoreReport{
		ScanID:           uuid.New(),
		Subject:          subject,
		GeneratedAt:      time.Now().UTC(),
		MaxPossibleScore: o.weights.MaxPossibleScore(),
		EvidenceBySource: map[string][]domain.Evidence{},
		SourcesAttempted: []string{},
		Tier:             tier,
		Verdict:          verdict,
		Cancelled:        true,
	}
}
