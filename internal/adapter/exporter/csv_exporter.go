package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ridgeline-intel/prospector/internal/core/ports"
)

// CSVExporter renders stored score reports as a CSV suitable for CRM
// import (one row per report).
type CSVExporter struct {
	repo ports.ReportRepository
}

func NewCSVExporter(repo ports.ReportRepository) *CSVExporter {
	return &CSVExporter{repo: repo}
}

var csvHeader = []string{
	"subject",
	"verdict",
	"tier",
	"total_score",
	"max_possible_score",
	"evidence_count",
	"sources_with_evidence",
	"sources_failed",
	"generated_at",
}

// Export generates the CSV feed for reports stored since the given
// point in time (defaulting to the last 24 hours).
func (e *CSVExporter) Export(ctx context.Context, since time.Time) (string, error) {
	if since.IsZero() {
		since = time.Now().Add(-24 * time.Hour)
	}

	reports, err := e.repo.FindSince(ctx, since, 10000)
	if err != nil {
		return "", fmt.Errorf("failed to fetch reports: %w", err)
	}

	var output strings.Builder
	w := csv.NewWriter(&output)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, report := range reports {
		var withEvidence []string
		for sourceID := range report.EvidenceBySource {
			withEvidence = append(withEvidence, sourceID)
		}
		sort.Strings(withEvidence)

		var failed []string
		for sourceID := range report.SourcesFailed {
			failed = append(failed, sourceID)
		}
		sort.Strings(failed)

		row := []string{
			report.Subject.Name,
			string(report.Verdict),
			string(report.Tier),
			strconv.Itoa(report.TotalScore),
			strconv.Itoa(report.MaxPossibleScore),
			strconv.Itoa(report.EvidenceCount()),
			strings.Join(withEvidence, ";"),
			strings.Join(failed, ";"),
			report.GeneratedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	return output.String(), nil
}
