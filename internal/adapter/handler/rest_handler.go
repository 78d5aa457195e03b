package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ridgeline-intel/prospector/internal/adapter/exporter"
	"github.com/ridgeline-intel/prospector/internal/adapter/notifier"
	"github.com/ridgeline-intel/prospector/internal/adapter/probe"
	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/ports"
)

// maxBatchSubjects caps one batch request; larger lists should be
// split so a single HTTP call does not hold the rate budget for
// an hour.
const maxBatchSubjects = 50

type RestHandler struct {
	scanner       ports.Scanner
	repo          ports.ReportRepository
	slackNotifier *notifier.SlackNotifier
	csvExporter   *exporter.CSVExporter
}

func NewRestHandler(scanner ports.Scanner, repo ports.ReportRepository, slackNotifier *notifier.SlackNotifier) *RestHandler {
	h := &RestHandler{
		scanner:       scanner,
		repo:          repo,
		slackNotifier: slackNotifier,
	}
	if repo != nil {
		h.csvExporter = exporter.NewCSVExporter(repo)
	}
	return h
}

// Health check endpoint
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "prospector-api",
	}
	writeJSON(w, http.StatusOK, response)
}

// Scan runs the pipeline for one subject and returns its report.
func (h *RestHandler) Scan(w http.ResponseWriter, r *http.Request) {
	subjectName := r.URL.Query().Get("subject")
	if subjectName == "" {
		writeError(w, http.StatusBadRequest, "missing 'subject' parameter")
		return
	}

	subject := domain.Subject{Name: subjectName}
	if alias := r.URL.Query().Get("alias"); alias != "" {
		subject.Aliases = []string{alias}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	report := h.scanner.ScanOne(ctx, subject)
	h.finishReport(ctx, report)

	writeJSON(w, http.StatusOK, report)
}

type batchRequest struct {
	Subjects []domain.Subject `json:"subjects"`
}

// ScanBatch runs the pipeline for a list of subjects.
func (h *RestHandler) ScanBatch(w http.ResponseWriter, r *http.Request) {
	var payload batchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(payload.Subjects) == 0 {
		writeError(w, http.StatusBadRequest, "no subjects provided")
		return
	}
	if len(payload.Subjects) > maxBatchSubjects {
		writeError(w, http.StatusBadRequest, "too many subjects (max 50 per batch)")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	reports := h.scanner.ScanBatch(ctx, payload.Subjects)
	for _, report := range reports {
		h.finishReport(ctx, report)
	}

	adopters := 0
	for _, report := range reports {
		if report.Verdict == domain.VerdictYes || report.Verdict == domain.VerdictLikely {
			adopters++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_checked": len(reports),
		"adopters":      adopters,
		"reports":       reports,
	})
}

// Reports returns stored reports for one subject, newest first.
func (h *RestHandler) Reports(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusNotImplemented, "report storage not configured")
		return
	}

	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeError(w, http.StatusBadRequest, "missing 'subject' parameter")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	reports, err := h.repo.FindBySubject(ctx, subject, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query reports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject": subject,
		"count":   len(reports),
		"reports": reports,
	})
}

// ExportReports serves stored reports as a CRM-import CSV.
func (h *RestHandler) ExportReports(w http.ResponseWriter, r *http.Request) {
	if h.csvExporter == nil {
		writeError(w, http.StatusNotImplemented, "report storage not configured")
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "csv" {
		writeError(w, http.StatusBadRequest, "unsupported format (use 'csv')")
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use format like '24h')")
			return
		}
		since = time.Now().Add(-duration)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	data, err := h.csvExporter.Export(ctx, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export CSV feed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(data)); err != nil {
		log.Printf("Error writing CSV response: %v", err)
	}
}

// finishReport handles the downstream consumers of one report:
// metrics, optional persistence, optional notification.
func (h *RestHandler) finishReport(ctx context.Context, report domain.ScoreReport) {
	probe.RecordScan(report)

	if h.repo != nil {
		if err := h.repo.SaveReport(ctx, report); err != nil {
			log.Printf("⚠️  Failed to persist report for %s: %v", report.Subject.Name, err)
		}
	}

	if h.slackNotifier != nil && report.Verdict == domain.VerdictYes {
		if err := h.slackNotifier.NotifyAdopterFound(report); err != nil {
			log.Printf("⚠️  Failed to send Slack notification: %v", err)
		} else {
			log.Printf("✅ Slack notification sent for %s", report.Subject.Name)
		}
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
