package notifier

import (
	"strings"
	"testing"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

func adopterReport(evidencePerSource int) domain.ScoreReport {
	evidence := map[string][]domain.Evidence{}
	for _, sourceID := range []string{"github", "hackernews"} {
		for i := 0; i < evidencePerSource; i++ {
			evidence[sourceID] = append(evidence[sourceID], domain.Evidence{
				SourceID:    sourceID,
				Category:    domain.SocialMention,
				Weight:      10,
				Description: "finding",
			})
		}
	}
	return domain.ScoreReport{
		Subject:          domain.Subject{Name: "Acme"},
		TotalScore:       70,
		MaxPossibleScore: 210,
		Tier:             domain.TierVeryHigh,
		Verdict:          domain.VerdictYes,
		EvidenceBySource: evidence,
	}
}

func TestBuildReportBlocks(t *testing.T) {
	s := NewSlackNotifier("token", "#adopter-signals")
	blocks := s.buildReportBlocks(adopterReport(1))

	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want header, summary, and evidence", len(blocks))
	}
	if blocks[0].Type != "header" {
		t.Errorf("first block type = %q, want header", blocks[0].Type)
	}
	if len(blocks[1].Fields) != 4 {
		t.Errorf("summary block has %d fields, want 4", len(blocks[1].Fields))
	}
	if !strings.Contains(blocks[2].Text.Text, "[github]") {
		t.Errorf("evidence block missing source tag: %q", blocks[2].Text.Text)
	}
}

func TestBuildReportBlocksTruncatesEvidence(t *testing.T) {
	s := NewSlackNotifier("token", "#adopter-signals")
	blocks := s.buildReportBlocks(adopterReport(8))

	text := blocks[len(blocks)-1].Text.Text
	if got := strings.Count(text, "\n") + 1; got != 11 {
		t.Errorf("evidence block has %d lines, want 10 plus the overflow line", got)
	}
	if !strings.Contains(text, "and 6 more") {
		t.Errorf("evidence block missing overflow line: %q", text)
	}
}

func TestBuildReportBlocksNoEvidence(t *testing.T) {
	s := NewSlackNotifier("token", "#adopter-signals")
	blocks := s.buildReportBlocks(domain.ScoreReport{
		Subject: domain.Subject{Name: "Acme"},
		Verdict: domain.VerdictYes,
	})

	if len(blocks) != 2 {
		t.Errorf("got %d blocks, want header and summary only", len(blocks))
	}
}
