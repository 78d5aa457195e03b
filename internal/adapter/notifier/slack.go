package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

// SlackNotifier posts a message when a scan concludes an organization
// is an adopter with a yes verdict.
type SlackNotifier struct {
	botToken   string
	channel    string
	httpClient *http.Client
}

func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		botToken: botToken,
		channel:  channel,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyAdopterFound sends a formatted summary of a high-confidence
// report to the configured channel.
func (s *SlackNotifier) NotifyAdopterFound(report domain.ScoreReport) error {
	payload := SlackMessage{
		Channel: s.channel,
		Blocks:  s.buildReportBlocks(report),
		Text:    fmt.Sprintf("🎯 Adopter found: %s (score %d/%d)", report.Subject.Name, report.TotalScore, report.MaxPossibleScore),
	}
	return s.sendMessage(payload)
}

func (s *SlackNotifier) buildReportBlocks(report domain.ScoreReport) []SlackBlock {
	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{
				Type: "plain_text",
				Text: "🎯 Adoption Confirmed",
			},
		},
		{
			Type: "section",
			Fields: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Organization:*\n%s", report.Subject.Name)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Verdict:*\n%s (%s)", report.Verdict, report.Tier)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Score:*\n%d / %d", report.TotalScore, report.MaxPossibleScore)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Evidence:*\n%d records", report.EvidenceCount())},
			},
		},
	}

	var sourceIDs []string
	for sourceID := range report.EvidenceBySource {
		sourceIDs = append(sourceIDs, sourceID)
	}
	sort.Strings(sourceIDs)

	var lines []string
	for _, sourceID := range sourceIDs {
		for _, ev := range report.EvidenceBySource[sourceID] {
			lines = append(lines, fmt.Sprintf("• [%s] %s (+%d)", sourceID, ev.Description, ev.Weight))
		}
	}
	if len(lines) > 10 {
		lines = append(lines[:10], fmt.Sprintf("… and %d more", len(lines)-10))
	}
	if len(lines) > 0 {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: strings.Join(lines, "\n")},
		})
	}

	return blocks
}

func (s *SlackNotifier) sendMessage(payload SlackMessage) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, "https://slack.com/api/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.botToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post Slack message: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode Slack response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack API error: %s", result.Error)
	}

	return nil
}

// Slack message payload structures

type SlackMessage struct {
	Channel string       `json:"channel"`
	Blocks  []SlackBlock `json:"blocks,omitempty"`
	Text    string       `json:"text"`
}

type SlackBlock struct {
	Type   string      `json:"type"`
	Text   *SlackText  `json:"text,omitempty"`
	Fields []SlackText `json:"fields,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
