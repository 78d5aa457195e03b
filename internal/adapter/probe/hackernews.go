package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/scan"
)

const hackerNewsAPI = "https://hn.algolia.com"

// HackerNewsProbe looks for public discussion linking the subject to
// the technology. Keyless; the weakest evidence class, but free
// corroboration.
type HackerNewsProbe struct {
	client  *Client
	limiter *SourceLimiter
	baseURL string
	profile Profile
}

func NewHackerNewsProbe(client *Client, limiter *SourceLimiter, baseURL string, profile Profile) *HackerNewsProbe {
	if baseURL == "" {
		baseURL = hackerNewsAPI
	}
	return &HackerNewsProbe{
		client:  client,
		limiter: limiter,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		profile: profile,
	}
}

func (p *HackerNewsProbe) ID() string { return scan.SourceHackerNews }

// Enabled is always true: the search API needs no credentials.
func (p *HackerNewsProbe) Enabled() bool { return true }

func (p *HackerNewsProbe) Probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	start := time.Now()
	out := p.probe(ctx, subject)
	RecordProbe(p.ID(), out.Status, time.Since(start))
	if out.Status == domain.ProbeFailed {
		RecordProbeError(p.ID(), string(out.Failure))
	}
	return out
}

type hnSearchResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID  string `json:"objectID"`
	Title     string `json:"title"`
	StoryText string `json:"story_text"`
	URL       string `json:"url"`
}

func (p *HackerNewsProbe) probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	if err := p.limiter.Wait(ctx, p.ID()); err != nil {
		return domain.Fail(domain.FailTimeout)
	}

	query := fmt.Sprintf("%s %s", subject.Name, p.profile.Name)
	u := fmt.Sprintf("%s/api/v1/search?query=%s&tags=story&hitsPerPage=20", p.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Fail(domain.FailMalformed)
	}

	resp, err := p.client.Do(p.ID(), req)
	if err != nil {
		return domain.Fail(ClassifyError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Fail(ClassifyStatus(resp.StatusCode))
	}

	var data hnSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Fail(domain.FailMalformed)
	}

	var signals []domain.Signal
	for _, hit := range data.Hits {
		if !p.mentionsBoth(hit, subject) {
			continue
		}
		locator := hit.URL
		if locator == "" {
			locator = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		signals = append(signals, domain.Signal{
			SourceID:     p.ID(),
			Kind:         scan.KindStoryMention,
			Description:  fmt.Sprintf("discussion %q mentions %s and %s", hit.Title, subject.Name, p.profile.Name),
			Locator:      locator,
			DiscoveredAt: time.Now().UTC(),
		})
	}

	return domain.Ok(signals)
}

// mentionsBoth requires the subject and at least one profile keyword
// in the same story; the search endpoint matches loosely.
func (p *HackerNewsProbe) mentionsBoth(hit hnHit, subject domain.Subject) bool {
	text := strings.ToLower(hit.Title + " " + hit.StoryText)
	if !strings.Contains(text, strings.ToLower(subject.Name)) {
		return false
	}
	for _, kw := range p.profile.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
