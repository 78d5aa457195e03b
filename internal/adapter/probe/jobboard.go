package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/scan"
)

const jobBoardAPI = "https://api.theirstack.com"

// JobBoardProbe searches recent job postings for the profile's
// keywords attributed to the subject company. Requires an API key.
type JobBoardProbe struct {
	client   *Client
	limiter  *SourceLimiter
	apiKey   string
	baseURL  string
	profile  Profile
	daysBack int
}

func NewJobBoardProbe(client *Client, limiter *SourceLimiter, apiKey, baseURL string, profile Profile) *JobBoardProbe {
	if baseURL == "" {
		baseURL = jobBoardAPI
	}
	return &JobBoardProbe{
		client:   client,
		limiter:  limiter,
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		profile:  profile,
		daysBack: 90,
	}
}

func (p *JobBoardProbe) ID() string { return scan.SourceJobBoard }

func (p *JobBoardProbe) Enabled() bool { return p.apiKey != "" }

func (p *JobBoardProbe) Probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	start := time.Now()
	out := p.probe(ctx, subject)
	RecordProbe(p.ID(), out.Status, time.Since(start))
	if out.Status == domain.ProbeFailed {
		RecordProbeError(p.ID(), string(out.Failure))
	}
	return out
}

type jobSearchRequest struct {
	DescriptionPatternOr []string       `json:"job_description_pattern_or"`
	CompanyNameOr        []string       `json:"company_name_or"`
	PostedAtGte          string         `json:"posted_at_gte"`
	Limit                int            `json:"limit"`
	OrderBy              []jobOrderRule `json:"order_by"`
}

type jobOrderRule struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

type jobSearchResponse struct {
	Data []jobPosting `json:"data"`
}

type jobPosting struct {
	Title       string `json:"job_title"`
	Description string `json:"job_description"`
	URL         string `json:"job_url"`
	Posted      string `json:"date_posted"`
	CompanyName string `json:"company_name"`
}

func (p *JobBoardProbe) probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	if err := p.limiter.Wait(ctx, p.ID()); err != nil {
		return domain.Fail(domain.FailTimeout)
	}

	payload := jobSearchRequest{
		DescriptionPatternOr: p.profile.Keywords,
		CompanyNameOr:        subject.Candidates(),
		PostedAtGte:          time.Now().AddDate(0, 0, -p.daysBack).Format("2006-01-02"),
		Limit:                100,
		OrderBy:              []jobOrderRule{{Field: "date_posted", Desc: true}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Fail(domain.FailMalformed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/jobs/search", bytes.NewReader(body))
	if err != nil {
		return domain.Fail(domain.FailMalformed)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(p.ID(), req)
	if err != nil {
		return domain.Fail(ClassifyError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Fail(ClassifyStatus(resp.StatusCode))
	}

	var data jobSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return domain.Fail(domain.FailMalformed)
	}

	var signals []domain.Signal
	for _, job := range data.Data {
		kind, matched := p.matchKeywords(job)
		if matched == "" {
			continue
		}
		signals = append(signals, domain.Signal{
			SourceID:     p.ID(),
			Kind:         kind,
			Description:  fmt.Sprintf("job posting %q mentions %s", job.Title, matched),
			Locator:      job.URL,
			DiscoveredAt: time.Now().UTC(),
		})
	}

	return domain.Ok(signals)
}

// matchKeywords reports the strongest keyword a posting matched.
// Strong keywords (explicit product mentions) and plain keywords are
// distinguishable to this source but map to the same category.
func (p *JobBoardProbe) matchKeywords(job jobPosting) (kind, matched string) {
	text := strings.ToLower(job.Title + " " + job.Description)

	for _, kw := range p.profile.StrongKeywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return scan.KindPostingStrong, kw
		}
	}
	for _, kw := range p.profile.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return scan.KindPostingKeyword, kw
		}
	}
	return "", ""
}
