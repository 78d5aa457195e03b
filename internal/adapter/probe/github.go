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

const githubAPI = "https://api.github.com"

// GitHubProbe searches an organization's public code for adoption
// signals: config files, CI workflow actions, API key references, and
// SDK usage. Requires a token; code search is unauthenticated-hostile.
type GitHubProbe struct {
	client  *Client
	limiter *SourceLimiter
	token   string
	baseURL string
	profile Profile
}

func NewGitHubProbe(client *Client, limiter *SourceLimiter, token, baseURL string, profile Profile) *GitHubProbe {
	if baseURL == "" {
		baseURL = githubAPI
	}
	return &GitHubProbe{
		client:  client,
		limiter: limiter,
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		profile: profile,
	}
}

func (p *GitHubProbe) ID() string { return scan.SourceGitHub }

func (p *GitHubProbe) Enabled() bool { return p.token != "" }

func (p *GitHubProbe) Probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	start := time.Now()
	out := p.probe(ctx, subject)
	RecordProbe(p.ID(), out.Status, time.Since(start))
	if out.Status == domain.ProbeFailed {
		RecordProbeError(p.ID(), string(out.Failure))
	}
	return out
}

// codeQuery is one candidate search. Queries are ordered strongest
// first; once a top-strength query hits, the rest are skipped since
// more searching cannot raise that source's contribution further.
type codeQuery struct {
	kind        string
	query       string
	description string
	topStrength bool
}

func (p *GitHubProbe) probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	org, outcome, resolved := p.resolveOrg(ctx, subject)
	if !resolved {
		return outcome
	}

	var signals []domain.Signal
	foundTop := false

	for _, cq := range p.queries(org) {
		if foundTop && !cq.topStrength {
			break
		}

		if err := p.limiter.Wait(ctx, p.ID()); err != nil {
			return domain.Fail(domain.FailTimeout)
		}

		items, failure := p.searchCode(ctx, cq.query)
		if failure != "" {
			return domain.Fail(failure)
		}

		for _, item := range items {
			signals = append(signals, domain.Signal{
				SourceID:     p.ID(),
				Kind:         cq.kind,
				Description:  fmt.Sprintf("%s in %s/%s", cq.description, item.Repository.FullName, item.Path),
				Locator:      item.HTMLURL,
				DiscoveredAt: time.Now().UTC(),
			})
		}
		if len(items) > 0 && cq.topStrength {
			foundTop = true
		}
	}

	return domain.Ok(signals)
}

func (p *GitHubProbe) queries(org string) []codeQuery {
	var qs []codeQuery
	scope := "org:" + org

	for _, f := range p.profile.ConfigFilenames {
		qs = append(qs, codeQuery{
			kind:        scan.KindConfigFileExact,
			query:       fmt.Sprintf("%s filename:%s", scope, f),
			description: fmt.Sprintf("config file %s", f),
			topStrength: true,
		})
	}
	for _, slug := range p.profile.ActionSlugs {
		qs = append(qs, codeQuery{
			kind:        scan.KindWorkflowAction,
			query:       fmt.Sprintf("%s %s path:.github/workflows", scope, slug),
			description: fmt.Sprintf("CI workflow using %s", slug),
			topStrength: true,
		})
	}
	for _, envVar := range p.profile.APIKeyEnvVars {
		qs = append(qs, codeQuery{
			kind:        scan.KindAPIKeyEnv,
			query:       fmt.Sprintf("%s %s in:file", scope, envVar),
			description: fmt.Sprintf("reference to %s", envVar),
		})
	}
	for _, pkg := range p.profile.SDKPackages {
		qs = append(qs, codeQuery{
			kind:        scan.KindSDKImport,
			query:       fmt.Sprintf("%s %q", scope, pkg),
			description: fmt.Sprintf("SDK package %s", pkg),
		})
	}
	for _, kw := range p.profile.ConfigKeywords {
		qs = append(qs, codeQuery{
			kind:        scan.KindConfigFileKeyword,
			query:       fmt.Sprintf("%s %q", scope, kw),
			description: fmt.Sprintf("config keyword %q", kw),
		})
	}
	return qs
}

// resolveOrg tries the subject name and its aliases, then common
// GitHub naming variations, against the org endpoint. An org that
// cannot be found is a skip, not a failure.
func (p *GitHubProbe) resolveOrg(ctx context.Context, subject domain.Subject) (string, domain.ProbeOutcome, bool) {
	tried := map[string]bool{}

	for _, candidate := range subject.Candidates() {
		for _, variant := range orgVariants(candidate) {
			if variant == "" || tried[variant] {
				continue
			}
			tried[variant] = true

			if err := p.limiter.Wait(ctx, p.ID()); err != nil {
				return "", domain.Fail(domain.FailTimeout), false
			}

			status, failure := p.orgExists(ctx, variant)
			if failure != "" {
				return "", domain.Fail(failure), false
			}
			if status == http.StatusOK {
				return variant, domain.ProbeOutcome{}, true
			}
		}
	}

	return "", domain.Skip(fmt.Sprintf("no matching GitHub organization for %q", subject.Name)), false
}

func orgVariants(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	squashed := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(lower)
	dashed := strings.ReplaceAll(lower, " ", "-")
	return []string{squashed, lower, dashed, squashed + "hq", squashed + "-inc"}
}

func (p *GitHubProbe) orgExists(ctx context.Context, org string) (int, domain.FailureKind) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/orgs/"+url.PathEscape(org), nil)
	if err != nil {
		return 0, domain.FailMalformed
	}
	p.setHeaders(req)

	resp, err := p.client.Do(p.ID(), req)
	if err != nil {
		return 0, ClassifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, ""
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		// GitHub reports an exhausted search budget as 403.
		return 0, domain.FailRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return 0, domain.FailAuthInvalid
	case resp.StatusCode >= 500:
		return 0, domain.FailUpstream5xx
	default:
		return 0, domain.FailMalformed
	}
}

type codeSearchResponse struct {
	TotalCount int              `json:"total_count"`
	Items      []codeSearchItem `json:"items"`
}

type codeSearchItem struct {
	Path       string `json:"path"`
	HTMLURL    string `json:"html_url"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// maxItemsPerQuery bounds how many matches one query turns into
// signals; duplicates beyond that add nothing after dedup.
const maxItemsPerQuery = 3

func (p *GitHubProbe) searchCode(ctx context.Context, query string) ([]codeSearchItem, domain.FailureKind) {
	u := fmt.Sprintf("%s/search/code?q=%s&per_page=5", p.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.FailMalformed
	}
	p.setHeaders(req)

	resp, err := p.client.Do(p.ID(), req)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.FailRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domain.FailAuthInvalid
	case resp.StatusCode >= 500:
		return nil, domain.FailUpstream5xx
	default:
		return nil, domain.FailMalformed
	}

	var data codeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, domain.FailMalformed
	}

	items := data.Items
	if len(items) > maxItemsPerQuery {
		items = items[:maxItemsPerQuery]
	}
	return items, ""
}

func (p *GitHubProbe) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+p.token)
}
