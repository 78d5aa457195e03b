package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/scan"
)

func testProfile() Profile {
	return Profile{
		Name:            "terraform",
		Keywords:        []string{"Terraform"},
		ConfigFilenames: []string{"main.tf"},
		ActionSlugs:     []string{"hashicorp/setup-terraform"},
		APIKeyEnvVars:   []string{"TF_API_TOKEN"},
		SDKPackages:     []string{"cdktf"},
	}
}

// looseLimiter admits everything; rate behavior has its own tests.
func looseLimiter() *SourceLimiter {
	return NewSourceLimiter(nil)
}

func newGitHubTestProbe(serverURL string) *GitHubProbe {
	cfg := fastClientConfig()
	cfg.EnableCircuitBreaker = false
	cfg.MaxRetries = 0
	client := NewClient(http.DefaultClient, cfg)
	return NewGitHubProbe(client, looseLimiter(), "test-token", serverURL, testProfile())
}

func writeSearchResult(w http.ResponseWriter, items ...codeSearchItem) {
	json.NewEncoder(w).Encode(codeSearchResponse{TotalCount: len(items), Items: items})
}

func searchItem(repo, path, htmlURL string) codeSearchItem {
	var item codeSearchItem
	item.Repository.FullName = repo
	item.Path = path
	item.HTMLURL = htmlURL
	return item
}

func TestGitHubProbeDisabledWithoutToken(t *testing.T) {
	p := NewGitHubProbe(NewClient(nil, DefaultClientConfig()), looseLimiter(), "", "", testProfile())
	if p.Enabled() {
		t.Error("probe must be disabled without a token")
	}
}

func TestGitHubProbeFindsSignals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/orgs/"):
			if r.URL.Path == "/orgs/acme" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/search/code":
			q := r.URL.Query().Get("q")
			switch {
			case strings.Contains(q, "filename:main.tf"):
				writeSearchResult(w,
					searchItem("acme/infra", "prod/main.tf", "https://github.com/acme/infra/blob/main/prod/main.tf"),
				)
			case strings.Contains(q, "hashicorp/setup-terraform"):
				writeSearchResult(w,
					searchItem("acme/infra", ".github/workflows/plan.yml", "https://github.com/acme/infra/blob/main/.github/workflows/plan.yml"),
				)
			default:
				writeSearchResult(w)
			}
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := newGitHubTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "Acme"})

	if out.Status != domain.ProbeOK {
		t.Fatalf("status = %s, want ok (skip reason %q, failure %q)", out.Status, out.SkipReason, out.Failure)
	}
	if len(out.Signals) != 2 {
		t.Fatalf("got %d signals, want 2: %+v", len(out.Signals), out.Signals)
	}

	kinds := map[string]bool{}
	for _, sig := range out.Signals {
		kinds[sig.Kind] = true
		if sig.SourceID != scan.SourceGitHub {
			t.Errorf("signal source = %q, want %q", sig.SourceID, scan.SourceGitHub)
		}
		if sig.Locator == "" || sig.Description == "" {
			t.Errorf("signal missing locator or description: %+v", sig)
		}
	}
	if !kinds[scan.KindConfigFileExact] || !kinds[scan.KindWorkflowAction] {
		t.Errorf("signal kinds = %v, want config file and workflow hits", kinds)
	}
}

func TestGitHubProbeStopsAfterTopStrengthHit(t *testing.T) {
	var weakQueries atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/orgs/"):
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/search/code":
			q := r.URL.Query().Get("q")
			if strings.Contains(q, "TF_API_TOKEN") || strings.Contains(q, "cdktf") {
				weakQueries.Add(1)
			}
			if strings.Contains(q, "filename:main.tf") {
				writeSearchResult(w, searchItem("acme/infra", "main.tf", "https://example.com/hit"))
				return
			}
			writeSearchResult(w)
		}
	}))
	defer server.Close()

	p := newGitHubTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "Acme"})

	if out.Status != domain.ProbeOK {
		t.Fatalf("status = %s, want ok", out.Status)
	}
	if got := weakQueries.Load(); got != 0 {
		t.Errorf("ran %d weaker queries after a top-strength hit, want 0", got)
	}
}

func TestGitHubProbeTriesAliasesAndVariants(t *testing.T) {
	var orgLookups []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/orgs/"):
			org := strings.TrimPrefix(r.URL.Path, "/orgs/")
			orgLookups = append(orgLookups, org)
			if org == "globex-inc" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/search/code":
			if !strings.Contains(r.URL.Query().Get("q"), "org:globex-inc") {
				t.Errorf("search not scoped to resolved org: %q", r.URL.Query().Get("q"))
			}
			writeSearchResult(w)
		}
	}))
	defer server.Close()

	p := newGitHubTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "Globex Corporation", Aliases: []string{"Globex"}})

	if out.Status != domain.ProbeOK {
		t.Fatalf("status = %s, want ok (skip reason %q)", out.Status, out.SkipReason)
	}
	if len(orgLookups) < 2 {
		t.Errorf("only tried %v before resolving, expected name variants first", orgLookups)
	}
}

func TestGitHubProbeSkipsUnknownOrg(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := newGitHubTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "No Such Company"})

	if out.Status != domain.ProbeSkipped {
		t.Fatalf("status = %s, want skipped", out.Status)
	}
	if out.SkipReason == "" {
		t.Error("skip outcome missing reason")
	}
}

func TestGitHubProbeClassifiesFailures(t *testing.T) {
	tests := []struct {
		status int
		want   domain.FailureKind
	}{
		{http.StatusForbidden, domain.FailRateLimited},
		{http.StatusTooManyRequests, domain.FailRateLimited},
		{http.StatusUnauthorized, domain.FailAuthInvalid},
		{http.StatusInternalServerError, domain.FailUpstream5xx},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		p := newGitHubTestProbe(server.URL)
		out := p.Probe(context.Background(), domain.Subject{Name: "Acme"})
		server.Close()

		if out.Status != domain.ProbeFailed {
			t.Errorf("status %d: probe status = %s, want failed", tt.status, out.Status)
			continue
		}
		if out.Failure != tt.want {
			t.Errorf("status %d: failure = %s, want %s", tt.status, out.Failure, tt.want)
		}
	}
}

func TestOrgVariants(t *testing.T) {
	variants := orgVariants("Acme Corp")
	want := map[string]bool{"acmecorp": true, "acme corp": true, "acme-corp": true, "acmecorphq": true, "acmecorp-inc": true}
	for _, v := range variants {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
		delete(want, v)
	}
	for missing := range want {
		t.Errorf("missing variant %q", missing)
	}
}
