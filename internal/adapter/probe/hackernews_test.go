package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/scan"
)

func newHackerNewsTestProbe(serverURL string) *HackerNewsProbe {
	cfg := fastClientConfig()
	cfg.EnableCircuitBreaker = false
	cfg.MaxRetries = 0
	return NewHackerNewsProbe(NewClient(http.DefaultClient, cfg), looseLimiter(), serverURL, testProfile())
}

func TestHackerNewsProbeAlwaysEnabled(t *testing.T) {
	p := NewHackerNewsProbe(NewClient(nil, DefaultClientConfig()), looseLimiter(), "", testProfile())
	if !p.Enabled() {
		t.Error("keyless probe must always be enabled")
	}
}

func TestHackerNewsProbeFiltersLooseHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(hnSearchResponse{Hits: []hnHit{
			{ObjectID: "1", Title: "How Acme manages Terraform at scale", URL: "https://blog.example.com/acme"},
			// Search matched but the story mentions only one of the two.
			{ObjectID: "2", Title: "Acme raises a Series C"},
			{ObjectID: "3", Title: "Terraform 2.0 released"},
			// No URL: locator must fall back to the HN item page.
			{ObjectID: "4", Title: "Ask HN: terraform rollout at Acme?"},
		}})
	}))
	defer server.Close()

	p := newHackerNewsTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "Acme"})

	if out.Status != domain.ProbeOK {
		t.Fatalf("status = %s, want ok (failure %q)", out.Status, out.Failure)
	}
	if len(out.Signals) != 2 {
		t.Fatalf("got %d signals, want 2: %+v", len(out.Signals), out.Signals)
	}
	for _, sig := range out.Signals {
		if sig.Kind != scan.KindStoryMention {
			t.Errorf("signal kind = %q, want story mention", sig.Kind)
		}
	}
	if got := out.Signals[1].Locator; got != "https://news.ycombinator.com/item?id=4" {
		t.Errorf("fallback locator = %q", got)
	}
}

func TestHackerNewsProbeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := newHackerNewsTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "Acme"})

	if out.Status != domain.ProbeFailed || out.Failure != domain.FailUpstream5xx {
		t.Errorf("outcome = %s/%s, want failed/upstream_5xx", out.Status, out.Failure)
	}
}

func TestHackerNewsProbeMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	p := newHackerNewsTestProbe(server.URL)
	out := p.Probe(context.Background(), domain.Subject{Name: "Acme"})

	if out.Status != domain.ProbeFailed || out.Failure != domain.FailMalformed {
		t.Errorf("outcome = %s/%s, want failed/malformed", out.Status, out.Failure)
	}
}
