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

const npmRegistryAPI = "https://registry.npmjs.org"

// maxManifestLookups bounds per-package manifest fetches for one scan.
const maxManifestLookups = 10

// NPMRegistryProbe checks whether packages published under the
// subject's npm scope depend on the profile's SDK packages. Keyless.
type NPMRegistryProbe struct {
	client  *Client
	limiter *SourceLimiter
	baseURL string
	profile Profile
}

func NewNPMRegistryProbe(client *Client, limiter *SourceLimiter, baseURL string, profile Profile) *NPMRegistryProbe {
	if baseURL == "" {
		baseURL = npmRegistryAPI
	}
	return &NPMRegistryProbe{
		client:  client,
		limiter: limiter,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		profile: profile,
	}
}

func (p *NPMRegistryProbe) ID() string { return scan.SourceNPM }

func (p *NPMRegistryProbe) Enabled() bool { return true }

func (p *NPMRegistryProbe) Probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	start := time.Now()
	out := p.probe(ctx, subject)
	RecordProbe(p.ID(), out.Status, time.Since(start))
	if out.Status == domain.ProbeFailed {
		RecordProbeError(p.ID(), string(out.Failure))
	}
	return out
}

type npmSearchResponse struct {
	Objects []struct {
		Package struct {
			Name string `json:"name"`
		} `json:"package"`
	} `json:"objects"`
}

type npmManifest struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (p *NPMRegistryProbe) probe(ctx context.Context, subject domain.Subject) domain.ProbeOutcome {
	scope := strings.NewReplacer(" ", "", ".", "").Replace(strings.ToLower(subject.Name))

	names, failure := p.searchScope(ctx, scope)
	if failure != "" {
		return domain.Fail(failure)
	}
	if len(names) == 0 {
		return domain.Skip(fmt.Sprintf("no npm packages under scope @%s", scope))
	}
	if len(names) > maxManifestLookups {
		names = names[:maxManifestLookups]
	}

	var signals []domain.Signal
	for _, name := range names {
		manifest, failure := p.fetchManifest(ctx, name)
		if failure != "" {
			return domain.Fail(failure)
		}
		if manifest == nil {
			continue
		}

		for _, sdk := range p.profile.SDKPackages {
			_, inDeps := manifest.Dependencies[sdk]
			_, inDev := manifest.DevDependencies[sdk]
			if !inDeps && !inDev {
				continue
			}
			signals = append(signals, domain.Signal{
				SourceID:     p.ID(),
				Kind:         scan.KindManifestDep,
				Description:  fmt.Sprintf("package %s depends on %s", manifest.Name, sdk),
				Locator:      "https://www.npmjs.com/package/" + manifest.Name,
				DiscoveredAt: time.Now().UTC(),
			})
		}
	}

	return domain.Ok(signals)
}

func (p *NPMRegistryProbe) searchScope(ctx context.Context, scope string) ([]string, domain.FailureKind) {
	if err := p.limiter.Wait(ctx, p.ID()); err != nil {
		return nil, domain.FailTimeout
	}

	u := fmt.Sprintf("%s/-/v1/search?text=%s&size=20", p.baseURL, url.QueryEscape("scope:"+scope))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.FailMalformed
	}

	resp, err := p.client.Do(p.ID(), req)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyStatus(resp.StatusCode)
	}

	var data npmSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, domain.FailMalformed
	}

	names := make([]string, 0, len(data.Objects))
	for _, obj := range data.Objects {
		names = append(names, obj.Package.Name)
	}
	return names, ""
}

// fetchManifest returns nil without failure when the package has no
// resolvable latest manifest; one unpublished package should not sink
// the probe.
func (p *NPMRegistryProbe) fetchManifest(ctx context.Context, name string) (*npmManifest, domain.FailureKind) {
	if err := p.limiter.Wait(ctx, p.ID()); err != nil {
		return nil, domain.FailTimeout
	}

	u := fmt.Sprintf("%s/%s/latest", p.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.FailMalformed
	}

	resp, err := p.client.Do(p.ID(), req)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ""
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyStatus(resp.StatusCode)
	}

	var manifest npmManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, domain.FailMalformed
	}
	return &manifest, ""
}
