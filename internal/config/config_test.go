package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestFromEnvDefaults(t *testing.T) {
	// Empty values fall through to the defaults.
	for _, key := range []string{
		"SLACK_CHANNEL", "REST_API_PORT", "PROBE_TIMEOUT",
		"MAX_CONCURRENT_PROBES", "MAX_CONCURRENT_SCANS", "SUBJECT_PACING",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	if cfg.SlackChannel != "#adopter-signals" {
		t.Errorf("SlackChannel = %q", cfg.SlackChannel)
	}
	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q", cfg.APIPort)
	}
	if cfg.ProbeTimeout != 30*time.Second {
		t.Errorf("ProbeTimeout = %v", cfg.ProbeTimeout)
	}
	if cfg.MaxConcurrentProbes != 4 || cfg.MaxConcurrentScans != 4 {
		t.Errorf("concurrency = %d/%d, want 4/4", cfg.MaxConcurrentProbes, cfg.MaxConcurrentScans)
	}
	if cfg.SubjectPacing != 2*time.Second {
		t.Errorf("SubjectPacing = %v", cfg.SubjectPacing)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT", "10s")
	t.Setenv("MAX_CONCURRENT_PROBES", "2")
	t.Setenv("REST_API_PORT", "9090")

	cfg := FromEnv()
	if cfg.ProbeTimeout != 10*time.Second {
		t.Errorf("ProbeTimeout = %v, want 10s", cfg.ProbeTimeout)
	}
	if cfg.MaxConcurrentProbes != 2 {
		t.Errorf("MaxConcurrentProbes = %d, want 2", cfg.MaxConcurrentProbes)
	}
	if cfg.APIPort != "9090" {
		t.Errorf("APIPort = %q, want 9090", cfg.APIPort)
	}
}

func TestLoadScoringDefaults(t *testing.T) {
	weights, thresholds, err := LoadScoring("")
	if err != nil {
		t.Fatalf("LoadScoring: %v", err)
	}
	if weights[domain.ConfigFileExact] != 40 {
		t.Errorf("default config-file-exact weight = %d", weights[domain.ConfigFileExact])
	}
	if len(thresholds) != 3 {
		t.Errorf("default thresholds = %+v", thresholds)
	}
}

func TestLoadScoringFromFile(t *testing.T) {
	path := writeTempFile(t, "scoring.yaml", `
weights:
  config-file-exact: 50
  ci-workflow: 40
  api-key-reference: 30
  sdk-dependency: 30
  package-dependency: 25
  job-posting: 20
  config-file-keyword: 15
  social-mention: 10
thresholds:
  - min_score: 70
    tier: very_high
    verdict: "yes"
  - min_score: 30
    tier: medium
    verdict: possibly
`)

	weights, thresholds, err := LoadScoring(path)
	if err != nil {
		t.Fatalf("LoadScoring: %v", err)
	}
	if weights[domain.ConfigFileExact] != 50 {
		t.Errorf("overridden weight = %d, want 50", weights[domain.ConfigFileExact])
	}
	if err := weights.Validate(); err != nil {
		t.Errorf("overridden weights should validate: %v", err)
	}
	if len(thresholds) != 2 || thresholds[0].MinScore != 70 {
		t.Errorf("overridden thresholds = %+v", thresholds)
	}
	if thresholds[0].Verdict != domain.VerdictYes {
		t.Errorf("verdict = %q, want yes", thresholds[0].Verdict)
	}
}

func TestLoadScoringPartialFile(t *testing.T) {
	// A file that only overrides thresholds keeps the default weights.
	path := writeTempFile(t, "scoring.yaml", `
thresholds:
  - min_score: 100
    tier: very_high
    verdict: "yes"
`)

	weights, thresholds, err := LoadScoring(path)
	if err != nil {
		t.Fatalf("LoadScoring: %v", err)
	}
	if err := weights.Validate(); err != nil {
		t.Errorf("default weights expected: %v", err)
	}
	if len(thresholds) != 1 || thresholds[0].MinScore != 100 {
		t.Errorf("thresholds = %+v", thresholds)
	}
}

func TestLoadScoringBadFile(t *testing.T) {
	if _, _, err := LoadScoring(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}

	path := writeTempFile(t, "scoring.yaml", "weights: [not, a, map]")
	if _, _, err := LoadScoring(path); err == nil {
		t.Error("malformed YAML should error")
	}
}

func TestLoadProfile(t *testing.T) {
	profile, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Name == "" {
		t.Error("shipped profile missing name")
	}

	path := writeTempFile(t, "profile.yaml", `
name: kubernetes
keywords: [kubernetes, k8s]
config_filenames: [kustomization.yaml]
sdk_packages: ["@kubernetes/client-node"]
`)
	profile, err = LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Name != "kubernetes" || len(profile.Keywords) != 2 {
		t.Errorf("loaded profile = %+v", profile)
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	path := writeTempFile(t, "profile.yaml", "name: empty-profile\n")
	if _, err := LoadProfile(path); err == nil {
		t.Error("profile with nothing to search should error")
	}
}
