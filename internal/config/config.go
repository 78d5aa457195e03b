package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ridgeline-intel/prospector/internal/adapter/probe"
	"github.com/ridgeline-intel/prospector/internal/core/domain"
)

// Config carries everything the binaries wire together. Secrets come
// from the environment (optionally via .env); scoring tables and the
// technology profile can be overridden from YAML files.
type Config struct {
	GitHubToken    string
	JobBoardAPIKey string
	JobBoardURL    string

	DatabaseURL  string
	SlackToken   string
	SlackChannel string

	APIPort      string
	APIAuthToken string

	ProbeTimeout        time.Duration
	MaxConcurrentProbes int
	MaxConcurrentScans  int
	SubjectPacing       time.Duration

	ScoringFile string
	ProfileFile string
}

// FromEnv reads the configuration from the environment.
func FromEnv() Config {
	return Config{
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		JobBoardAPIKey: os.Getenv("JOBBOARD_API_KEY"),
		JobBoardURL:    os.Getenv("JOBBOARD_BASE_URL"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SlackToken:   os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel: getEnv("SLACK_CHANNEL", "#adopter-signals"),

		APIPort:      getEnv("REST_API_PORT", "8080"),
		APIAuthToken: os.Getenv("REST_API_AUTH_TOKEN"),

		ProbeTimeout:        getEnvDuration("PROBE_TIMEOUT", 30*time.Second),
		MaxConcurrentProbes: getEnvInt("MAX_CONCURRENT_PROBES", 4),
		MaxConcurrentScans:  getEnvInt("MAX_CONCURRENT_SCANS", 4),
		SubjectPacing:       getEnvDuration("SUBJECT_PACING", 2*time.Second),

		ScoringFile: os.Getenv("SCORING_FILE"),
		ProfileFile: os.Getenv("PROFILE_FILE"),
	}
}

// scoringFile is the YAML shape of a scoring override file.
type scoringFile struct {
	Weights    map[domain.Category]int `yaml:"weights"`
	Thresholds domain.ThresholdTable   `yaml:"thresholds"`
}

// LoadScoring reads weight and threshold tables from a YAML file,
// falling back to the shipped defaults for any table the file omits.
// An empty path returns the defaults. The tables are not validated
// here; the orchestrator validates them at construction.
func LoadScoring(path string) (domain.WeightTable, domain.ThresholdTable, error) {
	weights := domain.DefaultWeightTable()
	thresholds := domain.DefaultThresholdTable()
	if path == "" {
		return weights, thresholds, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read scoring file: %w", err)
	}

	var file scoringFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse scoring file: %w", err)
	}

	if file.Weights != nil {
		weights = domain.WeightTable(file.Weights)
	}
	if file.Thresholds != nil {
		thresholds = file.Thresholds
	}
	return weights, thresholds, nil
}

// LoadProfile reads a technology profile from a YAML file. An empty
// path returns the shipped example profile.
func LoadProfile(path string) (probe.Profile, error) {
	if path == "" {
		return probe.DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return probe.Profile{}, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile probe.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return probe.Profile{}, fmt.Errorf("failed to parse profile file: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return probe.Profile{}, err
	}
	return profile, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
