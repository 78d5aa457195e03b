package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ridgeline-intel/prospector/internal/adapter/probe"
	"github.com/ridgeline-intel/prospector/internal/config"
	"github.com/ridgeline-intel/prospector/internal/core/domain"
	"github.com/ridgeline-intel/prospector/internal/core/ports"
	"github.com/ridgeline-intel/prospector/internal/core/scan"
)

func main() {
	subjectName := flag.String("subject", "", "Organization name to scan")
	subjectFile := flag.String("file", "", "File with one organization name per line (batch mode)")
	alias := flag.String("alias", "", "Known alias for the subject (e.g. its GitHub org)")
	jsonOut := flag.Bool("json", false, "Emit raw JSON reports instead of a table")
	scoringFile := flag.String("scoring", "", "YAML file overriding the weight/threshold tables")
	profileFile := flag.String("profile", "", "YAML technology profile file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (this is fine if the environment is already set)")
	}

	cfg := config.FromEnv()
	if *scoringFile != "" {
		cfg.ScoringFile = *scoringFile
	}
	if *profileFile != "" {
		cfg.ProfileFile = *profileFile
	}

	subjects, err := loadSubjects(*subjectName, *alias, *subjectFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	orch, probes, err := buildOrchestrator(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	for _, p := range probes {
		if !p.Enabled() {
			log.Printf("⚠️  Source %s disabled (missing credentials)", p.ID())
		}
	}

	ctx := context.Background()

	var reports []domain.ScoreReport
	if len(subjects) == 1 {
		reports = []domain.ScoreReport{orch.ScanOne(ctx, subjects[0])}
	} else {
		log.Printf("🔍 Scanning %d organizations...", len(subjects))
		reports = orch.ScanBatch(ctx, subjects)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatalf("❌ error encoding reports: %v", err)
		}
		return
	}

	printTable(reports)
}

func buildOrchestrator(cfg config.Config) (*scan.Orchestrator, []ports.SourceProbe, error) {
	weights, thresholds, err := config.LoadScoring(cfg.ScoringFile)
	if err != nil {
		return nil, nil, err
	}
	profile, err := config.LoadProfile(cfg.ProfileFile)
	if err != nil {
		return nil, nil, err
	}

	client := probe.NewClient(nil, probe.DefaultClientConfig())
	limiter := probe.NewSourceLimiter(probe.DefaultBudgets())

	probes := []ports.SourceProbe{
		probe.NewGitHubProbe(client, limiter, cfg.GitHubToken, "", profile),
		probe.NewJobBoardProbe(client, limiter, cfg.JobBoardAPIKey, cfg.JobBoardURL, profile),
		probe.NewHackerNewsProbe(client, limiter, "", profile),
		probe.NewNPMRegistryProbe(client, limiter, "", profile),
	}

	normalizer := scan.NewNormalizer(scan.DefaultKindTables(), weights)
	orch, err := scan.New(probes, normalizer, weights, thresholds, scan.Config{
		ProbeTimeout:        cfg.ProbeTimeout,
		MaxConcurrentProbes: cfg.MaxConcurrentProbes,
		MaxConcurrentScans:  cfg.MaxConcurrentScans,
		SubjectPacing:       cfg.SubjectPacing,
	})
	if err != nil {
		return nil, nil, err
	}
	return orch, probes, nil
}

func loadSubjects(name, alias, file string) ([]domain.Subject, error) {
	if name == "" && file == "" {
		return nil, fmt.Errorf("provide -subject or -file")
	}
	if name != "" && file != "" {
		return nil, fmt.Errorf("-subject and -file are mutually exclusive")
	}

	if name != "" {
		subject := domain.Subject{Name: name}
		if alias != "" {
			subject.Aliases = []string{alias}
		}
		return []domain.Subject{subject}, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error reading subject file: %w", err)
	}
	defer f.Close()

	var subjects []domain.Subject
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		subjects = append(subjects, domain.Subject{Name: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subject file: %w", err)
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("subject file %s contains no names", file)
	}
	return subjects, nil
}

func printTable(reports []domain.ScoreReport) {
	sorted := make([]domain.ScoreReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalScore > sorted[j].TotalScore
	})

	adopters := 0
	fmt.Println("------------------------------------------------------------------")
	for _, report := range sorted {
		icon := "▫️"
		switch report.Verdict {
		case domain.VerdictYes:
			icon = "🎯"
			adopters++
		case domain.VerdictLikely:
			icon = "✅"
			adopters++
		case domain.VerdictPossibly:
			icon = "🤔"
		}

		fmt.Printf("%s %-30s %-11s score %3d/%d", icon, report.Subject.Name, report.Verdict, report.TotalScore, report.MaxPossibleScore)
		if report.Cancelled {
			fmt.Print("  (cancelled)")
		} else if report.NoSourcesAvailable {
			fmt.Print("  (no sources available)")
		} else if len(report.SourcesFailed) > 0 {
			var failed []string
			for sourceID := range report.SourcesFailed {
				failed = append(failed, sourceID)
			}
			sort.Strings(failed)
			fmt.Printf("  (failed: %s)", strings.Join(failed, ","))
		}
		fmt.Println()

		for _, sourceID := range sortedSources(report) {
			for _, ev := range report.EvidenceBySource[sourceID] {
				fmt.Printf("    +%-3d [%s] %s\n", ev.Weight, sourceID, ev.Description)
			}
		}
	}
	fmt.Println("------------------------------------------------------------------")
	fmt.Printf("🏁 %d organizations scanned, %d adopters found.\n", len(reports), adopters)
}

func sortedSources(report domain.ScoreReport) []string {
	out := make([]string, 0, len(report.EvidenceBySource))
	for sourceID := range report.EvidenceBySource {
		out = append(out, sourceID)
	}
	sort.Strings(out)
	return out
}
