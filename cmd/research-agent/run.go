// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/agent"
	"github.com/pdiddy/research-agent/internal/notes"
	"github.com/pdiddy/research-agent/internal/reason"
	"github.com/pdiddy/research-agent/internal/research"
	"github.com/pdiddy/research-agent/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [topic...]",
	Short: "Research a topic and produce a structured summary",
	Long: `Run starts a research session: the reasoning model searches the web and
Wikipedia, saves notes, and produces a structured summary with sources.
The summary is printed as JSON; a Markdown report and a transcript
snapshot are saved to the output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")

	cfg := configFromFlags(cmd)
	if cfg.Agent.APIKey == "" {
		return fmt.Errorf("no API key: set --api-key, ANTHROPIC_API_KEY, or .secrets/anthropic-api-key")
	}

	store, err := notes.NewStore(cfg.Notes)
	if err != nil {
		return err
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: cfg.Research.Timeout}
	registry, err := research.Catalog(cfg.Research, store, httpClient)
	if err != nil {
		return err
	}

	a := &agent.Agent{
		Reasoner: &reason.ClaudeClient{
			APIKey:     cfg.Agent.APIKey,
			Model:      cfg.Agent.Model,
			MaxRetries: cfg.Agent.MaxRetries,
			Client:     &http.Client{Timeout: 2 * time.Minute},
		},
		Registry:    registry,
		Store:       store,
		MaxSteps:    cfg.Agent.MaxSteps,
		ToolTimeout: cfg.Agent.ToolTimeout,
		Progress:    os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Researching: %s\n", topic)
	res, err := a.Research(ctx, topic)
	if err != nil {
		var abort *agent.AbortError
		if errors.As(err, &abort) {
			fmt.Fprintf(os.Stderr, "Run aborted: %s (%d steps)\n", abort.Reason, abort.Steps)
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Response); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}

	if res.ReportPath != "" {
		fmt.Fprintf(os.Stderr, "Report saved to %s\n", res.ReportPath)
	}
	return nil
}

// configFromFlags assembles the run configuration from flags, loaded
// secrets, and environment.
func configFromFlags(cmd *cobra.Command) types.Config {
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	indexDir, _ := cmd.Flags().GetString("index-dir")
	noSearch, _ := cmd.Flags().GetBool("no-search")
	noWiki, _ := cmd.Flags().GetBool("no-wiki")

	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	apiKey = secretDefault("anthropic-api-key", apiKey)

	return types.Config{
		Agent: types.AgentConfig{
			AIConfig: types.AIConfig{
				Model:      model,
				APIKey:     apiKey,
				MaxRetries: 3,
			},
			MaxSteps:    maxSteps,
			ToolTimeout: 30 * time.Second,
		},
		Research: types.ResearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "research-agent/" + version,
			},
			MaxResults:       maxResults,
			EnableDuckDuckGo: !noSearch,
			EnableWikipedia:  !noWiki,
		},
		Notes: types.NotesConfig{
			OutputDir: outputDir,
			IndexDir:  indexDir,
		},
	}
}

func init() {
	runCmd.Flags().String("model", "claude-sonnet-4-5-20250929", "AI model identifier")
	runCmd.Flags().String("api-key", "", "Claude API key (overrides environment and secrets)")
	runCmd.Flags().Int("max-steps", 10, "maximum reasoning steps per run")
	runCmd.Flags().Int("max-results", 5, "maximum search results per tool observation")
	runCmd.Flags().String("output-dir", "outputs", "directory for notes, reports, and transcripts")
	runCmd.Flags().String("index-dir", "", "directory for the notes index database (empty disables indexing)")
	runCmd.Flags().Bool("no-search", false, "disable the DuckDuckGo search tool")
	runCmd.Flags().Bool("no-wiki", false, "disable the Wikipedia tool")

	rootCmd.AddCommand(runCmd)
}
