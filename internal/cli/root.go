// Package cli implements the storytrace demo commands: instrumented
// story-generation workflows that exercise the tracing harness end to
// end against a real model and a running ingestion sink.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	storytrace "github.com/storytrace/storytrace-go"
	"github.com/storytrace/storytrace-go/gemini"
	"github.com/storytrace/storytrace-go/internal/config"
	"github.com/storytrace/storytrace-go/internal/logger"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// Global flags
	flagAPIKey string
	flagHost   string
	flagModel  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "storytrace",
	Short: "storytrace demos - traced story generation with Gemini",
	Long: `storytrace demos generate stories with Google Gemini and report every
step - traces, spans, generations, and quality scores - to a storytrace
ingestion endpoint.

Commands:
  story   - single-call story generation
  rich    - premise, story, and weighted quality analysis
  epic    - multi-section epic with a generated cast and rubric scoring

Example:
  export GEMINI_API_KEY="your-key"
  storytrace story
  storytrace rich --host http://localhost:8080`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "storytrace API key (or set STORYTRACE_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "storytrace ingestion host (or set STORYTRACE_HOST)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "Gemini model id (or set GEMINI_MODEL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(storyCmd)
	rootCmd.AddCommand(richCmd)
	rootCmd.AddCommand(epicCmd)
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

// setup loads config, initializes logging, and builds the tracing client
// and the model client shared by every demo command.
func setup(ctx context.Context) (*config.Config, *storytrace.Client, *gemini.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	if flagAPIKey != "" {
		cfg.Trace.APIKey = flagAPIKey
	}
	if flagHost != "" {
		cfg.Trace.Host = flagHost
	}
	if flagModel != "" {
		cfg.Gemini.Model = flagModel
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.RequireGemini(); err != nil {
		return nil, nil, nil, err
	}

	enabled := cfg.Trace.Enabled
	client := storytrace.New(storytrace.Config{
		APIKey:        cfg.Trace.APIKey,
		Host:          cfg.Trace.Host,
		Enabled:       &enabled,
		FlushAt:       cfg.Trace.FlushAt,
		FlushInterval: cfg.Trace.FlushInterval,
		Logger:        logger.Log,
	})

	gen, err := gemini.NewClient(ctx, gemini.Config{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
	})
	if err != nil {
		client.Shutdown()
		return nil, nil, nil, err
	}

	return cfg, client, gen, nil
}

// generateText runs one traced model call: a generation observation is
// opened around the request and records prompt, output, usage, and model.
func generateText(ctx context.Context, g gemini.Generator, name, prompt string) (string, error) {
	var text string
	err := storytrace.ObserveGeneration(ctx, storytrace.GenerationOptions{
		Name:  name,
		Input: map[string]any{"prompt": prompt},
	}, func(ctx context.Context, gen *storytrace.Generation) error {
		resp, err := g.Generate(ctx, gemini.Request{Prompt: prompt})
		if err != nil {
			return err
		}
		text = resp.Text
		if gen != nil {
			gen.End(&storytrace.GenerationEndOptions{
				Output: resp.Text,
				Model:  resp.Model,
				Usage: &storytrace.UsageDetails{
					InputTokens:  resp.Usage.InputTokens,
					OutputTokens: resp.Usage.OutputTokens,
					TotalTokens:  resp.Usage.TotalTokens,
				},
			})
		}
		return nil
	})
	return text, err
}

func fail(err error) error {
	if logger.Log != nil {
		logger.Log.Error("demo failed", zap.Error(err))
	} else {
		fmt.Fprintf(os.Stderr, "storytrace: %v\n", err)
	}
	return err
}

func printHeader(title string) {
	fmt.Println()
	fmt.Println(title)
	fmt.Println("============================================================")
}
