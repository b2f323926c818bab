package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	storytrace "github.com/storytrace/storytrace-go"
	"github.com/storytrace/storytrace-go/analysis"
	"github.com/storytrace/storytrace-go/gemini"
)

// Weighted dimensions for the rich demo's overall quality score.
var richWeights = map[string]float64{
	"creativity": 0.3,
	"structure":  0.4,
	"engagement": 0.3,
}

var richCmd = &cobra.Command{
	Use:   "rich",
	Short: "Generate a story with rich trace metadata and weighted quality analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, client, gen, err := setup(ctx)
		if err != nil {
			return fail(err)
		}
		defer client.Shutdown()

		trace, ctx := storytrace.StartTrace(ctx, storytrace.TraceOptions{
			Name:      "rich-story-generation",
			UserID:    "demo_user_123",
			SessionID: fmt.Sprintf("session_%d", time.Now().Unix()),
			Tags:      []string{"creative_writing", "demo", "metadata_showcase", "gemini"},
			Metadata: map[string]any{
				"experiment": map[string]any{
					"name":    "rich_metadata_demo",
					"version": "1.0",
				},
				"system_info": map[string]any{
					"model": cfg.Gemini.Model,
				},
			},
			Input: map[string]any{
				"task":         "Generate a creative story with analysis",
				"requirements": []string{"creative", "well-structured", "engaging"},
			},
		})

		premise, err := richPremise(ctx, gen)
		if err != nil {
			return endFailed(trace, err)
		}
		fmt.Printf("Premise: %s...\n", truncate(premise, 80))

		story, err := richStory(ctx, gen, premise)
		if err != nil {
			return endFailed(trace, err)
		}
		fmt.Printf("Story: %s...\n", truncate(story, 80))

		overall, label, breakdown, err := richAnalyze(ctx, story)
		if err != nil {
			return endFailed(trace, err)
		}

		if trace != nil {
			trace.Score("overall_quality", overall, &storytrace.ScoreAddOptions{
				DataType: "NUMERIC",
				Comment:  label,
			})
			trace.End(&storytrace.TraceEndOptions{
				Output: map[string]any{
					"premise":       premise,
					"story":         story,
					"overall_score": overall,
					"quality_label": label,
					"breakdown":     breakdown,
					"total_words":   analysis.WordCount(story),
				},
			})
		}

		printHeader("Generated Story")
		fmt.Println(story)

		printHeader("Quality Analysis")
		fmt.Printf("Overall Score: %d/100 (%s)\n", overall, label)
		for name, result := range breakdown {
			fmt.Printf("  %-11s %d/100 (weight %.0f%%)\n", name+":", result.Score, richWeights[name]*100)
		}
		return nil
	},
}

func richPremise(ctx context.Context, gen gemini.Generator) (string, error) {
	var premise string
	err := storytrace.Observe(ctx, "premise", func(ctx context.Context) error {
		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Metadata: map[string]any{
				"step":          "premise_generation",
				"target_length": "1-2 sentences",
			},
		})

		prompt := `Generate a unique and compelling science fiction story premise in 1-2 sentences.
Include an interesting character, setting, and conflict that would make readers want to continue reading.`

		text, err := generateText(ctx, gen, "premise-generation", prompt)
		if err != nil {
			return err
		}
		premise = strings.TrimSpace(text)

		quality := analysis.Premise(premise)
		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{
				"premise":          premise,
				"quality_analysis": quality,
			},
		})
		return nil
	})
	return premise, err
}

func richStory(ctx context.Context, gen gemini.Generator, premise string) (string, error) {
	var story string
	err := storytrace.Observe(ctx, "story-writing", func(ctx context.Context) error {
		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Metadata: map[string]any{
				"step":           "story_writing",
				"premise_length": analysis.WordCount(premise),
				"target_length":  "300-400 words",
			},
		})

		prompt := fmt.Sprintf(`Based on this premise: %s

Write a complete science fiction story of 300-400 words that includes:
- Vivid descriptions of the setting
- Engaging dialogue between characters
- A clear beginning, middle, and end
- Emotional depth and character development

Make it compelling and well-paced.`, premise)

		start := time.Now()
		text, err := generateText(ctx, gen, "story-generation", prompt)
		if err != nil {
			return err
		}
		story = strings.TrimSpace(text)

		words := analysis.WordCount(story)
		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{
				"story": story,
				"performance_metrics": map[string]any{
					"word_count":              words,
					"generation_time_seconds": time.Since(start).Seconds(),
					"meets_length_target":     words >= 300 && words <= 400,
				},
			},
		})
		return nil
	})
	return story, err
}

// richAnalyze scores the story on three heuristic dimensions and combines
// them into a weighted overall score.
func richAnalyze(ctx context.Context, story string) (int, string, map[string]storytrace.ScoreResult, error) {
	breakdown := make(map[string]storytrace.ScoreResult, len(richWeights))

	var overall int
	var label string
	err := storytrace.Observe(ctx, "story-analysis", func(ctx context.Context) error {
		scorers := []struct {
			name string
			fn   func(string) storytrace.ScoreResult
		}{
			{"creativity", analysis.Creativity},
			{"structure", analysis.Structure},
			{"engagement", analysis.Engagement},
		}

		components := make(map[string]float64, len(scorers))
		for _, scorer := range scorers {
			result := storytrace.ScoreResult{}
			if err := storytrace.Observe(ctx, scorer.name+"-analysis", func(ctx context.Context) error {
				result = scorer.fn(story)
				storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
					Output: result,
				})
				return nil
			}); err != nil {
				return err
			}
			breakdown[scorer.name] = result
			components[scorer.name] = float64(result.Score)
		}

		var err error
		overall, label, err = storytrace.Aggregate(components, richWeights)
		if err != nil {
			return err
		}

		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{
				"overall_score": overall,
				"quality_label": label,
			},
			Metadata: map[string]any{
				"scoring_algorithm": "weighted_multi_dimensional",
				"score_weights":     richWeights,
			},
		})
		return nil
	})
	if err != nil {
		return 0, "", nil, err
	}

	return overall, label, breakdown, nil
}

func endFailed(trace *storytrace.Trace, err error) error {
	if trace != nil {
		trace.End(nil)
	}
	return fail(err)
}

// truncate shortens s to at most n runes, never splitting a multi-byte
// character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
