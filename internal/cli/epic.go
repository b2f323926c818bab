package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	storytrace "github.com/storytrace/storytrace-go"
	"github.com/storytrace/storytrace-go/analysis"
	"github.com/storytrace/storytrace-go/gemini"
)

// Weighted dimensions for the epic demo's overall quality score. The
// structure and language dimensions are rated by the model itself on a
// 1-10 rubric; engagement comes from a keyword read of its critique.
var epicWeights = map[string]float64{
	"structure":  0.4,
	"language":   0.3,
	"engagement": 0.3,
}

// Character is one cast member of the epic story, decoded from the
// model's JSON description.
type Character struct {
	Name              string   `json:"name"`
	Species           string   `json:"species"`
	Background        string   `json:"background"`
	SpecialAbilities  []string `json:"special_abilities"`
	PersonalityTraits []string `json:"personality_traits"`
}

// ThemeAnalysis is the model's JSON read of the finished story.
type ThemeAnalysis struct {
	MainThemes      []string `json:"main_themes"`
	EpicElements    []string `json:"epic_elements"`
	EmotionalTone   string   `json:"emotional_tone"`
	ComplexityScore int      `json:"complexity_score"`
	Recommendations []string `json:"recommendations"`
}

var epicCast = []string{"hero", "villain", "wise mentor"}

var epicSections = []struct {
	name        string
	sectionType string
	context     string
}{
	{"opening", "opening scene", ""},
	{"conflict", "conflict scene", ""}, // context is the truncated opening, filled at runtime
	{"climax", "climactic battle", "Previous scenes established conflict. Current tension is high."},
	{"resolution", "resolution", "After an epic battle, the story needs closure."},
}

var structureRubric = []string{"Beginning", "Middle", "Ending", "Flow"}
var languageRubric = []string{"Grammar", "Vocabulary", "Style", "Clarity"}

var epicCmd = &cobra.Command{
	Use:   "epic",
	Short: "Generate a multi-section epic story with a generated cast and model-rated rubric scoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, client, gen, err := setup(ctx)
		if err != nil {
			return fail(err)
		}
		defer client.Shutdown()

		trace, ctx := storytrace.StartTrace(ctx, storytrace.TraceOptions{
			Name: "epic-story-generation",
			Tags: []string{"creative_writing", "demo", "epic", "rubric_scoring"},
		})

		characters, err := epicCharacters(ctx, gen)
		if err != nil {
			return endFailed(trace, err)
		}

		fullStory, sections, err := epicWrite(ctx, gen, characters)
		if err != nil {
			return endFailed(trace, err)
		}

		themes, err := epicThemes(ctx, gen, fullStory)
		if err != nil {
			return endFailed(trace, err)
		}

		overall, label, breakdown, err := epicAnalyze(ctx, gen, fullStory)
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
					"characters":    characters,
					"sections":      sections,
					"themes":        themes,
					"overall_score": overall,
					"quality_label": label,
					"breakdown":     breakdown,
					"total_words":   analysis.WordCount(fullStory),
				},
			})
		}

		printHeader("Cast")
		for i, char := range characters {
			fmt.Printf("%d. %s (%s)\n", i+1, char.Name, char.Species)
			fmt.Printf("   %s\n", char.Background)
			if len(char.SpecialAbilities) > 0 {
				fmt.Printf("   Abilities: %s\n", strings.Join(char.SpecialAbilities, ", "))
			}
		}

		printHeader("Epic Story")
		fmt.Println(fullStory)

		printHeader("Themes")
		fmt.Printf("Main themes: %s\n", strings.Join(themes.MainThemes, ", "))
		fmt.Printf("Epic elements: %s\n", strings.Join(themes.EpicElements, ", "))
		fmt.Printf("Emotional tone: %s\n", themes.EmotionalTone)
		fmt.Printf("Complexity: %d/10\n", themes.ComplexityScore)

		printHeader("Quality Analysis")
		fmt.Printf("Overall Score: %d/100 (%s)\n", overall, label)
		for name, result := range breakdown {
			fmt.Printf("  %-11s %d/100 (weight %.0f%%)\n", name+":", result.Score, epicWeights[name]*100)
		}
		fmt.Printf("\nTotal words generated: %d\n", analysis.WordCount(fullStory))
		return nil
	},
}

// epicCharacters generates the story's cast, one traced model call per
// character. Each description comes back as JSON; a response that cannot
// be decoded fails the span and the command rather than being quietly
// replaced with raw text.
func epicCharacters(ctx context.Context, gen gemini.Generator) ([]Character, error) {
	characters := make([]Character, 0, len(epicCast))

	for _, characterType := range epicCast {
		char, err := epicCharacter(ctx, gen, characterType)
		if err != nil {
			return nil, err
		}
		characters = append(characters, char)
	}

	return characters, nil
}

func epicCharacter(ctx context.Context, gen gemini.Generator, characterType string) (Character, error) {
	spanName := strings.ReplaceAll(characterType, " ", "-") + "-character"

	var char Character
	err := storytrace.Observe(ctx, spanName, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Generate a detailed %s character for an epic story.
Return as JSON with the following structure:
{
    "name": "character name",
    "species": "species/race",
    "background": "brief background story",
    "special_abilities": ["ability1", "ability2"],
    "personality_traits": ["trait1", "trait2", "trait3"]
}

Make it creative and unique!`, characterType)

		text, err := generateText(ctx, gen, spanName+"-generation", prompt)
		if err != nil {
			return err
		}
		if err := gemini.DecodeJSON(text, &char); err != nil {
			return fmt.Errorf("%s character: %w", characterType, err)
		}

		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: char,
		})
		return nil
	})
	return char, err
}

// characterLines renders the cast as the bullet list the section prompts
// embed.
func characterLines(characters []Character) string {
	lines := make([]string, 0, len(characters))
	for _, char := range characters {
		lines = append(lines, fmt.Sprintf("- %s: %s, %s", char.Name, char.Species, char.Background))
	}
	return strings.Join(lines, "\n")
}

// epicWrite generates the story section by section. Every section prompt
// carries the cast; the conflict section is additionally fed a truncated
// copy of the opening as its previous context.
func epicWrite(ctx context.Context, gen gemini.Generator, characters []Character) (string, map[string]string, error) {
	descriptions := characterLines(characters)
	sections := make(map[string]string, len(epicSections))
	var parts []string

	err := storytrace.Observe(ctx, "epic-writing", func(ctx context.Context) error {
		for _, section := range epicSections {
			previous := section.context
			if section.name == "conflict" {
				previous = fmt.Sprintf("Opening: %s...", truncate(sections["opening"], 100))
			}

			prompt := fmt.Sprintf(`You are writing a %s for an epic story.

Characters available:
%s

Previous context: %s

Write an engaging %s (200-300 words) that:
1. Uses at least one of the characters
2. Advances the plot
3. Has vivid descriptions
4. Ends with a hook for the next section

Make it exciting and cinematic!`, section.sectionType, descriptions, previous, section.sectionType)

			text, err := generateText(ctx, gen, section.name+"-section", prompt)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			sections[section.name] = text
			parts = append(parts, text)
		}

		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{"sections": sections},
		})
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return strings.Join(parts, "\n\n"), sections, nil
}

// epicThemes has the model read the finished story back as a JSON theme
// analysis. Like character generation, an undecodable response surfaces
// as an error.
func epicThemes(ctx context.Context, gen gemini.Generator, story string) (ThemeAnalysis, error) {
	var themes ThemeAnalysis
	err := storytrace.Observe(ctx, "theme-analysis", func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Analyze this epic story and identify:

Story: %s

Return as JSON:
{
    "main_themes": ["theme1", "theme2"],
    "epic_elements": ["element1", "element2"],
    "emotional_tone": "tone description",
    "complexity_score": 1-10,
    "recommendations": ["suggestion1", "suggestion2"]
}`, story)

		text, err := generateText(ctx, gen, "theme-analysis-generation", prompt)
		if err != nil {
			return err
		}
		if err := gemini.DecodeJSON(text, &themes); err != nil {
			return fmt.Errorf("theme analysis: %w", err)
		}

		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: themes,
		})
		return nil
	})
	return themes, err
}

// epicAnalyze asks the model to rate the story against two rubrics and
// reads an engagement score out of its critique, then combines the three
// dimensions into the weighted overall score.
func epicAnalyze(ctx context.Context, gen gemini.Generator, story string) (int, string, map[string]storytrace.ScoreResult, error) {
	breakdown := make(map[string]storytrace.ScoreResult, len(epicWeights))

	var overall int
	var label string
	err := storytrace.Observe(ctx, "epic-analysis", func(ctx context.Context) error {
		structure, err := epicRubricScore(ctx, gen, "structure", story, structureRubric,
			`Rate each element from 1-10:
1. Clear beginning: Does it establish setting/character effectively?
2. Developed middle: Is there meaningful conflict/development?
3. Satisfying ending: Does it resolve appropriately?
4. Overall flow: Does it read smoothly?

Format your response as:
Beginning: X/10
Middle: X/10
Ending: X/10
Flow: X/10
Brief explanation of ratings.`)
		if err != nil {
			return err
		}
		breakdown["structure"] = structure

		language, err := epicRubricScore(ctx, gen, "language", story, languageRubric,
			`Rate from 1-10:
1. Grammar and mechanics
2. Vocabulary richness
3. Writing style consistency
4. Clarity and readability

Format: Grammar: X/10, Vocabulary: X/10, Style: X/10, Clarity: X/10
Then provide brief feedback.`)
		if err != nil {
			return err
		}
		breakdown["language"] = language

		engagement, err := epicEngagementScore(ctx, gen, story)
		if err != nil {
			return err
		}
		breakdown["engagement"] = engagement

		components := make(map[string]float64, len(breakdown))
		for name, result := range breakdown {
			components[name] = float64(result.Score)
		}

		overall, label, err = storytrace.Aggregate(components, epicWeights)
		if err != nil {
			return err
		}

		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{
				"overall_score": overall,
				"quality_label": label,
			},
			Metadata: map[string]any{
				"score_weights": epicWeights,
			},
		})
		return nil
	})
	if err != nil {
		return 0, "", nil, err
	}

	return overall, label, breakdown, nil
}

// epicRubricScore has the model rate the story on the given 1-10 rubric
// and parses its "Dimension: X/10" lines. A response the rubric cannot be
// read from fails the span and the command; scores are never fabricated
// to cover a parse failure.
func epicRubricScore(ctx context.Context, gen gemini.Generator, dimension, story string, rubric []string, instructions string) (storytrace.ScoreResult, error) {
	var result storytrace.ScoreResult
	err := storytrace.Observe(ctx, dimension+"-rubric", func(ctx context.Context) error {
		prompt := fmt.Sprintf("Analyze this story:\n\n%s\n\n%s", story, instructions)

		critique, err := generateText(ctx, gen, dimension+"-critique", prompt)
		if err != nil {
			return err
		}

		scores, err := storytrace.ParseRubric(critique, rubric)
		if err != nil {
			return err
		}

		components := make(map[string]int, len(scores))
		for dim, value := range scores {
			components[strings.ToLower(dim)] = value
		}

		result = storytrace.ScoreResult{
			Score:      storytrace.RubricAverage(scores),
			Components: components,
			Assessment: strings.TrimSpace(critique),
		}
		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{
				"score":      result.Score,
				"components": components,
			},
		})
		return nil
	})
	return result, err
}

// epicEngagementScore asks the model for a free-text engagement critique
// and scores the sentiment of the critique itself.
func epicEngagementScore(ctx context.Context, gen gemini.Generator, story string) (storytrace.ScoreResult, error) {
	var result storytrace.ScoreResult
	err := storytrace.Observe(ctx, "engagement-critique", func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Rate this story's engagement factor:

%s

On a scale of 1-10, rate:
1. Interest level: How captivating is it?
2. Emotional impact: Does it evoke feelings?
3. Memorability: Will readers remember it?
4. Originality: How unique/creative is it?

Provide scores and brief reasoning for each.`, story)

		critique, err := generateText(ctx, gen, "engagement-critique", prompt)
		if err != nil {
			return err
		}

		result = analysis.CritiqueSentiment(critique)
		result.Assessment = strings.TrimSpace(critique)

		storytrace.UpdateCurrentSpan(ctx, storytrace.SpanUpdateOptions{
			Output: map[string]any{
				"score":      result.Score,
				"components": result.Components,
			},
		})
		return nil
	})
	return result, err
}
