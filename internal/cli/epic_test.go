package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storytrace/storytrace-go/gemini"
)

// scriptedGenerator returns canned responses in order and records every
// prompt it was asked.
type scriptedGenerator struct {
	responses []string
	prompts   []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req gemini.Request) (*gemini.Response, error) {
	g.prompts = append(g.prompts, req.Prompt)
	text := "placeholder"
	if len(g.responses) > 0 {
		text = g.responses[0]
		g.responses = g.responses[1:]
	}
	return &gemini.Response{Text: text, Model: "test-model"}, nil
}

func TestEpicCharacter_DecodesFencedJSON(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"```json\n" + `{
    "name": "Kael",
    "species": "storm drake",
    "background": "last guardian of the sky citadel",
    "special_abilities": ["lightning breath", "flight"],
    "personality_traits": ["proud", "loyal", "stubborn"]
}` + "\n```"}}

	char, err := epicCharacter(context.Background(), gen, "hero")
	require.NoError(t, err)

	assert.Equal(t, "Kael", char.Name)
	assert.Equal(t, "storm drake", char.Species)
	assert.Equal(t, "last guardian of the sky citadel", char.Background)
	assert.Equal(t, []string{"lightning breath", "flight"}, char.SpecialAbilities)
	assert.Len(t, char.PersonalityTraits, 3)
}

func TestEpicCharacter_SurfacesUndecodableResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"Sure! Here is a villain you might like."}}

	_, err := epicCharacter(context.Background(), gen, "villain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "villain character")
	assert.Contains(t, err.Error(), "decode model JSON")
}

func TestEpicWrite_SectionPromptsCarryCast(t *testing.T) {
	opening := strings.TrimSpace(strings.Repeat("The citadel fell at dawn. ", 10))
	gen := &scriptedGenerator{responses: []string{opening, "conflict text", "climax text", "resolution text"}}

	characters := []Character{
		{Name: "Kael", Species: "storm drake", Background: "last guardian of the sky citadel"},
		{Name: "Morwen", Species: "lich queen", Background: "usurper of the hollow throne"},
	}

	fullStory, sections, err := epicWrite(context.Background(), gen, characters)
	require.NoError(t, err)
	require.Len(t, gen.prompts, 4)

	for _, prompt := range gen.prompts {
		assert.Contains(t, prompt, "- Kael: storm drake, last guardian of the sky citadel")
		assert.Contains(t, prompt, "- Morwen: lich queen, usurper of the hollow throne")
	}

	wantContext := "Opening: " + string([]rune(opening)[:100]) + "..."
	assert.Contains(t, gen.prompts[1], wantContext)

	assert.Len(t, sections, 4)
	assert.Contains(t, fullStory, "climax text")
	assert.Contains(t, fullStory, "resolution text")
}

func TestEpicThemes_DecodesAnalysis(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"```json\n" + `{
    "main_themes": ["sacrifice", "redemption"],
    "epic_elements": ["prophecy", "final battle"],
    "emotional_tone": "somber but hopeful",
    "complexity_score": 8,
    "recommendations": ["expand the mentor's arc"]
}` + "\n```"}}

	themes, err := epicThemes(context.Background(), gen, "a story")
	require.NoError(t, err)

	assert.Equal(t, []string{"sacrifice", "redemption"}, themes.MainThemes)
	assert.Equal(t, []string{"prophecy", "final battle"}, themes.EpicElements)
	assert.Equal(t, "somber but hopeful", themes.EmotionalTone)
	assert.Equal(t, 8, themes.ComplexityScore)
}

func TestEpicThemes_SurfacesUndecodableResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"The story is mostly about sacrifice."}}

	_, err := epicThemes(context.Background(), gen, "a story")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme analysis")
}
