package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const structuredStory = `Commander Vega stepped onto the observation deck of the station, watching the distant planet turn beneath her. The colony below had gone silent three days ago.

"We have to go down there," she said, gripping the rail. Fear and hope warred in her chest as the vast, mysterious surface scrolled past.

She finally understood what the silence meant. The quantum relay had failed, and with it every link to the colony. She decided to lead the descent herself.`

func TestStructure(t *testing.T) {
	t.Run("complete arc scores all bonuses", func(t *testing.T) {
		result := Structure(structuredStory)

		// 50 base + 15 beginning + 20 development + 15 resolution
		assert.Equal(t, 100, result.Score)
		assert.Equal(t, 3, result.Components["paragraphs"])
		assert.Equal(t, 1, result.Components["clear_beginning"])
		assert.Equal(t, 1, result.Components["development"])
		assert.Equal(t, 1, result.Components["resolution"])
		assert.Equal(t, "Complete narrative arc", result.Assessment)
	})

	t.Run("single short paragraph earns only the base", func(t *testing.T) {
		result := Structure("Short.")

		assert.Equal(t, 50, result.Score)
		assert.Equal(t, 0, result.Components["development"])
		assert.Equal(t, "Minimal structure", result.Assessment)
	})

	t.Run("empty story does not panic", func(t *testing.T) {
		result := Structure("")
		assert.Equal(t, 50, result.Score)
		assert.Equal(t, 0, result.Components["paragraphs"])
	})
}

func TestCreativity(t *testing.T) {
	t.Run("counts sci-fi elements and novelty phrases", func(t *testing.T) {
		story := "The quantum drive hummed beside the android. For the first time, a wormhole opened — a breakthrough never seen before."
		result := Creativity(story)

		// quantum, android, wormhole = 3; "first time", "breakthrough", "never seen" = 3
		assert.Equal(t, 3, result.Components["sci_fi_elements"])
		assert.Equal(t, 3, result.Components["unique_concepts"])
		// 60 + 3*8 + 3*10 = 114, capped
		assert.Equal(t, 100, result.Score)
		assert.Equal(t, "High creativity", result.Assessment)
	})

	t.Run("plain prose stays at the base", func(t *testing.T) {
		result := Creativity("The cat sat on the mat and watched the rain.")
		assert.Equal(t, 60, result.Score)
		assert.Equal(t, "Standard creativity", result.Assessment)
	})
}

func TestEngagement(t *testing.T) {
	t.Run("dialogue and emotional language raise the score", func(t *testing.T) {
		story := `"Run!" she shouted, fear and hope mixing with the excitement of the shimmering, vast horizon.`
		result := Engagement(story)

		assert.Equal(t, 1, result.Components["dialogue"])
		assert.Equal(t, 3, result.Components["emotional_words"])
		assert.Equal(t, 2, result.Components["descriptive_elements"])
		// 50 + 20 + min(20,15) + min(10,6) = 91
		assert.Equal(t, 91, result.Score)
		assert.Equal(t, "High", result.Assessment)
	})

	t.Run("flat prose scores low", func(t *testing.T) {
		result := Engagement("It happened. Then it ended.")
		assert.Equal(t, 50, result.Score)
		assert.Equal(t, "Low", result.Assessment)
	})
}

func TestPremise(t *testing.T) {
	t.Run("rewards character, setting, and conflict", func(t *testing.T) {
		premise := "A scientist on a distant colony must survive after the station loses contact with Earth."
		result := Premise(premise)

		assert.Equal(t, 1, result.Components["character"])
		assert.Equal(t, 1, result.Components["setting"])
		assert.Equal(t, 1, result.Components["conflict"])
		// 50 + 15*2 + 15 + 15 + 20 = 130, capped
		assert.Equal(t, 15, result.Components["word_count"])
		assert.Equal(t, 100, result.Score)
	})

	t.Run("vague premise scores on length alone", func(t *testing.T) {
		result := Premise("Something happens somewhere.")
		assert.Equal(t, 56, result.Score)
	})
}

func TestCritiqueSentiment(t *testing.T) {
	t.Run("positive critique raises the base", func(t *testing.T) {
		critique := "A captivating and memorable piece, genuinely original and engaging throughout."
		result := CritiqueSentiment(critique)

		assert.Equal(t, 4, result.Components["positive_indicators"])
		assert.Equal(t, 0, result.Components["negative_indicators"])
		// 75 + 4*3 = 87
		assert.Equal(t, 87, result.Score)
	})

	t.Run("negative critique lowers it", func(t *testing.T) {
		critique := "Boring and predictable, with a weak, forgettable ending. Cliche from start to finish."
		result := CritiqueSentiment(critique)

		assert.Equal(t, 5, result.Components["negative_indicators"])
		// 75 - 5*4 = 55
		assert.Equal(t, 55, result.Score)
	})

	t.Run("extremes are clamped", func(t *testing.T) {
		veryPositive := strings.Join(positiveCritique, " ") + " " + strings.Join(positiveCritique, " ")
		assert.Equal(t, 95, CritiqueSentiment(veryPositive).Score)

		veryNegative := strings.Join(negativeCritique, " ")
		result := CritiqueSentiment(veryNegative)
		require.Equal(t, 6, result.Components["negative_indicators"])
		// "uninteresting" also matches the positive word "interesting", so
		// the substring scan credits one positive: 75 + 3 - 24 = 54.
		assert.Equal(t, 54, result.Score)
	})
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 4, WordCount("one two  three\nfour"))
}
