// Package analysis scores generated stories with keyword-count
// heuristics. The scorers are deliberately simple: they are demo-grade
// score producers feeding the aggregator, not a quality model.
package analysis

import (
	"strings"

	storytrace "github.com/storytrace/storytrace-go"
)

var (
	resolutionWords = []string{"finally", "realized", "understood", "decided", "concluded"}

	sciFiWords    = []string{"quantum", "neural", "hologram", "plasma", "cybernetic", "android", "telepathic", "wormhole"}
	noveltyPhases = []string{"never seen", "first time", "discovered", "breakthrough", "revolutionary"}

	emotionWords     = []string{"fear", "hope", "excitement", "wonder", "relief", "tension", "surprise"}
	descriptiveWords = []string{"shimmering", "vast", "mysterious", "gleaming", "towering", "ethereal"}

	characterWords = []string{"scientist", "engineer", "pilot", "commander", "doctor", "researcher"}
	settingWords   = []string{"space", "planet", "station", "galaxy", "future", "colony"}
	conflictWords  = []string{"discover", "must", "face", "fight", "survive", "escape"}

	positiveCritique = []string{"captivating", "engaging", "compelling", "memorable", "creative", "original", "interesting"}
	negativeCritique = []string{"boring", "predictable", "weak", "forgettable", "cliche", "uninteresting"}
)

// Structure rates narrative structure: a substantial opening paragraph,
// at least three paragraphs of development, and a resolution keyword.
func Structure(story string) storytrace.ScoreResult {
	paragraphs := splitParagraphs(story)
	sentences := strings.Count(story, ".") + strings.Count(story, "!") + strings.Count(story, "?")

	hasBeginning := len(paragraphs) > 0 && len(paragraphs[0]) > 50
	hasDevelopment := len(paragraphs) >= 3
	hasResolution := containsAnyWord(story, resolutionWords) > 0

	score := 50
	if hasBeginning {
		score += 15
	}
	if hasDevelopment {
		score += 20
	}
	if hasResolution {
		score += 15
	}
	if score > 100 {
		score = 100
	}

	return storytrace.ScoreResult{
		Score: score,
		Components: map[string]int{
			"paragraphs":      len(paragraphs),
			"sentences":       sentences,
			"clear_beginning": boolScore(hasBeginning),
			"development":     boolScore(hasDevelopment),
			"resolution":      boolScore(hasResolution),
		},
		Assessment: structureAssessment(hasBeginning, hasDevelopment, hasResolution),
	}
}

// Creativity rates sci-fi vocabulary and novelty phrasing.
func Creativity(story string) storytrace.ScoreResult {
	sciFi := containsAnyWord(story, sciFiWords)
	novelty := containsAnyWord(story, noveltyPhases)

	score := 60 + sciFi*8 + novelty*10
	if score > 100 {
		score = 100
	}

	assessment := "Standard creativity"
	switch {
	case score > 80:
		assessment = "High creativity"
	case score > 60:
		assessment = "Moderate creativity"
	}

	return storytrace.ScoreResult{
		Score: score,
		Components: map[string]int{
			"sci_fi_elements": sciFi,
			"unique_concepts": novelty,
		},
		Assessment: assessment,
	}
}

// Engagement rates dialogue presence, emotional vocabulary, and
// descriptive language.
func Engagement(story string) storytrace.ScoreResult {
	hasDialogue := strings.ContainsAny(story, `"'`)
	emotions := containsAnyWord(story, emotionWords)
	descriptive := containsAnyWord(story, descriptiveWords)

	score := 50
	if hasDialogue {
		score += 20
	}
	score += minInt(20, emotions*5)
	score += minInt(10, descriptive*3)
	if score > 100 {
		score = 100
	}

	assessment := "Low"
	switch {
	case score > 80:
		assessment = "High"
	case score > 60:
		assessment = "Medium"
	}

	return storytrace.ScoreResult{
		Score: score,
		Components: map[string]int{
			"dialogue":             boolScore(hasDialogue),
			"emotional_words":      emotions,
			"descriptive_elements": descriptive,
		},
		Assessment: assessment,
	}
}

// Premise rates a story premise on length and presence of a character, a
// setting, and a conflict.
func Premise(premise string) storytrace.ScoreResult {
	words := WordCount(premise)
	hasCharacter := containsAnyWord(premise, characterWords) > 0
	hasSetting := containsAnyWord(premise, settingWords) > 0
	hasConflict := containsAnyWord(premise, conflictWords) > 0

	score := 50 + words*2
	if hasCharacter {
		score += 15
	}
	if hasSetting {
		score += 15
	}
	if hasConflict {
		score += 20
	}
	if score > 100 {
		score = 100
	}

	return storytrace.ScoreResult{
		Score: score,
		Components: map[string]int{
			"word_count": words,
			"character":  boolScore(hasCharacter),
			"setting":    boolScore(hasSetting),
			"conflict":   boolScore(hasConflict),
		},
	}
}

// CritiqueSentiment rates a model-written critique by counting positive
// and negative judgment words. The result is clamped to [40,95]: a
// keyword count is too blunt an instrument for the extremes.
func CritiqueSentiment(critique string) storytrace.ScoreResult {
	positive := containsAnyWord(critique, positiveCritique)
	negative := containsAnyWord(critique, negativeCritique)

	score := 75 + positive*3 - negative*4
	if score < 40 {
		score = 40
	}
	if score > 95 {
		score = 95
	}

	return storytrace.ScoreResult{
		Score: score,
		Components: map[string]int{
			"positive_indicators": positive,
			"negative_indicators": negative,
		},
	}
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func splitParagraphs(story string) []string {
	var paragraphs []string
	for _, p := range strings.Split(story, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(p))
		}
	}
	return paragraphs
}

// containsAnyWord counts how many of the given words appear in the text,
// case-insensitively. Each word counts once regardless of repetition.
func containsAnyWord(text string, words []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			count++
		}
	}
	return count
}

func structureAssessment(beginning, development, resolution bool) string {
	switch {
	case beginning && development && resolution:
		return "Complete narrative arc"
	case development:
		return "Developed but incomplete arc"
	default:
		return "Minimal structure"
	}
}

func boolScore(b bool) int {
	if b {
		return 1
	}
	return 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
