package storytrace

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ScoreResult is the outcome of one quality analysis: a 0-100 score, an
// optional per-component breakdown, and a free-text assessment. It is a
// plain value produced by analysis code; the harness never owns one.
type ScoreResult struct {
	Score      int            `json:"score"`
	Components map[string]int `json:"components,omitempty"`
	Assessment string         `json:"assessment,omitempty"`
}

// AggregationError reports a key mismatch between the component and
// weight maps passed to Aggregate.
type AggregationError struct {
	MissingComponents []string // weight keys with no component score
	UnweightedScores  []string // component keys with no weight
}

func (e *AggregationError) Error() string {
	var parts []string
	if len(e.MissingComponents) > 0 {
		parts = append(parts, fmt.Sprintf("weights without component scores: %s", strings.Join(e.MissingComponents, ", ")))
	}
	if len(e.UnweightedScores) > 0 {
		parts = append(parts, fmt.Sprintf("component scores without weights: %s", strings.Join(e.UnweightedScores, ", ")))
	}
	return "storytrace: aggregate: " + strings.Join(parts, "; ")
}

// Quality labels for the fixed overall-score buckets.
const (
	LabelExcellent        = "excellent"
	LabelGood             = "good"
	LabelFair             = "fair"
	LabelNeedsImprovement = "needs_improvement"
)

// Aggregate combines named component scores into a weighted overall score
// clamped to [0,100] and its qualitative label: >=85 excellent, >=70
// good, >=55 fair, else needs_improvement. The key sets of components and
// weights must match exactly; a mismatch is a caller error and is
// returned, never silently ignored. Pure function: it reads and writes no
// tracing state.
func Aggregate(components, weights map[string]float64) (int, string, error) {
	var aggErr AggregationError
	for k := range weights {
		if _, ok := components[k]; !ok {
			aggErr.MissingComponents = append(aggErr.MissingComponents, k)
		}
	}
	for k := range components {
		if _, ok := weights[k]; !ok {
			aggErr.UnweightedScores = append(aggErr.UnweightedScores, k)
		}
	}
	if len(aggErr.MissingComponents) > 0 || len(aggErr.UnweightedScores) > 0 {
		sort.Strings(aggErr.MissingComponents)
		sort.Strings(aggErr.UnweightedScores)
		return 0, "", &aggErr
	}

	var sum float64
	for k, score := range components {
		sum += score * weights[k]
	}

	overall := int(math.Round(sum))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	return overall, scoreLabel(overall), nil
}

func scoreLabel(score int) string {
	switch {
	case score >= 85:
		return LabelExcellent
	case score >= 70:
		return LabelGood
	case score >= 55:
		return LabelFair
	default:
		return LabelNeedsImprovement
	}
}

// RubricParseError reports a rubric dimension that could not be read out
// of a model's free-text rating response.
type RubricParseError struct {
	Dimension string
	Line      string
}

func (e *RubricParseError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("storytrace: rubric: no %q rating in response", e.Dimension)
	}
	return fmt.Sprintf("storytrace: rubric: unreadable %q rating in line %q", e.Dimension, e.Line)
}

// ParseRubric extracts "Dimension: X/10" ratings from a model's free-text
// response. Every requested dimension must be present and parseable; a
// missing or malformed rating is returned as a *RubricParseError rather
// than papered over with a default, so callers see the parse failure
// instead of plausible-looking fabricated scores.
func ParseRubric(text string, dimensions []string) (map[string]int, error) {
	scores := make(map[string]int, len(dimensions))

	lines := strings.Split(text, "\n")
	for _, dim := range dimensions {
		found := false
		for _, line := range lines {
			idx := indexFold(line, dim+":")
			if idx < 0 {
				continue
			}
			found = true

			rest := line[idx+len(dim)+1:]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				rest = rest[:slash]
			}
			value, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return nil, &RubricParseError{Dimension: dim, Line: strings.TrimSpace(line)}
			}
			scores[dim] = value
			break
		}
		if !found {
			return nil, &RubricParseError{Dimension: dim}
		}
	}

	return scores, nil
}

// RubricAverage converts 1-10 rubric ratings to a rounded 0-100 score.
func RubricAverage(scores map[string]int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, v := range scores {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(len(scores)) * 10))
}

// indexFold is a case-insensitive strings.Index.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
