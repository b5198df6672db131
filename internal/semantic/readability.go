package semantic

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// technicalBaselineGrade is the Coleman-Liau grade level typical of
// technical documentation; the calibration below rescales raw grade
// levels around it so ordinary technical prose lands near the middle
// of the reported [40, 60] range (spec.md §4.6).
const technicalBaselineGrade = 13.0

// gradeToScoreScale controls how sharply the calibrated score moves
// away from 50 as the raw grade level departs from the baseline.
const gradeToScoreScale = 1.5

// ColemanLiau computes a Coleman-Liau-style readability score for
// text, calibrated into [40, 60] for technical text. Zero sentences or
// zero words map to the neutral midpoint, 50, rather than dividing by
// zero (spec.md §4.6).
func ColemanLiau(text string) float64 {
	words := tokenizeWords(text)
	if len(words) == 0 {
		return 50
	}
	sentences := countSentences(text)
	if sentences == 0 {
		return 50
	}

	var letters int
	for _, w := range words {
		letters += len([]rune(w))
	}

	lettersPer100Words := float64(letters) / float64(len(words)) * 100
	sentencesPer100Words := float64(sentences) / float64(len(words)) * 100
	grade := 0.0588*lettersPer100Words - 0.296*sentencesPer100Words - 15.8

	return calibrate(grade)
}

// calibrate rescales a raw Coleman-Liau grade level into [40, 60].
func calibrate(grade float64) float64 {
	score := 50 - (grade-technicalBaselineGrade)*gradeToScoreScale
	if score < 40 {
		return 40
	}
	if score > 60 {
		return 60
	}
	return score
}

// countSentences counts terminal punctuation runs; text with content
// but no terminal punctuation is still one sentence.
func countSentences(text string) int {
	if matches := sentenceBoundary.FindAllString(text, -1); len(matches) > 0 {
		return len(matches)
	}
	if strings.TrimSpace(text) != "" {
		return 1
	}
	return 0
}
