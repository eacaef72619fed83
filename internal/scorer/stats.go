package scorer

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Speaking-pace labels. Conversational Hebrew runs roughly 120-160 words per
// minute; the thresholds bracket that band.
const (
	PaceSlow   = "slow"
	PaceNormal = "normal"
	PaceFast   = "fast"
)

// TranscriptStats summarizes transcript size and speaking rate.
type TranscriptStats struct {
	WordCount      int     `json:"wordCount"`
	CharCount      int     `json:"charCount"`
	WordsPerMinute float64 `json:"wordsPerMinute"`
	Pace           string  `json:"pace"`
}

// ComputeStats derives word/character counts and the speaking rate from raw
// transcript text. Pure helper; duration at or below zero yields zero WPM.
func ComputeStats(transcript string, durationSecs float64) TranscriptStats {
	words := len(strings.Fields(transcript))
	chars := utf8.RuneCountInString(transcript)

	var wpm float64
	if durationSecs > 0 {
		wpm = math.Round(float64(words)/(durationSecs/60)*100) / 100
	}

	return TranscriptStats{
		WordCount:      words,
		CharCount:      chars,
		WordsPerMinute: wpm,
		Pace:           paceLabel(wpm),
	}
}

func paceLabel(wpm float64) string {
	switch {
	case wpm < 100:
		return PaceSlow
	case wpm <= 160:
		return PaceNormal
	default:
		return PaceFast
	}
}
