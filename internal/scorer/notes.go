package scorer

import (
	"strings"

	"github.com/sells-group/call-insight/internal/lexicon"
)

// Notes templates. Generated notes are Hebrew like the transcripts they
// summarize; clause order is fixed so identical inputs yield identical bytes.
const (
	notesHighPotential   = "שיחה בעלת פוטנציאל גבוה לסגירה."
	notesMediumPotential = "שיחה בעלת פוטנציאל בינוני לסגירה."
	notesLowPotential    = "שיחה בעלת פוטנציאל נמוך לסגירה."

	notesDominantPrefix  = "הקטגוריה הבולטת: "
	notesObjectionPrefix = "זוהו התנגדויות: "
)

var categoryHebrew = map[lexicon.Category]string{
	lexicon.CategoryUrgency:    "דחיפות",
	lexicon.CategoryBudget:     "תקציב",
	lexicon.CategoryInterest:   "עניין",
	lexicon.CategoryEngagement: "מעורבות",
}

// notes builds the human-readable summary: a potential clause from the
// overall score, a dominant-category clause when potential is high, and an
// objection clause whenever objections were detected.
func (e *Engine) notes(scores map[lexicon.Category]int, overall int, objections []string) string {
	var parts []string

	switch {
	case overall >= e.cfg.HighPotential:
		parts = append(parts, notesHighPotential)
		parts = append(parts, notesDominantPrefix+categoryHebrew[dominantCategory(scores)]+".")
	case overall <= e.cfg.LowPotential:
		parts = append(parts, notesLowPotential)
	default:
		parts = append(parts, notesMediumPotential)
	}

	if len(objections) > 0 {
		parts = append(parts, notesObjectionPrefix+strings.Join(objections, ", ")+".")
	}

	return strings.Join(parts, " ")
}

// dominantCategory picks the highest-scoring category; ties break by the
// fixed category order.
func dominantCategory(scores map[lexicon.Category]int) lexicon.Category {
	best := lexicon.CategoryOrder[0]
	for _, cat := range lexicon.CategoryOrder[1:] {
		if scores[cat] > scores[best] {
			best = cat
		}
	}
	return best
}
