package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/call-insight/internal/lexicon"
)

const referenceTranscript = "שלום, אני מעוניין בנכס בתל אביב. התקציב שלי הוא 800 אלף שקל."

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(DefaultConfig(), lexicon.Default())
	require.NoError(t, err)
	return eng
}

func TestScoreReferenceConversation(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	res, err := eng.Score(referenceTranscript, 180, 12)
	require.NoError(t, err)

	assert.Equal(t, 40, res.Scores.Urgency)
	assert.Equal(t, 100, res.Scores.Budget)
	assert.Equal(t, 100, res.Scores.Interest)
	assert.Equal(t, 40, res.Scores.Engagement)
	assert.Equal(t, 80, res.Scores.Overall)

	assert.Equal(t, 90, res.Analysis.Confidence)
	assert.Empty(t, res.Analysis.Objections)

	assert.Contains(t, res.Analysis.KeyPhrases.Interest, "נכס בתל אביב")
	assert.Contains(t, res.Analysis.KeyPhrases.Budget, "800 אלף שקל")
	assert.Empty(t, res.Analysis.KeyPhrases.Urgency)
	assert.Empty(t, res.Analysis.KeyPhrases.Engagement)

	// Budget and interest tie at 100; the fixed category order makes budget
	// the dominant category.
	assert.Equal(t, "שיחה בעלת פוטנציאל גבוה לסגירה. הקטגוריה הבולטת: תקציב.", res.Analysis.Notes)

	assert.Equal(t, lexicon.Default().Version(), res.LexiconVersion)
}

func TestScoreLowSignalWithObjection(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	res, err := eng.Score("אני לא יודע, זה יקר מדי בשבילי.", 60, 7)
	require.NoError(t, err)

	assert.Equal(t, 40, res.Scores.Urgency)
	assert.Equal(t, 40, res.Scores.Budget)
	assert.Equal(t, 40, res.Scores.Interest)
	assert.Equal(t, 40, res.Scores.Engagement)
	assert.Equal(t, 40, res.Scores.Overall)

	assert.Equal(t, []string{"יקר מדי"}, res.Analysis.Objections)
	assert.Contains(t, res.Analysis.Notes, "פוטנציאל נמוך")
	assert.Contains(t, res.Analysis.Notes, "זוהו התנגדויות")
	assert.Equal(t, "שיחה בעלת פוטנציאל נמוך לסגירה. זוהו התנגדויות: יקר מדי.", res.Analysis.Notes)
	assert.Equal(t, 52, res.Analysis.Confidence)
}

func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)

	first, err := eng.Score(referenceTranscript, 180, 12)
	require.NoError(t, err)
	second, err := eng.Score(referenceTranscript, 180, 12)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScoreBoundsAndWeightedOverall(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	cfg := DefaultConfig()

	transcripts := []struct {
		name       string
		transcript string
		words      int
	}{
		{"reference", referenceTranscript, 12},
		{"objection only", "אני לא יודע, זה יקר מדי בשבילי.", 7},
		{"empty", "", 0},
		{"single word", "שלום", 1},
		{
			name: "keyword stuffed",
			transcript: "דחוף בהקדם כמה שיותר מהר מיידי עוד השבוע לסגור החודש לוחץ לי " +
				"תקציב מימון משכנתא הון עצמי מזומן 900 אלף שקל " +
				"מעוניין מתעניין מחפש דירה מחפש נכס נכס בתל אביב נכס להשקעה " +
				"ספר לי עוד אשמח לשמוע יש לי שאלה מתי אפשר להיפגש נשמע טוב",
			words: 40,
		},
	}

	for _, tt := range transcripts {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := eng.Score(tt.transcript, 120, tt.words)
			require.NoError(t, err)

			for name, score := range map[string]int{
				"urgency":    res.Scores.Urgency,
				"budget":     res.Scores.Budget,
				"interest":   res.Scores.Interest,
				"engagement": res.Scores.Engagement,
				"overall":    res.Scores.Overall,
				"confidence": res.Analysis.Confidence,
			} {
				assert.GreaterOrEqualf(t, score, 0, "%s below range", name)
				assert.LessOrEqualf(t, score, 100, "%s above range", name)
			}

			weighted := (float64(res.Scores.Urgency)*cfg.UrgencyWeight +
				float64(res.Scores.Budget)*cfg.BudgetWeight +
				float64(res.Scores.Interest)*cfg.InterestWeight +
				float64(res.Scores.Engagement)*cfg.EngagementWeight) / cfg.WeightSum()
			assert.InDelta(t, weighted, float64(res.Scores.Overall), 0.51,
				"overall must be the weighted combination of the category scores")
		})
	}
}

func TestScoreSaturatedTranscript(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	transcript := "דחוף בהקדם כמה שיותר מהר מיידי עוד השבוע " +
		"תקציב מימון משכנתא 900 אלף שקל " +
		"מעוניין מחפש דירה נכס להשקעה " +
		"ספר לי עוד אשמח לשמוע יש לי שאלה נשמע טוב"

	res, err := eng.Score(transcript, 30, 30)
	require.NoError(t, err)

	assert.Equal(t, 100, res.Scores.Urgency)
	assert.Equal(t, 100, res.Scores.Budget)
	assert.Equal(t, 100, res.Scores.Interest)
	assert.Equal(t, 100, res.Scores.Engagement)
	assert.Equal(t, 100, res.Scores.Overall)

	// All categories tie; urgency leads the fixed order.
	assert.Contains(t, res.Analysis.Notes, "הקטגוריה הבולטת: דחיפות.")
}

func TestScoreEmptyTranscript(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	res, err := eng.Score("", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 40, res.Scores.Overall)
	assert.Equal(t, 0, res.Analysis.Confidence)
	assert.Empty(t, res.Analysis.Objections)
	assert.Contains(t, res.Analysis.Notes, "פוטנציאל נמוך")
}

func TestScoreMalformedInput(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)

	tests := []struct {
		name       string
		transcript string
		duration   float64
		words      int
		wantErr    string
	}{
		{"invalid utf8", string([]byte{0xff, 0xfe, 0xfd}), 60, 3, "not valid UTF-8"},
		{"negative duration", "שלום", -1, 1, "negative duration"},
		{"negative word count", "שלום", 60, -1, "negative word count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := eng.Score(tt.transcript, tt.duration, tt.words)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, lexicon.Default())
	require.Error(t, err)

	_, err = New(DefaultConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lexicon is required")
}

func TestDominantCategoryTieBreak(t *testing.T) {
	t.Parallel()

	scores := map[lexicon.Category]int{
		lexicon.CategoryUrgency:    90,
		lexicon.CategoryBudget:     90,
		lexicon.CategoryInterest:   40,
		lexicon.CategoryEngagement: 40,
	}
	assert.Equal(t, lexicon.CategoryUrgency, dominantCategory(scores))

	scores[lexicon.CategoryBudget] = 95
	assert.Equal(t, lexicon.CategoryBudget, dominantCategory(scores))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := DefaultConfig

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"negative weight", func(c *Config) { c.BudgetWeight = -1 }, "budget_weight must be >= 0"},
		{"zero weight sum", func(c *Config) {
			c.UrgencyWeight, c.BudgetWeight, c.InterestWeight, c.EngagementWeight = 0, 0, 0, 0
		}, "weight sum must be > 0"},
		{"floor out of range", func(c *Config) { c.NoSignalFloor = 101 }, "no_signal_floor"},
		{"zero density", func(c *Config) { c.TargetDensity = 0 }, "target_density"},
		{"inverted thresholds", func(c *Config) { c.LowPotential = 80 }, "low_potential must be below high_potential"},
		{"zero reliable words", func(c *Config) { c.MinReliableWords = 0 }, "min_reliable_words"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
