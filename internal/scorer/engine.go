package scorer

import (
	"math"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/call-insight/internal/lexicon"
)

// Scores holds the five numeric results of a scoring pass.
type Scores struct {
	Urgency    int `json:"urgency"`
	Budget     int `json:"budget"`
	Interest   int `json:"interest"`
	Engagement int `json:"engagement"`
	Overall    int `json:"overall"`
}

// KeyPhrases lists the matched phrases per category in order of first
// appearance, duplicates collapsed.
type KeyPhrases struct {
	Urgency    []string `json:"urgency"`
	Budget     []string `json:"budget"`
	Interest   []string `json:"interest"`
	Engagement []string `json:"engagement"`
}

// Analysis carries the qualitative half of a scoring result.
type Analysis struct {
	KeyPhrases KeyPhrases `json:"keyPhrases"`
	Objections []string   `json:"objections"`
	Notes      string     `json:"notes"`
	Confidence int        `json:"confidence"`
}

// Result is the complete output of one scoring pass.
type Result struct {
	Scores         Scores   `json:"scores"`
	Analysis       Analysis `json:"analysis"`
	LexiconVersion string   `json:"lexiconVersion"`
}

// Engine scores transcripts against a lexicon. Construct once, reuse freely;
// Score is safe for concurrent use.
type Engine struct {
	cfg Config
	lex *lexicon.Lexicon
}

// New validates the config and builds an engine.
func New(cfg Config, lex *lexicon.Lexicon) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lex == nil {
		return nil, eris.New("scorer: lexicon is required")
	}
	return &Engine{cfg: cfg, lex: lex}, nil
}

// LexiconVersion reports the phrase tables the engine scores with.
func (e *Engine) LexiconVersion() string { return e.lex.Version() }

// Score evaluates one transcript. durationSecs and wordCount come from
// transcription metadata (or the stats helper when rescoring stored text).
// Zero matches is a valid zero-signal result; Score fails only on malformed
// input.
func (e *Engine) Score(transcript string, durationSecs float64, wordCount int) (*Result, error) {
	if !utf8.ValidString(transcript) {
		return nil, eris.New("scorer: transcript is not valid UTF-8")
	}
	if durationSecs < 0 {
		return nil, eris.Errorf("scorer: negative duration %.2f", durationSecs)
	}
	if wordCount < 0 {
		return nil, eris.Errorf("scorer: negative word count %d", wordCount)
	}

	text := lexicon.Normalize(transcript)

	scores := make(map[lexicon.Category]int, len(lexicon.CategoryOrder))
	phrases := make(map[lexicon.Category][]string, len(lexicon.CategoryOrder))
	totalMatches := 0
	for _, cat := range lexicon.CategoryOrder {
		matches := e.lex.MatchCategory(cat, text)
		scores[cat] = e.scoreCategory(matches)
		phrases[cat] = phraseList(matches)
		totalMatches += len(matches)
	}

	objectionMatches := e.lex.MatchObjections(text)
	objections := phraseList(objectionMatches)
	totalMatches += len(objectionMatches)

	overall := e.overallScore(scores)

	return &Result{
		Scores: Scores{
			Urgency:    scores[lexicon.CategoryUrgency],
			Budget:     scores[lexicon.CategoryBudget],
			Interest:   scores[lexicon.CategoryInterest],
			Engagement: scores[lexicon.CategoryEngagement],
			Overall:    overall,
		},
		Analysis: Analysis{
			KeyPhrases: KeyPhrases{
				Urgency:    phrases[lexicon.CategoryUrgency],
				Budget:     phrases[lexicon.CategoryBudget],
				Interest:   phrases[lexicon.CategoryInterest],
				Engagement: phrases[lexicon.CategoryEngagement],
			},
			Objections: objections,
			Notes:      e.notes(scores, overall, objections),
			Confidence: e.confidence(wordCount, totalMatches),
		},
		LexiconVersion: e.lex.Version(),
	}, nil
}

// scoreCategory turns matches into a 0-100 score: a no-signal floor plus
// salience points per match, where longer phrases earn more than single
// generic words.
func (e *Engine) scoreCategory(matches []lexicon.Match) int {
	score := e.cfg.NoSignalFloor
	for _, m := range matches {
		points := e.cfg.MatchBase
		if m.Words > 1 {
			points += e.cfg.PerExtraWord * (m.Words - 1)
		}
		score += points
	}
	return clamp(score)
}

// overallScore is the weight-normalized average of the category scores,
// rounded to the nearest integer.
func (e *Engine) overallScore(scores map[lexicon.Category]int) int {
	weights := map[lexicon.Category]float64{
		lexicon.CategoryUrgency:    e.cfg.UrgencyWeight,
		lexicon.CategoryBudget:     e.cfg.BudgetWeight,
		lexicon.CategoryInterest:   e.cfg.InterestWeight,
		lexicon.CategoryEngagement: e.cfg.EngagementWeight,
	}

	var total float64
	for _, cat := range lexicon.CategoryOrder {
		total += float64(scores[cat]) * weights[cat]
	}
	sum := e.cfg.WeightSum()
	if sum <= 0 {
		return 0
	}
	return clamp(int(math.Round(total / sum)))
}

// confidence blends two independent signals in equal halves: utterance length
// against the minimum-reliable threshold, and phrase-match density against
// the target density. Either signal alone cannot saturate the result.
func (e *Engine) confidence(wordCount, totalMatches int) int {
	length := math.Min(1, float64(wordCount)/float64(e.cfg.MinReliableWords))

	var density float64
	if wordCount > 0 {
		perWord := float64(totalMatches) / float64(wordCount)
		density = math.Min(1, perWord/e.cfg.TargetDensity)
	}

	return clamp(int(math.Round(100 * (0.5*length + 0.5*density))))
}

func phraseList(matches []lexicon.Match) []string {
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Phrase
	}
	return out
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
