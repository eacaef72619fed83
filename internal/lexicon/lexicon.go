// Package lexicon holds the versioned Hebrew phrase sets that drive
// deterministic call scoring: four signal categories plus an objection set.
// A Lexicon is immutable once built; matching is pure and allocation-light.
package lexicon

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category names one of the four scored signal dimensions.
type Category string

const (
	CategoryUrgency    Category = "urgency"
	CategoryBudget     Category = "budget"
	CategoryInterest   Category = "interest"
	CategoryEngagement Category = "engagement"
)

// CategoryOrder is the fixed evaluation order. Consumers that break ties
// (dominant-category selection, stable output ordering) break them by
// position in this array.
var CategoryOrder = [4]Category{CategoryUrgency, CategoryBudget, CategoryInterest, CategoryEngagement}

// EntrySpec is one lexicon line as written in YAML or in the builtin tables.
// Exactly one of Phrase or Pattern must be set: a phrase matches as a
// normalized substring and is recorded verbatim as the key phrase; a pattern
// is a regular expression evaluated against the normalized transcript and
// records the matched span (used for open classes like money amounts).
type EntrySpec struct {
	Phrase  string `yaml:"phrase,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
}

// FileSpec is the YAML override shape, nested under a top-level
// "lexicon:" key. Categories present in the file replace the builtin set for
// that category; a present objections key replaces the builtin objections.
type FileSpec struct {
	Version    string                 `yaml:"version"`
	Categories map[string][]EntrySpec `yaml:"categories"`
	Objections []EntrySpec            `yaml:"objections"`
}

// Match is one detected phrase occurrence in a normalized transcript.
type Match struct {
	Phrase string // recorded key phrase (entry phrase, or matched span for patterns)
	Index  int    // byte offset of the first occurrence in the normalized text
	Words  int    // word count of the recorded phrase, the salience input
}

type entry struct {
	display string
	norm    string
	re      *regexp.Regexp
}

// Lexicon is a compiled, immutable phrase set.
type Lexicon struct {
	version    string
	categories map[Category][]entry
	objections []entry
}

// Default returns the builtin lexicon. The builtin tables are static, so
// compilation cannot fail.
func Default() *Lexicon {
	l, err := build(builtinVersion, builtinCategories, builtinObjections)
	if err != nil {
		panic(err) // unreachable for the builtin tables
	}
	return l
}

// Load reads a YAML override file and merges it over the builtin lexicon.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "lexicon: read override file")
	}

	var wrapper struct {
		Lexicon FileSpec `yaml:"lexicon"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "lexicon: parse override file")
	}
	spec := wrapper.Lexicon

	if spec.Version == "" {
		return nil, eris.New("lexicon: override file must set a version")
	}

	cats := make(map[Category][]EntrySpec, len(CategoryOrder))
	for _, cat := range CategoryOrder {
		cats[cat] = builtinCategories[cat]
	}
	for name, entries := range spec.Categories {
		cat := Category(name)
		if _, ok := cats[cat]; !ok {
			return nil, eris.Errorf("lexicon: unknown category %q", name)
		}
		cats[cat] = entries
	}

	objections := builtinObjections
	if spec.Objections != nil {
		objections = spec.Objections
	}

	return build(spec.Version, cats, objections)
}

// Version identifies the phrase tables in use; persisted analyses can be
// traced back to the lexicon that produced them.
func (l *Lexicon) Version() string { return l.version }

// Counts reports entries per category, for diagnostics.
func (l *Lexicon) Counts() map[Category]int {
	out := make(map[Category]int, len(l.categories))
	for cat, entries := range l.categories {
		out[cat] = len(entries)
	}
	return out
}

// ObjectionCount reports the size of the objection set.
func (l *Lexicon) ObjectionCount() int { return len(l.objections) }

// MatchCategory scans normalized text for one category's entries. Results are
// ordered by first appearance with duplicate phrases collapsed.
func (l *Lexicon) MatchCategory(cat Category, normText string) []Match {
	return matchEntries(l.categories[cat], normText)
}

// MatchObjections scans normalized text for the objection set.
func (l *Lexicon) MatchObjections(normText string) []Match {
	return matchEntries(l.objections, normText)
}

func matchEntries(entries []entry, text string) []Match {
	var out []Match
	seen := make(map[string]struct{})

	for _, e := range entries {
		idx := -1
		var phrase string
		if e.re != nil {
			if loc := e.re.FindStringIndex(text); loc != nil {
				idx = loc[0]
				phrase = text[loc[0]:loc[1]]
			}
		} else if i := strings.Index(text, e.norm); i >= 0 {
			idx = i
			phrase = e.display
		}
		if idx < 0 {
			continue
		}
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		out = append(out, Match{Phrase: phrase, Index: idx, Words: len(strings.Fields(phrase))})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return len(out[i].Phrase) > len(out[j].Phrase)
	})
	return out
}

func build(version string, cats map[Category][]EntrySpec, objections []EntrySpec) (*Lexicon, error) {
	var errs []string

	l := &Lexicon{
		version:    version,
		categories: make(map[Category][]entry, len(CategoryOrder)),
	}

	for _, cat := range CategoryOrder {
		specs := cats[cat]
		if len(specs) == 0 {
			errs = append(errs, string(cat)+": category has no entries")
			continue
		}
		compiled, entryErrs := compileEntries(string(cat), specs)
		l.categories[cat] = compiled
		errs = append(errs, entryErrs...)
	}

	if len(objections) == 0 {
		errs = append(errs, "objections: set has no entries")
	}
	compiled, entryErrs := compileEntries("objections", objections)
	l.objections = compiled
	errs = append(errs, entryErrs...)

	if len(errs) > 0 {
		return nil, eris.Errorf("lexicon: validation failed: %s", strings.Join(errs, "; "))
	}
	return l, nil
}

func compileEntries(set string, specs []EntrySpec) ([]entry, []string) {
	var errs []string
	seen := make(map[string]struct{}, len(specs))
	compiled := make([]entry, 0, len(specs))

	for _, spec := range specs {
		switch {
		case spec.Phrase != "" && spec.Pattern != "":
			errs = append(errs, set+": entry sets both phrase and pattern")
		case spec.Phrase != "":
			norm := Normalize(spec.Phrase)
			if norm == "" {
				errs = append(errs, set+": phrase normalizes to empty")
				continue
			}
			if _, dup := seen["p:"+norm]; dup {
				errs = append(errs, set+": duplicate phrase "+spec.Phrase)
				continue
			}
			seen["p:"+norm] = struct{}{}
			compiled = append(compiled, entry{display: spec.Phrase, norm: norm})
		case spec.Pattern != "":
			if _, dup := seen["r:"+spec.Pattern]; dup {
				errs = append(errs, set+": duplicate pattern "+spec.Pattern)
				continue
			}
			seen["r:"+spec.Pattern] = struct{}{}
			re, err := regexp.Compile(spec.Pattern)
			if err != nil {
				errs = append(errs, set+": pattern "+spec.Pattern+" does not compile")
				continue
			}
			compiled = append(compiled, entry{display: spec.Pattern, re: re})
		default:
			errs = append(errs, set+": entry sets neither phrase nor pattern")
		}
	}
	return compiled, errs
}
