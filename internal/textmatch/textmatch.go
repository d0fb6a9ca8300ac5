// Package textmatch provides the free-text matching primitives used by the
// triage stages: tokenization, case-insensitive containment, weighted lexicon
// lookup, and a word-overlap similarity check tuned for clinical terms.
//
// The package knows nothing about clinical weights or scoring policy. Stages
// own their lexicons and thresholds; textmatch only answers "does this term
// appear in this text, and how directly".
package textmatch

import "strings"

// Fold lowercases and trims a term for case-insensitive comparison.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokenize splits folded text into words. Punctuation separates tokens;
// empty tokens are dropped.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		default:
			return true
		}
	})
}

// Contains reports whether term appears as a case-insensitive substring of
// text. Empty terms never match.
func Contains(text, term string) bool {
	term = Fold(term)
	if term == "" {
		return false
	}
	return strings.Contains(Fold(text), term)
}

// ContainsAny returns the first term from terms found in text, if any.
func ContainsAny(text string, terms []string) (string, bool) {
	folded := Fold(text)
	for _, t := range terms {
		ft := Fold(t)
		if ft != "" && strings.Contains(folded, ft) {
			return t, true
		}
	}
	return "", false
}

// ExtractTerms returns every vocabulary term present in text, preserving
// vocabulary order and dropping duplicates.
func ExtractTerms(text string, vocab []string) []string {
	folded := Fold(text)
	var out []string
	seen := make(map[string]struct{}, len(vocab))
	for _, term := range vocab {
		ft := Fold(term)
		if ft == "" {
			continue
		}
		if _, dup := seen[ft]; dup {
			continue
		}
		if strings.Contains(folded, ft) {
			out = append(out, term)
			seen[ft] = struct{}{}
		}
	}
	return out
}

// Entry pairs a lexicon term with its weight.
type Entry struct {
	Term   string
	Weight float64
}

// Lexicon is an ordered list of weighted terms.
type Lexicon []Entry

// MaxWeight scans text for lexicon terms and returns the heaviest match.
// ok is false when no term matched; term and weight are then zero values.
func (l Lexicon) MaxWeight(text string) (term string, weight float64, ok bool) {
	folded := Fold(text)
	for _, e := range l {
		ft := Fold(e.Term)
		if ft == "" || !strings.Contains(folded, ft) {
			continue
		}
		if !ok || e.Weight > weight {
			term, weight, ok = e.Term, e.Weight, true
		}
	}
	return term, weight, ok
}

// variations maps lay anatomical words to the clinical adjectives that
// frequently stand in for them in condition names.
var variations = map[string][]string{
	"heart":   {"cardiac", "cardio"},
	"lung":    {"pulmonary", "respiratory"},
	"brain":   {"neurological", "cerebral"},
	"stomach": {"gastric", "abdominal"},
	"chest":   {"thoracic"},
	"blood":   {"vascular", "circulatory"},
	"bone":    {"skeletal", "orthopedic"},
	"kidney":  {"renal"},
	"liver":   {"hepatic"},
	"skin":    {"dermatological"},
}

// Similar reports whether two short clinical terms likely refer to the same
// finding. It accepts direct and substring matches, word-set overlap of at
// least half the shorter term, per-word containment, and known clinical
// variations of anatomical words.
func Similar(a, b string) bool {
	a, b = Fold(a), Fold(b)
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}
	common := 0
	for _, w := range wordsA {
		if _, hit := setB[w]; hit {
			common++
		}
	}
	if common > 0 {
		minWords := min(len(wordsA), len(wordsB))
		if common >= max(1, minWords/2) {
			return true
		}
	}

	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				return true
			}
		}
	}

	return variationHit(wordsA, wordsB) || variationHit(wordsB, wordsA)
}

func variationHit(from, against []string) bool {
	for _, w := range from {
		for _, v := range variations[w] {
			for _, other := range against {
				if v == other || strings.Contains(v, other) || strings.Contains(other, v) {
					return true
				}
			}
		}
	}
	return false
}

// WordOverlap reports whether any word of text is contained in term or vice
// versa. This is the weakest match tier, below Contains and Similar.
func WordOverlap(text, term string) bool {
	term = Fold(term)
	if term == "" {
		return false
	}
	for _, w := range Tokenize(text) {
		if strings.Contains(term, w) || strings.Contains(w, term) {
			return true
		}
	}
	return false
}
