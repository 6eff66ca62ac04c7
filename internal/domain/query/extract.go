package query

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/medquery/medquery/internal/domain/vocabulary"
)

// condPattern is one compiled vocabulary pattern: the token sequence of a
// lay term plus its original key.
type condPattern struct {
	key    string
	tokens []string
}

// Extractor scans tokenized query text for age, gender and condition
// entities. It is immutable after construction and safe for concurrent use.
type Extractor struct {
	vocab    *vocabulary.Vocabulary
	patterns []condPattern
}

// NewExtractor compiles the extraction rules for a vocabulary. Patterns are
// ordered longest-first so that "chronic kidney disease" wins over a
// hypothetical shorter key sharing its prefix.
func NewExtractor(v *vocabulary.Vocabulary) *Extractor {
	e := &Extractor{vocab: v}
	for _, key := range v.Keys() {
		e.patterns = append(e.patterns, condPattern{key: key, tokens: tokenize(key)})
	}
	sort.SliceStable(e.patterns, func(i, j int) bool {
		return len(e.patterns[i].tokens) > len(e.patterns[j].tokens)
	})
	return e
}

// Extract produces the filter record for a query. It never fails: text with
// no recognizable entities yields an empty record.
func (e *Extractor) Extract(text string) Filters {
	tokens := tokenize(text)
	f := Filters{Conditions: []ConditionRef{}}

	i := 0
	for i < len(tokens) {
		if width := e.applyAt(tokens, i, &f); width > 0 {
			i += width
			continue
		}
		i++
	}

	// Fallback: when no condition pattern fired, scan the raw query for
	// vocabulary keys on word boundaries, in vocabulary order.
	if len(f.Conditions) == 0 {
		lower := strings.ToLower(text)
		for _, key := range e.vocab.Keys() {
			if containsWord(lower, key) {
				if c, ok := e.vocab.Lookup(key); ok {
					f.Conditions = append(f.Conditions, conditionRef(c))
				}
			}
		}
	}

	return f
}

// applyAt tries every rule at token position i and applies the first match
// to the filter record, returning the number of tokens consumed. Scalar
// fields are overwritten on repeat matches; conditions accumulate.
func (e *Extractor) applyAt(tokens []string, i int, f *Filters) int {
	switch tokens[i] {
	case "age", "aged":
		if n, ok := ageAt(tokens, i+1); ok {
			f.AgeMin, f.AgeMax = intPtr(n), intPtr(n)
			return 2
		}
	case "over":
		if n, ok := ageAt(tokens, i+1); ok {
			f.AgeMin = intPtr(n)
			return 2
		}
	case "older":
		if i+2 < len(tokens) && tokens[i+1] == "than" {
			if n, ok := ageAt(tokens, i+2); ok {
				f.AgeMin = intPtr(n)
				return 3
			}
		}
	case "under":
		if n, ok := ageAt(tokens, i+1); ok {
			f.AgeMax = intPtr(n)
			return 2
		}
	case "between":
		if a, ok := ageAt(tokens, i+1); ok && i+3 < len(tokens) && tokens[i+2] == "and" {
			if b, ok := ageAt(tokens, i+3); ok {
				lo, hi := a, b
				if lo > hi {
					lo, hi = hi, lo
				}
				f.AgeMin, f.AgeMax = intPtr(lo), intPtr(hi)
				return 4
			}
		}
	case "female", "male":
		f.Gender = tokens[i]
		return 1
	}

	for _, p := range e.patterns {
		if matchesAt(tokens, i, p.tokens) {
			if c, ok := e.vocab.Lookup(p.key); ok {
				f.Conditions = append(f.Conditions, conditionRef(c))
			}
			return len(p.tokens)
		}
	}
	return 0
}

func conditionRef(c vocabulary.Coding) ConditionRef {
	return ConditionRef{Term: c.Term, Code: c.Code, System: c.System}
}

func intPtr(n int) *int {
	return &n
}

// tokenize lowercases text and splits it on any run of non-alphanumeric
// runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ageAt parses tokens[i] as an age value: one to three digits.
func ageAt(tokens []string, i int) (int, bool) {
	if i >= len(tokens) {
		return 0, false
	}
	tok := tokens[i]
	if len(tok) == 0 || len(tok) > 3 {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

func matchesAt(tokens []string, i int, pattern []string) bool {
	if i+len(pattern) > len(tokens) {
		return false
	}
	for j, p := range pattern {
		if tokens[i+j] != p {
			return false
		}
	}
	return true
}

// containsWord reports whether needle occurs in haystack with word
// boundaries on both sides.
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for start := 0; ; {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)
		if boundaryBefore(haystack, idx) && boundaryAfter(haystack, end) {
			return true
		}
		start = idx + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
