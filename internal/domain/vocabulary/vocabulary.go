// Package vocabulary holds the static table mapping lay condition names to
// canonical term/code/coding-system triples. The table is built once at
// process start and is never mutated afterwards, so concurrent reads need no
// synchronization.
package vocabulary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SystemSNOMED is the coding system URI for SNOMED CT.
const SystemSNOMED = "http://snomed.info/sct"

// Coding is a canonical condition coding: a display term plus an optional
// code and coding-system URI. A Coding without a code is a free-text
// condition.
type Coding struct {
	Term   string `json:"term"`
	Code   string `json:"code,omitempty"`
	System string `json:"system,omitempty"`
}

// Vocabulary maps lowercase lay terms to condition codings. Iteration order
// is insertion order, which keeps fallback scans deterministic.
type Vocabulary struct {
	keys    []string
	entries map[string]Coding
}

// New creates an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{entries: make(map[string]Coding)}
}

// Add registers a lay term. The key is lowercased; re-adding an existing key
// replaces its coding without changing iteration order.
func (v *Vocabulary) Add(key string, c Coding) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}
	if _, ok := v.entries[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.entries[key] = c
}

// Lookup returns the coding for a lay term, matched case-insensitively.
func (v *Vocabulary) Lookup(key string) (Coding, bool) {
	c, ok := v.entries[strings.ToLower(key)]
	return c, ok
}

// Keys returns all lay terms in insertion order.
func (v *Vocabulary) Keys() []string {
	return v.keys
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int {
	return len(v.keys)
}

// Default returns the built-in vocabulary of SNOMED codings known to work
// against common demo FHIR servers.
func Default() *Vocabulary {
	v := New()
	v.Add("hypertension", Coding{Term: "Hypertension", Code: "38341003", System: SystemSNOMED})
	v.Add("hypercholesterolemia", Coding{Term: "Hypercholesterolemia", Code: "55822004", System: SystemSNOMED})
	v.Add("burn", Coding{Term: "Burn", Code: "39065001", System: SystemSNOMED})
	v.Add("diabetes", Coding{Term: "Diabetes mellitus", Code: "44054006", System: SystemSNOMED})
	v.Add("asthma", Coding{Term: "Asthma", Code: "195967001", System: SystemSNOMED})
	v.Add("heart failure", Coding{Term: "Heart failure", Code: "84114007", System: SystemSNOMED})
	v.Add("chronic kidney disease", Coding{Term: "Chronic kidney disease", Code: "709044004", System: SystemSNOMED})
	return v
}

// fileEntry is one row of a vocabulary JSON file.
type fileEntry struct {
	Key    string `json:"key"`
	Term   string `json:"term"`
	Code   string `json:"code,omitempty"`
	System string `json:"system,omitempty"`
}

// LoadFile reads a vocabulary from a JSON file holding an array of
// {key, term, code, system} objects. File order becomes iteration order.
func LoadFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}

	var rows []fileEntry
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}

	v := New()
	for i, row := range rows {
		if row.Key == "" {
			return nil, fmt.Errorf("vocabulary file %s: entry %d has no key", path, i)
		}
		if row.Term == "" {
			return nil, fmt.Errorf("vocabulary file %s: entry %q has no term", path, row.Key)
		}
		v.Add(row.Key, Coding{Term: row.Term, Code: row.Code, System: row.System})
	}
	return v, nil
}
