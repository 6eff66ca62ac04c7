// Package query turns free-text clinical queries into structured search
// filters and FHIR search parameters. The extractor is a rule-based scanner
// over lowercase tokens; it needs nothing beyond tokenization and digit
// detection, so the rules compile once at startup and are read-only
// afterwards.
package query

// ConditionRef is one requested condition. Code and System are empty for a
// free-text condition; both set means the condition resolves against the
// vocabulary.
type ConditionRef struct {
	Term   string `json:"term"`
	Code   string `json:"code,omitempty"`
	System string `json:"system,omitempty"`
}

// Coded reports whether the condition carries a full coding.
func (c ConditionRef) Coded() bool {
	return c.Code != "" && c.System != ""
}

// Filters is the canonical filter record extracted from one query. Nil age
// bounds mean "no bound". AgeMin and AgeMax from independent entities may be
// mutually inconsistent; that yields an empty result downstream, never an
// error. Conditions keep their order of appearance and may repeat.
type Filters struct {
	AgeMin     *int           `json:"age_min"`
	AgeMax     *int           `json:"age_max"`
	Gender     string         `json:"gender,omitempty"`
	Conditions []ConditionRef `json:"conditions"`
}

// HasAgeBound reports whether either age bound is set.
func (f Filters) HasAgeBound() bool {
	return f.AgeMin != nil || f.AgeMax != nil
}

// Empty reports whether no filter field was extracted at all.
func (f Filters) Empty() bool {
	return f.AgeMin == nil && f.AgeMax == nil && f.Gender == "" && len(f.Conditions) == 0
}
