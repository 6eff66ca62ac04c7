package query

import (
	"strings"
	"time"
)

// FHIR resource types this pipeline searches.
const (
	ResourcePatient   = "Patient"
	ResourceCondition = "Condition"
)

// ParamSet is the search parameter mapping for one resource type.
type ParamSet struct {
	ResourceType string            `json:"resource_type"`
	Params       map[string]string `json:"params"`
}

// BuildParams derives the Patient and Condition search parameter sets from a
// filter record. Pure and deterministic for a fixed reference date: the same
// filters always yield identical parameter sets.
//
// Age bounds become birthdate clauses (age_min caps the birthdate with "le",
// age_max floors it with "ge"); when both are present the clauses are
// comma-joined into one value, which the server treats as a logical AND.
// Coded conditions join into one "code" parameter as system|code pairs
// (logical OR); free-text conditions join into "code:text".
func BuildParams(f Filters, today time.Time) (ParamSet, ParamSet) {
	patient := ParamSet{ResourceType: ResourcePatient, Params: map[string]string{}}
	if f.AgeMin != nil {
		patient.Params["birthdate"] = "le" + SubtractYears(today, *f.AgeMin).Format("2006-01-02")
	}
	if f.AgeMax != nil {
		clause := "ge" + SubtractYears(today, *f.AgeMax).Format("2006-01-02")
		if existing, ok := patient.Params["birthdate"]; ok {
			clause = existing + "," + clause
		}
		patient.Params["birthdate"] = clause
	}
	if f.Gender != "" {
		patient.Params["gender"] = f.Gender
	}

	condition := ParamSet{ResourceType: ResourceCondition, Params: map[string]string{}}
	var codes, texts []string
	for _, c := range f.Conditions {
		if c.Coded() {
			codes = append(codes, c.System+"|"+c.Code)
		} else if c.Term != "" {
			texts = append(texts, c.Term)
		}
	}
	if len(codes) > 0 {
		condition.Params["code"] = strings.Join(codes, ",")
	}
	if len(texts) > 0 {
		condition.Params["code:text"] = strings.Join(texts, ",")
	}

	return patient, condition
}

// SubtractYears moves a date back by the given number of years. A Feb-29
// anchor whose target year is not a leap year falls back to Feb-28 instead
// of rolling into March.
func SubtractYears(t time.Time, years int) time.Time {
	year := t.Year() - years
	month, day := t.Month(), t.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
