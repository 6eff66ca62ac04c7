package interpret

import (
	"strconv"
	"strings"

	"github.com/medquery/medquery/internal/domain/query"
	"github.com/medquery/medquery/internal/platform/fhir"
)

// subjectIDs collects the unique normalized subject ids of a condition
// bundle, in order of first appearance.
func subjectIDs(b *fhir.Bundle) []string {
	if b == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, entry := range b.Entries {
		ref := entry.SubjectRef()
		if ref == "" {
			continue
		}
		id := fhir.NormalizeReference(ref)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// matchesFilters applies the client-side re-validation: gender must match
// case-insensitively, and the patient's age (birth year vs. current year)
// must lie within the requested bounds. A patient without a birth date is
// excluded whenever an age bound is active.
func matchesFilters(p fhir.Resource, f query.Filters, currentYear int) bool {
	if f.Gender != "" && !strings.EqualFold(p.Gender, f.Gender) {
		return false
	}

	if f.HasAgeBound() {
		age := ageFromBirthDate(p.BirthDate, currentYear)
		if age == nil {
			return false
		}
		if f.AgeMin != nil && *age < *f.AgeMin {
			return false
		}
		if f.AgeMax != nil && *age > *f.AgeMax {
			return false
		}
	}

	return true
}

// ageFromBirthDate computes age from the year component of an ISO birth
// date. Nil when the date is missing or unparseable.
func ageFromBirthDate(birthDate string, currentYear int) *int {
	if birthDate == "" {
		return nil
	}
	yearPart, _, _ := strings.Cut(birthDate, "-")
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return nil
	}
	age := currentYear - year
	return &age
}

// summarize builds the denormalized summary for one patient, attaching the
// display text of every condition in the retained bundle whose subject
// reference identifies this patient.
func summarize(p fhir.Resource, conditions *fhir.Bundle, currentYear int) PatientSummary {
	s := PatientSummary{
		ID:         p.ID,
		Name:       displayName(p),
		Gender:     p.Gender,
		BirthDate:  p.BirthDate,
		Age:        ageFromBirthDate(p.BirthDate, currentYear),
		Conditions: []string{},
	}

	if conditions != nil {
		for _, entry := range conditions.Entries {
			if !fhir.RefersTo(entry.SubjectRef(), p.ID) {
				continue
			}
			if text := entry.DisplayText(); text != "" {
				s.Conditions = append(s.Conditions, text)
			}
		}
	}

	return s
}

// displayName joins the first structured name's given and family parts,
// falling back to the raw id when the resource carries no name.
func displayName(p fhir.Resource) string {
	if len(p.Name) > 0 {
		n := p.Name[0]
		given := ""
		if len(n.Given) > 0 {
			given = n.Given[0]
		}
		if name := strings.TrimSpace(given + " " + n.Family); name != "" {
			return name
		}
	}
	return p.ID
}
