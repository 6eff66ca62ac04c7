package interpret

import "github.com/medquery/medquery/internal/domain/query"

// PatientSummary is the flat, UI-facing record for one matching patient.
type PatientSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Gender     string   `json:"gender"`
	BirthDate  string   `json:"birth_date"`
	Age        *int     `json:"age"`
	Conditions []string `json:"conditions"`
}

// Result is the structured outcome of interpreting one query. It is always
// fully populated: upstream failures are recorded in Errors while Patients
// carries whatever partial summaries were computed.
type Result struct {
	Query       string            `json:"query"`
	Filters     query.Filters     `json:"filters"`
	FHIRQueries map[string]string `json:"fhir_queries"`
	Patients    []PatientSummary  `json:"patients"`
	Errors      []string          `json:"errors"`
}
