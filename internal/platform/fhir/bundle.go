// Package fhir is the client adapter for a FHIR R4 repository. It issues
// resource-oriented GET searches, normalizes the shapes a server may return,
// and degrades from coded to free-text condition search when a server
// rejects a coding.
package fhir

import (
	"encoding/json"
	"strings"
)

// Coding is one entry of a CodeableConcept's coding list.
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept carries a coded value with an optional human-readable text.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Reference points at another resource, usually as "Patient/<id>" or a
// urn:uuid form.
type Reference struct {
	Reference string `json:"reference,omitempty"`
	ID        string `json:"id,omitempty"`
}

// HumanName is a structured patient name.
type HumanName struct {
	Given  []string `json:"given,omitempty"`
	Family string   `json:"family,omitempty"`
}

// Resource is a leniently decoded FHIR resource carrying only the fields this
// service reads. Unknown fields are ignored at decode time.
type Resource struct {
	ResourceType string           `json:"resourceType,omitempty"`
	ID           string           `json:"id,omitempty"`
	Gender       string           `json:"gender,omitempty"`
	BirthDate    string           `json:"birthDate,omitempty"`
	Name         []HumanName      `json:"name,omitempty"`
	Subject      *Reference       `json:"subject,omitempty"`
	Code         *CodeableConcept `json:"code,omitempty"`
}

// SubjectRef returns the raw subject reference of a condition resource,
// preferring the reference string over a bare id.
func (r *Resource) SubjectRef() string {
	if r.Subject == nil {
		return ""
	}
	if r.Subject.Reference != "" {
		return r.Subject.Reference
	}
	return r.Subject.ID
}

// DisplayText returns the human-readable display for a condition's code,
// preferring the concept text over the first coding's display. Empty when
// neither is present.
func (r *Resource) DisplayText() string {
	if r.Code == nil {
		return ""
	}
	if t := strings.TrimSpace(r.Code.Text); t != "" {
		return t
	}
	if len(r.Code.Coding) > 0 {
		return r.Code.Coding[0].Display
	}
	return ""
}

// Bundle is the canonical search response shape used by the rest of the
// pipeline: an optional total plus the contained resources in server order.
type Bundle struct {
	Total   *int       `json:"total,omitempty"`
	Entries []Resource `json:"entries"`
}

// Resources returns the bundle's entries whose resourceType matches, in
// order. A nil bundle yields nil.
func (b *Bundle) Resources(resourceType string) []Resource {
	if b == nil {
		return nil
	}
	var out []Resource
	for _, r := range b.Entries {
		if r.ResourceType == resourceType {
			out = append(out, r)
		}
	}
	return out
}

// wireBundle is the standard FHIR searchset shape.
type wireBundle struct {
	Total *int `json:"total,omitempty"`
	Entry []struct {
		Resource Resource `json:"resource"`
	} `json:"entry"`
}

// DecodeBundle normalizes a response body into a Bundle. It accepts the
// standard bundle-with-entries shape as well as a bare list of resources,
// which some transports hand back for batch reads. A malformed or empty body
// decodes to an empty bundle, never an error: data-shape problems degrade to
// "no results" by contract.
func DecodeBundle(body []byte) *Bundle {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return &Bundle{}
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []Resource
		if err := json.Unmarshal(body, &list); err != nil {
			return &Bundle{}
		}
		return &Bundle{Entries: list}
	}

	var wb wireBundle
	if err := json.Unmarshal(body, &wb); err != nil {
		return &Bundle{}
	}
	out := &Bundle{Total: wb.Total}
	for _, e := range wb.Entry {
		out.Entries = append(out.Entries, e.Resource)
	}
	return out
}
