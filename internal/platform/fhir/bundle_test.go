package fhir

import "testing"

func TestDecodeBundle_EntriesShape(t *testing.T) {
	body := `{
		"resourceType": "Bundle",
		"total": 2,
		"entry": [
			{"resource": {"resourceType": "Patient", "id": "1", "gender": "female", "birthDate": "1960-01-01"}},
			{"resource": {"resourceType": "Patient", "id": "2", "gender": "male"}}
		]
	}`

	b := DecodeBundle([]byte(body))
	if b.Total == nil || *b.Total != 2 {
		t.Errorf("expected total 2, got %v", b.Total)
	}
	if len(b.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(b.Entries))
	}
	if b.Entries[0].ID != "1" || b.Entries[0].BirthDate != "1960-01-01" {
		t.Errorf("unexpected first entry: %+v", b.Entries[0])
	}
}

func TestDecodeBundle_BareListShape(t *testing.T) {
	body := `[
		{"resourceType": "Patient", "id": "7"},
		{"resourceType": "Patient", "id": "8"}
	]`

	b := DecodeBundle([]byte(body))
	if b.Total != nil {
		t.Errorf("expected no total for bare list, got %v", *b.Total)
	}
	if len(b.Entries) != 2 || b.Entries[1].ID != "8" {
		t.Errorf("unexpected entries: %+v", b.Entries)
	}
}

func TestDecodeBundle_MalformedBodies(t *testing.T) {
	for _, body := range []string{"", "   ", "not json", `{"entry": "nope"}`, `[{"id": 3]`} {
		b := DecodeBundle([]byte(body))
		if b == nil {
			t.Fatalf("DecodeBundle(%q) returned nil", body)
		}
		if len(b.Entries) != 0 {
			t.Errorf("DecodeBundle(%q) should be empty, got %+v", body, b.Entries)
		}
	}
}

func TestBundle_Resources(t *testing.T) {
	b := &Bundle{Entries: []Resource{
		{ResourceType: "Patient", ID: "1"},
		{ResourceType: "OperationOutcome"},
		{ResourceType: "Patient", ID: "2"},
	}}

	patients := b.Resources("Patient")
	if len(patients) != 2 || patients[0].ID != "1" || patients[1].ID != "2" {
		t.Errorf("unexpected patients: %+v", patients)
	}

	var nilBundle *Bundle
	if nilBundle.Resources("Patient") != nil {
		t.Error("nil bundle should yield nil")
	}
}

func TestResource_DisplayText(t *testing.T) {
	textFirst := Resource{Code: &CodeableConcept{
		Text:   " Diabetes mellitus ",
		Coding: []Coding{{Display: "Something else"}},
	}}
	if got := textFirst.DisplayText(); got != "Diabetes mellitus" {
		t.Errorf("expected concept text preferred, got %q", got)
	}

	codingOnly := Resource{Code: &CodeableConcept{Coding: []Coding{{Display: "Hypertension"}}}}
	if got := codingOnly.DisplayText(); got != "Hypertension" {
		t.Errorf("expected first coding display, got %q", got)
	}

	empty := Resource{}
	if got := empty.DisplayText(); got != "" {
		t.Errorf("expected empty display, got %q", got)
	}
}

func TestResource_SubjectRef(t *testing.T) {
	r := Resource{Subject: &Reference{Reference: "Patient/42", ID: "ignored"}}
	if r.SubjectRef() != "Patient/42" {
		t.Errorf("expected reference preferred, got %q", r.SubjectRef())
	}

	idOnly := Resource{Subject: &Reference{ID: "42"}}
	if idOnly.SubjectRef() != "42" {
		t.Errorf("expected bare id, got %q", idOnly.SubjectRef())
	}

	none := Resource{}
	if none.SubjectRef() != "" {
		t.Errorf("expected empty ref, got %q", none.SubjectRef())
	}
}
