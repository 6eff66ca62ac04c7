package query

import (
	"reflect"
	"testing"
	"time"

	"github.com/medquery/medquery/internal/domain/vocabulary"
)

var refDate = time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)

func TestBuildParams_AgeMin(t *testing.T) {
	patient, _ := BuildParams(Filters{AgeMin: intPtr(50)}, refDate)
	if got := patient.Params["birthdate"]; got != "le1976-08-28" {
		t.Errorf("expected le1976-08-28, got %q", got)
	}
}

func TestBuildParams_AgeMax(t *testing.T) {
	patient, _ := BuildParams(Filters{AgeMax: intPtr(20)}, refDate)
	if got := patient.Params["birthdate"]; got != "ge2006-08-28" {
		t.Errorf("expected ge2006-08-28, got %q", got)
	}
}

func TestBuildParams_BothBoundsCommaJoined(t *testing.T) {
	patient, _ := BuildParams(Filters{AgeMin: intPtr(50), AgeMax: intPtr(20)}, refDate)
	if got := patient.Params["birthdate"]; got != "le1976-08-28,ge2006-08-28" {
		t.Errorf("expected le clause first, got %q", got)
	}
}

func TestBuildParams_Gender(t *testing.T) {
	patient, _ := BuildParams(Filters{Gender: "female"}, refDate)
	if got := patient.Params["gender"]; got != "female" {
		t.Errorf("expected gender passed through, got %q", got)
	}
}

func TestBuildParams_CodedConditions(t *testing.T) {
	f := Filters{Conditions: []ConditionRef{
		{Term: "Diabetes mellitus", Code: "44054006", System: vocabulary.SystemSNOMED},
		{Term: "Hypertension", Code: "38341003", System: vocabulary.SystemSNOMED},
		{Term: "back pain"}, // free-text
	}}
	_, condition := BuildParams(f, refDate)

	wantCode := vocabulary.SystemSNOMED + "|44054006," + vocabulary.SystemSNOMED + "|38341003"
	if got := condition.Params["code"]; got != wantCode {
		t.Errorf("expected %q, got %q", wantCode, got)
	}
	if got := condition.Params["code:text"]; got != "back pain" {
		t.Errorf("expected free-text term in code:text, got %q", got)
	}
}

func TestBuildParams_EmptyFilters(t *testing.T) {
	patient, condition := BuildParams(Filters{}, refDate)
	if len(patient.Params) != 0 || len(condition.Params) != 0 {
		t.Errorf("expected empty parameter sets, got %v / %v", patient.Params, condition.Params)
	}
	if patient.ResourceType != ResourcePatient || condition.ResourceType != ResourceCondition {
		t.Errorf("unexpected resource types: %q / %q", patient.ResourceType, condition.ResourceType)
	}
}

func TestBuildParams_Deterministic(t *testing.T) {
	f := Filters{
		AgeMin: intPtr(50),
		Gender: "female",
		Conditions: []ConditionRef{
			{Term: "Diabetes mellitus", Code: "44054006", System: vocabulary.SystemSNOMED},
		},
	}
	p1, c1 := BuildParams(f, refDate)
	p2, c2 := BuildParams(f, refDate)
	if !reflect.DeepEqual(p1, p2) || !reflect.DeepEqual(c1, c2) {
		t.Error("expected identical parameter sets for identical input")
	}
}

func TestSubtractYears_LeapDay(t *testing.T) {
	leap := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)

	got := SubtractYears(leap, 1)
	if got.Month() != time.February || got.Day() != 28 || got.Year() != 2023 {
		t.Errorf("expected 2023-02-28, got %s", got.Format("2006-01-02"))
	}

	// Leap year to leap year keeps Feb 29.
	got = SubtractYears(leap, 4)
	if got.Month() != time.February || got.Day() != 29 || got.Year() != 2020 {
		t.Errorf("expected 2020-02-29, got %s", got.Format("2006-01-02"))
	}
}

func TestSubtractYears_PlainDate(t *testing.T) {
	got := SubtractYears(refDate, 50)
	if got.Format("2006-01-02") != "1976-08-28" {
		t.Errorf("expected 1976-08-28, got %s", got.Format("2006-01-02"))
	}
}
