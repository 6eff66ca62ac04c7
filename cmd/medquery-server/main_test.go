package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabulary_DefaultWhenNoFile(t *testing.T) {
	v, err := loadVocabulary("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Len() == 0 {
		t.Error("expected built-in vocabulary to be non-empty")
	}
	if _, ok := v.Lookup("diabetes"); !ok {
		t.Error("expected diabetes in built-in vocabulary")
	}
}

func TestLoadVocabulary_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.json")
	data := `[{"key": "gout", "term": "Gout", "code": "90560007", "system": "http://snomed.info/sct"}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	v, err := loadVocabulary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Len() != 1 {
		t.Errorf("expected file vocabulary to replace the default, got %d entries", v.Len())
	}
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	if _, err := loadVocabulary(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing vocabulary file")
	}
}
