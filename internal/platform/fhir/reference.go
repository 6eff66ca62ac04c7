package fhir

import "strings"

// NormalizeReference reduces a subject reference string to a bare patient id.
// The accepted shapes, in precedence order:
//
//	"Patient/<id>" or "patient/<id>"  -> suffix after the first slash
//	"...urn:uuid:<id>"                -> suffix after the last colon
//	"foo/bar/<id>"                    -> suffix after the last slash
//	"<id>"                            -> verbatim
func NormalizeReference(ref string) string {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "patient/"):
		return ref[strings.Index(ref, "/")+1:]
	case strings.Contains(lower, "urn:uuid:"):
		return ref[strings.LastIndex(ref, ":")+1:]
	case strings.Contains(ref, "/"):
		return ref[strings.LastIndex(ref, "/")+1:]
	default:
		return ref
	}
}

// RefersTo reports whether a subject reference identifies the given patient
// id. It matches the three shapes a server may emit for the same patient:
// a plain suffix, the canonical "Patient/<id>" form, and a ":<id>" urn tail.
func RefersTo(ref, id string) bool {
	if ref == "" || id == "" {
		return false
	}
	return strings.HasSuffix(ref, id) || ref == "Patient/"+id || strings.HasSuffix(ref, ":"+id)
}
