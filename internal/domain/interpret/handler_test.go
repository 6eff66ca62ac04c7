package interpret

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	repo := newMockRepo()
	h := NewHandler(newTestService(repo))
	e := echo.New()
	return h, e
}

func TestHandler_Interpret_Success(t *testing.T) {
	h, e := newTestHandler()

	body := `{"query": "female patients over 50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/interpret", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Interpret(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if res.Query != "female patients over 50" {
		t.Errorf("expected query echoed back, got %q", res.Query)
	}
	if res.Filters.Gender != "female" {
		t.Errorf("expected extracted filters in response, got %+v", res.Filters)
	}
	if res.Patients == nil || res.Errors == nil {
		t.Error("expected patients and errors to serialize as arrays, not null")
	}
}

func TestHandler_Interpret_EmptyQuery(t *testing.T) {
	h, e := newTestHandler()

	for _, body := range []string{`{}`, `{"query": ""}`, `{"query": "   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/interpret", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := h.Interpret(c)
		if err == nil {
			t.Errorf("body %q: expected error for empty query", body)
			continue
		}
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %v", body, err)
		}
	}
}

func TestHandler_Interpret_MalformedBody(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interpret", strings.NewReader(`{"query": 42`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Interpret(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %v", err)
	}
}
