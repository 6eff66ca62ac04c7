// Package interpret runs the query-interpretation pipeline: extract filters
// from query text, translate them into FHIR searches, execute them against
// the repository, and aggregate the results into patient summaries.
package interpret

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medquery/medquery/internal/domain/query"
	"github.com/medquery/medquery/internal/platform/fhir"
	"github.com/medquery/medquery/internal/platform/telemetry"
)

// Repository is the view of the clinical-data repository this pipeline
// needs. *fhir.Client implements it.
type Repository interface {
	SearchCondition(ctx context.Context, system, code, term string) (*fhir.Bundle, error)
	SearchPatients(ctx context.Context, params map[string]string) (*fhir.Bundle, error)
	FetchPatientsByIDs(ctx context.Context, ids []string) (*fhir.Bundle, error)
	QueryURL(resourceType string, params map[string]string) string
}

// ServiceConfig configures the pipeline service.
type ServiceConfig struct {
	// SampleCount caps the no-filter fallback fetch.
	SampleCount int
	Logger      zerolog.Logger
	Metrics     *telemetry.Registry
}

// Service executes the interpretation pipeline. It holds only read-only
// state and is safe for concurrent use.
type Service struct {
	extractor   *query.Extractor
	repo        Repository
	sampleCount int
	log         zerolog.Logger
	now         func() time.Time
	requests    *telemetry.Counter
}

// NewService creates the pipeline service.
func NewService(extractor *query.Extractor, repo Repository, cfg ServiceConfig) *Service {
	s := &Service{
		extractor:   extractor,
		repo:        repo,
		sampleCount: cfg.SampleCount,
		log:         cfg.Logger,
		now:         time.Now,
	}
	if s.sampleCount <= 0 {
		s.sampleCount = 10
	}
	if cfg.Metrics != nil {
		s.requests = cfg.Metrics.Counter("interpret_requests_total",
			"Clinical queries interpreted.")
	}
	return s
}

// Interpret runs the full pipeline for one query. It always returns a
// structured result: failures along the way are recorded in the result's
// Errors list, never surfaced as a fatal error.
func (s *Service) Interpret(ctx context.Context, queryText string) *Result {
	s.requests.Inc()

	filters := s.extractor.Extract(queryText)
	res := &Result{
		Query:       queryText,
		Filters:     filters,
		FHIRQueries: map[string]string{},
		Patients:    []PatientSummary{},
		Errors:      []string{},
	}

	s.aggregate(ctx, filters, res)

	s.log.Info().
		Str("query", queryText).
		Int("patients", len(res.Patients)).
		Int("errors", len(res.Errors)).
		Msg("query interpreted")
	return res
}

// aggregate performs the remote fetches and builds the summaries. Any panic
// below this boundary is recorded as an error; the result stays valid.
func (s *Service) aggregate(ctx context.Context, filters query.Filters, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("aggregation panic recovered")
			res.Errors = append(res.Errors, fmt.Sprintf("internal error: %v", r))
		}
	}()

	today := s.now()

	// Only the first condition's bundle is retained for subject-id
	// extraction and condition attachment. The remaining conditions are
	// still searched so their failures surface in the error list.
	var condBundle *fhir.Bundle
	for i, cond := range filters.Conditions {
		res.FHIRQueries["condition_code_query"] = s.repo.QueryURL(query.ResourceCondition, conditionDebugParams(cond))

		b, err := s.repo.SearchCondition(ctx, cond.System, cond.Code, cond.Term)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("condition search %q: %v", cond.Term, err))
		}
		if i == 0 {
			condBundle = b
		}
		if b != nil && b.Total != nil {
			s.log.Debug().Str("term", cond.Term).Int("total", *b.Total).Msg("condition search total")
		}
	}

	ids := subjectIDs(condBundle)

	var fetched []fhir.Resource
	switch {
	case len(ids) > 0:
		params := map[string]string{"_id": strings.Join(ids, ",")}
		res.FHIRQueries["patient_batch_query"] = s.repo.QueryURL(query.ResourcePatient, params)

		b, err := s.repo.FetchPatientsByIDs(ctx, ids)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("batch patient fetch failed: %v", err))
		} else {
			fetched = b.Resources(query.ResourcePatient)
		}

	default:
		patientParams, _ := query.BuildParams(filters, today)
		if len(patientParams.Params) > 0 {
			res.FHIRQueries["patient_search_query"] = s.repo.QueryURL(query.ResourcePatient, patientParams.Params)

			b, err := s.repo.SearchPatients(ctx, patientParams.Params)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("patient search by params failed: %v", err))
			} else {
				fetched = b.Resources(query.ResourcePatient)
			}
		} else {
			// No usable filters at all: fetch a bounded sample rather than
			// the whole repository.
			params := map[string]string{"_count": strconv.Itoa(s.sampleCount)}
			res.FHIRQueries["patient_sample_query"] = s.repo.QueryURL(query.ResourcePatient, params)

			b, err := s.repo.SearchPatients(ctx, params)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("default patient fetch failed: %v", err))
			} else {
				fetched = b.Resources(query.ResourcePatient)
			}
		}
	}

	currentYear := today.Year()
	for _, p := range fetched {
		if !matchesFilters(p, filters, currentYear) {
			continue
		}
		res.Patients = append(res.Patients, summarize(p, condBundle, currentYear))
	}
}

// conditionDebugParams renders the intended coded search for the debug query
// map, before any fallback.
func conditionDebugParams(c query.ConditionRef) map[string]string {
	if c.Coded() {
		return map[string]string{"code": c.System + "|" + c.Code}
	}
	return map[string]string{"code:text": c.Term}
}
