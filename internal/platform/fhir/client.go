package fhir

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/medquery/medquery/internal/platform/telemetry"
)

// SearchError reports that a coded condition search and its free-text
// fallback both failed. A zero status means the attempt never reached the
// server (transport failure) or was not made.
type SearchError struct {
	CodeStatus int
	TextStatus int
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("both condition searches failed (%d/%d)", e.CodeStatus, e.TextStatus)
}

// ClientConfig configures the repository client.
type ClientConfig struct {
	// BaseURL is the FHIR repository root, e.g. "https://hapi.fhir.org/baseR4".
	BaseURL string
	// Auth, when set, is forwarded verbatim as the Authorization header. The
	// client never inspects it.
	Auth string
	// Timeout bounds every upstream call.
	Timeout time.Duration
	Logger  zerolog.Logger
	Metrics *telemetry.Registry
}

// Client executes protocol-level reads against a FHIR repository.
type Client struct {
	baseURL        string
	auth           string
	http           *http.Client
	log            zerolog.Logger
	upstreamErrors *telemetry.Counter
	fallbacks      *telemetry.Counter
}

// NewClient creates a repository client. Transport-level retries (connection
// errors, 5xx) are handled by retryablehttp below the adapter; the
// coded-to-text degradation in SearchCondition is the only protocol-level
// fallback.
func NewClient(cfg ClientConfig) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 2
	retry.Logger = nil
	retry.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		auth:    cfg.Auth,
		http:    retry.StandardClient(),
		log:     cfg.Logger,
	}
	if cfg.Metrics != nil {
		c.upstreamErrors = cfg.Metrics.Counter("fhir_upstream_errors_total",
			"Upstream repository calls that returned no usable result.")
		c.fallbacks = cfg.Metrics.Counter("fhir_condition_fallbacks_total",
			"Coded condition searches degraded to free-text search.")
	}
	return c
}

// QueryURL renders the search URL for a resource type and parameter set.
// Used for the debug query map in responses; parameters are encoded in
// sorted key order so the output is deterministic.
func (c *Client) QueryURL(resourceType string, params map[string]string) string {
	u := c.baseURL + "/" + resourceType
	if len(params) == 0 {
		return u
	}
	v := url.Values{}
	for k, val := range params {
		v.Set(k, val)
	}
	return u + "?" + v.Encode()
}

// get issues one GET and returns the status code and body. A transport
// failure returns status 0.
func (c *Client) get(ctx context.Context, resourceType string, params map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.QueryURL(resourceType, params), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s search: %w", resourceType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", resourceType, err)
	}
	return resp.StatusCode, body, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// SearchCondition looks up condition records for one coding. It first tries
// the coded search "Condition?code=<system>|<code>"; when the server rejects
// it, the search degrades once to "Condition?code:text=<term>". Coded
// vocabularies differ per deployment, so a rejected coding is an expected
// outcome, not an error. Only when both attempts fail does the call return a
// *SearchError carrying both status codes.
func (c *Client) SearchCondition(ctx context.Context, system, code, term string) (*Bundle, error) {
	codeStatus := 0
	if code != "" {
		token := code
		if system != "" {
			token = system + "|" + code
		}
		status, body, err := c.get(ctx, "Condition", map[string]string{"code": token})
		if err == nil && success(status) {
			return DecodeBundle(body), nil
		}
		codeStatus = status
		c.log.Warn().
			Int("status", status).
			Str("code", code).
			Msg("coded condition search failed, trying text fallback")
		c.fallbacks.Inc()
	}

	status, body, err := c.get(ctx, "Condition", map[string]string{"code:text": term})
	if err == nil && success(status) {
		return DecodeBundle(body), nil
	}

	c.upstreamErrors.Inc()
	return nil, &SearchError{CodeStatus: codeStatus, TextStatus: status}
}

// SearchPatients executes a parameterized patient search. A failure returns
// an explicit error for the caller to record; it never aborts the pipeline.
func (c *Client) SearchPatients(ctx context.Context, params map[string]string) (*Bundle, error) {
	status, body, err := c.get(ctx, "Patient", params)
	if err != nil {
		c.upstreamErrors.Inc()
		return nil, err
	}
	if !success(status) {
		c.upstreamErrors.Inc()
		return nil, fmt.Errorf("patient search returned status %d", status)
	}
	return DecodeBundle(body), nil
}

// FetchPatientsByIDs batch-fetches patients with a comma-joined _id list.
// The response body may be a bundle or a bare resource list; both normalize
// into the same Bundle shape.
func (c *Client) FetchPatientsByIDs(ctx context.Context, ids []string) (*Bundle, error) {
	return c.SearchPatients(ctx, map[string]string{"_id": strings.Join(ids, ",")})
}
