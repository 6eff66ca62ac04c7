// Package telemetry provides process-local counters with a Prometheus text
// exposition endpoint, without importing a metrics SDK.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
)

// Counter is a monotonically increasing metric. All methods are safe on a
// nil receiver so that components can treat metrics as optional.
type Counter struct {
	v atomic.Uint64
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.v.Add(1)
}

// Add increases the counter by delta.
func (c *Counter) Add(delta uint64) {
	if c == nil {
		return
	}
	c.v.Add(delta)
}

// Value returns the current count.
func (c *Counter) Value() uint64 {
	if c == nil {
		return 0
	}
	return c.v.Load()
}

// series is one labeled time series of a counter family.
type series struct {
	labels string // rendered label set, "" for none
	c      *Counter
}

// family is a named counter with help text and its label series.
type family struct {
	name   string
	help   string
	series []*series
}

// Registry holds all counters for one service and renders them in the
// Prometheus text exposition format.
type Registry struct {
	mu       sync.Mutex
	service  string
	order    []string
	families map[string]*family
}

// NewRegistry creates a registry for the named service.
func NewRegistry(service string) *Registry {
	return &Registry{
		service:  service,
		families: make(map[string]*family),
	}
}

// Counter returns the unlabeled counter with the given name, creating it on
// first use. Help text is taken from the first registration.
func (r *Registry) Counter(name, help string) *Counter {
	return r.CounterWithLabels(name, help, nil)
}

// CounterWithLabels returns the counter series for the given name and label
// set, creating it on first use.
func (r *Registry) CounterWithLabels(name, help string, labels map[string]string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.families[name]
	if !ok {
		f = &family{name: name, help: help}
		r.families[name] = f
		r.order = append(r.order, name)
	}

	rendered := renderLabels(labels)
	for _, s := range f.series {
		if s.labels == rendered {
			return s.c
		}
	}
	s := &series{labels: rendered, c: &Counter{}}
	f.series = append(f.series, s)
	return s.c
}

func renderLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Render produces the Prometheus text exposition of all counters.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, name := range r.order {
		f := r.families[name]
		fmt.Fprintf(&b, "# HELP %s %s\n", f.name, f.help)
		fmt.Fprintf(&b, "# TYPE %s counter\n", f.name)
		for _, s := range f.series {
			fmt.Fprintf(&b, "%s%s %d\n", f.name, s.labels, s.c.Value())
		}
	}
	return b.String()
}

// Handler returns an echo handler serving the exposition text.
func (r *Registry) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, r.Render())
	}
}

// HTTPMiddleware counts completed requests by status class.
func (r *Registry) HTTPMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			class := fmt.Sprintf("%dxx", status/100)
			r.CounterWithLabels("http_requests_total",
				"Completed HTTP requests by status class.",
				map[string]string{"class": class}).Inc()

			return err
		}
	}
}
