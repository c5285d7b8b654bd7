// Package health provides HTTP liveness and readiness handlers for the
// harmonizer's telemetry endpoint.
//
//   - /healthz: liveness probe; always returns 200 OK.
//   - /readyz: readiness probe; returns 200 only when another run could
//     start: every registered [Checker] passes.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/MrWong99/harmonizer/internal/resilience"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when healthy.
type Checker struct {
	// Name is the key of this check in the JSON response (e.g. "input").
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// result is the JSON response body for health endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers, in order, on
// each /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: slices.Clone(checkers)}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 when every checker passes and 503 otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// InputExists fails while the sample at path is missing or not a regular file.
func InputExists(path string) Checker {
	return Checker{Name: "input", Check: func(context.Context) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		return nil
	}}
}

// OutputWritable fails when the directory that will hold path cannot be
// written. A directory that does not exist yet passes, since it is created
// on the first write.
func OutputWritable(path string) Checker {
	return Checker{Name: "output", Check: func(context.Context) error {
		dir := filepath.Dir(path)
		info, err := os.Stat(dir)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		f, err := os.CreateTemp(dir, ".harmonizer-ready-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	}}
}

// BreakerStates is implemented by the resilience fallback wrappers.
type BreakerStates interface {
	States() map[string]resilience.State
}

// ProvidersAvailable fails when every backend of some stage has an open
// circuit breaker. chains maps stage names ("stt", "llm", "tts") to their
// fallback chains; stages without fallbacks are simply not listed.
func ProvidersAvailable(chains map[string]BreakerStates) Checker {
	return Checker{Name: "providers", Check: func(context.Context) error {
		var down []string
		for stage, chain := range chains {
			states := chain.States()
			open := 0
			for _, s := range states {
				if s == resilience.StateOpen {
					open++
				}
			}
			if len(states) > 0 && open == len(states) {
				down = append(down, stage)
			}
		}
		if len(down) > 0 {
			slices.Sort(down)
			return fmt.Errorf("all %s backends have open circuits", strings.Join(down, ", "))
		}
		return nil
	}}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
