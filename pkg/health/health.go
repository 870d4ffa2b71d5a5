package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

// Status is the health of a component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// DefaultTimeout bounds a full readiness probe.
const DefaultTimeout = 5 * time.Second

// Response is the JSON body of both probes.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single checker.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type entry struct {
	check    Checker
	critical bool
}

// Handler serves liveness and readiness probes.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]entry
	timeout  time.Duration
}

// NewHandler creates a handler with no checkers.
func NewHandler() *Handler {
	return &Handler{checkers: make(map[string]entry), timeout: DefaultTimeout}
}

// Register adds a critical checker: its failure makes the service not ready.
func (h *Handler) Register(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterOptional adds a checker whose failure only degrades readiness,
// e.g. the lookup cache or the analytics broker.
func (h *Handler) RegisterOptional(name string, checker Checker) {
	h.register(name, checker, false)
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = entry{check: checker, critical: critical}
}

// LivenessHandler answers 200 while the process runs.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs every checker concurrently. Any critical failure
// answers 503; optional failures answer 200 with status "degraded".
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		write(w, status, resp)
	}
}

// Check runs all checkers and aggregates their results.
func (h *Handler) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	checkers := make(map[string]entry, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(checkers))
	)
	for name, e := range checkers {
		wg.Add(1)
		go func(name string, e entry) {
			defer wg.Done()
			res := CheckResult{Status: StatusUp, Critical: e.critical}
			if err := e.check(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}(name, e)
	}
	wg.Wait()

	overall := StatusUp
	for _, res := range checks {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Response{Status: overall, Timestamp: time.Now().UTC(), Checks: checks}
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
