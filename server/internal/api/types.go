package api

import (
	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/store"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State         string        `json:"state"`
	SuiteCount    int           `json:"suite_count"`
	HealthyCount  int           `json:"healthy_count"`
	DegradedCount int           `json:"degraded_count"`
	CriticalCount int           `json:"critical_count"`
	UnknownCount  int           `json:"unknown_count"`
	AlertCount    int           `json:"alert_count"`
	Suites        []SuiteHealth `json:"suites"`
}

// SuiteHealth is the state of one suite derived from its latest comparison.
type SuiteHealth struct {
	store.SuiteInfo
	State    string  `json:"state"`
	Baseline string  `json:"baseline,omitempty"`
	Worst    float64 `json:"worst_ratio,omitempty"`
}

// SuiteResponse is the payload for GET /api/v1/suites/{suite}.
type SuiteResponse struct {
	Name    string        `json:"name"`
	Entries []types.Entry `json:"entries"`
}

// SeriesResponse is the payload for GET /api/v1/suites/{suite}/benches/{bench}.
type SeriesResponse struct {
	Suite  string        `json:"suite"`
	Bench  string        `json:"bench"`
	Points []store.Point `json:"points"`
}

// CompareResponse is the payload for GET /api/v1/suites/{suite}/compare.
type CompareResponse struct {
	Suite       string           `json:"suite"`
	Commit      string           `json:"commit"`
	Baseline    string           `json:"baseline,omitempty"`
	State       string           `json:"state"`
	Threshold   string           `json:"threshold"`
	Regressions []regress.Change `json:"regressions"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
	regress.Result
}

// ValidateResponse is the payload for /api/v1/validate.
type ValidateResponse struct {
	Valid      bool               `json:"valid"`
	Suites     int                `json:"suites"`
	Entries    int                `json:"entries"`
	Violations []datajs.Violation `json:"violations"`
}

// SummaryResponse is the dashboard overview pushed over the WebSocket.
type SummaryResponse struct {
	RepoURL     string        `json:"repo_url"`
	LastUpdate  int64         `json:"last_update"`
	Entries     int           `json:"entries"`
	Suites      []SuiteHealth `json:"suites"`
	Alerts      int           `json:"alerts"`
	GeneratedAt string        `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error      string             `json:"error"`
	Violations []datajs.Violation `json:"violations,omitempty"`
}
