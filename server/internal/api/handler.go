package api

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/entryrpc"
	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/alerts"
	"github.com/benchboard/benchboard/server/internal/auth"
	"github.com/benchboard/benchboard/server/internal/config"
	"github.com/benchboard/benchboard/server/internal/receiver"
	"github.com/benchboard/benchboard/server/internal/store"
)

// maxBodyBytes caps request bodies on ingest and validate routes.
const maxBodyBytes = 10 << 20

//go:embed static/index.html
var static embed.FS

// Options wires a Handler to the rest of the server.
type Options struct {
	Store    *store.Store
	Alerts   *alerts.Engine
	Receiver *receiver.Receiver

	// Warn and Alert are the health thresholds as ratios.
	Warn  float64
	Alert float64

	// Auth guards POST /api/v1/suites/{suite}/entries.
	Auth config.AuthConfig
}

// Handler serves the dashboard, the data file, the REST API under /api/v1
// and JSON-RPC under /rpc.
type Handler struct {
	store    *store.Store
	alerts   *alerts.Engine
	receiver *receiver.Receiver
	warn     float64
	alert    float64
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(opts Options) *Handler {
	h := &Handler{
		store:    opts.Store,
		alerts:   opts.Alerts,
		receiver: opts.Receiver,
		warn:     opts.Warn,
		alert:    opts.Alert,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("/{$}", h.index)
	h.mux.HandleFunc("/data.js", h.dataJS)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/suites", h.listSuites)
	h.mux.HandleFunc("/api/v1/suites/{suite}", h.getSuite)
	h.mux.HandleFunc("/api/v1/suites/{suite}/benches/{bench...}", h.series)
	h.mux.HandleFunc("/api/v1/suites/{suite}/compare", h.compare)
	h.mux.Handle("/api/v1/suites/{suite}/entries",
		auth.RequireAPIKey(opts.Auth.Mode, opts.Auth.EffectiveHeader(), opts.Auth.Key(), http.HandlerFunc(h.appendEntry)))
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/validate", h.validate)
	h.mux.Handle("/rpc", newRPCServer(h.store))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// index serves the embedded dashboard loader page.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page) //nolint:errcheck
}

// dataJS serves GET /data.js, the live history in data-file format.
func (h *Handler) dataJS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw, err := datajs.Marshal(h.store.Data())
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(raw) //nolint:errcheck
}

// health returns GET /api/v1/health: per-suite state from the latest
// comparison, and the worst of them overall.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	suites := h.suiteHealth()
	resp := HealthResponse{
		State:      regress.StateUnknown,
		SuiteCount: len(suites),
		Suites:     suites,
	}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.Firing("")
	}

	rank := map[string]int{regress.StateUnknown: 0, regress.StateHealthy: 1, regress.StateDegraded: 2, regress.StateCritical: 3}
	for _, s := range suites {
		switch s.State {
		case regress.StateHealthy:
			resp.HealthyCount++
		case regress.StateDegraded:
			resp.DegradedCount++
		case regress.StateCritical:
			resp.CriticalCount++
		default:
			resp.UnknownCount++
		}
		if rank[s.State] > rank[resp.State] {
			resp.State = s.State
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// listSuites returns GET /api/v1/suites.
func (h *Handler) listSuites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.store.Suites())
}

// getSuite returns GET /api/v1/suites/{suite}, every entry oldest first.
func (h *Handler) getSuite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.PathValue("suite")
	entries, err := h.store.Entries(name)
	if err != nil {
		storeErr(w, err, "suite not found")
		return
	}
	jsonResp(w, http.StatusOK, SuiteResponse{Name: name, Entries: entries})
}

// series returns GET /api/v1/suites/{suite}/benches/{bench}. Bench names may
// contain slashes.
func (h *Handler) series(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	suite, bench := r.PathValue("suite"), r.PathValue("bench")
	points, err := h.store.Series(suite, bench)
	if err != nil {
		storeErr(w, err, "bench not found")
		return
	}
	jsonResp(w, http.StatusOK, SeriesResponse{Suite: suite, Bench: bench, Points: points})
}

// compare returns GET /api/v1/suites/{suite}/compare: the latest entry
// against its baseline, with diagnostics hints.
func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.PathValue("suite")
	latest, baseline, err := h.store.Latest(name)
	if err == nil && latest == nil {
		err = store.ErrNotFound
	}
	if err != nil {
		storeErr(w, err, "suite not found")
		return
	}

	res := regress.Compare(baseline, latest)
	resp := CompareResponse{
		Suite:       name,
		Commit:      latest.Commit.ID,
		State:       regress.Classify(res.Changes, h.warn, h.alert),
		Threshold:   regress.FormatRatio(h.alert),
		Regressions: nonNil(regress.Regressions(res.Changes, h.alert)),
		Diagnostics: computeDiagnostics(baseline, latest, res, h.warn, h.alert),
		Result:      res,
	}
	if resp.Changes == nil {
		resp.Changes = []regress.Change{}
	}
	if baseline != nil {
		resp.Baseline = baseline.Commit.ID
	}
	jsonResp(w, http.StatusOK, resp)
}

// appendEntry handles POST /api/v1/suites/{suite}/entries. The body is
// {"entry": {...}, "repo_url": "..."}; the suite comes from the path.
func (h *Handler) appendEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.receiver == nil {
		jsonErr(w, http.StatusServiceUnavailable, "ingest disabled")
		return
	}

	var req entryrpc.AppendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	req.Suite = r.PathValue("suite")

	resp, err := h.receiver.Ingest(r.Context(), &req, receiver.TransportHTTP)
	if err != nil {
		var verr *datajs.ValidationError
		switch {
		case errors.As(err, &verr):
			jsonResp(w, http.StatusBadRequest, errorResponse{Error: "invalid entry", Violations: verr.Violations})
		case errors.Is(err, datajs.ErrOutOfOrder):
			jsonErr(w, http.StatusConflict, err.Error())
		default:
			jsonErr(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	jsonResp(w, http.StatusCreated, resp)
}

// listAlerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// validate checks the live history on GET, or an uploaded data file on POST.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var resp ValidateResponse
	switch r.Method {
	case http.MethodGet:
		resp = validateData(h.store.Data())
	case http.MethodPost:
		d, err := datajs.Decode(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		resp = validateData(d)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- summaries --------------------------------------------------------------

// suiteHealth classifies every suite by its latest comparison.
func (h *Handler) suiteHealth() []SuiteHealth {
	return BuildSuiteHealth(h.store, h.warn, h.alert)
}

// BuildSuiteHealth classifies every suite in st by its latest comparison.
func BuildSuiteHealth(st *store.Store, warn, alert float64) []SuiteHealth {
	infos := st.Suites()
	out := make([]SuiteHealth, 0, len(infos))
	for _, info := range infos {
		sh := SuiteHealth{SuiteInfo: info, State: regress.StateUnknown}
		latest, baseline, err := st.Latest(info.Name)
		if err == nil && latest != nil && baseline != nil {
			res := regress.Compare(baseline, latest)
			sh.State = regress.Classify(res.Changes, warn, alert)
			sh.Baseline = baseline.Commit.ID
			for _, c := range res.Changes {
				if c.Ratio > sh.Worst {
					sh.Worst = c.Ratio
				}
			}
		}
		out = append(out, sh)
	}
	return out
}

// BuildSummary assembles the dashboard overview sent over the WebSocket.
func BuildSummary(st *store.Store, eng *alerts.Engine, warn, alert float64) SummaryResponse {
	d := st.Data()
	resp := SummaryResponse{
		RepoURL:     d.RepoURL,
		LastUpdate:  d.LastUpdate,
		Entries:     st.Count(),
		Suites:      BuildSuiteHealth(st, warn, alert),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if eng != nil {
		resp.Alerts = eng.Firing("")
	}
	return resp
}

// Summary returns the current overview using the handler's thresholds.
func (h *Handler) Summary() SummaryResponse {
	return BuildSummary(h.store, h.alerts, h.warn, h.alert)
}

// --- helpers ----------------------------------------------------------------

func validateData(d *types.Data) ValidateResponse {
	resp := ValidateResponse{Valid: true, Suites: len(d.Entries), Violations: []datajs.Violation{}}
	for _, entries := range d.Entries {
		resp.Entries += len(entries)
	}
	if err := datajs.Validate(d); err != nil {
		resp.Valid = false
		var verr *datajs.ValidationError
		if errors.As(err, &verr) {
			resp.Violations = verr.Violations
		} else {
			resp.Violations = append(resp.Violations, datajs.Violation{Index: -1, Field: "file", Msg: err.Error()})
		}
	}
	return resp
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// storeErr maps store errors to HTTP responses.
func storeErr(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, notFound)
		return
	}
	jsonErr(w, http.StatusInternalServerError, err.Error())
}

func nonNil(cs []regress.Change) []regress.Change {
	if cs == nil {
		return []regress.Change{}
	}
	return cs
}
