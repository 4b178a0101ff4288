// Package api implements the HTTP surface of benchboard-server.
//
// New(opts) returns an http.Handler that serves:
//
//	GET  /                                      embedded dashboard page
//	GET  /data.js                               live history in data-file format
//	GET  /api/v1/health                         per-suite state and counts
//	GET  /api/v1/suites                         suite summaries
//	GET  /api/v1/suites/{suite}                 every entry of a suite
//	GET  /api/v1/suites/{suite}/benches/{bench} one bench's time series
//	GET  /api/v1/suites/{suite}/compare         latest vs baseline, with hints
//	POST /api/v1/suites/{suite}/entries         authenticated append
//	GET  /api/v1/alerts                         firing and recently resolved alerts
//	GET  /api/v1/validate                       validate the live history
//	POST /api/v1/validate                       validate an uploaded data file
//	POST /rpc                                   JSON-RPC 2.0 (bench.Suites, bench.Entries,
//	                                            bench.Series, bench.Latest)
//
// JSON endpoints return 405 for wrong methods, 404 for unknown suites and
// benches, and {"error": "..."} bodies on failure. JSON types are defined in
// types.go.
package api
