// Package types defines the benchmark history data model shared by the
// collector and the server. Field names and JSON tags match the
// window.BENCHMARK_DATA format written by github-action-benchmark, so a value
// decoded from a gh-pages data.js file round-trips without loss.
package types
