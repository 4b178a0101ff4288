// Package datajs reads and writes benchmark history files in the
// window.BENCHMARK_DATA format and implements the append-only history
// operations on them.
//
// Decode accepts both the script form
//
//	window.BENCHMARK_DATA = { ... }
//
// and bare JSON. Encode always writes the script form with 2-space
// indentation, matching what the gh-pages dashboard expects to load through a
// <script> tag.
//
// AddEntry enforces the history invariants: entries within a suite keep
// non-decreasing dates, every entry carries at least one bench, and trimming
// to a maximum size only ever drops the oldest entries.
package datajs
