// Package extract turns raw benchmark tool output into bench results.
//
// New(tool) returns the Extractor for a tool name:
//   - cargo: libtest / criterion bencher lines
//     `test <name> ... bench: 1,234 ns/iter (+/- 56)`
//   - go: `go test -bench` lines, one result per reported metric
//   - benchmarkjs: `<name> x 1,234 ops/sec ±1.23% (88 runs sampled)`
//   - pytest: pytest-benchmark JSON (`--benchmark-json`)
//   - googlecpp: Google Benchmark JSON (`--benchmark_format=json`)
//   - jmh: JMH JSON results (`-rf json`)
//   - customSmallerIsBetter / customBiggerIsBetter: a JSON array of results
//   - prometheus: a Prometheus text exposition, one result per sample
//
// Open(ctx, source, auth) reads the tool output from a file, stdin ("-") or an
// http(s) URL fetched with the configured authentication.
package extract
