package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/benchboard/benchboard/pkg/types"
)

// BenchmarkDecode/small-8   1000000   1045 ns/op   312 B/op   6 allocs/op
var goLine = regexp.MustCompile(`^(Benchmark\S+?)(?:-(\d+))?\s+(\d+)\s+(.+)$`)

func extractGo(r io.Reader) ([]types.Bench, error) {
	var out []types.Bench
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := goLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		name, procs, times, rest := m[1], m[2], m[3], m[4]

		fields := strings.Fields(rest)
		if len(fields) < 2 || len(fields)%2 != 0 {
			continue
		}
		type metric struct {
			value float64
			unit  string
		}
		metrics := make([]metric, 0, len(fields)/2)
		for i := 0; i < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("extract go: %s: value %q: %w", name, fields[i], err)
			}
			metrics = append(metrics, metric{value: v, unit: fields[i+1]})
		}

		extra := times + " times"
		if procs != "" {
			extra += "\n" + procs + " procs"
		}
		// The first metric keeps the bare name so its series survives
		// toggling -benchmem.
		for i, mt := range metrics {
			n := name
			if i > 0 {
				n = name + " - " + mt.unit
			}
			out = append(out, types.Bench{Name: n, Value: mt.value, Unit: mt.unit, Extra: extra})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("extract go: read: %w", err)
	}
	return out, nil
}
