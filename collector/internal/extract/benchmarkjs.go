package extract

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/benchboard/benchboard/pkg/types"
)

// fib(20) x 11,465 ops/sec ±1.12% (91 runs sampled)
var benchmarkJSLine = regexp.MustCompile(`^ *([^ ].*?) x ([0-9,.]+) ops/sec ±([0-9.]+)% \((\d+) runs? sampled\)$`)

func extractBenchmarkJS(r io.Reader) ([]types.Bench, error) {
	var out []types.Bench
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := benchmarkJSLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(stripCommas(m[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("extract benchmarkjs: %q: %w", m[1], err)
		}
		out = append(out, types.Bench{
			Name:  m[1],
			Value: v,
			Range: "±" + m[3] + "%",
			Unit:  "ops/sec",
			Extra: m[4] + " samples",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("extract benchmarkjs: read: %w", err)
	}
	return out, nil
}
