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

// test synchronous_http_round_trip ... bench:      50,361 ns/iter (+/- 6,279)
var cargoLine = regexp.MustCompile(`^test (.+)\s+\.\.\. bench:\s+([0-9,.]+) (\w+/\w+) \(\+/- ([0-9,.]+)\)$`)

func extractCargo(r io.Reader) ([]types.Bench, error) {
	var out []types.Bench
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := cargoLine.FindStringSubmatch(strings.TrimRight(sc.Text(), "\r"))
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(stripCommas(m[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("extract cargo: %q: %w", m[1], err)
		}
		out = append(out, types.Bench{
			Name:  strings.TrimSpace(m[1]),
			Value: v,
			Range: "± " + stripCommas(m[4]),
			Unit:  m[3],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("extract cargo: read: %w", err)
	}
	return out, nil
}
