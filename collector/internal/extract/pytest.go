package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/benchboard/benchboard/pkg/types"
)

// pytestReport is the subset of pytest-benchmark's --benchmark-json output
// that is recorded.
type pytestReport struct {
	Benchmarks []struct {
		FullName string `json:"fullname"`
		Stats    struct {
			Mean   float64 `json:"mean"`
			StdDev float64 `json:"stddev"`
			Rounds int     `json:"rounds"`
			OPS    float64 `json:"ops"`
		} `json:"stats"`
	} `json:"benchmarks"`
}

func extractPytest(r io.Reader) ([]types.Bench, error) {
	var rep pytestReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("extract pytest: parse json: %w", err)
	}
	out := make([]types.Bench, 0, len(rep.Benchmarks))
	for _, b := range rep.Benchmarks {
		var rng string
		if b.Stats.Mean > 0 {
			rng = "stddev: " + strconv.FormatFloat(b.Stats.StdDev, 'g', 6, 64)
		}
		out = append(out, types.Bench{
			Name:  b.FullName,
			Value: b.Stats.OPS,
			Range: rng,
			Unit:  "iter/sec",
			Extra: fmt.Sprintf("mean: %s sec\nrounds: %d",
				strconv.FormatFloat(b.Stats.Mean, 'g', 6, 64), b.Stats.Rounds),
		})
	}
	return out, nil
}
