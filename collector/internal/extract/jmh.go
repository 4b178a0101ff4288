package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/benchboard/benchboard/pkg/types"
)

type jmhResult struct {
	Benchmark             string            `json:"benchmark"`
	Params                map[string]string `json:"params"`
	Forks                 int               `json:"forks"`
	Threads               int               `json:"threads"`
	MeasurementIterations int               `json:"measurementIterations"`
	PrimaryMetric         struct {
		Score      float64 `json:"score"`
		ScoreError float64 `json:"scoreError"`
		ScoreUnit  string  `json:"scoreUnit"`
	} `json:"primaryMetric"`
}

// extractJMH reads the JSON array written by JMH with -rf json.
// Parameterised runs get their params appended to the name so each
// combination is its own series.
func extractJMH(r io.Reader) ([]types.Bench, error) {
	var results []jmhResult
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("extract jmh: parse json: %w", err)
	}
	out := make([]types.Bench, 0, len(results))
	for _, res := range results {
		name := res.Benchmark
		if len(res.Params) > 0 {
			params, err := json.Marshal(res.Params)
			if err != nil {
				return nil, fmt.Errorf("extract jmh: params of %s: %w", res.Benchmark, err)
			}
			name += " ( " + string(params) + " )"
		}
		var rng string
		if res.PrimaryMetric.ScoreError != 0 {
			rng = "± " + strconv.FormatFloat(res.PrimaryMetric.ScoreError, 'g', 6, 64)
		}
		out = append(out, types.Bench{
			Name:  name,
			Value: res.PrimaryMetric.Score,
			Range: rng,
			Unit:  res.PrimaryMetric.ScoreUnit,
			Extra: fmt.Sprintf("iterations: %d\nforks: %d\nthreads: %d",
				res.MeasurementIterations, res.Forks, res.Threads),
		})
	}
	return out, nil
}
