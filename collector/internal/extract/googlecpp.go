package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/benchboard/benchboard/pkg/types"
)

// googleCppReport is the output of a Google Benchmark binary run with
// --benchmark_format=json.
type googleCppReport struct {
	Benchmarks []struct {
		Name       string  `json:"name"`
		Iterations int64   `json:"iterations"`
		RealTime   float64 `json:"real_time"`
		CPUTime    float64 `json:"cpu_time"`
		TimeUnit   string  `json:"time_unit"`
		Threads    int     `json:"threads"`
	} `json:"benchmarks"`
}

func extractGoogleCpp(r io.Reader) ([]types.Bench, error) {
	var rep googleCppReport
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("extract googlecpp: parse json: %w", err)
	}
	out := make([]types.Bench, 0, len(rep.Benchmarks))
	for _, b := range rep.Benchmarks {
		out = append(out, types.Bench{
			Name:  b.Name,
			Value: b.RealTime,
			Unit:  b.TimeUnit + "/iter",
			Extra: fmt.Sprintf("iterations: %d\ncpu: %s %s\nthreads: %d",
				b.Iterations, strconv.FormatFloat(b.CPUTime, 'g', -1, 64), b.TimeUnit, b.Threads),
		})
	}
	return out, nil
}
