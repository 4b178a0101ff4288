package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/benchboard/benchboard/pkg/types"
)

// customResult mirrors one element of the customSmallerIsBetter /
// customBiggerIsBetter JSON array. Value is a pointer so a missing value is
// distinguishable from zero.
type customResult struct {
	Name  string   `json:"name"`
	Unit  string   `json:"unit"`
	Value *float64 `json:"value"`
	Range string   `json:"range"`
	Extra string   `json:"extra"`
}

func extractCustom(r io.Reader) ([]types.Bench, error) {
	var in []customResult
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("extract custom: parse json array: %w", err)
	}
	out := make([]types.Bench, 0, len(in))
	for i, c := range in {
		switch {
		case strings.TrimSpace(c.Name) == "":
			return nil, fmt.Errorf("extract custom: [%d]: name is required", i)
		case strings.TrimSpace(c.Unit) == "":
			return nil, fmt.Errorf("extract custom: [%d] %q: unit is required", i, c.Name)
		case c.Value == nil:
			return nil, fmt.Errorf("extract custom: [%d] %q: value is required", i, c.Name)
		case math.IsNaN(*c.Value) || math.IsInf(*c.Value, 0):
			return nil, fmt.Errorf("extract custom: [%d] %q: value must be finite", i, c.Name)
		}
		out = append(out, types.Bench{
			Name:  c.Name,
			Value: *c.Value,
			Range: c.Range,
			Unit:  c.Unit,
			Extra: c.Extra,
		})
	}
	return out, nil
}
