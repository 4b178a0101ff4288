package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/benchboard/benchboard/pkg/types"
)

var (
	// ErrNoBenchmarks is returned when the output contains no results.
	ErrNoBenchmarks = errors.New("extract: no benchmark results found")

	// ErrUnsupportedTool is returned by New for tools without a parser.
	ErrUnsupportedTool = errors.New("extract: unsupported tool")
)

// Extractor parses one tool's output format.
type Extractor interface {
	Extract(r io.Reader) ([]types.Bench, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(r io.Reader) ([]types.Bench, error)

func (f ExtractorFunc) Extract(r io.Reader) ([]types.Bench, error) { return f(r) }

// New returns the Extractor for tool.
func New(tool string) (Extractor, error) {
	switch tool {
	case types.ToolCargo:
		return ExtractorFunc(extractCargo), nil
	case types.ToolGo:
		return ExtractorFunc(extractGo), nil
	case types.ToolBenchmarkJS:
		return ExtractorFunc(extractBenchmarkJS), nil
	case types.ToolPytest:
		return ExtractorFunc(extractPytest), nil
	case types.ToolGoogleCpp:
		return ExtractorFunc(extractGoogleCpp), nil
	case types.ToolJMH:
		return ExtractorFunc(extractJMH), nil
	case types.ToolCustomBiggerIsBetter, types.ToolCustomSmallerIsBetter:
		return ExtractorFunc(extractCustom), nil
	case types.ToolPrometheus:
		return ExtractorFunc(extractPrometheus), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTool, tool)
	}
}

// Extract is a convenience wrapper around New(tool).Extract(r).
func Extract(tool string, r io.Reader) ([]types.Bench, error) {
	ex, err := New(tool)
	if err != nil {
		return nil, err
	}
	benches, err := ex.Extract(r)
	if err != nil {
		return nil, err
	}
	if len(benches) == 0 {
		return nil, fmt.Errorf("%w (tool %s)", ErrNoBenchmarks, tool)
	}
	return benches, nil
}

// stripCommas removes thousands separators: "1,234.5" -> "1234.5".
func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
