package extract

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/benchboard/benchboard/pkg/types"
)

// unitLabel, when present on a sample, becomes the bench unit and is left
// out of the bench name.
const (
	unitLabel   = "unit"
	defaultUnit = "value"
)

// extractPrometheus records every counter, gauge and untyped sample of a
// Prometheus text exposition, plus summary quantiles. Families are emitted in
// name order so repeated runs produce stable bench lists.
func extractPrometheus(r io.Reader) ([]types.Bench, error) {
	mfs, err := parseMetrics(r)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(mfs))
	for name := range mfs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []types.Bench
	add := func(name string, labels [][2]string, unit string, v float64) {
		b := sampleBench(name, labels, unit, v)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// Empty summaries report NaN quantiles.
			slog.Debug("extract prometheus: skipping non-finite sample", "bench", b.Name, "value", v)
			return
		}
		out = append(out, b)
	}
	for _, name := range names {
		mf := mfs[name]
		for _, m := range mf.GetMetric() {
			unit, labels := splitUnit(m.GetLabel())
			switch {
			case m.Gauge != nil:
				add(name, labels, unit, m.Gauge.GetValue())
			case m.Counter != nil:
				add(name, labels, unit, m.Counter.GetValue())
			case m.Untyped != nil:
				add(name, labels, unit, m.Untyped.GetValue())
			case m.Summary != nil:
				for _, q := range m.Summary.GetQuantile() {
					ql := append(append([][2]string(nil), labels...),
						[2]string{"quantile", strconv.FormatFloat(q.GetQuantile(), 'f', -1, 64)})
					add(name, ql, unit, q.GetValue())
				}
			}
		}
	}
	return out, nil
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// When parsing stops part way, the families read so far are kept and the
// error is logged.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		if len(mfs) == 0 {
			return nil, fmt.Errorf("extract prometheus: parse text: %w", err)
		}
		slog.Warn("extract prometheus: partial parse, later samples dropped", "families", len(mfs), "err", err)
	}
	return mfs, nil
}

func splitUnit(pairs []*dto.LabelPair) (string, [][2]string) {
	unit := defaultUnit
	labels := make([][2]string, 0, len(pairs))
	for _, lp := range pairs {
		if lp.GetName() == unitLabel {
			unit = lp.GetValue()
			continue
		}
		labels = append(labels, [2]string{lp.GetName(), lp.GetValue()})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i][0] < labels[j][0] })
	return unit, labels
}

func sampleBench(family string, labels [][2]string, unit string, v float64) types.Bench {
	name := family
	if len(labels) > 0 {
		parts := make([]string, len(labels))
		for i, l := range labels {
			parts[i] = l[0] + "=" + strconv.Quote(l[1])
		}
		name += "{" + strings.Join(parts, ",") + "}"
	}
	return types.Bench{Name: name, Value: v, Unit: unit}
}
