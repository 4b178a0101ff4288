package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/types"
)

func entry(commit string, date int64, benches ...types.Bench) types.Entry {
	if len(benches) == 0 {
		benches = []types.Bench{{Name: "round_trip", Value: float64(date), Unit: "ns/iter"}}
	}
	return types.Entry{
		Commit:  types.Commit{ID: commit, Timestamp: "2024-01-01T00:00:00Z"},
		Date:    date,
		Tool:    types.ToolCargo,
		Benches: benches,
	}
}

func TestAppend_Baseline(t *testing.T) {
	st := New("https://github.com/acme/widget", 0)
	ctx := context.Background()

	prev, err := st.Append(ctx, "Benchmark", entry("a", 100))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if prev != nil {
		t.Errorf("first append baseline: got %+v, want nil", prev)
	}

	prev, err = st.Append(ctx, "Benchmark", entry("b", 200))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if prev == nil || prev.Commit.ID != "a" {
		t.Fatalf("baseline: got %+v, want commit a", prev)
	}

	// A re-run of the same commit is compared with the previous commit.
	prev, err = st.Append(ctx, "Benchmark", entry("b", 300))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if prev == nil || prev.Commit.ID != "a" {
		t.Errorf("baseline for re-run: got %+v, want commit a", prev)
	}
	if st.Count() != 3 {
		t.Errorf("Count: got %d, want 3", st.Count())
	}
}

func TestAppend_Rejects(t *testing.T) {
	st := New("", 0)
	ctx := context.Background()
	if _, err := st.Append(ctx, "S", entry("a", 200)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := st.Append(ctx, "S", entry("b", 100)); !errors.Is(err, datajs.ErrOutOfOrder) {
		t.Errorf("older entry: got %v, want ErrOutOfOrder", err)
	}

	var verr *datajs.ValidationError
	bad := entry("", 300)
	if _, err := st.Append(ctx, "S", bad); !errors.As(err, &verr) {
		t.Errorf("missing commit id: got %v, want ValidationError", err)
	}
	if st.Count() != 1 {
		t.Errorf("rejected entries must not be stored, Count=%d", st.Count())
	}
}

func TestAppend_MaxItems(t *testing.T) {
	st := New("", 2)
	for i := 1; i <= 4; i++ {
		if _, err := st.Append(context.Background(), "S", entry(fmt.Sprintf("c%d", i), int64(i))); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	entries, err := st.Entries("S")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Commit.ID != "c3" || entries[1].Commit.ID != "c4" {
		t.Errorf("entries after trim: %+v", entries)
	}
}

func TestSuitesAndSeries(t *testing.T) {
	st := New("", 0)
	ctx := context.Background()
	st.Append(ctx, "Zeta", entry("a", 1))
	st.Append(ctx, "Alpha", entry("a", 1, types.Bench{Name: "x", Value: 5, Unit: "ms"}))
	st.Append(ctx, "Alpha", entry("b", 2,
		types.Bench{Name: "x", Value: 6, Range: "± 1", Unit: "ms"},
		types.Bench{Name: "y", Value: 1, Unit: "ms"}))

	suites := st.Suites()
	if len(suites) != 2 || suites[0].Name != "Alpha" || suites[1].Name != "Zeta" {
		t.Fatalf("Suites: %+v", suites)
	}
	if suites[0].Entries != 2 || suites[0].LatestCommit != "b" || suites[0].Benches != 2 {
		t.Errorf("Alpha summary: %+v", suites[0])
	}

	pts, err := st.Series("Alpha", "x")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(pts) != 2 || pts[1].Value != 6 || pts[1].Range != "± 1" || pts[1].Commit != "b" {
		t.Errorf("Series x: %+v", pts)
	}

	// y only exists in the second entry.
	if pts, _ := st.Series("Alpha", "y"); len(pts) != 1 {
		t.Errorf("Series y: %+v", pts)
	}
	if _, err := st.Series("Alpha", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown bench: got %v", err)
	}
	if _, err := st.Series("Nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown suite: got %v", err)
	}
	if _, err := st.Entries("Nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Entries unknown suite: got %v", err)
	}
}

func TestLatest(t *testing.T) {
	st := New("", 0)
	ctx := context.Background()
	st.Append(ctx, "S", entry("a", 1))
	st.Append(ctx, "S", entry("b", 2))

	latest, baseline, err := st.Latest("S")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Commit.ID != "b" || baseline.Commit.ID != "a" {
		t.Errorf("Latest: got %s vs %s", latest.Commit.ID, baseline.Commit.ID)
	}
	if _, _, err := st.Latest("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest missing: got %v", err)
	}
}

func TestData_IsDeepCopy(t *testing.T) {
	st := New("", 0)
	st.Append(context.Background(), "S", entry("a", 1))

	d := st.Data()
	d.Entries["S"][0].Benches[0].Value = 999
	d.Entries["T"] = nil

	again := st.Data()
	if again.Entries["S"][0].Benches[0].Value == 999 {
		t.Error("mutating Data() leaked into the store")
	}
	if _, ok := again.Entries["T"]; ok {
		t.Error("adding a suite to Data() leaked into the store")
	}
}

func TestReplace(t *testing.T) {
	st := New("https://github.com/acme/widget", 0)
	d := types.New("")
	d.LastUpdate = 2
	d.Entries["S"] = []types.Entry{entry("a", 1), entry("b", 2)}

	if err := st.Replace(d); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if st.Count() != 2 {
		t.Errorf("Count after Replace: %d", st.Count())
	}
	if st.Data().RepoURL != "https://github.com/acme/widget" {
		t.Error("empty repoUrl should keep the current one")
	}

	bad := types.New("")
	bad.LastUpdate = 2
	bad.Entries["S"] = []types.Entry{entry("a", 2), entry("b", 1)}
	if err := st.Replace(bad); err == nil {
		t.Error("Replace with out-of-order entries: expected error")
	}
	if st.Count() != 2 {
		t.Error("failed Replace must keep the previous history")
	}
}

func TestSubscribe(t *testing.T) {
	st := New("", 0)
	ch, cancel := st.Subscribe()
	defer cancel()

	st.Append(context.Background(), "S", entry("a", 1))
	st.Append(context.Background(), "S", entry("b", 2))

	ev := <-ch
	if ev.Suite != "S" || ev.Entry.Commit.ID != "a" || ev.Baseline != nil {
		t.Errorf("first event: %+v", ev)
	}
	ev = <-ch
	if ev.Baseline == nil || ev.Baseline.Commit.ID != "a" {
		t.Errorf("second event baseline: %+v", ev.Baseline)
	}

	cancel()
	cancel() // idempotent
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
}

type recordingSink struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingSink) Persist(_ context.Context, suite string, e types.Entry, snap *types.Data) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s/%s/%d", suite, e.Commit.ID, len(snap.Entries[suite])))
	return r.err
}

func TestAppend_Sinks(t *testing.T) {
	st := New("", 0)
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("disk full")}
	st.AddSink(failing)
	st.AddSink(ok)

	if _, err := st.Append(context.Background(), "S", entry("a", 1)); err != nil {
		t.Fatalf("sink errors must not fail Append: %v", err)
	}
	if len(ok.calls) != 1 || ok.calls[0] != "S/a/1" {
		t.Errorf("sink calls: %v", ok.calls)
	}
	if len(failing.calls) != 1 {
		t.Errorf("failing sink calls: %v", failing.calls)
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	st := New("", 0)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			suite := fmt.Sprintf("S%d", g)
			for i := 1; i <= 50; i++ {
				st.Append(context.Background(), suite, entry(fmt.Sprintf("c%d", i), int64(i)))
				st.Suites()
				st.Data()
			}
		}(g)
	}
	wg.Wait()
	if st.Count() != 200 {
		t.Errorf("Count: got %d, want 200", st.Count())
	}
}
