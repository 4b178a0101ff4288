package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/types"
)

// ErrNotFound is returned for unknown suites and benches.
var ErrNotFound = errors.New("store: not found")

// Event is published to subscribers after every successful append.
type Event struct {
	Suite    string       `json:"suite"`
	Entry    types.Entry  `json:"entry"`
	Baseline *types.Entry `json:"-"`
}

// Sink persists appended entries. Persist runs after the in-memory append,
// outside the store lock; snapshot is a private copy of the whole history.
// Calls are serialised and arrive in append order.
type Sink interface {
	Persist(ctx context.Context, suite string, e types.Entry, snapshot *types.Data) error
}

// SuiteInfo summarises one suite.
type SuiteInfo struct {
	Name         string `json:"name"`
	Entries      int    `json:"entries"`
	Tool         string `json:"tool"`
	LatestCommit string `json:"latest_commit"`
	LatestDate   int64  `json:"latest_date"`
	Benches      int    `json:"benches"`
}

// Point is one value of a bench's time series.
type Point struct {
	Commit string  `json:"commit"`
	Date   int64   `json:"date"`
	Value  float64 `json:"value"`
	Range  string  `json:"range,omitempty"`
	Unit   string  `json:"unit"`
}

// Store is a thread-safe in-memory benchmark history.
type Store struct {
	mu       sync.RWMutex
	data     *types.Data
	maxItems int
	sinks    []Sink
	seq      uint64 // appends accepted so far

	// persistMu guards persisted; persistCond hands the sinks to appends in
	// seq order.
	persistMu   sync.Mutex
	persistCond *sync.Cond
	persisted   uint64

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// New creates an empty Store. maxItems > 0 trims each suite to its newest
// entries on append.
func New(repoURL string, maxItems int) *Store {
	s := &Store{
		data:     types.New(repoURL),
		maxItems: maxItems,
		subs:     make(map[chan Event]struct{}),
	}
	s.persistCond = sync.NewCond(&s.persistMu)
	return s
}

// AddSink registers a persistence target. Not safe to call concurrently with
// Append.
func (s *Store) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Append adds e to suite and returns the comparison baseline (nil for the
// first entry of a suite). Entries that fail validation or are older than
// the suite's latest entry are rejected with the datajs error.
//
// Sink failures are logged; the in-memory append stands.
func (s *Store) Append(ctx context.Context, suite string, e types.Entry) (*types.Entry, error) {
	s.mu.Lock()
	prev, err := datajs.AddEntry(s.data, suite, e, s.maxItems)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.seq++
	ticket := s.seq
	var snapshot *types.Data
	if len(s.sinks) > 0 {
		snapshot = s.data.Clone()
	}
	s.mu.Unlock()

	s.persist(ctx, ticket, suite, e, snapshot)

	s.publish(Event{Suite: suite, Entry: e.Clone(), Baseline: prev})
	return prev, nil
}

// persist runs the sinks for the append numbered ticket once every earlier
// append has been persisted.
func (s *Store) persist(ctx context.Context, ticket uint64, suite string, e types.Entry, snapshot *types.Data) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	for s.persisted != ticket-1 {
		s.persistCond.Wait()
	}
	for _, sink := range s.sinks {
		if err := sink.Persist(ctx, suite, e, snapshot); err != nil {
			slog.Error("store: persist failed", "suite", suite, "commit", e.Commit.ID, "err", err)
		}
	}
	s.persisted = ticket
	s.persistCond.Broadcast()
}

// SetRepoURL records the repository URL when none is set yet.
func (s *Store) SetRepoURL(url string) {
	if url == "" {
		return
	}
	s.mu.Lock()
	if s.data.RepoURL == "" {
		s.data.RepoURL = url
	}
	s.mu.Unlock()
}

// Suites returns a summary of every suite, sorted by name.
func (s *Store) Suites() []SuiteInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := s.data.SuiteNames()
	out := make([]SuiteInfo, 0, len(names))
	for _, name := range names {
		entries := s.data.Entries[name]
		info := SuiteInfo{Name: name, Entries: len(entries)}
		if n := len(entries); n > 0 {
			last := entries[n-1]
			info.Tool = last.Tool
			info.LatestCommit = last.Commit.ID
			info.LatestDate = last.Date
			info.Benches = len(last.Benches)
		}
		out = append(out, info)
	}
	return out
}

// Entries returns a copy of the entries of suite, oldest first.
func (s *Store) Entries(suite string) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.data.Entries[suite]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]types.Entry, len(entries))
	for i := range entries {
		out[i] = entries[i].Clone()
	}
	return out, nil
}

// Series returns the values of bench across suite's entries, oldest first.
// Entries that do not contain the bench are skipped.
func (s *Store) Series(suite, bench string) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.data.Entries[suite]
	if !ok {
		return nil, ErrNotFound
	}
	var out []Point
	for i := range entries {
		b, ok := entries[i].Bench(bench)
		if !ok {
			continue
		}
		out = append(out, Point{
			Commit: entries[i].Commit.ID,
			Date:   entries[i].Date,
			Value:  b.Value,
			Range:  b.Range,
			Unit:   b.Unit,
		})
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Latest returns the newest entry of suite and its baseline.
func (s *Store) Latest(suite string) (latest, baseline *types.Entry, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.data.Entries[suite]; !ok {
		return nil, nil, ErrNotFound
	}
	latest, baseline = datajs.Latest(s.data, suite)
	return latest, baseline, nil
}

// Data returns a deep copy of the whole history.
func (s *Store) Data() *types.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Count returns the number of stored entries across all suites.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entries := range s.data.Entries {
		n += len(entries)
	}
	return n
}

// Replace swaps the whole history for d after validating it. An empty
// repoUrl in d keeps the current one.
func (s *Store) Replace(d *types.Data) error {
	if err := datajs.Validate(d); err != nil {
		return err
	}
	cp := d.Clone()
	if cp.Entries == nil {
		cp.Entries = make(map[string][]types.Entry)
	}
	s.mu.Lock()
	if cp.RepoURL == "" {
		cp.RepoURL = s.data.RepoURL
	}
	s.data = cp
	s.mu.Unlock()
	return nil
}

// Subscribe returns a channel receiving append events and a cancel func.
// Slow subscribers miss events rather than block appends.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("store: subscriber too slow, dropping event", "suite", ev.Suite)
		}
	}
}
