package types

import (
	"sort"
	"time"
)

// Data is the top-level value assigned to window.BENCHMARK_DATA.
type Data struct {
	// LastUpdate is the epoch-millisecond time of the most recent append.
	LastUpdate int64 `json:"lastUpdate"`

	// RepoURL is the repository the benchmarks were collected from.
	RepoURL string `json:"repoUrl"`

	// Entries maps a suite name to its entries, oldest first.
	Entries map[string][]Entry `json:"entries"`
}

// Entry is one CI run's recorded results for a single commit.
type Entry struct {
	Commit  Commit  `json:"commit"`
	Date    int64   `json:"date"` // epoch ms
	Tool    string  `json:"tool"`
	Benches []Bench `json:"benches"`
}

// Commit holds the metadata of the commit an entry was measured at.
type Commit struct {
	Author    Person `json:"author"`
	Committer Person `json:"committer"`
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"` // ISO8601
	URL       string `json:"url"`
}

// Person is a commit author or committer.
type Person struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
}

// Bench is a single named measurement.
type Bench struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Range string  `json:"range,omitempty"` // e.g. "± 1234"
	Unit  string  `json:"unit"`             // e.g. "ns/iter"
	Extra string  `json:"extra,omitempty"`
}

// New returns an empty Data for repoURL.
func New(repoURL string) *Data {
	return &Data{
		RepoURL: repoURL,
		Entries: make(map[string][]Entry),
	}
}

// Suite returns the entries recorded under name, oldest first.
func (d *Data) Suite(name string) []Entry {
	if d == nil || d.Entries == nil {
		return nil
	}
	return d.Entries[name]
}

// SuiteNames returns the suite names in sorted order.
func (d *Data) SuiteNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Entries))
	for name := range d.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	out := &Data{
		LastUpdate: d.LastUpdate,
		RepoURL:    d.RepoURL,
		Entries:    make(map[string][]Entry, len(d.Entries)),
	}
	for name, entries := range d.Entries {
		cp := make([]Entry, len(entries))
		for i, e := range entries {
			cp[i] = e.Clone()
		}
		out.Entries[name] = cp
	}
	return out
}

// Clone returns a copy of e that shares no slices with it.
func (e Entry) Clone() Entry {
	e.Benches = append([]Bench(nil), e.Benches...)
	return e
}

// Bench returns the bench called name and whether it was present.
func (e *Entry) Bench(name string) (Bench, bool) {
	for _, b := range e.Benches {
		if b.Name == name {
			return b, true
		}
	}
	return Bench{}, false
}

// Time converts the entry's epoch-millisecond date to a time.Time.
func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.Date).UTC()
}

// UnixMilli converts t to the epoch-millisecond representation used by Date
// and LastUpdate.
func UnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}
