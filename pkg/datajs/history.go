package datajs

import (
	"errors"
	"fmt"
	"time"

	"github.com/benchboard/benchboard/pkg/types"
)

// ErrOutOfOrder is returned when an appended entry is dated before the
// suite's most recent entry.
var ErrOutOfOrder = errors.New("datajs: entry is older than the latest entry in the suite")

// now is the clock used for Data.LastUpdate; tests replace it.
var now = time.Now

// AddEntry appends e to suite in d, creating the suite when needed.
//
// It returns the baseline for comparisons: the most recent earlier entry whose
// commit differs from e's, or nil when there is none. When maxItems > 0 the
// suite is trimmed to its newest maxItems entries.
func AddEntry(d *types.Data, suite string, e types.Entry, maxItems int) (*types.Entry, error) {
	if err := ValidateEntry(suite, &e); err != nil {
		return nil, err
	}
	if d.Entries == nil {
		d.Entries = make(map[string][]types.Entry)
	}

	entries := d.Entries[suite]
	if n := len(entries); n > 0 && e.Date < entries[n-1].Date {
		return nil, fmt.Errorf("%w: suite %q: %d < %d", ErrOutOfOrder, suite, e.Date, entries[n-1].Date)
	}

	prev := Baseline(entries, e.Commit.ID)

	entries = append(entries, e.Clone())
	if maxItems > 0 && len(entries) > maxItems {
		entries = append([]types.Entry(nil), entries[len(entries)-maxItems:]...)
	}
	d.Entries[suite] = entries
	d.LastUpdate = now().UnixMilli()

	return prev, nil
}

// Baseline returns a copy of the newest entry whose commit id is not
// commitID, or nil.
func Baseline(entries []types.Entry, commitID string) *types.Entry {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Commit.ID != commitID {
			cp := entries[i].Clone()
			return &cp
		}
	}
	return nil
}

// Latest returns the newest entry of suite and its baseline. Either may be
// nil.
func Latest(d *types.Data, suite string) (latest, baseline *types.Entry) {
	entries := d.Suite(suite)
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1].Clone()
	return &last, Baseline(entries[:len(entries)-1], last.Commit.ID)
}
