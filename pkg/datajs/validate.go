package datajs

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/benchboard/benchboard/pkg/types"
)

// Violation describes one broken invariant in a data file.
type Violation struct {
	Suite string `json:"suite,omitempty"`
	Index int    `json:"index"` // entry index within the suite, -1 for file-level fields
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (v Violation) String() string {
	if v.Suite == "" {
		return fmt.Sprintf("%s: %s", v.Field, v.Msg)
	}
	return fmt.Sprintf("%s[%d].%s: %s", v.Suite, v.Index, v.Field, v.Msg)
}

// ValidationError collects every violation found by Validate.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("datajs: %d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

// Validate checks every suite in d and returns a *ValidationError listing all
// violations, or nil when d is well formed.
func Validate(d *types.Data) error {
	var vs []Violation
	switch {
	case d.LastUpdate < 0:
		vs = append(vs, Violation{Index: -1, Field: "lastUpdate", Msg: "must be a non-negative epoch ms timestamp"})
	case d.LastUpdate == 0 && hasEntries(d):
		vs = append(vs, Violation{Index: -1, Field: "lastUpdate", Msg: "must be set once any suite has entries"})
	}
	for _, suite := range d.SuiteNames() {
		entries := d.Entries[suite]
		for i := range entries {
			vs = append(vs, checkEntry(suite, i, &entries[i])...)
			if i > 0 && entries[i].Date < entries[i-1].Date {
				vs = append(vs, Violation{
					Suite: suite, Index: i, Field: "date",
					Msg: fmt.Sprintf("%d is older than previous entry's %d", entries[i].Date, entries[i-1].Date),
				})
			}
		}
	}
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

func hasEntries(d *types.Data) bool {
	for _, entries := range d.Entries {
		if len(entries) > 0 {
			return true
		}
	}
	return false
}

// ValidateEntry checks a single entry before it is appended to suite.
func ValidateEntry(suite string, e *types.Entry) error {
	var vs []Violation
	if strings.TrimSpace(suite) == "" {
		vs = append(vs, Violation{Index: -1, Field: "suite", Msg: "name is required"})
	}
	vs = append(vs, checkEntry(suite, 0, e)...)
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

func checkEntry(suite string, i int, e *types.Entry) []Violation {
	var vs []Violation
	add := func(field, msg string) {
		vs = append(vs, Violation{Suite: suite, Index: i, Field: field, Msg: msg})
	}

	if e.Date <= 0 {
		add("date", "must be a positive epoch ms timestamp")
	}
	if strings.TrimSpace(e.Commit.ID) == "" {
		add("commit.id", "is required")
	}
	if e.Commit.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, e.Commit.Timestamp); err != nil {
			add("commit.timestamp", fmt.Sprintf("%q is not ISO8601", e.Commit.Timestamp))
		}
	}
	if len(e.Benches) == 0 {
		add("benches", "must not be empty")
	}
	for j, b := range e.Benches {
		field := fmt.Sprintf("benches[%d]", j)
		if strings.TrimSpace(b.Name) == "" {
			add(field+".name", "is required")
		}
		if strings.TrimSpace(b.Unit) == "" {
			add(field+".unit", "is required")
		}
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			add(field+".value", "must be finite")
		}
	}
	return vs
}
