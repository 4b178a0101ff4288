package entryrpc

import (
	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
)

// AppendRequest asks the server to append Entry to Suite.
type AppendRequest struct {
	Suite   string      `json:"suite"`
	RepoURL string      `json:"repo_url,omitempty"`
	Entry   types.Entry `json:"entry"`
}

// AppendResponse reports the outcome of an append.
type AppendResponse struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message,omitempty"`

	// Baseline is the commit id the entry was compared against, empty for
	// the first entry of a suite.
	Baseline string `json:"baseline,omitempty"`

	// Changes compares the appended entry with Baseline.
	Changes []regress.Change `json:"changes,omitempty"`

	// Regressions are the changes above the server's alert threshold.
	Regressions []regress.Change `json:"regressions,omitempty"`
}
