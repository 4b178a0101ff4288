package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/pkg/types"
	"github.com/benchboard/benchboard/server/internal/store"
)

// rpcServiceName prefixes every JSON-RPC method, e.g. "bench.Suites".
const rpcServiceName = "bench"

// BenchService exposes the read side of the store over JSON-RPC 2.0.
type BenchService struct {
	store *store.Store
}

// SuitesArgs is the (empty) parameter object of bench.Suites.
type SuitesArgs struct{}

// SuitesReply is the result of bench.Suites.
type SuitesReply struct {
	Suites []store.SuiteInfo `json:"suites"`
}

// EntriesArgs selects a suite. Limit > 0 returns only the newest entries.
type EntriesArgs struct {
	Suite string `json:"suite"`
	Limit int    `json:"limit,omitempty"`
}

// EntriesReply is the result of bench.Entries.
type EntriesReply struct {
	Entries []types.Entry `json:"entries"`
}

// SeriesArgs selects one bench of a suite.
type SeriesArgs struct {
	Suite string `json:"suite"`
	Bench string `json:"bench"`
}

// SeriesReply is the result of bench.Series.
type SeriesReply struct {
	Points []store.Point `json:"points"`
}

// LatestArgs selects a suite.
type LatestArgs struct {
	Suite string `json:"suite"`
}

// LatestReply holds a suite's newest entry, its baseline and their comparison.
type LatestReply struct {
	Latest   *types.Entry   `json:"latest"`
	Baseline *types.Entry   `json:"baseline,omitempty"`
	Result   regress.Result `json:"result"`
}

// Suites lists every suite.
func (s *BenchService) Suites(_ *http.Request, _ *SuitesArgs, reply *SuitesReply) error {
	reply.Suites = s.store.Suites()
	return nil
}

// Entries returns a suite's entries, oldest first.
func (s *BenchService) Entries(_ *http.Request, args *EntriesArgs, reply *EntriesReply) error {
	entries, err := s.store.Entries(args.Suite)
	if err != nil {
		return rpcErr(err)
	}
	if args.Limit > 0 && len(entries) > args.Limit {
		entries = entries[len(entries)-args.Limit:]
	}
	reply.Entries = entries
	return nil
}

// Series returns one bench's values across a suite.
func (s *BenchService) Series(_ *http.Request, args *SeriesArgs, reply *SeriesReply) error {
	points, err := s.store.Series(args.Suite, args.Bench)
	if err != nil {
		return rpcErr(err)
	}
	reply.Points = points
	return nil
}

// Latest returns a suite's newest entry compared with its baseline.
func (s *BenchService) Latest(_ *http.Request, args *LatestArgs, reply *LatestReply) error {
	latest, baseline, err := s.store.Latest(args.Suite)
	if err == nil && latest == nil {
		err = store.ErrNotFound
	}
	if err != nil {
		return rpcErr(err)
	}
	reply.Latest = latest
	reply.Baseline = baseline
	reply.Result = regress.Compare(baseline, latest)
	return nil
}

// rpcErr maps store errors to JSON-RPC error objects.
func rpcErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "not found"}
	}
	return &json2.Error{Code: json2.E_INTERNAL, Message: err.Error()}
}

// newRPCServer registers BenchService on a gorilla JSON-RPC 2.0 server.
func newRPCServer(st *store.Store) http.Handler {
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(&BenchService{store: st}, rpcServiceName); err != nil {
		panic("api: register rpc service: " + err.Error())
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.ServeHTTP(w, r)
	})
}
