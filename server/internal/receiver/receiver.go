package receiver

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/benchboard/benchboard/pkg/datajs"
	"github.com/benchboard/benchboard/pkg/entryrpc"
	"github.com/benchboard/benchboard/pkg/regress"
	"github.com/benchboard/benchboard/server/internal/alerts"
	"github.com/benchboard/benchboard/server/internal/metrics"
	"github.com/benchboard/benchboard/server/internal/store"
)

// Transport labels used in metrics.
const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"
)

// Receiver implements entryrpc.EntryServiceServer.
// It validates each incoming entry, appends it to the store, compares it with
// the baseline and hands regressions to the alert engine.
type Receiver struct {
	entryrpc.UnimplementedEntryServiceServer
	store   *store.Store
	alerts  *alerts.Engine
	metrics *metrics.Metrics
}

// New creates a Receiver. m may be nil.
func New(st *store.Store, eng *alerts.Engine, m *metrics.Metrics) *Receiver {
	return &Receiver{store: st, alerts: eng, metrics: m}
}

// Append is the unary RPC handler called by benchctl push.
// Authentication is enforced by the gRPC server interceptor before this is called.
func (r *Receiver) Append(ctx context.Context, req *entryrpc.AppendRequest) (*entryrpc.AppendResponse, error) {
	resp, err := r.Ingest(ctx, req, TransportGRPC)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// Ingest appends req.Entry to req.Suite. It is shared by the gRPC and HTTP
// transports; errors are datajs validation or ordering errors.
func (r *Receiver) Ingest(ctx context.Context, req *entryrpc.AppendRequest, transport string) (*entryrpc.AppendResponse, error) {
	prev, err := r.store.Append(ctx, req.Suite, req.Entry)
	if err != nil {
		r.reject(err)
		slog.Debug("receiver: entry rejected", "suite", req.Suite, "commit", req.Entry.Commit.ID, "err", err)
		return nil, err
	}
	r.store.SetRepoURL(req.RepoURL)

	res := regress.Compare(prev, &req.Entry)
	resp := &entryrpc.AppendResponse{
		Ok:      true,
		Message: "stored",
		Changes: res.Changes,
	}
	if prev != nil {
		resp.Baseline = prev.Commit.ID
	}

	if r.alerts != nil {
		resp.Regressions = regress.Regressions(res.Changes, r.alerts.Threshold())
		for _, a := range r.alerts.Evaluate(req.Suite, &req.Entry, prev, res.Changes) {
			if r.metrics != nil {
				r.metrics.AlertFired(a.Suite, a.Severity)
			}
		}
	}
	if r.metrics != nil {
		r.metrics.EntryAppended(req.Suite, transport, r.store.Count(), len(r.store.Suites()))
	}

	slog.Debug("receiver: entry stored",
		"suite", req.Suite,
		"commit", req.Entry.Commit.ID,
		"benches", len(req.Entry.Benches),
		"baseline", resp.Baseline,
		"regressions", len(resp.Regressions),
		"transport", transport,
	)
	return resp, nil
}

func (r *Receiver) reject(err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.EntryRejected(RejectReason(err))
}

// RejectReason classifies an Ingest error for metrics and HTTP responses.
func RejectReason(err error) string {
	var verr *datajs.ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, datajs.ErrOutOfOrder):
		return "out_of_order"
	default:
		return "internal"
	}
}

func toStatus(err error) error {
	switch RejectReason(err) {
	case "invalid", "out_of_order":
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
