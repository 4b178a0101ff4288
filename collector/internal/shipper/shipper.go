// Package shipper pushes entries to a benchboard server over gRPC, retrying
// transient failures with exponential backoff.
package shipper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/benchboard/benchboard/collector/internal/config"
	"github.com/benchboard/benchboard/pkg/entryrpc"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
)

// ErrRejected is returned when the server answers with Ok == false.
var ErrRejected = errors.New("shipper: server rejected entry")

// Shipper sends AppendRequests to the configured server.
type Shipper struct {
	cfg    config.ServerConfig
	dialFn dialFunc                                         // injectable for tests
	sleep  func(ctx context.Context, d time.Duration) error // injectable for tests
}

// dialFunc is the function signature used to open a gRPC connection.
type dialFunc func(ctx context.Context, endpoint string, cfg config.ServerConfig) (*grpc.ClientConn, error)

// New creates a Shipper for the server config.
func New(cfg config.ServerConfig) *Shipper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultPushTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = config.DefaultMaxAttempts
	}
	return &Shipper{cfg: cfg, dialFn: defaultDial, sleep: sleepCtx}
}

// Send delivers req, retrying unavailable/deadline errors up to MaxAttempts.
// Permanent errors (invalid argument, auth failures) are returned at once.
func (s *Shipper) Send(ctx context.Context, req *entryrpc.AppendRequest) (*entryrpc.AppendResponse, error) {
	bo := newBackoff()
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		resp, err := s.sendOnce(ctx, req)
		if err == nil {
			if !resp.Ok {
				return resp, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
			}
			slog.Debug("shipper: entry delivered",
				"suite", req.Suite, "commit", req.Entry.Commit.ID, "attempt", attempt)
			return resp, nil
		}
		if isPermanentError(err) {
			return nil, fmt.Errorf("shipper: permanent error: %w", err)
		}
		lastErr = err
		if attempt == s.cfg.MaxAttempts {
			break
		}

		wait := bo.next()
		slog.Warn("shipper: send failed, will retry",
			"endpoint", s.cfg.Endpoint,
			"attempt", attempt,
			"err", err,
			"retry_in", wait)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("shipper: giving up after %d attempts: %w", s.cfg.MaxAttempts, lastErr)
}

func (s *Shipper) sendOnce(ctx context.Context, req *entryrpc.AppendRequest) (*entryrpc.AppendResponse, error) {
	conn, err := s.dialFn(ctx, s.cfg.Endpoint, s.cfg)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "dial %s: %v", s.cfg.Endpoint, err)
	}
	defer conn.Close()

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	sendCtx = withAuth(sendCtx, s.cfg.Auth)

	return entryrpc.NewEntryServiceClient(conn).Append(sendCtx, req)
}

// withAuth attaches per-call credentials for apikey and bearer modes.
func withAuth(ctx context.Context, auth config.AuthConfig) context.Context {
	switch auth.Mode {
	case "apikey":
		if auth.KeyEnv != "" {
			return metadata.AppendToOutgoingContext(ctx, auth.EffectiveHeader(), auth.Key())
		}
	case "bearer":
		if auth.TokenEnv != "" {
			return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+auth.Token())
		}
	}
	return ctx
}

// isPermanentError returns true for gRPC errors that indicate the entry
// itself is invalid and should not be retried.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied,
		codes.FailedPrecondition, codes.Unimplemented:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// defaultDial opens a gRPC connection to endpoint with auth configured from cfg.
func defaultDial(ctx context.Context, endpoint string, cfg config.ServerConfig) (*grpc.ClientConn, error) {
	opts, err := dialOptions(cfg)
	if err != nil {
		return nil, err
	}
	return grpc.DialContext(ctx, endpoint, opts...) //nolint:staticcheck // deprecated in 1.63 but DialContext is used for compat
}

// dialOptions builds grpc.DialOption slice based on the server auth config.
func dialOptions(cfg config.ServerConfig) ([]grpc.DialOption, error) {
	if cfg.Auth.Mode == "mtls" {
		creds, err := buildMTLSCreds(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("shipper: build mtls creds: %w", err)
		}
		return []grpc.DialOption{grpc.WithTransportCredentials(creds)}, nil
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, nil
}

// buildMTLSCreds loads client certificate and optional CA from the auth config.
func buildMTLSCreds(auth config.AuthConfig) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	if auth.CAFile != "" {
		caPEM, err := os.ReadFile(auth.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no valid certs in ca file %q", auth.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return credentials.NewTLS(tlsCfg), nil
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}
