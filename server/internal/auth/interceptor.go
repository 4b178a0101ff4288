package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ModeAPIKey enables key checks; any other mode disables them.
const ModeAPIKey = "apikey"

// Checker validates a presented credential against the configured key.
type Checker struct {
	mode   string
	header string
	key    string
}

// NewChecker returns a Checker. header is the name of the key header; it is
// matched case-insensitively.
func NewChecker(mode, header, key string) *Checker {
	return &Checker{mode: mode, header: strings.ToLower(header), key: key}
}

// Enabled reports whether requests must present the key.
func (c *Checker) Enabled() bool {
	return c.mode == ModeAPIKey && c.key != ""
}

// Valid reports whether one of the key header values or an
// "Authorization: Bearer" value matches the key.
func (c *Checker) Valid(keys, authorization []string) bool {
	for _, v := range keys {
		if c.equal(v) {
			return true
		}
	}
	for _, v := range authorization {
		if tok, ok := strings.CutPrefix(v, "Bearer "); ok && c.equal(tok) {
			return true
		}
	}
	return false
}

func (c *Checker) equal(v string) bool {
	return v != "" && subtle.ConstantTimeCompare([]byte(v), []byte(c.key)) == 1
}

// APIKeyInterceptor returns a gRPC UnaryServerInterceptor that enforces API key
// authentication on every incoming call.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all calls are allowed (pass-through).
//   - Otherwise the key is read from the header metadata entry, or from an
//     "authorization: Bearer <key>" entry as sent by benchctl in bearer mode.
//   - A missing, empty, or incorrect key returns codes.Unauthenticated.
func APIKeyInterceptor(mode, header, key string) grpc.UnaryServerInterceptor {
	c := NewChecker(mode, header, key)
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !c.Enabled() {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		if !c.Valid(md.Get(c.header), md.Get("authorization")) {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}
		return handler(ctx, req)
	}
}
