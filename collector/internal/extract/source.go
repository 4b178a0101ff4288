package extract

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/benchboard/benchboard/collector/internal/config"
)

const defaultFetchTimeout = 30 * time.Second

// Stdin is the source name that reads from standard input.
const Stdin = "-"

// stdin is replaced in tests.
var stdin io.Reader = os.Stdin

// Open returns a reader over the benchmark output named by source: a file
// path, "-" for stdin, or an http(s) URL fetched with auth.
func Open(ctx context.Context, source string, auth config.AuthConfig) (io.ReadCloser, error) {
	switch {
	case source == Stdin || source == "":
		return io.NopCloser(stdin), nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		client, err := buildHTTPClient(auth)
		if err != nil {
			return nil, fmt.Errorf("extract: build http client: %w", err)
		}
		return fetch(ctx, client, source)
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("extract: open %q: %w", source, err)
		}
		return f, nil
	}
}

func fetch(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("extract: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: http get: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("extract: %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.EffectiveHeader(), t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the auth settings.
func buildHTTPClient(auth config.AuthConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{}

	if auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(auth.CertFile, auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if auth.CAFile != "" {
			caPEM, err := os.ReadFile(auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: auth,
		},
		Timeout: defaultFetchTimeout,
	}, nil
}
