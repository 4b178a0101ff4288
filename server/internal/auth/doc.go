// Package auth provides API key authentication for benchboard-server.
//
// APIKeyInterceptor guards the gRPC ingest service and RequireAPIKey guards
// the HTTP ingest route. Both accept the key in the configured header
// (x-api-key by default) or as an "Authorization: Bearer" token.
//
// When mode != "apikey" or key == "", all calls pass through (useful for local
// development with auth disabled).
package auth
