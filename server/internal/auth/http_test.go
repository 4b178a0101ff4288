package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireAPIKey(t *testing.T) {
	h := RequireAPIKey("apikey", "X-API-Key", "s3cret", okHandler)

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"correct key", "X-API-Key", "s3cret", http.StatusNoContent},
		{"header case", "x-api-key", "s3cret", http.StatusNoContent},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusNoContent},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"wrong bearer", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/suites/s/entries", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("body: got %q, want JSON error", rec.Body.String())
			}
		})
	}
}

func TestRequireAPIKey_Disabled(t *testing.T) {
	for _, h := range []http.Handler{
		RequireAPIKey("none", "x-api-key", "s3cret", okHandler),
		RequireAPIKey("apikey", "x-api-key", "", okHandler),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("status: got %d, want 204", rec.Code)
		}
	}
}
