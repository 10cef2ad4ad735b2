package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		header   string
		query    string
		wantCode int
	}{
		{"no_token_configured", "", "", "", http.StatusOK},
		{"valid_header", "secret", "Bearer secret", "", http.StatusOK},
		{"valid_query", "secret", "", "secret", http.StatusOK},
		{"wrong_token", "secret", "Bearer nope", "", http.StatusUnauthorized},
		{"missing_token", "secret", "", "", http.StatusUnauthorized},
		{"malformed_header", "secret", "secret", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BearerAuth(tt.token)(okHandler())
			url := "/x"
			if tt.query != "" {
				url += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no request id generated")
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "given" {
		t.Errorf("request id = %q, want given", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers")
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?limit=10&offset=20", nil)
	p, err := ParsePagination(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Limit != 10 || p.Offset != 20 {
		t.Errorf("pagination = %+v", p)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	p, _ = ParsePagination(req)
	if p.Limit != 50 || p.Offset != 0 {
		t.Errorf("defaults = %+v", p)
	}

	req = httptest.NewRequest(http.MethodGet, "/x?limit=0", nil)
	if _, err := ParsePagination(req); err == nil {
		t.Error("limit=0 accepted")
	}

	req = httptest.NewRequest(http.MethodGet, "/x?offset=-1", nil)
	if _, err := ParsePagination(req); err == nil {
		t.Error("offset=-1 accepted")
	}
}
