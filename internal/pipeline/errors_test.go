package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/snarg/scribed/internal/transcribe"
)

func TestToError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"pipeline_error_passthrough", &Error{Category: CategoryValidation, Message: "missing audio file"}, CategoryValidation},
		{"api_error", &transcribe.APIError{Status: 401, Message: "bad key", Kind: transcribe.KindAuth}, CategoryRemote},
		{"wrapped_api_error", fmt.Errorf("chunk 2: %w", &transcribe.APIError{Status: 500, Kind: transcribe.KindServer}), CategoryRemote},
		{"url_error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("refused")}, CategoryNetwork},
		{"deadline", context.DeadlineExceeded, CategoryNetwork},
		{"canceled", context.Canceled, CategoryNetwork},
		{"plain", errors.New("boom"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toError(tt.err)
			if got.Category != tt.want {
				t.Errorf("category = %q, want %q", got.Category, tt.want)
			}
			if got.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestToError_RemoteMessagePreserved(t *testing.T) {
	apiErr := &transcribe.APIError{Status: 429, Message: "rate limit exceeded", Kind: transcribe.KindQuota}
	got := toError(fmt.Errorf("chunk 0: %w", apiErr))
	if got.Message != "rate limit exceeded" {
		t.Errorf("message = %q, want the service-provided text", got.Message)
	}
	if !errors.Is(got, apiErr) {
		t.Error("underlying API error not reachable through Unwrap")
	}
}

func TestCategoryOf_Unknown(t *testing.T) {
	if got := CategoryOf(errors.New("x")); got != CategoryInternal {
		t.Errorf("got %q, want %q", got, CategoryInternal)
	}
}
