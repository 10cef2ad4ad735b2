package transcribe

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyKind(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		typ     string
		message string
		want    ErrorKind
	}{
		{"unauthorized", 401, "", "invalid_request_error", "Incorrect API key provided", KindAuth},
		{"forbidden", 403, "", "", "forbidden", KindAuth},
		{"rate_limited", 429, "rate_limit_exceeded", "requests", "Rate limit reached", KindQuota},
		{"server_error", 500, "", "server_error", "The server had an error", KindServer},
		{"bad_gateway", 502, "", "", "", KindServer},
		{"format_by_code", 400, "invalid_file_format", "invalid_request_error", "", KindFormat},
		{"format_by_status", 415, "", "", "unsupported media type", KindFormat},
		{"format_by_message", 400, "", "invalid_request_error", "Invalid file format. Supported formats: mp3, wav", KindFormat},
		{"decode_by_message", 400, "", "invalid_request_error", "Audio file could not be decoded", KindFormat},
		{"corrupt_by_message", 400, "", "invalid_request_error", "The audio file appears corrupted", KindFormat},
		{"unrelated_400", 400, "invalid_value", "invalid_request_error", "temperature must be between 0 and 1", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyKind(tt.status, tt.code, tt.typ, tt.message)
			if got != tt.want {
				t.Errorf("classifyKind(%d, %q, %q, %q) = %v, want %v",
					tt.status, tt.code, tt.typ, tt.message, got, tt.want)
			}
		})
	}
}

func TestIsFormatError(t *testing.T) {
	formatErr := &APIError{Status: 400, Kind: KindFormat, Message: "bad file"}
	if !IsFormatError(formatErr) {
		t.Error("IsFormatError should be true for KindFormat")
	}
	if !IsFormatError(fmt.Errorf("chunk 3: %w", formatErr)) {
		t.Error("IsFormatError should see through wrapping")
	}
	if IsFormatError(&APIError{Status: 401, Kind: KindAuth}) {
		t.Error("IsFormatError should be false for KindAuth")
	}
	if IsFormatError(errors.New("connection refused")) {
		t.Error("IsFormatError should be false for plain errors")
	}
}

func TestAPIErrorString(t *testing.T) {
	err := &APIError{Status: 429, Kind: KindQuota, Message: "Rate limit reached"}
	got := err.Error()
	want := "transcription API error (status 429, kind quota): Rate limit reached"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
