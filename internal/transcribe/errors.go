package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a remote transcription failure. The kind is decided
// once, when the error response is parsed, and carried with the error so
// callers never have to inspect message strings themselves.
type ErrorKind int

const (
	// KindUnknown is an unclassified remote error. Treated as fatal.
	KindUnknown ErrorKind = iota

	// KindFormat means the service could not decode the submitted audio.
	// This is the expected consequence of byte-range splitting and is
	// tolerated at chunk granularity.
	KindFormat

	// KindAuth covers invalid or missing credentials (401/403).
	KindAuth

	// KindQuota covers rate and usage limits (429).
	KindQuota

	// KindServer covers remote 5xx failures.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is a structured error from the transcription service.
type APIError struct {
	Status  int
	Code    string
	Type    string
	Message string
	Kind    ErrorKind
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transcription API error (status %d, kind %s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("transcription API error (status %d, kind %s)", e.Status, e.Kind)
}

// IsFormatError reports whether err is a tolerable format/decoding failure.
func IsFormatError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindFormat
}

// formatCodes are machine-readable codes the API uses for undecodable audio.
var formatCodes = map[string]bool{
	"invalid_file_format":   true,
	"unsupported_file":      true,
	"audio_decode_error":    true,
	"invalid_audio":         true,
	"audio_too_short":       true,
	"unsupported_media":     true,
	"unsupported_mime_type": true,
}

// classifyKind maps a parsed error response to an ErrorKind.
func classifyKind(status int, code, typ, message string) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 429:
		return KindQuota
	case status >= 500:
		return KindServer
	}

	if formatCodes[code] || typ == "unsupported_media_type" || status == 415 {
		return KindFormat
	}

	// Some servers only signal a bad file through the message text.
	msg := strings.ToLower(message)
	if strings.Contains(msg, "file format") ||
		strings.Contains(msg, "decod") ||
		strings.Contains(msg, "corrupt") ||
		strings.Contains(msg, "could not process file") {
		return KindFormat
	}

	return KindUnknown
}
