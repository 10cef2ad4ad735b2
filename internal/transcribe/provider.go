package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, filename string, opts Opts) (*Response, error)
	Name() string
	Model() string // model identifier for DB/logs
}

// Opts are per-request options for the transcription API.
// Zero-value fields are omitted from the request.
type Opts struct {
	Language    string
	Temperature float64
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"` // audio duration in seconds
}
