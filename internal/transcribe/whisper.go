package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/snarg/scribed/internal/audio"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint.
type WhisperClient struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// apiErrorBody is the structured error envelope returned on failure.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewWhisperClient creates a new Whisper HTTP client.
func NewWhisperClient(url, apiKey, model string, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (wc *WhisperClient) Name() string { return "whisper" }

// Model returns the configured model identifier.
func (wc *WhisperClient) Model() string { return wc.model }

// Transcribe submits an audio buffer and returns the result. Uses
// multipart/form-data with a json response_format. Only non-default
// parameters are sent, so this works with OpenAI, speaches, or any
// compatible endpoint.
//
// Failures come back as *APIError with the kind already classified; a
// transport failure is returned unwrapped inside a plain error.
func (wc *WhisperClient) Transcribe(ctx context.Context, data []byte, filename string, opts Opts) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := createAudioPart(w, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if wc.model != "" {
		w.WriteField("model", wc.model)
	}
	if opts.Language != "" {
		w.WriteField("language", opts.Language)
	}
	if opts.Temperature != 0 {
		w.WriteField("temperature", fmt.Sprintf("%.2f", opts.Temperature))
	}
	w.WriteField("response_format", "json")

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+wc.apiKey)

	resp, err := wc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// createAudioPart creates the multipart file field with an explicit
// content type so servers that sniff the part header accept the upload.
func createAudioPart(w *multipart.Writer, filename string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", audio.ContentType(audio.Ext(filename)))
	return w.CreatePart(h)
}

// parseAPIError builds an *APIError from a non-200 response, classifying
// the kind exactly once. Bodies that aren't the JSON error envelope are
// kept verbatim as the message.
func parseAPIError(status int, body []byte) *APIError {
	var envelope apiErrorBody
	apiErr := &APIError{Status: status}

	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		apiErr.Code = envelope.Error.Code
	} else {
		apiErr.Message = string(body)
	}

	apiErr.Kind = classifyKind(status, apiErr.Code, apiErr.Type, apiErr.Message)
	return apiErr
}
