package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/transcribe"
)

// fakeClient records calls and delegates to fn, defaulting to a fixed
// successful response.
type fakeClient struct {
	mu    sync.Mutex
	calls []string
	fn    func(filename string, data []byte) (*transcribe.Response, error)
}

func (f *fakeClient) Transcribe(ctx context.Context, data []byte, filename string, opts transcribe.Opts) (*transcribe.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, filename)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(filename, data)
	}
	return &transcribe.Response{Text: "text"}, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func formatErr() error {
	return &transcribe.APIError{Status: 400, Code: "invalid_file_format", Message: "could not decode audio", Kind: transcribe.KindFormat}
}

func authErr() error {
	return &transcribe.APIError{Status: 401, Message: "invalid API key", Kind: transcribe.KindAuth}
}

func makeChunks(sizes ...int) []Chunk {
	chunks := make([]Chunk, len(sizes))
	for i, s := range sizes {
		chunks[i] = Chunk{Index: i, Data: make([]byte, s)}
	}
	return chunks
}

func TestBatch_SkipsTinyChunks(t *testing.T) {
	client := &fakeClient{fn: func(filename string, data []byte) (*transcribe.Response, error) {
		return &transcribe.Response{Text: "spoken"}, nil
	}}
	b := NewBatch(client, 1000, 1, zerolog.Nop())

	results, err := b.Run(context.Background(), makeChunks(2000, 500, 2000), "rec.mp3", transcribe.Opts{}, NewTracker(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"spoken", "", "spoken"}
	for i, r := range results {
		if r != want[i] {
			t.Errorf("results[%d] = %q, want %q", i, r, want[i])
		}
	}
	if client.callCount() != 2 {
		t.Errorf("remote calls = %d, want 2", client.callCount())
	}
}

func TestBatch_ToleratesFormatError(t *testing.T) {
	client := &fakeClient{fn: func(filename string, data []byte) (*transcribe.Response, error) {
		if strings.Contains(filename, ".part1.") {
			return nil, formatErr()
		}
		return &transcribe.Response{Text: "ok"}, nil
	}}
	b := NewBatch(client, 1, 1, zerolog.Nop())

	results, err := b.Run(context.Background(), makeChunks(10, 10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(nil))
	if err != nil {
		t.Fatalf("format error should be tolerated, got: %v", err)
	}
	want := []string{"ok", "", "ok"}
	for i, r := range results {
		if r != want[i] {
			t.Errorf("results[%d] = %q, want %q", i, r, want[i])
		}
	}
	if client.callCount() != 3 {
		t.Errorf("remote calls = %d, want 3", client.callCount())
	}
}

func TestBatch_FatalErrorAborts(t *testing.T) {
	client := &fakeClient{fn: func(filename string, data []byte) (*transcribe.Response, error) {
		if strings.Contains(filename, ".part1.") {
			return nil, authErr()
		}
		return &transcribe.Response{Text: "ok"}, nil
	}}
	b := NewBatch(client, 1, 1, zerolog.Nop())

	results, err := b.Run(context.Background(), makeChunks(10, 10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(nil))
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if results != nil {
		t.Errorf("results = %v, want nil after abort", results)
	}
	var apiErr *transcribe.APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != transcribe.KindAuth {
		t.Errorf("error lost its remote classification: %v", err)
	}
	// Sequential mode: chunk 2 must never be submitted after the abort.
	if client.callCount() != 2 {
		t.Errorf("remote calls = %d, want 2", client.callCount())
	}
}

func TestBatch_ProgressSequence(t *testing.T) {
	client := &fakeClient{}
	b := NewBatch(client, 1, 1, zerolog.Nop())
	got, fn := collectProgress()

	_, err := b.Run(context.Background(), makeChunks(10, 10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(fn))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*got) != 4 {
		t.Fatalf("got %d snapshots, want 4", len(*got))
	}
	lastPct := -1.0
	for i, p := range *got {
		if p.Phase != PhaseProcessing {
			t.Errorf("snapshot %d phase = %q", i, p.Phase)
		}
		if p.CurrentChunk != i {
			t.Errorf("snapshot %d currentChunk = %d, want %d", i, p.CurrentChunk, i)
		}
		if p.TotalChunks != 3 {
			t.Errorf("snapshot %d totalChunks = %d, want 3", i, p.TotalChunks)
		}
		if p.Percent < lastPct {
			t.Errorf("snapshot %d percent %v regressed below %v", i, p.Percent, lastPct)
		}
		lastPct = p.Percent
	}
	if final := (*got)[3]; final.Percent != 100 {
		t.Errorf("final percent = %v, want 100", final.Percent)
	}
}

func TestBatch_ETAOnlyMidRun(t *testing.T) {
	client := &fakeClient{}
	b := NewBatch(client, 1, 1, zerolog.Nop())
	got, fn := collectProgress()

	if _, err := b.Run(context.Background(), makeChunks(10, 10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(fn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range *got {
		mid := p.CurrentChunk > 0 && p.CurrentChunk < p.TotalChunks
		if mid && p.ETASeconds == nil {
			t.Errorf("chunk %d/%d: missing ETA", p.CurrentChunk, p.TotalChunks)
		}
		if mid && p.ETASeconds != nil && *p.ETASeconds < 0 {
			t.Errorf("chunk %d/%d: negative ETA %v", p.CurrentChunk, p.TotalChunks, *p.ETASeconds)
		}
		if !mid && p.ETASeconds != nil {
			t.Errorf("chunk %d/%d: unexpected ETA", p.CurrentChunk, p.TotalChunks)
		}
	}
}

func TestBatch_PoolResultsByIndex(t *testing.T) {
	client := &fakeClient{fn: func(filename string, data []byte) (*transcribe.Response, error) {
		return &transcribe.Response{Text: fmt.Sprintf("part %d", len(data))}, nil
	}}
	b := NewBatch(client, 1, 4, zerolog.Nop())

	chunks := makeChunks(10, 11, 12, 13, 14, 15)
	results, err := b.Run(context.Background(), chunks, "rec.mp3", transcribe.Opts{}, NewTracker(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range results {
		if want := fmt.Sprintf("part %d", 10+i); r != want {
			t.Errorf("results[%d] = %q, want %q", i, r, want)
		}
	}
}

func TestBatch_PoolProgressNeverRegresses(t *testing.T) {
	client := &fakeClient{}
	b := NewBatch(client, 1, 3, zerolog.Nop())
	got, fn := collectProgress()

	if _, err := b.Run(context.Background(), makeChunks(10, 10, 10, 10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(fn)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lastChunk, lastPct := -1, -1.0
	for i, p := range *got {
		if p.CurrentChunk < lastChunk {
			t.Errorf("snapshot %d currentChunk %d regressed below %d", i, p.CurrentChunk, lastChunk)
		}
		if p.Percent < lastPct {
			t.Errorf("snapshot %d percent %v regressed below %v", i, p.Percent, lastPct)
		}
		lastChunk, lastPct = p.CurrentChunk, p.Percent
	}
}

func TestBatch_PoolFatalCancels(t *testing.T) {
	client := &fakeClient{fn: func(filename string, data []byte) (*transcribe.Response, error) {
		if strings.Contains(filename, ".part0.") {
			return nil, authErr()
		}
		return &transcribe.Response{Text: "ok"}, nil
	}}
	b := NewBatch(client, 1, 2, zerolog.Nop())

	results, err := b.Run(context.Background(), makeChunks(10, 10, 10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(nil))
	if err == nil {
		t.Fatal("expected a fatal error")
	}
	if results != nil {
		t.Errorf("results = %v, want nil after abort", results)
	}
}

func TestBatch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	b := NewBatch(client, 1, 1, zerolog.Nop())

	if _, err := b.Run(ctx, makeChunks(10, 10), "rec.mp3", transcribe.Opts{}, NewTracker(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if client.callCount() != 0 {
		t.Errorf("remote calls = %d, want 0", client.callCount())
	}
}

func TestChunkFilename(t *testing.T) {
	tests := []struct {
		in    string
		index int
		want  string
	}{
		{"rec.mp3", 3, "rec.part3.mp3"},
		{"meeting.wav", 0, "meeting.part0.wav"},
		{"noext", 1, "noext.part1"},
		{"/tmp/dir/call.m4a", 2, "call.part2.m4a"},
		{".mp3", 1, "audio.part1.mp3"},
	}
	for _, tt := range tests {
		if got := chunkFilename(tt.in, tt.index); got != tt.want {
			t.Errorf("chunkFilename(%q, %d) = %q, want %q", tt.in, tt.index, got, tt.want)
		}
	}
}
