package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/metrics"
	"github.com/snarg/scribed/internal/transcribe"
)

// DefaultMinChunkBytes is the smallest chunk worth submitting. Anything
// below it is recorded as an empty transcript without a remote call.
const DefaultMinChunkBytes = 1000

// Transcriber is the remote speech-to-text dependency of the batch.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string, opts transcribe.Opts) (*transcribe.Response, error)
}

// Batch drives one remote call per chunk, accumulating partial results
// while tolerating per-chunk format failures. A non-format remote error
// aborts the whole batch.
type Batch struct {
	client        Transcriber
	minChunkBytes int
	workers       int
	log           zerolog.Logger
}

// NewBatch creates a batch transcriber. workers < 2 selects the sequential
// reference behavior.
func NewBatch(client Transcriber, minChunkBytes, workers int, log zerolog.Logger) *Batch {
	if minChunkBytes <= 0 {
		minChunkBytes = DefaultMinChunkBytes
	}
	if workers < 1 {
		workers = 1
	}
	return &Batch{
		client:        client,
		minChunkBytes: minChunkBytes,
		workers:       workers,
		log:           log,
	}
}

// Run transcribes chunks and returns exactly len(chunks) transcripts
// aligned by chunk index. Skipped chunks and tolerated format failures
// hold "". On a fatal error no result slice is returned and no further
// chunks are submitted.
func (b *Batch) Run(ctx context.Context, chunks []Chunk, filename string, opts transcribe.Opts, tracker *Tracker) ([]string, error) {
	n := len(chunks)
	results := make([]string, n)

	tracker.Emit(Progress{Phase: PhaseProcessing, CurrentChunk: 0, TotalChunks: n})
	start := time.Now()

	if b.workers > 1 && n > 1 {
		return b.runPool(ctx, chunks, filename, opts, tracker, results, start)
	}

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := b.transcribeChunk(ctx, c, filename, opts)
		if err != nil {
			return nil, err
		}
		results[i] = text
		emitChunkProgress(tracker, start, i+1, n)
	}
	return results, nil
}

// runPool distributes chunks across a bounded worker pool. Completion
// order is arbitrary; results land by index and progress counts
// completions, so the reported values never regress. A fatal error cancels
// the pool; a tolerated format failure never does.
func (b *Batch) runPool(ctx context.Context, chunks []Chunk, filename string, opts transcribe.Opts, tracker *Tracker, results []string, start time.Time) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := len(chunks)
	workers := b.workers
	if workers > n {
		workers = n
	}

	work := make(chan Chunk)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		fatal     error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				text, err := b.transcribeChunk(ctx, c, filename, opts)

				mu.Lock()
				if err != nil {
					if fatal == nil {
						fatal = err
						cancel()
					}
					mu.Unlock()
					continue
				}
				results[c.Index] = text
				completed++
				// Emitted under the lock so completion counts reach the
				// tracker in order.
				emitChunkProgress(tracker, start, completed, n)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, c := range chunks {
		select {
		case <-ctx.Done():
			break feed
		case work <- c:
		}
	}
	close(work)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// transcribeChunk handles one chunk: skip, call, or tolerate. The returned
// error is always fatal to the batch; tolerated failures come back as an
// empty transcript with a nil error.
func (b *Batch) transcribeChunk(ctx context.Context, c Chunk, filename string, opts transcribe.Opts) (string, error) {
	if len(c.Data) < b.minChunkBytes {
		b.log.Debug().
			Int("chunk", c.Index).
			Int("bytes", len(c.Data)).
			Msg("chunk below minimum size, skipping")
		metrics.ChunksTotal.WithLabelValues("skipped").Inc()
		return "", nil
	}

	resp, err := b.client.Transcribe(ctx, c.Data, chunkFilename(filename, c.Index), opts)
	if err != nil {
		if transcribe.IsFormatError(err) {
			b.log.Warn().Err(err).
				Int("chunk", c.Index).
				Msg("chunk not decodable, recording empty transcript")
			metrics.ChunksTotal.WithLabelValues("tolerated").Inc()
			return "", nil
		}
		return "", fmt.Errorf("chunk %d: %w", c.Index, err)
	}

	metrics.ChunksTotal.WithLabelValues("transcribed").Inc()
	return resp.Text, nil
}

// emitChunkProgress reports one more completed chunk, with a freshly
// recomputed time-remaining estimate from the running average.
func emitChunkProgress(tracker *Tracker, start time.Time, completed, total int) {
	p := Progress{
		Phase:        PhaseProcessing,
		CurrentChunk: completed,
		TotalChunks:  total,
		Percent:      float64(completed) / float64(total) * 100,
	}
	if completed > 0 && completed < total {
		eta := time.Since(start).Seconds() / float64(completed) * float64(total-completed)
		p.ETASeconds = &eta
	}
	tracker.Emit(p)
}

// chunkFilename derives a per-chunk filename so server logs and multipart
// sniffing keep the original extension: "rec.mp3" -> "rec.part3.mp3".
func chunkFilename(filename string, index int) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	if base == "" {
		base = "audio"
	}
	return fmt.Sprintf("%s.part%d%s", base, index, ext)
}
