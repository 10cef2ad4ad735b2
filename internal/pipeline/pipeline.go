package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/audio"
	"github.com/snarg/scribed/internal/encode"
	"github.com/snarg/scribed/internal/metrics"
	"github.com/snarg/scribed/internal/transcribe"
)

// Encoder shrinks an oversized audio buffer with a lossy voice re-encode.
// Any error means "compression unavailable" and is never surfaced to the
// caller of the pipeline.
type Encoder interface {
	Compress(ctx context.Context, data []byte, ext string, progress func(float64)) ([]byte, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(ctx context.Context, data []byte, ext string, progress func(float64)) ([]byte, error)

func (f EncoderFunc) Compress(ctx context.Context, data []byte, ext string, progress func(float64)) ([]byte, error) {
	return f(ctx, data, ext, progress)
}

// Prober reads playback duration from audio metadata.
type Prober interface {
	Duration(ctx context.Context, data []byte, ext string) (float64, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, data []byte, ext string) (float64, error)

func (f ProberFunc) Duration(ctx context.Context, data []byte, ext string) (float64, error) {
	return f(ctx, data, ext)
}

// Options configures a Pipeline.
type Options struct {
	Client        Transcriber
	Encoder       Encoder // nil disables compression; oversized files chunk immediately
	Prober        Prober  // nil falls back to a size-based duration estimate
	SizeThreshold int64   // <= 0 selects DefaultSizeThreshold
	MinChunkBytes int
	Workers       int
	Log           zerolog.Logger
}

// Pipeline routes audio files to the remote transcription service: small
// files go straight through, oversized files are compressed under the
// limit or split into byte-range chunks. Each Transcribe call owns its own
// progress state, so a single Pipeline serves concurrent callers.
type Pipeline struct {
	client    Transcriber
	encoder   Encoder
	prober    Prober
	threshold int64
	batch     *Batch
	log       zerolog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	threshold := opts.SizeThreshold
	if threshold <= 0 {
		threshold = DefaultSizeThreshold
	}
	return &Pipeline{
		client:    opts.Client,
		encoder:   opts.Encoder,
		prober:    opts.Prober,
		threshold: threshold,
		batch:     NewBatch(opts.Client, opts.MinChunkBytes, opts.Workers, opts.Log),
		log:       opts.Log,
	}
}

// Request is one transcription invocation.
type Request struct {
	Data        []byte
	Filename    string
	Language    string
	Temperature float64
	OnProgress  ProgressFunc // optional
}

// Result is a completed transcription.
type Result struct {
	Text        string        `json:"text"`
	Route       Route         `json:"route"`
	TotalChunks int           `json:"total_chunks"`
	Transcripts []string      `json:"transcripts,omitempty"` // per-chunk, index-aligned
	Elapsed     time.Duration `json:"-"`
}

// Transcribe runs the full pipeline for one file. Failures come back as a
// categorized *Error.
func (p *Pipeline) Transcribe(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if len(req.Data) == 0 {
		return nil, &Error{Category: CategoryValidation, Message: "missing audio file"}
	}

	tracker := NewTracker(req.OnProgress)
	opts := transcribe.Opts{Language: req.Language, Temperature: req.Temperature}
	ext := audio.Ext(req.Filename)

	tracker.Emit(Progress{Phase: PhaseAnalyzing, Percent: 0})
	route := Classify(int64(len(req.Data)), p.threshold)
	tracker.Emit(Progress{Phase: PhaseAnalyzing, Percent: 100})

	p.log.Debug().
		Str("file", req.Filename).
		Int("bytes", len(req.Data)).
		Str("route", string(route)).
		Msg("file classified")

	var (
		res *Result
		err error
	)
	if route == RouteDirect {
		res, err = p.direct(ctx, req.Data, req.Filename, opts, tracker)
	} else {
		res, err = p.oversized(ctx, req, opts, ext, tracker)
	}
	if err != nil {
		perr := toError(err)
		metrics.TranscriptionsTotal.WithLabelValues(string(route), "error").Inc()
		p.log.Warn().Err(err).
			Str("file", req.Filename).
			Str("category", string(perr.Category)).
			Msg("transcription failed")
		return nil, perr
	}

	res.Elapsed = time.Since(start)
	metrics.TranscriptionsTotal.WithLabelValues(string(res.Route), "ok").Inc()
	metrics.PipelineDuration.WithLabelValues(string(res.Route)).Observe(res.Elapsed.Seconds())

	p.log.Info().
		Str("file", req.Filename).
		Str("route", string(res.Route)).
		Int("chunks", res.TotalChunks).
		Dur("elapsed", res.Elapsed).
		Msg("transcription complete")

	return res, nil
}

// direct is the single-call path for files already under the threshold.
func (p *Pipeline) direct(ctx context.Context, data []byte, filename string, opts transcribe.Opts, tracker *Tracker) (*Result, error) {
	tracker.Emit(Progress{Phase: PhaseProcessing, CurrentChunk: 0, TotalChunks: 1})

	resp, err := p.client.Transcribe(ctx, data, filename, opts)
	if err != nil {
		return nil, err
	}
	tracker.Emit(Progress{Phase: PhaseProcessing, CurrentChunk: 1, TotalChunks: 1, Percent: 100})

	tracker.Emit(Progress{Phase: PhaseCombining, CurrentChunk: 1, TotalChunks: 1})
	text := CombineTranscripts([]string{resp.Text})
	tracker.Emit(Progress{Phase: PhaseCombining, CurrentChunk: 1, TotalChunks: 1, Percent: 100})

	return &Result{
		Text:        text,
		Route:       RouteDirect,
		TotalChunks: 1,
		Transcripts: []string{resp.Text},
	}, nil
}

// oversized first attempts compression; any compression failure silently
// reroutes to the chunking fallback. When compression succeeds, the shrunk
// file goes through a single remote call whose failure propagates normally
// with no further fallback.
func (p *Pipeline) oversized(ctx context.Context, req Request, opts transcribe.Opts, ext string, tracker *Tracker) (*Result, error) {
	if p.encoder != nil {
		small, cerr := p.encoder.Compress(ctx, req.Data, ext, func(pct float64) {
			tracker.Emit(Progress{Phase: PhaseProcessing, Percent: pct})
		})
		if cerr == nil && int64(len(small)) > p.threshold {
			cerr = fmt.Errorf("compressed output still oversized: %d bytes", len(small))
		}
		if cerr == nil {
			return p.compressed(ctx, small, req.Filename, opts, tracker)
		}

		metrics.CompressionFallbacksTotal.Inc()
		p.log.Debug().Err(cerr).
			Str("file", req.Filename).
			Msg("compression unavailable, falling back to chunking")
	}

	return p.chunked(ctx, req, opts, ext, tracker)
}

// compressed submits the shrunk file. On this route the processing phase
// covered the re-encode; the combining phase covers the final call.
func (p *Pipeline) compressed(ctx context.Context, data []byte, filename string, opts transcribe.Opts, tracker *Tracker) (*Result, error) {
	tracker.Emit(Progress{Phase: PhaseProcessing, CurrentChunk: 1, TotalChunks: 1, Percent: 100})
	tracker.Emit(Progress{Phase: PhaseCombining, CurrentChunk: 1, TotalChunks: 1})

	resp, err := p.client.Transcribe(ctx, data, compressedFilename(filename), opts)
	if err != nil {
		return nil, err
	}
	text := CombineTranscripts([]string{resp.Text})
	tracker.Emit(Progress{Phase: PhaseCombining, CurrentChunk: 1, TotalChunks: 1, Percent: 100})

	return &Result{
		Text:        text,
		Route:       RouteCompressed,
		TotalChunks: 1,
		Transcripts: []string{resp.Text},
	}, nil
}

// chunked is the fallback route: split into byte-range chunks, transcribe
// each, and reassemble in index order.
func (p *Pipeline) chunked(ctx context.Context, req Request, opts transcribe.Opts, ext string, tracker *Tracker) (*Result, error) {
	tracker.Emit(Progress{Phase: PhaseChunking, Percent: 0})

	duration := p.probeDuration(ctx, req.Data, ext)
	chunks := Split(req.Data, duration, p.threshold)

	tracker.Emit(Progress{Phase: PhaseChunking, TotalChunks: len(chunks), Percent: 100})
	p.log.Debug().
		Str("file", req.Filename).
		Int("chunks", len(chunks)).
		Float64("duration_sec", duration).
		Msg("file split into chunks")

	transcripts, err := p.batch.Run(ctx, chunks, req.Filename, opts, tracker)
	if err != nil {
		return nil, err
	}

	tracker.Emit(Progress{Phase: PhaseCombining, CurrentChunk: len(chunks), TotalChunks: len(chunks)})
	text := CombineTranscripts(transcripts)
	tracker.Emit(Progress{Phase: PhaseCombining, CurrentChunk: len(chunks), TotalChunks: len(chunks), Percent: 100})

	return &Result{
		Text:        text,
		Route:       RouteChunked,
		TotalChunks: len(chunks),
		Transcripts: transcripts,
	}, nil
}

// probeDuration reads the playback duration from metadata, falling back to
// a size-based estimate. Chunk byte boundaries never depend on this; it
// only feeds chunk time metadata.
func (p *Pipeline) probeDuration(ctx context.Context, data []byte, ext string) float64 {
	if p.prober != nil {
		d, err := p.prober.Duration(ctx, data, ext)
		if err == nil && d > 0 {
			return d
		}
		p.log.Debug().Err(err).Msg("duration probe failed, estimating from size")
	}
	return encode.EstimateDuration(int64(len(data)))
}

// compressedFilename reflects the re-encoded container: "rec.mp3" -> "rec.ogg".
func compressedFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	if base == "" {
		base = "audio"
	}
	return base + ".ogg"
}
