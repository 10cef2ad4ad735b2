package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/audio"
	"github.com/snarg/scribed/internal/pipeline"
)

// Runner is the transcription pipeline as the watcher sees it.
type Runner interface {
	Transcribe(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Watcher monitors a drop directory for new audio files and transcribes
// them, writing the text next to the source as {name}.txt. This gives a
// zero-API workflow: copy a recording in, collect the transcript.
type Watcher struct {
	runner   Runner
	watchDir string
	language string
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesProcessed atomic.Int64
	filesFailed    atomic.Int64
}

func New(runner Runner, watchDir, language string, log zerolog.Logger) *Watcher {
	return &Watcher{
		runner:         runner,
		watchDir:       watchDir,
		language:       language,
		log:            log.With().Str("component", "watcher").Logger(),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Start initializes the fsnotify watcher and begins processing new files.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.watchDir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.log.Info().Str("watch_dir", w.watchDir).Msg("file watcher started")
	go w.watchLoop()
	return nil
}

// Stop closes the fsnotify watcher and cancels in-flight transcriptions.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("files_processed", w.filesProcessed.Load()).
		Int64("files_failed", w.filesFailed.Load()).
		Msg("file watcher stopped")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isAudioFile(event.Name) {
				continue
			}
			w.scheduleProcess(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces by 500ms so the file is fully written before it
// is read, and rapid Create+Write pairs collapse into one run.
func (w *Watcher) scheduleProcess(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.processFile(path)
	})
}

func (w *Watcher) processFile(path string) {
	out := transcriptPath(path)
	if _, err := os.Stat(out); err == nil {
		w.log.Debug().Str("path", path).Msg("transcript already exists, skipping")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("failed to read audio file")
		w.filesFailed.Add(1)
		return
	}

	start := time.Now()
	res, err := w.runner.Transcribe(w.ctx, pipeline.Request{
		Data:     data,
		Filename: filepath.Base(path),
		Language: w.language,
	})
	if err != nil {
		w.log.Warn().Err(err).Str("path", path).Msg("transcription failed")
		w.filesFailed.Add(1)
		return
	}

	if err := os.WriteFile(out, []byte(res.Text+"\n"), 0o644); err != nil {
		w.log.Warn().Err(err).Str("path", out).Msg("failed to write transcript")
		w.filesFailed.Add(1)
		return
	}

	w.filesProcessed.Add(1)
	w.log.Info().
		Str("path", path).
		Str("route", string(res.Route)).
		Dur("elapsed", time.Since(start)).
		Msg("watched file transcribed")
}

// transcriptPath is the output file written beside the source:
// "call.mp3" -> "call.txt".
func transcriptPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".txt"
}

func isAudioFile(path string) bool {
	return audio.IsSupported(audio.Ext(path))
}
