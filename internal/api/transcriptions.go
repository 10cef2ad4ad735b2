package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/snarg/scribed/internal/audio"
	"github.com/snarg/scribed/internal/database"
	"github.com/snarg/scribed/internal/events"
	"github.com/snarg/scribed/internal/pipeline"
	"github.com/snarg/scribed/internal/storage"
)

// Runner is the transcription pipeline as the handlers see it.
type Runner interface {
	Transcribe(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// TranscriptionsHandler serves the transcription endpoints. db, archive and
// publisher are optional; a nil value disables that side effect.
type TranscriptionsHandler struct {
	runner     Runner
	jobs       *JobStore
	db         *database.DB
	archive    storage.AudioStore
	publisher  *events.Publisher
	maxUpload  int64
	jobTimeout time.Duration
	log        zerolog.Logger
}

type TranscriptionsOptions struct {
	Runner     Runner
	Jobs       *JobStore
	DB         *database.DB
	Archive    storage.AudioStore
	Publisher  *events.Publisher
	MaxUpload  int64         // multipart memory/size cap, <= 0 selects 512 MiB
	JobTimeout time.Duration // per async job, <= 0 selects 1 hour
}

func NewTranscriptionsHandler(opts TranscriptionsOptions, log zerolog.Logger) *TranscriptionsHandler {
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 512 << 20
	}
	jobTimeout := opts.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = time.Hour
	}
	return &TranscriptionsHandler{
		runner:     opts.Runner,
		jobs:       opts.Jobs,
		db:         opts.DB,
		archive:    opts.Archive,
		publisher:  opts.Publisher,
		maxUpload:  maxUpload,
		jobTimeout: jobTimeout,
		log:        log.With().Str("handler", "transcriptions").Logger(),
	}
}

// Routes registers the transcription endpoints.
func (h *TranscriptionsHandler) Routes(r chi.Router) {
	r.Post("/transcriptions", h.Create)
	r.Get("/transcriptions", h.List)
	r.Get("/transcriptions/{id}", h.Get)
	r.Get("/transcriptions/{id}/events", h.StreamEvents)
}

// TranscriptionResponse is the synchronous success body.
type TranscriptionResponse struct {
	Text        string   `json:"text"`
	Route       string   `json:"route"`
	TotalChunks int      `json:"total_chunks"`
	Transcripts []string `json:"transcripts,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms"`
}

// Create handles POST /api/v1/transcriptions. Accepts a multipart form with
// an audio "file" plus optional "language", "temperature" and "async"
// fields. async=true queues a job and returns 202 with its id.
func (h *TranscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteCategorizedError(w, http.StatusBadRequest, "missing audio file", string(pipeline.CategoryValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	filename := header.Filename
	if !audio.IsSupported(audio.Ext(filename)) {
		WriteCategorizedError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported audio format %q", filepath.Ext(filename)),
			string(pipeline.CategoryValidation))
		return
	}

	req := pipeline.Request{
		Data:     data,
		Filename: filename,
		Language: r.FormValue("language"),
	}
	if temp, ok := FormFloat(r, "temperature"); ok {
		req.Temperature = temp
	}

	// "async" is accepted as a form field or query parameter.
	if v := r.FormValue("async"); v == "true" || v == "1" {
		h.createAsync(w, r, req)
		return
	}

	res, err := h.runner.Transcribe(r.Context(), req)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	h.persist(r.Context(), uuid.NewString(), req, res)

	WriteJSON(w, http.StatusOK, TranscriptionResponse{
		Text:        res.Text,
		Route:       string(res.Route),
		TotalChunks: res.TotalChunks,
		Transcripts: res.Transcripts,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	})
}

// createAsync queues the job and runs the pipeline in the background,
// detached from the request context.
func (h *TranscriptionsHandler) createAsync(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	job := h.jobs.Create(req.Filename)
	log := hlog.FromRequest(r).With().Str("job_id", job.ID).Logger()

	req.OnProgress = func(p pipeline.Progress) {
		h.jobs.UpdateProgress(job.ID, p)
		if h.publisher != nil {
			h.publisher.PublishProgress(job.ID, p)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout)
		defer cancel()

		res, err := h.runner.Transcribe(ctx, req)
		if err != nil {
			h.jobs.Fail(job.ID, err)
			if h.publisher != nil {
				h.publisher.PublishFailed(job.ID, err.Error(), string(pipeline.CategoryOf(err)))
			}
			return
		}

		h.persist(ctx, job.ID, req, res)
		h.jobs.Complete(job.ID, res)
		if h.publisher != nil {
			h.publisher.PublishComplete(job.ID, req.Filename, res)
		}
		log.Info().Str("route", string(res.Route)).Msg("async job finished")
	}()

	WriteJSON(w, http.StatusAccepted, job)
}

// persist archives the source audio and records the transcript. Both sides
// are best effort; a storage failure never fails a finished transcription.
func (h *TranscriptionsHandler) persist(ctx context.Context, id string, req pipeline.Request, res *pipeline.Result) {
	if h.archive != nil {
		key := id + filepath.Ext(req.Filename)
		if _, err := h.archive.Save(ctx, key, req.Data); err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("audio archive failed")
		}
	}
	if h.db != nil {
		row := &database.TranscriptRow{
			ID:        id,
			Filename:  req.Filename,
			SizeBytes: int64(len(req.Data)),
			Route:     string(res.Route),
			Chunks:    res.TotalChunks,
			Text:      res.Text,
			Language:  req.Language,
			ElapsedMS: res.Elapsed.Milliseconds(),
		}
		if err := h.db.InsertTranscript(ctx, row); err != nil {
			h.log.Warn().Err(err).Str("id", id).Msg("transcript insert failed")
		}
	}
}

// Get handles GET /api/v1/transcriptions/{id}: live jobs first, then the
// transcript archive.
func (h *TranscriptionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if job, ok := h.jobs.Get(id); ok {
		WriteJSON(w, http.StatusOK, job)
		return
	}

	if h.db != nil {
		row, err := h.db.GetTranscript(r.Context(), id)
		if err == nil && row != nil {
			WriteJSON(w, http.StatusOK, row)
			return
		}
		if err != nil {
			h.log.Error().Err(err).Str("id", id).Msg("transcript lookup failed")
			WriteError(w, http.StatusInternalServerError, "transcript lookup failed")
			return
		}
	}

	WriteError(w, http.StatusNotFound, "transcription not found")
}

// List handles GET /api/v1/transcriptions from the transcript archive.
func (h *TranscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteError(w, http.StatusServiceUnavailable, "transcript archive not configured")
		return
	}

	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.db.ListTranscripts(r.Context(), p.Limit, p.Offset)
	if err != nil {
		h.log.Error().Err(err).Msg("transcript list failed")
		WriteError(w, http.StatusInternalServerError, "transcript list failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transcriptions": rows,
		"limit":          p.Limit,
		"offset":         p.Offset,
	})
}

// StreamEvents handles GET /api/v1/transcriptions/{id}/events: an SSE feed
// of job snapshots ending with a "completed" or "failed" event.
func (h *TranscriptionsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	// ResponseController follows Unwrap through the middleware wrappers,
	// which a plain http.Flusher assertion would not.
	rc := http.NewResponseController(w)

	id := chi.URLParam(r, "id")
	ch, cancel, ok := h.jobs.Subscribe(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "transcription not found")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	log := hlog.FromRequest(r)
	log.Info().Str("job_id", id).Msg("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Info().Str("job_id", id).Msg("SSE client disconnected")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			if err := rc.Flush(); err != nil {
				log.Debug().Err(err).Msg("SSE flush failed")
				return
			}
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writePipelineError maps a pipeline failure category to an HTTP status.
func writePipelineError(w http.ResponseWriter, err error) {
	category := pipeline.CategoryOf(err)
	status := http.StatusInternalServerError
	switch category {
	case pipeline.CategoryValidation:
		status = http.StatusBadRequest
	case pipeline.CategoryRemote:
		status = http.StatusBadGateway
	case pipeline.CategoryNetwork:
		status = http.StatusGatewayTimeout
	}
	WriteCategorizedError(w, status, err.Error(), string(category))
}
