package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/pipeline"
)

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is the externally visible state of one async transcription.
type Job struct {
	ID          string             `json:"id"`
	Status      JobStatus          `json:"status"`
	Filename    string             `json:"filename"`
	SubmittedAt time.Time          `json:"submitted_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Progress    *pipeline.Progress `json:"progress,omitempty"`
	Result      *pipeline.Result   `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	Category    string             `json:"category,omitempty"`
}

// jobEvent is one SSE frame: a named event with pre-marshaled JSON data.
type jobEvent struct {
	Type string
	Data []byte
}

type jobState struct {
	job  Job
	subs map[chan jobEvent]struct{}
	done bool
}

// JobStore tracks in-flight and recently finished async jobs in memory and
// fans progress out to SSE subscribers. Finished jobs are kept for ttl so
// clients can still fetch the result, then swept.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobState
	ttl  time.Duration
	log  zerolog.Logger
}

const defaultJobTTL = 30 * time.Minute

func NewJobStore(ttl time.Duration, log zerolog.Logger) *JobStore {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &JobStore{
		jobs: make(map[string]*jobState),
		ttl:  ttl,
		log:  log.With().Str("component", "jobs").Logger(),
	}
}

// Create registers a new queued job and returns it.
func (s *JobStore) Create(filename string) Job {
	job := Job{
		ID:          uuid.NewString(),
		Status:      JobQueued,
		Filename:    filename,
		SubmittedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = &jobState{job: job, subs: make(map[chan jobEvent]struct{})}
	s.mu.Unlock()
	return job
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return st.job, true
}

// UpdateProgress records a progress snapshot and notifies subscribers.
func (s *JobStore) UpdateProgress(id string, p pipeline.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[id]
	if !ok || st.done {
		return
	}
	st.job.Status = JobProcessing
	cp := p
	st.job.Progress = &cp
	s.broadcast(st, "progress", st.job)
}

// Complete marks the job finished with a result and closes all subscribers.
func (s *JobStore) Complete(id string, res *pipeline.Result) {
	s.finish(id, "completed", func(j *Job) {
		j.Status = JobCompleted
		j.Result = res
		j.Progress = nil
	})
}

// Fail marks the job failed and closes all subscribers.
func (s *JobStore) Fail(id string, err error) {
	s.finish(id, "failed", func(j *Job) {
		j.Status = JobFailed
		j.Error = err.Error()
		j.Category = string(pipeline.CategoryOf(err))
		j.Progress = nil
	})
}

func (s *JobStore) finish(id, event string, apply func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[id]
	if !ok || st.done {
		return
	}
	now := time.Now().UTC()
	st.job.CompletedAt = &now
	apply(&st.job)
	st.done = true

	s.broadcast(st, event, st.job)
	for ch := range st.subs {
		close(ch)
	}
	st.subs = make(map[chan jobEvent]struct{})
}

// broadcast sends to subscribers without blocking; a slow consumer just
// misses intermediate snapshots and catches up on the next one.
func (s *JobStore) broadcast(st *jobState, event string, job Job) {
	data, err := json.Marshal(job)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("job snapshot marshal failed")
		return
	}
	for ch := range st.subs {
		select {
		case ch <- jobEvent{Type: event, Data: data}:
		default:
		}
	}
}

// Subscribe attaches a listener to the job. The current snapshot is always
// delivered first; for a finished job the channel closes right after it.
// The returned cancel is safe to call more than once.
func (s *JobStore) Subscribe(id string) (<-chan jobEvent, func(), bool) {
	s.mu.Lock()
	st, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, false
	}

	ch := make(chan jobEvent, 16)
	data, _ := json.Marshal(st.job)
	event := "progress"
	switch st.job.Status {
	case JobCompleted:
		event = "completed"
	case JobFailed:
		event = "failed"
	}
	ch <- jobEvent{Type: event, Data: data}

	if st.done {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}, true
	}

	st.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if st, ok := s.jobs[id]; ok {
				if _, live := st.subs[ch]; live {
					delete(st.subs, ch)
					close(ch)
				}
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel, true
}

// Sweep evicts finished jobs older than the TTL until ctx is done.
func (s *JobStore) Sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			s.mu.Lock()
			for id, st := range s.jobs {
				if st.done && st.job.CompletedAt != nil && st.job.CompletedAt.Before(cutoff) {
					delete(s.jobs, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
