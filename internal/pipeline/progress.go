package pipeline

import "sync"

// Phase identifies a stage of a transcription run. Phases only ever
// advance in the declared order; chunking is skipped on routes that never
// split the file.
type Phase string

const (
	PhaseAnalyzing  Phase = "analyzing"
	PhaseChunking   Phase = "chunking"
	PhaseProcessing Phase = "processing"
	PhaseCombining  Phase = "combining"
)

var phaseRank = map[Phase]int{
	PhaseAnalyzing:  0,
	PhaseChunking:   1,
	PhaseProcessing: 2,
	PhaseCombining:  3,
}

// Progress is a point-in-time snapshot of one transcription run.
type Progress struct {
	Phase        Phase    `json:"phase"`
	CurrentChunk int      `json:"current_chunk"`
	TotalChunks  int      `json:"total_chunks"`
	Percent      float64  `json:"progress"` // 0-100 within the phase
	ETASeconds   *float64 `json:"estimated_time_remaining,omitempty"`
}

// ProgressFunc receives progress snapshots. Calls are serialized; the
// callback must not block.
type ProgressFunc func(Progress)

// Tracker serializes progress emission for one run and enforces the
// reporting invariants: phases never move backward, a left phase is never
// revisited, and Percent never regresses within a phase. Snapshots from an
// earlier phase are dropped; regressing percentages are clamped up.
//
// Each run owns its own Tracker, so nothing is shared across concurrent
// transcriptions of different files.
type Tracker struct {
	mu      sync.Mutex
	fn      ProgressFunc
	rank    int
	percent float64
}

// NewTracker wraps fn. A nil fn yields a tracker that discards snapshots.
func NewTracker(fn ProgressFunc) *Tracker {
	if fn == nil {
		fn = func(Progress) {}
	}
	return &Tracker{fn: fn, rank: -1}
}

// Emit forwards p to the callback, applying the invariants above.
func (t *Tracker) Emit(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := phaseRank[p.Phase]
	if !ok || r < t.rank {
		return
	}
	if r > t.rank {
		t.rank = r
		t.percent = 0
	}

	if p.Percent < t.percent {
		p.Percent = t.percent
	}
	if p.Percent > 100 {
		p.Percent = 100
	}
	t.percent = p.Percent

	t.fn(p)
}
