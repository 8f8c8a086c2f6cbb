package recorder

import (
	"sort"
	"sync"

	"github.com/banshee-data/depthframe/internal/depth/capture"
)

// Config describes what a Recorder writes alongside each new session.
type Config struct {
	// Options are the device options the frames were captured with.
	Options capture.DeviceOptions
	Notes   string
}

// Recorder writes every frame it is handed to a Store, starting a session
// row the first time it sees a session ID. Write errors are logged and
// counted rather than returned, so a full disk never stalls capture.
type Recorder struct {
	store *Store
	cfg   Config

	mu       sync.Mutex
	sessions map[string]bool
	frames   int
	failures int
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store *Store, cfg Config) *Recorder {
	return &Recorder{
		store:    store,
		cfg:      cfg,
		sessions: make(map[string]bool),
	}
}

// HandleFrame stores f. It has the capture.FrameHandler signature.
func (r *Recorder) HandleFrame(f capture.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.sessions[f.SessionID()] {
		sess := NewSession(f.SessionID(), f.DeviceID(), f.Timestamp(), r.cfg.Options)
		sess.Notes = r.cfg.Notes
		if err := r.store.BeginSession(sess); err != nil {
			r.failures++
			opsf("begin session %s: %v", f.SessionID(), err)
			return
		}
		r.sessions[f.SessionID()] = true
	}

	if err := r.store.RecordFrame(f); err != nil {
		r.failures++
		opsf("record frame: %v", err)
		return
	}
	r.frames++
}

// Stats returns how many frames were stored and how many writes failed.
func (r *Recorder) Stats() (frames, failures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.failures
}

// Sessions returns the IDs of sessions this Recorder started, sorted.
func (r *Recorder) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
