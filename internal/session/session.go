// Package session accumulates analysis frames and events for one recording
// session and computes its end-of-session summary.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/facemetrics/internal/au"
)

// ErrNoSession reports an operation that needs a session when none exists.
var ErrNoSession = errors.New("no session")

// Data is the full record of one recording session. Owned by the host
// lifecycle: created at start, appended to while recording, finalized at
// stop, discarded at explicit clear.
type Data struct {
	SessionID string     `json:"sessionId"`
	StartTime int64      `json:"startTime"`
	EndTime   *int64     `json:"endTime"`
	Frames    []au.Frame `json:"frames"`
	Events    []au.Event `json:"events"`
	Baseline  *au.Values `json:"baseline"`
	Summary   *Summary   `json:"summary"`
}

// Recorder owns exactly one session at a time. Appends are accepted only
// while the session is live, so summary computation never interleaves with
// incoming frames.
type Recorder struct {
	mu         sync.RWMutex
	logger     zerolog.Logger
	thresholds au.Thresholds

	data      *Data
	recording bool
}

// NewRecorder creates a recorder. The threshold table is used to replay
// activation intervals during summary computation.
func NewRecorder(thresholds au.Thresholds, logger zerolog.Logger) *Recorder {
	return &Recorder{
		logger:     logger.With().Str("component", "session").Logger(),
		thresholds: thresholds,
	}
}

// Start opens a new session and returns its ID. If a session is already
// recording, it stays active and its ID is returned unchanged.
func (r *Recorder) Start(now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		r.logger.Warn().Str("session_id", r.data.SessionID).Msg("Session already recording")
		return r.data.SessionID
	}

	r.data = &Data{
		SessionID: uuid.NewString(),
		StartTime: now.UnixMilli(),
		Frames:    []au.Frame{},
		Events:    []au.Event{},
	}
	r.recording = true

	r.logger.Info().Str("session_id", r.data.SessionID).Msg("Session started")
	return r.data.SessionID
}

// Recording reports whether a session is live.
func (r *Recorder) Recording() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recording
}

// AppendFrame stores one analysis frame. Ignored unless recording.
func (r *Recorder) AppendFrame(frame au.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.data.Frames = append(r.data.Frames, frame)
}

// AppendEvent stores one temporal event. Ignored unless recording.
func (r *Recorder) AppendEvent(event au.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.data.Events = append(r.data.Events, event)
}

// SetBaseline records the calibrated baseline on the session.
func (r *Recorder) SetBaseline(values au.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return
	}
	b := values
	r.data.Baseline = &b
}

// ClearBaseline removes the baseline from the session record, for when the
// host resets calibration mid-session.
func (r *Recorder) ClearBaseline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return
	}
	r.data.Baseline = nil
}

// Stop finalizes the session: marks the end time and computes the summary
// in a single pass over the stored frames. Summary computation never fails,
// including on a session with zero frames.
func (r *Recorder) Stop(now time.Time) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil, ErrNoSession
	}
	if r.recording {
		end := now.UnixMilli()
		r.data.EndTime = &end
		r.recording = false
	}

	summary := Summarize(r.data.Frames, r.data.Events, r.thresholds)
	r.data.Summary = &summary

	r.logger.Info().
		Str("session_id", r.data.SessionID).
		Int("frames", summary.TotalFrames).
		Float64("face_detection_rate", summary.FaceDetectionRate).
		Msg("Session stopped")

	return &summary, nil
}

// Clear discards the session entirely.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data != nil {
		r.logger.Info().Str("session_id", r.data.SessionID).Msg("Session cleared")
	}
	r.data = nil
	r.recording = false
}

// Data returns a snapshot of the session record, or nil if none exists.
func (r *Recorder) Data() *Data {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil
	}
	return r.data.snapshot()
}

// Export serializes the full session record as a portable JSON document.
func (r *Recorder) Export() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil, ErrNoSession
	}
	return json.MarshalIndent(r.data.snapshot(), "", "  ")
}

func (d *Data) snapshot() *Data {
	out := &Data{
		SessionID: d.SessionID,
		StartTime: d.StartTime,
		Frames:    make([]au.Frame, len(d.Frames)),
		Events:    make([]au.Event, len(d.Events)),
	}
	copy(out.Frames, d.Frames)
	copy(out.Events, d.Events)
	if d.EndTime != nil {
		end := *d.EndTime
		out.EndTime = &end
	}
	if d.Baseline != nil {
		b := *d.Baseline
		out.Baseline = &b
	}
	if d.Summary != nil {
		s := *d.Summary
		out.Summary = &s
	}
	return out
}
