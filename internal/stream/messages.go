// Package stream exposes the analysis engine to the browser host over a
// WebSocket landmark stream.
package stream

import (
	"encoding/json"

	"github.com/normanking/facemetrics/internal/au"
	"github.com/normanking/facemetrics/internal/session"
)

// Client message types.
const (
	MsgFrame         = "frame"
	MsgStartSession  = "start_session"
	MsgStopSession   = "stop_session"
	MsgClearSession  = "clear_session"
	MsgExportSession = "export_session"
	MsgStartBaseline = "start_baseline"
	MsgResetBaseline = "reset_baseline"
)

// Server message types.
const (
	MsgAUFrame          = "au_frame"
	MsgAUEvent          = "au_event"
	MsgBaselineProgress = "baseline_progress"
	MsgBaselineSet      = "baseline_set"
	MsgSessionStarted   = "session_started"
	MsgSessionSummary   = "session_summary"
	MsgSessionExport    = "session_export"
	MsgAck              = "ack"
	MsgError            = "error"
)

// ClientMessage is any inbound message from the browser host. Frame
// messages carry the landmark set and the host's capture timestamp in Unix
// milliseconds; control messages carry only the type.
type ClientMessage struct {
	Type      string     `json:"type"`
	Points    []au.Point `json:"points,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
}

// FrameMessage delivers one analysis frame to the host.
type FrameMessage struct {
	Type  string   `json:"type"`
	Frame au.Frame `json:"frame"`
}

// EventMessage delivers one temporal event to the host.
type EventMessage struct {
	Type  string   `json:"type"`
	Event au.Event `json:"event"`
}

// BaselineProgressMessage reports calibration progress as 0-100.
type BaselineProgressMessage struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress"`
}

// BaselineSetMessage announces a completed calibration.
type BaselineSetMessage struct {
	Type     string    `json:"type"`
	Baseline au.Values `json:"baseline"`
}

// SessionStartedMessage acknowledges a session start with its ID.
type SessionStartedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// SummaryMessage delivers the end-of-session statistics.
type SummaryMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Summary   session.Summary `json:"summary"`
}

// ExportMessage carries the serialized session document.
type ExportMessage struct {
	Type     string          `json:"type"`
	Document json.RawMessage `json:"document"`
}

// AckMessage confirms a control message that has no richer response.
type AckMessage struct {
	Type string `json:"type"`
	Of   string `json:"of"`
}

// ErrorMessage reports a recoverable processing error to the host.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
