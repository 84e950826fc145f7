package au

import (
	"encoding/json"
	"fmt"
)

// EventType classifies a temporal event on an AU channel.
type EventType string

const (
	EventOnset     EventType = "onset"
	EventOffset    EventType = "offset"
	EventRapid     EventType = "rapid"
	EventDeviation EventType = "deviation"
)

// Event is a temporally meaningful change detected on one AU channel.
// Events are append-only and immutable once emitted. Timestamps are Unix
// milliseconds so the exported document is portable to the browser host.
type Event struct {
	Timestamp int64     `json:"timestamp"`
	Type      EventType `json:"type"`
	AU        Key       `json:"au"`
	Message   string    `json:"message"`
	Value     float64   `json:"value,omitempty"`
	Duration  int64     `json:"duration,omitempty"` // milliseconds, offset events only
}

// Metrics holds the frame-level aggregate scalars, each in [0,1].
// BaselineDeviation is nil until a baseline has been calibrated.
type Metrics struct {
	Expressiveness    float64  `json:"expressiveness"`
	Activity          float64  `json:"activity"`
	Stability         float64  `json:"stability"`
	BaselineDeviation *float64 `json:"baselineDeviation,omitempty"`
}

// Frame is the per-video-frame analysis record. One is produced for every
// processed frame whether or not a face was detected; the no-face case is
// zeroed with FaceDetected=false so downstream timestamps stay gap-free.
type Frame struct {
	Timestamp    int64             `json:"timestamp"`
	FrameIndex   int               `json:"frameIndex"`
	AUs          Values            `json:"aus"`
	Descriptions map[string]string `json:"descriptions"`
	Metrics      Metrics           `json:"metrics"`
	FaceDetected bool              `json:"faceDetected"`
}

// MarshalJSON renders a Key as its canonical name.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a canonical AU name.
func (k *Key) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed := KeyFromName(name)
	if parsed < 0 {
		return fmt.Errorf("unknown action unit %q", name)
	}
	*k = parsed
	return nil
}

// MarshalJSON renders Values as a name-keyed object.
func (v Values) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToMap())
}

// UnmarshalJSON parses a name-keyed object, clamping every value.
func (v *Values) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*v = ValuesFromMap(m)
	return nil
}
