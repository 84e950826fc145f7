package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/facemetrics/internal/au"
)

func TestClientFrameMessageParsing(t *testing.T) {
	raw := []byte(`{"type":"frame","timestamp":1712000000123,"points":[{"x":0.5,"y":0.25},{"x":0.1,"y":0.9}]}`)

	var msg ClientMessage
	require.NoError(t, json.Unmarshal(raw, &msg))

	assert.Equal(t, MsgFrame, msg.Type)
	assert.Equal(t, int64(1712000000123), msg.Timestamp)
	require.Len(t, msg.Points, 2)
	assert.Equal(t, au.Point{X: 0.5, Y: 0.25}, msg.Points[0])
	assert.Equal(t, au.Point{X: 0.1, Y: 0.9}, msg.Points[1])
}

func TestClientControlMessageParsing(t *testing.T) {
	for _, typ := range []string{
		MsgStartSession, MsgStopSession, MsgClearSession,
		MsgExportSession, MsgStartBaseline, MsgResetBaseline,
	} {
		var msg ClientMessage
		require.NoError(t, json.Unmarshal([]byte(`{"type":"`+typ+`"}`), &msg))
		assert.Equal(t, typ, msg.Type)
		assert.Empty(t, msg.Points)
	}
}

func TestFrameMessageSerialization(t *testing.T) {
	values := au.NewValues()
	values.Set(au.AU12, 0.8)

	frame := au.Frame{
		Timestamp:    1712000000123,
		FrameIndex:   7,
		AUs:          values,
		Descriptions: map[string]string{"AU12": "strongly lip corner pull"},
		Metrics:      au.Metrics{Expressiveness: 0.4, Activity: 0.2, Stability: 0.9},
		FaceDetected: true,
	}

	data, err := json.Marshal(FrameMessage{Type: MsgAUFrame, Frame: frame})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "au_frame", parsed["type"])

	inner := parsed["frame"].(map[string]any)
	assert.Equal(t, float64(7), inner["frameIndex"])
	assert.Equal(t, true, inner["faceDetected"])

	aus := inner["aus"].(map[string]any)
	assert.Equal(t, 0.8, aus["AU12"])
	assert.Equal(t, 0.0, aus["AU45"])

	// No baseline yet, so the deviation field must be absent rather than 0.
	metrics := inner["metrics"].(map[string]any)
	assert.NotContains(t, metrics, "baselineDeviation")
}

func TestEventMessageSerialization(t *testing.T) {
	event := au.Event{
		Timestamp: 1712000000456,
		Type:      au.EventOffset,
		AU:        au.AU26,
		Message:   "jaw drop ended",
		Value:     0.7,
		Duration:  450,
	}

	data, err := json.Marshal(EventMessage{Type: MsgAUEvent, Event: event})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	inner := parsed["event"].(map[string]any)

	assert.Equal(t, "offset", inner["type"])
	assert.Equal(t, "AU26", inner["au"])
	assert.Equal(t, float64(450), inner["duration"])
}

func TestOnsetEventOmitsDuration(t *testing.T) {
	event := au.Event{
		Timestamp: 1712000000456,
		Type:      au.EventOnset,
		AU:        au.AU12,
		Message:   "AU12: slightly lip corner pull",
		Value:     0.4,
	}

	data, err := json.Marshal(EventMessage{Type: MsgAUEvent, Event: event})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	inner := parsed["event"].(map[string]any)
	assert.NotContains(t, inner, "duration")
}

func TestExportMessageCarriesDocumentVerbatim(t *testing.T) {
	doc := json.RawMessage(`{"sessionId":"abc","frames":[]}`)

	data, err := json.Marshal(ExportMessage{Type: MsgSessionExport, Document: doc})
	require.NoError(t, err)

	var parsed struct {
		Type     string          `json:"type"`
		Document json.RawMessage `json:"document"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, MsgSessionExport, parsed.Type)
	assert.JSONEq(t, string(doc), string(parsed.Document))
}

func TestBaselineProgressMessage(t *testing.T) {
	data, err := json.Marshal(BaselineProgressMessage{Type: MsgBaselineProgress, Progress: 41.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"baseline_progress","progress":41.5}`, string(data))
}

func TestAckAndErrorMessages(t *testing.T) {
	ack, err := json.Marshal(AckMessage{Type: MsgAck, Of: MsgClearSession})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ack","of":"clear_session"}`, string(ack))

	errMsg, err := json.Marshal(ErrorMessage{Type: MsgError, Message: "landmark set smaller than face mesh schema"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"landmark set smaller than face mesh schema"}`, string(errMsg))
}
