package engine

import (
	"fmt"
	"math"

	"github.com/normanking/facemetrics/internal/au"
)

// channelState tracks one AU channel across frames: smoothing history,
// temporal history, and the active/inactive state machine that emits
// onset, offset and rapid-change events.
type channelState struct {
	key       au.Key
	threshold float64

	smooth  *ring // last K raw values, K = smoothing window
	history *ring // last N smoothed values, N = temporal window

	lastValue    float64
	lastChangeMs int64 // timestamp of the previous nonzero change, -1 if none
	onsetMs      int64 // timestamp of the current activation onset, -1 while inactive
	active       bool
	peak         float64
}

func newChannelState(key au.Key, threshold float64, smoothingWindow, temporalWindow int) *channelState {
	return &channelState{
		key:          key,
		threshold:    threshold,
		smooth:       newRing(smoothingWindow),
		history:      newRing(temporalWindow),
		lastChangeMs: -1,
		onsetMs:      -1,
	}
}

// step feeds one raw value through smoothing and the state machine.
// Returns the smoothed value and any events produced, in emission order.
func (c *channelState) step(raw float64, tsMs int64, smoothingEnabled bool, onsetDelta float64, rapidWindowMs int64) (float64, []au.Event) {
	c.smooth.Push(raw)
	value := raw
	if smoothingEnabled {
		value = c.smooth.Mean()
	}
	c.history.Push(value)

	var events []au.Event

	// Rapid-change detection is independent of the active/inactive
	// transition and can co-occur with either: a jump larger than the onset
	// delta within the rapid window of the channel's last change.
	delta := math.Abs(value - c.lastValue)
	if delta > onsetDelta && c.lastChangeMs >= 0 && tsMs-c.lastChangeMs < rapidWindowMs {
		events = append(events, au.Event{
			Timestamp: tsMs,
			Type:      au.EventRapid,
			AU:        c.key,
			Message:   fmt.Sprintf("rapid change in %s", c.key.Label()),
			Value:     value,
		})
	}
	if delta > 0 {
		c.lastChangeMs = tsMs
	}

	active := value > c.threshold
	switch {
	case active && !c.active:
		c.onsetMs = tsMs
		c.peak = value
		events = append(events, au.Event{
			Timestamp: tsMs,
			Type:      au.EventOnset,
			AU:        c.key,
			Message:   fmt.Sprintf("%s: %s", c.key, au.Describe(c.key, value)),
			Value:     value,
		})
	case active:
		if value > c.peak {
			c.peak = value
		}
	case !active && c.active:
		events = append(events, au.Event{
			Timestamp: tsMs,
			Type:      au.EventOffset,
			AU:        c.key,
			Message:   fmt.Sprintf("%s ended", c.key),
			Value:     c.peak,
			Duration:  tsMs - c.onsetMs,
		})
		c.onsetMs = -1
		c.peak = 0
	}

	c.active = active
	c.lastValue = value

	return value, events
}

func (c *channelState) reset() {
	c.smooth.Reset()
	c.history.Reset()
	c.lastValue = 0
	c.lastChangeMs = -1
	c.onsetMs = -1
	c.active = false
	c.peak = 0
}
