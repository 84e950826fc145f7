package engine

import (
	"math"
	"testing"

	"github.com/normanking/facemetrics/internal/au"
)

func stepAll(c *channelState, values []float64, startMs, stepMs int64) []au.Event {
	var all []au.Event
	for i, v := range values {
		_, events := c.step(v, startMs+int64(i)*stepMs, false, 0.15, 300)
		all = append(all, events...)
	}
	return all
}

func TestOnsetThenOffset(t *testing.T) {
	c := newChannelState(au.AU45, 0.6, 5, 30)

	// AU45 crossing 0.6 upward then downward across 3 frames.
	events := stepAll(c, []float64{0.3, 0.7, 0.3}, 1000, 100)

	if len(events) != 2 {
		t.Fatalf("Expected exactly 2 events, got %d", len(events))
	}
	if events[0].Type != au.EventOnset {
		t.Errorf("Expected onset first, got %s", events[0].Type)
	}
	if events[1].Type != au.EventOffset {
		t.Errorf("Expected offset second, got %s", events[1].Type)
	}
	if events[1].Duration != 100 {
		t.Errorf("Expected offset duration 100ms, got %d", events[1].Duration)
	}
	if events[1].Value != 0.7 {
		t.Errorf("Offset should carry the peak value 0.7, got %f", events[1].Value)
	}
}

func TestPeakTracksMaximumWhileActive(t *testing.T) {
	c := newChannelState(au.AU12, 0.35, 5, 30)

	events := stepAll(c, []float64{0.4, 0.9, 0.6, 0.1}, 0, 1000)

	var offset *au.Event
	for i := range events {
		if events[i].Type == au.EventOffset {
			offset = &events[i]
		}
	}
	if offset == nil {
		t.Fatal("Expected an offset event")
	}
	if offset.Value != 0.9 {
		t.Errorf("Expected peak 0.9 on offset, got %f", offset.Value)
	}
	if offset.Duration != 3000 {
		t.Errorf("Expected duration 3000ms, got %d", offset.Duration)
	}
}

func TestRapidChangeBetweenCloseFrames(t *testing.T) {
	c := newChannelState(au.AU12, 0.35, 5, 30)

	// Jump from 0.1 to 0.5 between consecutive frames under 300ms apart.
	events := stepAll(c, []float64{0.1, 0.5}, 0, 100)

	rapid := 0
	for _, ev := range events {
		if ev.Type == au.EventRapid {
			rapid++
		}
	}
	if rapid != 1 {
		t.Errorf("Expected exactly 1 rapid event, got %d", rapid)
	}
}

func TestNoRapidChangeWhenFramesFarApart(t *testing.T) {
	c := newChannelState(au.AU12, 0.35, 5, 30)

	events := stepAll(c, []float64{0.1, 0.5}, 0, 400)

	for _, ev := range events {
		if ev.Type == au.EventRapid {
			t.Error("No rapid event expected when frames are over 300ms apart")
		}
	}
}

func TestNoRapidChangeBelowDelta(t *testing.T) {
	c := newChannelState(au.AU12, 0.35, 5, 30)

	events := stepAll(c, []float64{0.1, 0.2, 0.3}, 0, 50)

	for _, ev := range events {
		if ev.Type == au.EventRapid {
			t.Error("No rapid event expected for sub-threshold deltas")
		}
	}
}

func TestRapidCanCoOccurWithOnset(t *testing.T) {
	c := newChannelState(au.AU12, 0.35, 5, 30)

	events := stepAll(c, []float64{0.1, 0.8}, 0, 100)

	var sawRapid, sawOnset bool
	for _, ev := range events {
		switch ev.Type {
		case au.EventRapid:
			sawRapid = true
		case au.EventOnset:
			sawOnset = true
		}
	}
	if !sawRapid || !sawOnset {
		t.Errorf("Expected rapid and onset to co-occur, got rapid=%v onset=%v", sawRapid, sawOnset)
	}
}

func TestSmoothingMatchesRunningMean(t *testing.T) {
	c := newChannelState(au.AU26, 0.25, 3, 30)

	inputs := []float64{0.9, 0.0, 0.3}
	var got float64
	for i, v := range inputs {
		got, _ = c.step(v, int64(i)*33, true, 0.15, 300)
	}
	want := (0.9 + 0.0 + 0.3) / 3
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected smoothed %f, got %f", want, got)
	}
}

func TestSmoothingDisabledPassesRawThrough(t *testing.T) {
	c := newChannelState(au.AU26, 0.25, 5, 30)

	c.step(0.9, 0, false, 0.15, 300)
	got, _ := c.step(0.1, 33, false, 0.15, 300)
	if got != 0.1 {
		t.Errorf("Expected raw passthrough 0.1, got %f", got)
	}
}

func TestChannelReset(t *testing.T) {
	c := newChannelState(au.AU12, 0.35, 5, 30)
	stepAll(c, []float64{0.5, 0.6}, 0, 100)

	c.reset()

	if c.active || c.onsetMs != -1 || c.lastValue != 0 || c.history.Len() != 0 {
		t.Error("Reset should clear all channel state")
	}
}
