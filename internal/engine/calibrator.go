package engine

import "github.com/normanking/facemetrics/internal/au"

// Calibrator records a fixed-length window of smoothed AU frames and
// averages it into a resting-state baseline. Only one calibration is in
// flight at a time; starting a new one while recording restarts the window
// from zero without touching an already-set baseline.
type Calibrator struct {
	required  int
	recording bool
	count     int
	sums      [au.Count]float64
	baseline  *au.Values
}

// NewCalibrator creates a calibrator requiring the given number of frames.
func NewCalibrator(requiredFrames int) *Calibrator {
	if requiredFrames < 1 {
		requiredFrames = 1
	}
	return &Calibrator{required: requiredFrames}
}

// Start begins (or restarts) accumulating frames.
func (c *Calibrator) Start() {
	c.recording = true
	c.count = 0
	c.sums = [au.Count]float64{}
}

// Feed consumes one smoothed frame. When the window is complete the mean
// per channel replaces any prior baseline wholesale and recording stops;
// Feed returns true exactly once per completed window.
func (c *Calibrator) Feed(values au.Values) bool {
	if !c.recording {
		return false
	}

	for i := range c.sums {
		c.sums[i] += values[i]
	}
	c.count++

	if c.count < c.required {
		return false
	}

	var baseline au.Values
	for _, k := range au.Keys() {
		baseline.Set(k, c.sums[k]/float64(c.count))
	}
	c.baseline = &baseline
	c.recording = false
	return true
}

// Recording reports whether a calibration window is in progress.
func (c *Calibrator) Recording() bool {
	return c.recording
}

// Progress returns calibration progress as a 0-100 percentage. After a
// window completes it reports 100 until the baseline is reset or a new
// window starts, so a polling host can observe completion.
func (c *Calibrator) Progress() float64 {
	if !c.recording {
		if c.baseline != nil {
			return 100
		}
		return 0
	}
	return float64(c.count) / float64(c.required) * 100
}

// Baseline returns a copy of the current baseline, or nil if uncalibrated.
func (c *Calibrator) Baseline() *au.Values {
	if c.baseline == nil {
		return nil
	}
	b := *c.baseline
	return &b
}

// Reset aborts any in-progress recording and clears the baseline.
func (c *Calibrator) Reset() {
	c.recording = false
	c.count = 0
	c.sums = [au.Count]float64{}
	c.baseline = nil
}
