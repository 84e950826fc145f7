package engine

import (
	"testing"

	"github.com/normanking/facemetrics/internal/au"
)

func constantFrame(k au.Key, v float64) au.Values {
	values := au.NewValues()
	values.Set(k, v)
	return values
}

func TestCalibratorExactMean(t *testing.T) {
	cal := NewCalibrator(60)
	cal.Start()

	done := false
	for i := 0; i < 60; i++ {
		done = cal.Feed(constantFrame(au.AU12, 0.5))
	}
	if !done {
		t.Fatal("Expected calibration to complete after 60 frames")
	}

	baseline := cal.Baseline()
	if baseline == nil {
		t.Fatal("Expected a baseline")
	}
	if baseline.Get(au.AU12) != 0.5 {
		t.Errorf("Expected baseline AU12 == 0.5 exactly, got %f", baseline.Get(au.AU12))
	}
	if cal.Recording() {
		t.Error("Recording should stop once the window completes")
	}
}

func TestCalibratorIdempotentRecalibration(t *testing.T) {
	cal := NewCalibrator(10)

	feedWindow := func() au.Values {
		cal.Start()
		for i := 0; i < 10; i++ {
			values := au.NewValues()
			values.Set(au.AU1, float64(i)/10)
			values.Set(au.AU4, 0.3)
			cal.Feed(values)
		}
		return *cal.Baseline()
	}

	first := feedWindow()
	second := feedWindow()
	if first != second {
		t.Errorf("Identical input windows must yield identical baselines: %v != %v", first, second)
	}
}

func TestCalibratorRestartDiscardsPartialProgress(t *testing.T) {
	cal := NewCalibrator(4)
	cal.Start()
	cal.Feed(constantFrame(au.AU12, 1.0))
	cal.Feed(constantFrame(au.AU12, 1.0))

	// Restart mid-window: partial sums are discarded.
	cal.Start()
	for i := 0; i < 4; i++ {
		cal.Feed(constantFrame(au.AU12, 0.2))
	}

	baseline := cal.Baseline()
	if baseline == nil {
		t.Fatal("Expected a baseline")
	}
	if baseline.Get(au.AU12) != 0.2 {
		t.Errorf("Restart must discard earlier frames, got %f", baseline.Get(au.AU12))
	}
}

func TestCalibratorRestartKeepsExistingBaselineUntilComplete(t *testing.T) {
	cal := NewCalibrator(2)
	cal.Start()
	cal.Feed(constantFrame(au.AU26, 0.8))
	cal.Feed(constantFrame(au.AU26, 0.8))

	cal.Start()
	cal.Feed(constantFrame(au.AU26, 0.1))

	baseline := cal.Baseline()
	if baseline == nil || baseline.Get(au.AU26) != 0.8 {
		t.Error("Prior baseline should survive until the new window completes")
	}
}

func TestCalibratorProgress(t *testing.T) {
	cal := NewCalibrator(60)
	if cal.Progress() != 0 {
		t.Error("Progress should be 0 before recording")
	}

	cal.Start()
	for i := 0; i < 30; i++ {
		cal.Feed(au.NewValues())
	}
	if cal.Progress() != 50 {
		t.Errorf("Expected progress 50, got %f", cal.Progress())
	}
}

func TestCalibratorProgressReportsCompletion(t *testing.T) {
	cal := NewCalibrator(2)
	cal.Start()
	cal.Feed(constantFrame(au.AU12, 0.5))
	cal.Feed(constantFrame(au.AU12, 0.5))

	// A polling host must be able to observe the completed window.
	if cal.Progress() != 100 {
		t.Errorf("Expected progress 100 after completion, got %f", cal.Progress())
	}

	cal.Start()
	if cal.Progress() != 0 {
		t.Error("Starting a new window should report progress from zero")
	}

	cal.Reset()
	if cal.Progress() != 0 {
		t.Error("Progress should be 0 after reset")
	}
}

func TestCalibratorReset(t *testing.T) {
	cal := NewCalibrator(2)
	cal.Start()
	cal.Feed(constantFrame(au.AU12, 0.5))
	cal.Feed(constantFrame(au.AU12, 0.5))

	cal.Reset()

	if cal.Baseline() != nil {
		t.Error("Reset should clear the baseline")
	}
	if cal.Recording() {
		t.Error("Reset should abort recording")
	}
}

func TestCalibratorFeedIgnoredWhenIdle(t *testing.T) {
	cal := NewCalibrator(1)
	if cal.Feed(constantFrame(au.AU12, 0.5)) {
		t.Error("Feed without Start should be ignored")
	}
	if cal.Baseline() != nil {
		t.Error("No baseline expected without recording")
	}
}
