package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/facemetrics/internal/au"
)

// Config tunes the analysis pipeline. Zero values are replaced with
// defaults by New so a partially-specified config stays usable.
type Config struct {
	SmoothingWindow  int  `mapstructure:"smoothing_window"`
	SmoothingEnabled bool `mapstructure:"smoothing_enabled"`
	TemporalWindow   int  `mapstructure:"temporal_window"`
	StabilityWindow  int  `mapstructure:"stability_window"`

	ExpressivenessGain float64 `mapstructure:"expressiveness_gain"`

	// OnsetDelta is the frame-to-frame change that qualifies as rapid; a
	// qualifying change within RapidWindow of the channel's previous change
	// emits a rapid event.
	OnsetDelta  float64       `mapstructure:"onset_delta"`
	RapidWindow time.Duration `mapstructure:"rapid_window"`

	DeviationThreshold float64       `mapstructure:"deviation_threshold"`
	DeviationCooldown  time.Duration `mapstructure:"deviation_cooldown"`

	BaselineFrames int `mapstructure:"baseline_frames"`

	Thresholds au.Thresholds  `mapstructure:"-"`
	Geometry   GeometryConfig `mapstructure:"geometry"`
}

// DefaultConfig returns the shipped pipeline tuning.
func DefaultConfig() Config {
	return Config{
		SmoothingWindow:    5,
		SmoothingEnabled:   true,
		TemporalWindow:     30,
		StabilityWindow:    15,
		ExpressivenessGain: 5,
		OnsetDelta:         0.15,
		RapidWindow:        300 * time.Millisecond,
		DeviationThreshold: 0.25,
		DeviationCooldown:  time.Second,
		BaselineFrames:     60,
		Thresholds:         au.DefaultThresholds(),
		Geometry:           DefaultGeometryConfig(),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.SmoothingWindow < 1 {
		c.SmoothingWindow = def.SmoothingWindow
	}
	if c.TemporalWindow < 1 {
		c.TemporalWindow = def.TemporalWindow
	}
	if c.StabilityWindow < 1 {
		c.StabilityWindow = def.StabilityWindow
	}
	if c.ExpressivenessGain <= 0 {
		c.ExpressivenessGain = def.ExpressivenessGain
	}
	if c.OnsetDelta <= 0 {
		c.OnsetDelta = def.OnsetDelta
	}
	if c.RapidWindow <= 0 {
		c.RapidWindow = def.RapidWindow
	}
	if c.DeviationThreshold <= 0 {
		c.DeviationThreshold = def.DeviationThreshold
	}
	if c.DeviationCooldown <= 0 {
		c.DeviationCooldown = def.DeviationCooldown
	}
	if c.BaselineFrames < 1 {
		c.BaselineFrames = def.BaselineFrames
	}
	allZero := true
	for _, t := range c.Thresholds {
		if t != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		c.Thresholds = def.Thresholds
	}
	return c
}

// Engine is one single-subject analysis pipeline instance. All mutable
// state is owned by the instance; the host pumps exactly one landmark
// frame at a time and the engine never blocks or spawns goroutines, so
// callback ordering is deterministic for identical input sequences.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	extractor  *Extractor
	channels   [au.Count]*channelState
	calibrator *Calibrator
	metrics    *metricsAggregator

	frameIndex int

	onFrame    func(au.Frame)
	onEvent    func(au.Event)
	onBaseline func(au.Values)
}

// New creates an engine with fresh channel state.
func New(cfg Config, logger zerolog.Logger) *Engine {
	cfg = cfg.normalized()

	e := &Engine{
		cfg:        cfg,
		logger:     logger.With().Str("component", "engine").Logger(),
		extractor:  NewExtractor(cfg.Geometry),
		calibrator: NewCalibrator(cfg.BaselineFrames),
		metrics: newMetricsAggregator(
			cfg.ExpressivenessGain,
			cfg.StabilityWindow,
			cfg.DeviationThreshold,
			cfg.DeviationCooldown.Milliseconds(),
		),
	}
	for _, k := range au.Keys() {
		e.channels[k] = newChannelState(k, cfg.Thresholds.Get(k), cfg.SmoothingWindow, cfg.TemporalWindow)
	}
	return e
}

// OnFrame registers the per-frame callback. Invoked synchronously from
// ProcessFrame after the frame record is complete.
func (e *Engine) OnFrame(fn func(au.Frame)) {
	e.onFrame = fn
}

// OnEvent registers the temporal event callback. Invoked synchronously, in
// canonical channel order within a frame.
func (e *Engine) OnEvent(fn func(au.Event)) {
	e.onEvent = fn
}

// OnBaseline registers the calibration-complete callback.
func (e *Engine) OnBaseline(fn func(au.Values)) {
	e.onBaseline = fn
}

// ProcessFrame runs one landmark frame through the full pipeline and
// returns the resulting analysis frame. The only error is the schema-level
// landmark count mismatch; every other bad input is recovered within the
// frame boundary as a zeroed no-face frame.
func (e *Engine) ProcessFrame(points []au.Point, ts time.Time) (au.Frame, error) {
	tsMs := ts.UnixMilli()

	raw, ok, err := e.extractor.Extract(points)
	if err != nil {
		e.logger.Error().Err(err).Int("points", len(points)).Msg("Incompatible landmark source")
		return au.Frame{}, err
	}

	frame := au.Frame{
		Timestamp:    tsMs,
		FrameIndex:   e.frameIndex,
		Descriptions: map[string]string{},
		FaceDetected: ok,
	}
	e.frameIndex++

	if !ok {
		// No-face frames keep the stream gap-free but do not advance
		// channel state, calibration or metrics history.
		e.emitFrame(frame)
		return frame, nil
	}

	var smoothed au.Values
	for _, k := range au.Keys() {
		value, events := e.channels[k].step(raw.Get(k), tsMs, e.cfg.SmoothingEnabled, e.cfg.OnsetDelta, e.cfg.RapidWindow.Milliseconds())
		smoothed.Set(k, value)
		for _, ev := range events {
			e.emitEvent(ev)
		}
		if e.channels[k].active {
			frame.Descriptions[k.String()] = au.Describe(k, value)
		}
	}

	if e.calibrator.Recording() && e.calibrator.Feed(smoothed) {
		baseline := e.calibrator.Baseline()
		e.logger.Info().Interface("baseline", baseline.ToMap()).Msg("Baseline calibrated")
		if e.onBaseline != nil {
			e.onBaseline(*baseline)
		}
	}

	metrics, deviation := e.metrics.compute(&e.channels, smoothed, e.calibrator.Baseline(), tsMs)
	frame.AUs = smoothed
	frame.Metrics = metrics
	if deviation != nil {
		e.emitEvent(*deviation)
	}

	e.emitFrame(frame)
	return frame, nil
}

// StartBaselineRecording begins a calibration window. Calling it while a
// window is already recording restarts the window from zero.
func (e *Engine) StartBaselineRecording() {
	if e.calibrator.Recording() {
		e.logger.Warn().Msg("Baseline recording restarted")
	} else {
		e.logger.Info().Int("frames", e.cfg.BaselineFrames).Msg("Baseline recording started")
	}
	e.calibrator.Start()
}

// IsCalibrating reports whether a baseline window is being recorded.
func (e *Engine) IsCalibrating() bool {
	return e.calibrator.Recording()
}

// BaselineProgress returns calibration progress as a 0-100 percentage.
func (e *Engine) BaselineProgress() float64 {
	return e.calibrator.Progress()
}

// Baseline returns a copy of the resting-state baseline, or nil.
func (e *Engine) Baseline() *au.Values {
	return e.calibrator.Baseline()
}

// ResetBaseline discards the baseline and any calibration in progress, and
// clears channel state so deviation scoring starts over cleanly.
func (e *Engine) ResetBaseline() {
	e.calibrator.Reset()
	e.resetChannels()
	e.logger.Info().Msg("Baseline reset")
}

// Reset clears channel histories, metrics history and the frame counter
// for a new session. The baseline survives so a calibrated subject can
// record several sessions without recalibrating.
func (e *Engine) Reset() {
	e.resetChannels()
	e.frameIndex = 0
}

func (e *Engine) resetChannels() {
	for _, ch := range e.channels {
		ch.reset()
	}
	e.metrics.reset()
}

func (e *Engine) emitFrame(frame au.Frame) {
	if e.onFrame != nil {
		e.onFrame(frame)
	}
}

func (e *Engine) emitEvent(event au.Event) {
	if e.onEvent != nil {
		e.onEvent(event)
	}
}
