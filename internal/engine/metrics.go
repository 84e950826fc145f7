package engine

import (
	"math"

	"github.com/normanking/facemetrics/internal/au"
)

// metricsAggregator derives the frame-level scalars from the channel
// histories. Stability is second-order: it is computed from the history of
// expressiveness itself, not from AU values directly.
type metricsAggregator struct {
	gain            float64
	deviationThresh float64
	cooldownMs      int64

	expressHistory  *ring
	lastDeviationMs int64
}

func newMetricsAggregator(gain float64, stabilityWindow int, deviationThresh float64, cooldownMs int64) *metricsAggregator {
	return &metricsAggregator{
		gain:            gain,
		deviationThresh: deviationThresh,
		cooldownMs:      cooldownMs,
		expressHistory:  newRing(stabilityWindow),
		lastDeviationMs: -1,
	}
}

// compute returns the metrics for the current frame and, at most once per
// cooldown interval, a deviation event when the subject drifts off
// baseline. The cooldown keeps a continuously off-baseline subject from
// flooding the event stream.
func (m *metricsAggregator) compute(channels *[au.Count]*channelState, current au.Values, baseline *au.Values, tsMs int64) (au.Metrics, *au.Event) {
	variability := 0.0
	for _, ch := range channels {
		variability += ch.history.StdDev()
	}
	expressiveness := au.Clamp01(variability / float64(au.Count) * m.gain)
	m.expressHistory.Push(expressiveness)

	metrics := au.Metrics{
		Expressiveness: expressiveness,
		Activity:       au.Clamp01(current.Mean()),
		Stability:      au.Clamp01((1 - m.expressHistory.StdDev()) * 2),
	}

	if baseline == nil {
		return metrics, nil
	}

	deviation := current.MeanAbsDiff(baseline)
	metrics.BaselineDeviation = &deviation

	if deviation <= m.deviationThresh {
		return metrics, nil
	}
	if m.lastDeviationMs >= 0 && tsMs-m.lastDeviationMs < m.cooldownMs {
		return metrics, nil
	}
	m.lastDeviationMs = tsMs

	event := au.Event{
		Timestamp: tsMs,
		Type:      au.EventDeviation,
		AU:        worstChannel(current, baseline),
		Message:   "expression deviates from baseline",
		Value:     deviation,
	}
	return metrics, &event
}

// worstChannel picks the channel furthest from its baseline value, used to
// annotate deviation events.
func worstChannel(current au.Values, baseline *au.Values) au.Key {
	worst := au.AU12
	worstDiff := -1.0
	for _, k := range au.Keys() {
		diff := math.Abs(current.Get(k) - baseline.Get(k))
		if diff > worstDiff {
			worst = k
			worstDiff = diff
		}
	}
	return worst
}

func (m *metricsAggregator) reset() {
	m.expressHistory.Reset()
	m.lastDeviationMs = -1
}
