package session

import (
	"math"

	"github.com/normanking/facemetrics/internal/au"
)

// AUStats aggregates one channel over a whole session.
type AUStats struct {
	Mean              float64 `json:"mean"`
	Max               float64 `json:"max"`
	Min               float64 `json:"min"`
	StdDev            float64 `json:"stdDev"`
	ActivationCount   int     `json:"activationCount"`
	TotalActivationMs int64   `json:"totalActivationDuration"`
}

// Summary is computed once, at session stop, from the full stored frame
// and event sequences.
type Summary struct {
	TotalFrames               int                `json:"totalFrames"`
	FaceDetectionRate         float64            `json:"faceDetectionRate"`
	AUStats                   map[string]AUStats `json:"auStats"`
	AverageExpressiveness     float64            `json:"averageExpressiveness"`
	AverageActivity           float64            `json:"averageActivity"`
	AverageStability          float64            `json:"averageStability"`
	PeakExpressiveness        float64            `json:"peakExpressiveness"`
	AverageBaselineDeviation  *float64           `json:"averageBaselineDeviation"`
	RapidChangeCount          int                `json:"rapidChangeCount"`
	SignificantDeviationCount int                `json:"significantDeviationCount"`
}

// Summarize computes session statistics. Activation intervals are replayed
// from the stored frames with the threshold table rather than trusting the
// live event stream, so the result is deterministic for a stored session.
// A zero-frame session yields a well-defined all-zero summary.
func Summarize(frames []au.Frame, events []au.Event, thresholds au.Thresholds) Summary {
	summary := Summary{
		TotalFrames: len(frames),
		AUStats:     map[string]AUStats{},
	}

	for _, ev := range events {
		switch ev.Type {
		case au.EventRapid:
			summary.RapidChangeCount++
		case au.EventDeviation:
			summary.SignificantDeviationCount++
		}
	}

	if len(frames) == 0 {
		return summary
	}

	detected := 0
	deviationSum := 0.0
	deviationN := 0
	for _, f := range frames {
		if f.FaceDetected {
			detected++
		}
		summary.AverageExpressiveness += f.Metrics.Expressiveness
		summary.AverageActivity += f.Metrics.Activity
		summary.AverageStability += f.Metrics.Stability
		if f.Metrics.Expressiveness > summary.PeakExpressiveness {
			summary.PeakExpressiveness = f.Metrics.Expressiveness
		}
		if f.Metrics.BaselineDeviation != nil {
			deviationSum += *f.Metrics.BaselineDeviation
			deviationN++
		}
	}

	n := float64(len(frames))
	summary.FaceDetectionRate = float64(detected) / n
	summary.AverageExpressiveness /= n
	summary.AverageActivity /= n
	summary.AverageStability /= n
	if deviationN > 0 {
		avg := deviationSum / float64(deviationN)
		summary.AverageBaselineDeviation = &avg
	}

	for _, k := range au.Keys() {
		summary.AUStats[k.String()] = channelStats(frames, k, thresholds.Get(k))
	}

	return summary
}

// channelStats replays one channel's active/inactive transitions over the
// stored frames. No-face frames are skipped, matching the live state
// machine, which freezes channels while the face is lost; their zeroed AU
// values are placeholders, not measurements. An activation still open at
// the final frame is closed at the session's last timestamp.
func channelStats(frames []au.Frame, key au.Key, threshold float64) AUStats {
	stats := AUStats{Min: math.Inf(1)}

	sum := 0.0
	detected := 0
	active := false
	var onsetMs int64
	for _, f := range frames {
		if !f.FaceDetected {
			continue
		}
		detected++

		v := f.AUs.Get(key)
		sum += v
		if v > stats.Max {
			stats.Max = v
		}
		if v < stats.Min {
			stats.Min = v
		}

		nowActive := v > threshold
		if nowActive && !active {
			stats.ActivationCount++
			onsetMs = f.Timestamp
		}
		if !nowActive && active {
			stats.TotalActivationMs += f.Timestamp - onsetMs
		}
		active = nowActive
	}
	if detected == 0 {
		stats.Min = 0
		return stats
	}
	if active {
		stats.TotalActivationMs += frames[len(frames)-1].Timestamp - onsetMs
	}

	n := float64(detected)
	stats.Mean = sum / n

	variance := 0.0
	for _, f := range frames {
		if !f.FaceDetected {
			continue
		}
		d := f.AUs.Get(key) - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / n)

	return stats
}
