// Package au defines the facial action unit vocabulary shared by the
// analysis engine and the session recorder.
package au

// Key identifies one tracked facial action unit.
type Key int

// Tracked action units. The declaration order is the canonical evaluation
// order for every per-frame pass, so event emission is reproducible for
// identical input sequences.
const (
	AU12 Key = iota // lip-corner pull
	AU26            // jaw drop
	AU1             // inner-brow raise
	AU4             // brow lower
	AU45            // eye closure
	Count
)

var keyNames = [Count]string{
	"AU12",
	"AU26",
	"AU1",
	"AU4",
	"AU45",
}

var keyLabels = [Count]string{
	"lip corner pull",
	"jaw drop",
	"inner brow raise",
	"brow lower",
	"eye closure",
}

func (k Key) String() string {
	if k < 0 || k >= Count {
		return "AU?"
	}
	return keyNames[k]
}

// Label returns the human-readable muscle-movement name.
func (k Key) Label() string {
	if k < 0 || k >= Count {
		return "unknown"
	}
	return keyLabels[k]
}

// KeyFromName resolves the canonical name back to a Key. Returns -1 when
// the name is not a tracked action unit.
func KeyFromName(name string) Key {
	for i, n := range keyNames {
		if n == name {
			return Key(i)
		}
	}
	return -1
}

// Keys returns all tracked keys in canonical order.
func Keys() [Count]Key {
	return [Count]Key{AU12, AU26, AU1, AU4, AU45}
}

// DefaultThresholds is the per-AU activation threshold table. Fixed
// configuration, not derived at runtime.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AU12: 0.35,
		AU26: 0.25,
		AU1:  0.40,
		AU4:  0.45,
		AU45: 0.60,
	}
}

// Thresholds holds one activation threshold per action unit.
type Thresholds [Count]float64

// Get returns the threshold for a key.
func (t Thresholds) Get(k Key) float64 {
	return t[k]
}

// Values is a fixed record of per-AU activations, each in [0,1].
type Values [Count]float64

// NewValues returns an all-zero record.
func NewValues() Values {
	return Values{}
}

// Set stores a value clamped to [0,1].
func (v *Values) Set(k Key, value float64) {
	v[k] = Clamp01(value)
}

// Get reads the value for a key.
func (v *Values) Get(k Key) float64 {
	return v[k]
}

// Mean returns the average activation across all channels.
func (v *Values) Mean() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(Count)
}

// MeanAbsDiff returns the mean absolute per-channel difference to other.
func (v *Values) MeanAbsDiff(other *Values) float64 {
	sum := 0.0
	for i := range v {
		d := v[i] - other[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(Count)
}

// ToMap renders the record keyed by canonical AU name, for serialization.
func (v *Values) ToMap() map[string]float64 {
	m := make(map[string]float64, Count)
	for _, k := range Keys() {
		m[k.String()] = v[k]
	}
	return m
}

// ValuesFromMap builds a record from a name-keyed map, ignoring unknown
// names and clamping every value.
func ValuesFromMap(m map[string]float64) Values {
	var v Values
	for name, value := range m {
		if k := KeyFromName(name); k >= 0 {
			v.Set(k, value)
		}
	}
	return v
}

// Clamp01 clamps v to the unit interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Intensity bands for human-readable descriptions. Purely descriptive,
// never used for thresholding.
const (
	bandStrong   = 0.7
	bandModerate = 0.4
)

// Describe renders an intensity description for an active channel, e.g.
// "strongly raised inner brow".
func Describe(k Key, value float64) string {
	adverb := "slightly"
	switch {
	case value > bandStrong:
		adverb = "strongly"
	case value > bandModerate:
		adverb = "moderately"
	}
	return adverb + " " + k.Label()
}
