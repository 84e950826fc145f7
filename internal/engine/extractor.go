package engine

import (
	"fmt"

	"github.com/normanking/facemetrics/internal/au"
)

// GeometryConfig holds the calibrated remap constants that turn normalized
// landmark distance ratios into unit-interval AU activations. These are
// tuned thresholds, not physical constants.
type GeometryConfig struct {
	SmileOffset     float64 `mapstructure:"smile_offset"`
	SmileScale      float64 `mapstructure:"smile_scale"`
	JawOffset       float64 `mapstructure:"jaw_offset"`
	JawScale        float64 `mapstructure:"jaw_scale"`
	BrowRaiseOffset float64 `mapstructure:"brow_raise_offset"`
	BrowRaiseScale  float64 `mapstructure:"brow_raise_scale"`
	BrowLowerOffset float64 `mapstructure:"brow_lower_offset"`
	BrowLowerScale  float64 `mapstructure:"brow_lower_scale"`
	EyeAROffset     float64 `mapstructure:"eye_ar_offset"`
	EyeARScale      float64 `mapstructure:"eye_ar_scale"`

	// MinFaceWidth is the degenerate-geometry floor. A face width below it
	// yields a zeroed no-face frame instead of a division by zero.
	MinFaceWidth float64 `mapstructure:"min_face_width"`
}

// DefaultGeometryConfig returns the shipped calibration constants.
func DefaultGeometryConfig() GeometryConfig {
	return GeometryConfig{
		SmileOffset:     0.35,
		SmileScale:      0.13,
		JawOffset:       0.02,
		JawScale:        0.13,
		BrowRaiseOffset: 0.11,
		BrowRaiseScale:  0.06,
		BrowLowerOffset: 0.06,
		BrowLowerScale:  0.07,
		EyeAROffset:     0.10,
		EyeARScale:      0.25,
		MinFaceWidth:    1e-6,
	}
}

// Extractor converts one landmark set into raw, unsmoothed AU activations.
// All distances are normalized by the cheek-to-cheek face width so the
// ratios are invariant to face size and distance from camera.
type Extractor struct {
	geo GeometryConfig
}

// NewExtractor creates an extractor. Each unset field is replaced with its
// default independently, so overriding one constant keeps the rest. Scales
// must stay nonzero: they are divisors.
func NewExtractor(geo GeometryConfig) *Extractor {
	def := DefaultGeometryConfig()
	if geo.SmileOffset == 0 {
		geo.SmileOffset = def.SmileOffset
	}
	if geo.SmileScale <= 0 {
		geo.SmileScale = def.SmileScale
	}
	if geo.JawOffset == 0 {
		geo.JawOffset = def.JawOffset
	}
	if geo.JawScale <= 0 {
		geo.JawScale = def.JawScale
	}
	if geo.BrowRaiseOffset == 0 {
		geo.BrowRaiseOffset = def.BrowRaiseOffset
	}
	if geo.BrowRaiseScale <= 0 {
		geo.BrowRaiseScale = def.BrowRaiseScale
	}
	if geo.BrowLowerOffset == 0 {
		geo.BrowLowerOffset = def.BrowLowerOffset
	}
	if geo.BrowLowerScale <= 0 {
		geo.BrowLowerScale = def.BrowLowerScale
	}
	if geo.EyeAROffset == 0 {
		geo.EyeAROffset = def.EyeAROffset
	}
	if geo.EyeARScale <= 0 {
		geo.EyeARScale = def.EyeARScale
	}
	if geo.MinFaceWidth <= 0 {
		geo.MinFaceWidth = def.MinFaceWidth
	}
	return &Extractor{geo: geo}
}

// Extract computes raw AU values from one landmark frame. The second return
// reports whether usable face geometry was present; when false the values
// are all zero and the frame should be treated as no-face. An error is
// returned only for a schema-level landmark count mismatch.
func (e *Extractor) Extract(points []au.Point) (au.Values, bool, error) {
	var v au.Values

	if len(points) < au.MinLandmarks {
		return v, false, fmt.Errorf("%w: got %d, need %d", au.ErrLandmarkCount, len(points), au.MinLandmarks)
	}

	faceWidth := au.Distance(points[au.CheekLeft], points[au.CheekRight])
	if faceWidth < e.geo.MinFaceWidth {
		return v, false, nil
	}

	mouthWidth := au.Distance(points[au.MouthCornerLeft], points[au.MouthCornerRight])
	v.Set(au.AU12, (mouthWidth/faceWidth-e.geo.SmileOffset)/e.geo.SmileScale)

	mouthOpen := au.Distance(points[au.LipTop], points[au.LipBottom])
	v.Set(au.AU26, (mouthOpen/faceWidth-e.geo.JawOffset)/e.geo.JawScale)

	browToNose := (au.Distance(points[au.BrowInnerLeft], points[au.NoseBridge]) +
		au.Distance(points[au.BrowInnerRight], points[au.NoseBridge])) / 2
	v.Set(au.AU1, (browToNose/faceWidth-e.geo.BrowRaiseOffset)/e.geo.BrowRaiseScale)

	interBrow := au.Distance(points[au.BrowInnerLeft], points[au.BrowInnerRight])
	v.Set(au.AU4, 1-(interBrow/faceWidth-e.geo.BrowLowerOffset)/e.geo.BrowLowerScale)

	leftAR, leftOK := eyeAspectRatio(points, au.LeftEyeUpper, au.LeftEyeLower, au.LeftEyeInner, au.LeftEyeOuter, e.geo.MinFaceWidth)
	rightAR, rightOK := eyeAspectRatio(points, au.RightEyeUpper, au.RightEyeLower, au.RightEyeInner, au.RightEyeOuter, e.geo.MinFaceWidth)
	if leftOK && rightOK {
		avgAR := (leftAR + rightAR) / 2
		v.Set(au.AU45, 1-(avgAR-e.geo.EyeAROffset)/e.geo.EyeARScale)
	}
	// Degenerate eye geometry leaves AU45 at zero.

	return v, true, nil
}

func eyeAspectRatio(points []au.Point, upper, lower, inner, outer int, minWidth float64) (float64, bool) {
	width := au.Distance(points[inner], points[outer])
	if width < minWidth {
		return 0, false
	}
	height := au.Distance(points[upper], points[lower])
	return height / width, true
}
