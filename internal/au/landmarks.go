package au

import (
	"errors"
	"math"
)

// Face mesh landmark indices following the MediaPipe FaceMesh convention
// (468-point topology). Only these 17 named indices are consulted.
const (
	MouthCornerLeft  = 61
	MouthCornerRight = 291
	LipTop           = 13
	LipBottom        = 14
	BrowInnerLeft    = 55
	BrowInnerRight   = 285
	NoseBridge       = 168
	CheekLeft        = 234
	CheekRight       = 454
	LeftEyeUpper     = 159
	LeftEyeLower     = 145
	LeftEyeInner     = 133
	LeftEyeOuter     = 33
	RightEyeUpper    = 386
	RightEyeLower    = 374
	RightEyeInner    = 362
	RightEyeOuter    = 263

	// MinLandmarks is the smallest landmark set the extractor accepts. A
	// shorter set indicates an incompatible upstream model, not a bad frame.
	MinLandmarks = 468
)

// Point is one 2D face landmark, normalized to frame dimensions (0-1).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two landmarks.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ErrLandmarkCount reports a landmark set with fewer points than the face
// mesh schema requires. It indicates an incompatible upstream model and is
// never tolerated silently.
var ErrLandmarkCount = errors.New("landmark set smaller than face mesh schema")
