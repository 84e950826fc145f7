package engine

import (
	"math"

	"github.com/normanking/facemetrics/internal/au"
)

// Synthetic face geometry for tests. The neutral face is constructed so
// every AU ratio sits exactly at its remap offset, i.e. all activations
// are zero; the with* helpers move individual landmark pairs to hit a
// target activation analytically.

const (
	testFaceWidth = 0.6
	testEyeWidth  = 0.1
	testEyeY      = 0.46
)

func neutralFace() []au.Point {
	points := make([]au.Point, au.MinLandmarks)

	points[au.CheekLeft] = au.Point{X: 0.2, Y: 0.5}
	points[au.CheekRight] = au.Point{X: 0.8, Y: 0.5}

	// Mouth at the AU12/AU26 zero points.
	setMouthWidth(points, 0.35*testFaceWidth)
	setMouthOpen(points, 0.02*testFaceWidth)

	// Brows: inner-brow separation and brow-to-nose distance both at their
	// zero points (AU4 and AU1).
	points[au.NoseBridge] = au.Point{X: 0.5, Y: 0.45}
	halfSep := 0.13 * testFaceWidth / 2
	browNose := 0.11 * testFaceWidth
	dy := math.Sqrt(browNose*browNose - halfSep*halfSep)
	points[au.BrowInnerLeft] = au.Point{X: 0.5 - halfSep, Y: 0.45 - dy}
	points[au.BrowInnerRight] = au.Point{X: 0.5 + halfSep, Y: 0.45 - dy}

	// Eyes open at the AU45 zero point (aspect ratio 0.35).
	points[au.LeftEyeOuter] = au.Point{X: 0.30, Y: testEyeY}
	points[au.LeftEyeInner] = au.Point{X: 0.40, Y: testEyeY}
	points[au.RightEyeOuter] = au.Point{X: 0.70, Y: testEyeY}
	points[au.RightEyeInner] = au.Point{X: 0.60, Y: testEyeY}
	setEyeAspect(points, 0.35)

	return points
}

func setMouthWidth(points []au.Point, width float64) {
	points[au.MouthCornerLeft] = au.Point{X: 0.5 - width/2, Y: 0.62}
	points[au.MouthCornerRight] = au.Point{X: 0.5 + width/2, Y: 0.62}
}

func setMouthOpen(points []au.Point, open float64) {
	points[au.LipTop] = au.Point{X: 0.5, Y: 0.61}
	points[au.LipBottom] = au.Point{X: 0.5, Y: 0.61 + open}
}

func setEyeAspect(points []au.Point, ratio float64) {
	height := ratio * testEyeWidth
	points[au.LeftEyeUpper] = au.Point{X: 0.35, Y: testEyeY - height/2}
	points[au.LeftEyeLower] = au.Point{X: 0.35, Y: testEyeY + height/2}
	points[au.RightEyeUpper] = au.Point{X: 0.65, Y: testEyeY - height/2}
	points[au.RightEyeLower] = au.Point{X: 0.65, Y: testEyeY + height/2}
}

// withSmile returns the face with AU12 at the given activation.
func withSmile(points []au.Point, activation float64) []au.Point {
	setMouthWidth(points, (0.35+0.13*activation)*testFaceWidth)
	return points
}

// withJawDrop returns the face with AU26 at the given activation.
func withJawDrop(points []au.Point, activation float64) []au.Point {
	setMouthOpen(points, (0.02+0.13*activation)*testFaceWidth)
	return points
}

// withEyeClosure returns the face with AU45 at the given activation.
func withEyeClosure(points []au.Point, activation float64) []au.Point {
	setEyeAspect(points, 0.10+0.25*(1-activation))
	return points
}
