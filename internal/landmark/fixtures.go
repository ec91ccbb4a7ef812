package landmark

import "math"

// Fixture hand poses for tests and the mock source. Poses are built
// analytically so their joint geometry is exact: open-hand fingers are
// collinear rays through the wrist (all curls are exactly zero) and the
// fist bends each finger by known angles.

// fingerRay describes one finger as a straight ray from the wrist.
type fingerRay struct {
	mcp     Point3D
	lengths [3]float64
}

// openFingers is the splay of an open right hand in normalized image space
// (x right, y down, z toward the camera). Finger columns radiate from the
// wrist so every landmark triple along a finger is collinear.
var openFingers = map[int]fingerRay{
	IndexMCP:  {mcp: Point3D{X: 0.56, Y: 0.70, Z: 0}, lengths: [3]float64{0.10, 0.06, 0.05}},
	MiddleMCP: {mcp: Point3D{X: 0.50, Y: 0.68, Z: 0}, lengths: [3]float64{0.11, 0.07, 0.05}},
	RingMCP:   {mcp: Point3D{X: 0.44, Y: 0.70, Z: 0}, lengths: [3]float64{0.10, 0.06, 0.05}},
	PinkyMCP:  {mcp: Point3D{X: 0.38, Y: 0.72, Z: 0}, lengths: [3]float64{0.08, 0.05, 0.04}},
}

var openWrist = Point3D{X: 0.5, Y: 0.9, Z: 0}

func add(p Point3D, d Point3D, s float64) Point3D {
	return Point3D{X: p.X + d.X*s, Y: p.Y + d.Y*s, Z: p.Z + d.Z*s}
}

func direction(from, to Point3D) Point3D {
	d := Point3D{X: to.X - from.X, Y: to.Y - from.Y, Z: to.Z - from.Z}
	n := math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
	if n < 1e-12 {
		return Point3D{X: 0, Y: -1, Z: 0}
	}
	return Point3D{X: d.X / n, Y: d.Y / n, Z: d.Z / n}
}

// OpenHandFrame returns a right hand with all fingers fully extended.
// Every curl computed from it is exactly zero.
func OpenHandFrame() HandFrame {
	f := HandFrame{Handedness: Right, Score: 0.95}
	f.Points[Wrist] = openWrist

	for mcpIdx, ray := range openFingers {
		d := direction(openWrist, ray.mcp)
		f.Points[mcpIdx] = ray.mcp
		f.Points[mcpIdx+1] = add(ray.mcp, d, ray.lengths[0])
		f.Points[mcpIdx+2] = add(f.Points[mcpIdx+1], d, ray.lengths[1])
		f.Points[mcpIdx+3] = add(f.Points[mcpIdx+2], d, ray.lengths[2])
	}

	// Thumb: a straight ray angled off the palm, slightly out of plane.
	thumbDir := direction(openWrist, Point3D{X: 0.62, Y: 0.80, Z: 0.04})
	f.Points[ThumbCMC] = add(openWrist, thumbDir, 0.07)
	f.Points[ThumbMCP] = add(f.Points[ThumbCMC], thumbDir, 0.07)
	f.Points[ThumbIP] = add(f.Points[ThumbMCP], thumbDir, 0.06)
	f.Points[ThumbTip] = add(f.Points[ThumbIP], thumbDir, 0.05)

	return f
}

// bendFinger places PIP/DIP/TIP for a finger bent by the given joint angles.
// The finger folds in the plane spanned by its MCP direction and the palm
// normal; bends are interior flexion angles in radians.
func bendFinger(f *HandFrame, mcpIdx int, ray fingerRay, bends [3]float64) {
	d := direction(openWrist, ray.mcp)
	// Palm normal in fixture space: fingers fold toward the camera.
	n := Point3D{X: 0, Y: 0, Z: -1}

	phi := 0.0
	prev := ray.mcp
	for i := 0; i < 3; i++ {
		phi += bends[i]
		dir := Point3D{
			X: d.X*math.Cos(phi) + n.X*math.Sin(phi),
			Y: d.Y*math.Cos(phi) + n.Y*math.Sin(phi),
			Z: d.Z*math.Cos(phi) + n.Z*math.Sin(phi),
		}
		prev = add(prev, dir, ray.lengths[i])
		f.Points[mcpIdx+1+i] = prev
	}
}

// FistFrame returns a right hand with all four fingers fully flexed.
// MCP bends 85 deg, PIP 100 deg, DIP 60 deg; the thumb folds across the palm.
func FistFrame() HandFrame {
	f := HandFrame{Handedness: Right, Score: 0.95}
	f.Points[Wrist] = openWrist

	bends := [3]float64{85 * math.Pi / 180, 100 * math.Pi / 180, 60 * math.Pi / 180}
	for mcpIdx, ray := range openFingers {
		f.Points[mcpIdx] = ray.mcp
		bendFinger(&f, mcpIdx, ray, bends)
	}

	// Thumb folded across the palm.
	f.Points[ThumbCMC] = Point3D{X: 0.57, Y: 0.83, Z: 0.01}
	f.Points[ThumbMCP] = Point3D{X: 0.60, Y: 0.77, Z: -0.01}
	f.Points[ThumbIP] = Point3D{X: 0.56, Y: 0.73, Z: -0.04}
	f.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.73, Z: -0.05}

	return f
}

// PointingFrame returns a right hand with the index finger extended and
// the remaining three fingers fully flexed, thumb as in the fist.
func PointingFrame() HandFrame {
	f := FistFrame()

	ray := openFingers[IndexMCP]
	d := direction(openWrist, ray.mcp)
	f.Points[IndexMCP] = ray.mcp
	f.Points[IndexPIP] = add(ray.mcp, d, ray.lengths[0])
	f.Points[IndexDIP] = add(f.Points[IndexPIP], d, ray.lengths[1])
	f.Points[IndexTip] = add(f.Points[IndexDIP], d, ray.lengths[2])

	return f
}

// Mirror returns the frame reflected across the vertical axis with the
// handedness label flipped. Useful for exercising left-hand code paths.
func Mirror(f HandFrame) HandFrame {
	m := f
	if f.Handedness == Right {
		m.Handedness = Left
	} else {
		m.Handedness = Right
	}
	for i := range m.Points {
		m.Points[i].X = 1 - m.Points[i].X
	}
	return m
}
