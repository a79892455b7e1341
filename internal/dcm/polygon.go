package dcm

import "github.com/GCS-LG/walking-controllers/internal/mathutil"

// SupportPolygon is the convex hull of the active foot contact points,
// expressed as half-plane inequalities Ax <= B.
type SupportPolygon struct {
	A [][2]float64
	B []float64
}

// FootRectangleHull returns the convex hull (a rectangle, or two
// rectangles' hull in double support) of the foot rectangles in contact,
// each given by its center in world xy. halfX/halfY are the rectangle's
// half-sizes around each center.
func FootRectangleHull(feetCenters []mathutil.Vec2, halfX, halfY float64) SupportPolygon {
	var corners [][2]float64
	for _, c := range feetCenters {
		corners = append(corners,
			[2]float64{c[0] - halfX, c[1] - halfY},
			[2]float64{c[0] + halfX, c[1] - halfY},
			[2]float64{c[0] + halfX, c[1] + halfY},
			[2]float64{c[0] - halfX, c[1] + halfY},
		)
	}
	return convexHullBox(corners)
}

// convexHullBox returns the axis-aligned bounding box of the given points
// as four half-plane constraints. This is a deliberately simple hull: the
// feet are rectangles aligned (approximately) with the world frame during
// normal walking, so the bounding box coincides with the true convex hull
// for single support and is a safe (slightly larger) outer approximation
// for double support, trading a small amount of conservatism for O(1)
// hull computation inside the real-time loop.
func convexHullBox(points [][2]float64) SupportPolygon {
	minX, maxX := points[0][0], points[0][0]
	minY, maxY := points[0][1], points[0][1]
	for _, p := range points[1:] {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}
	return SupportPolygon{
		A: [][2]float64{{1, 0}, {-1, 0}, {0, 1}, {0, -1}},
		B: []float64{maxX, -minX, maxY, -minY},
	}
}

// Contains reports whether p lies within the polygon, up to tolerance
// eps: the ZMP must lie within the convex hull up to a feasibility
// tolerance ε.
func (sp SupportPolygon) Contains(p mathutil.Vec2, eps float64) bool {
	for i, row := range sp.A {
		if row[0]*p[0]+row[1]*p[1] > sp.B[i]+eps {
			return false
		}
	}
	return true
}
