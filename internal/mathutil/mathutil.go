// Package mathutil collects small numeric helpers shared across the
// control cascade: clamping, bool/float conversions, and the so(3) helpers
// the Cartesian PID bank and whole-body tasks need.
package mathutil

import "math"

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BoolToFloat converts a bool to 1.0/0.0, used when packing boolean signals.
func BoolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// Vec3 is a plain ℝ³ vector.
type Vec3 [3]float64

// Add returns a+b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub returns a-b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale returns a*s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a[0] * s, a[1] * s, a[2] * s}
}

// Norm returns the Euclidean norm of a.
func (a Vec3) Norm() float64 {
	return math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
}

// Vec2 is a plain ℝ² vector, used for ZMP/DCM quantities.
type Vec2 [2]float64

// Add returns a+b.
func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a[0] + b[0], a[1] + b[1]} }

// Sub returns a-b.
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a[0] - b[0], a[1] - b[1]} }

// Scale returns a*s.
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a[0] * s, a[1] * s} }

// Norm returns the Euclidean norm of a.
func (a Vec2) Norm() float64 { return math.Sqrt(a[0]*a[0] + a[1]*a[1]) }

// Mat3 is a row-major 3x3 matrix, used for SO(3) rotations.
type Mat3 [3][3]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns a*b.
func (a Mat3) Mul(b Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Transpose returns aᵀ.
func (a Mat3) Transpose() Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

// MulVec returns a*v.
func (a Mat3) MulVec(v Vec3) Vec3 {
	var out Vec3
	for i := 0; i < 3; i++ {
		out[i] = a[i][0]*v[0] + a[i][1]*v[1] + a[i][2]*v[2]
	}
	return out
}

// SkewInverse extracts the so(3) vector ω such that skew(ω) equals the
// skew-symmetric part of m, i.e. vex((m - mᵀ)/2). Used by the rotational
// PID (Olfati-Saber orientation-error term).
func SkewInverse(m Mat3) Vec3 {
	return Vec3{
		0.5 * (m[2][1] - m[1][2]),
		0.5 * (m[0][2] - m[2][0]),
		0.5 * (m[1][0] - m[0][1]),
	}
}
