package cartesianpid

import "github.com/GCS-LG/walking-controllers/internal/mathutil"

// RotationalGains holds the three positive scalar gains of the so(3) PID
// (Olfati-Saber orientation-error term).
type RotationalGains struct {
	C0, C1, C2 float64
}

// Rotational is the orientation PID defined on SO(3). It has no
// persistent state: the manifold error is recomputed from the current
// (Rd, wd, wdDot, R, w) each call.
type Rotational struct {
	Gains RotationalGains
}

// NewRotational constructs a Rotational PID with the given gains.
func NewRotational(gains RotationalGains) *Rotational {
	return &Rotational{Gains: gains}
}

// Compute implements:
//
//	output = wd_dot - c0*vex(R Rd^T - Rd R^T) - c1*(w - R Rd^T wd) + c2*R Rd^T wd
//
// where Rd, wd, wdDot are the desired orientation/angular velocity/angular
// acceleration, and R, w are measured.
func (rp *Rotational) Compute(rd mathutil.Mat3, wd, wdDot mathutil.Vec3, r mathutil.Mat3, w mathutil.Vec3) mathutil.Vec3 {
	rRdT := r.Mul(rd.Transpose())
	rdRT := rd.Mul(r.Transpose())

	orientationErrorMat := subMat3(rRdT, rdRT)
	orientationError := mathutil.SkewInverse(orientationErrorMat)

	rRdTwd := rRdT.MulVec(wd)

	out := wdDot
	out = out.Sub(orientationError.Scale(rp.Gains.C0))
	out = out.Sub(w.Sub(rRdTwd).Scale(rp.Gains.C1))
	out = out.Add(rRdTwd.Scale(rp.Gains.C2))
	return out
}

func subMat3(a, b mathutil.Mat3) mathutil.Mat3 {
	var out mathutil.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = a[i][j] - b[i][j]
		}
	}
	return out
}
