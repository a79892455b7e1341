// Package cartesianpid implements the Cartesian PID bank of :
// a linear position/velocity PID and an SO(3) rotational PID, both
// producing a control acceleration from a feedforward term plus feedback
// on pose/velocity error. The linear variant's feedforward-plus-feedback
// split is grounded on the teacher's two-degrees-of-freedom controller
// (closed_loop/longitudinal_control/feedforward_pid_controller.go); it has
// no integral term, so no anti-windup is applied.
package cartesianpid

import "github.com/GCS-LG/walking-controllers/internal/mathutil"

// LinearGains holds per-axis (or, with all three equal, scalar) gains for
// the linear PID.
type LinearGains struct {
	Kp mathutil.Vec3
	Kd mathutil.Vec3
}

// ScalarLinearGains builds per-axis gains from two scalars.
func ScalarLinearGains(kp, kd float64) LinearGains {
	return LinearGains{
		Kp: mathutil.Vec3{kp, kp, kp},
		Kd: mathutil.Vec3{kd, kd, kd},
	}
}

// Linear is the positional Cartesian PID: output = a_d + Kd(v_d - v) +
// Kp(p_d - p).
type Linear struct {
	Gains LinearGains
}

// NewLinear constructs a Linear PID with the given gains.
func NewLinear(gains LinearGains) *Linear {
	return &Linear{Gains: gains}
}

// Compute returns the control acceleration for desired feedforward
// acceleration aff, desired velocity vd, desired position pd, measured
// velocity v and measured position p.
func (l *Linear) Compute(aff, vd, pd, v, p mathutil.Vec3) mathutil.Vec3 {
	velErr := vd.Sub(v)
	posErr := pd.Sub(p)
	return mathutil.Vec3{
		aff[0] + l.Gains.Kd[0]*velErr[0] + l.Gains.Kp[0]*posErr[0],
		aff[1] + l.Gains.Kd[1]*velErr[1] + l.Gains.Kp[1]*posErr[1],
		aff[2] + l.Gains.Kd[2]*velErr[2] + l.Gains.Kp[2]*posErr[2],
	}
}
