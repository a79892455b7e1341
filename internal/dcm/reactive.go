// Package dcm implements the outer balance loop of : a
// reactive PD controller and an MPC alternative, both producing a desired
// Virtual Repellent Point / ZMP from the DCM tracking error. The reactive
// controller's integral term and anti-windup discipline are grounded on
// the teacher's PIDController (closed_loop/pid.go).
package dcm

import "github.com/GCS-LG/walking-controllers/internal/mathutil"

// ReactiveGains holds the DCM PD(+I) gains from the DCM_REACTIVE_CONTROLLER
// config group.
type ReactiveGains struct {
	Kp float64
	Ki float64
	// IntegralLimit bounds the accumulated integral term, the same
	// anti-windup discipline the teacher's PIDController applies to its
	// velocity-tracking integral.
	IntegralLimit float64
}

// Reactive is the outer DCM PD controller of :
//
//	VRP_d = DCM_d - (1/ω) DCM_d_dot + kp(DCM - DCM_d) + ki ∫(DCM - DCM_d)
type Reactive struct {
	gains ReactiveGains
	integral mathutil.Vec2
}

// NewReactive constructs a Reactive controller with zeroed integral state.
func NewReactive(gains ReactiveGains) *Reactive {
	return &Reactive{gains: gains}
}

// Reset clears the integral term, used on FSM transitions back to
// Prepared/Walking: resuming from Paused retains gains but a fresh walk
// should not inherit stale integral windup.
func (r *Reactive) Reset() {
	r.integral = mathutil.Vec2{}
}

// Update computes the desired VRP given measured/desired DCM position,
// desired DCM velocity, ω = sqrt(g/h), and the tick period dt (for the
// integral accumulation).
func (r *Reactive) Update(dcm, dcmDesired, dcmDesiredVel mathutil.Vec2, omega, dt float64) mathutil.Vec2 {
	err := dcm.Sub(dcmDesired)

	r.integral = r.integral.Add(err.Scale(dt))
	r.integral[0] = mathutil.Clamp(r.integral[0], -r.gains.IntegralLimit, r.gains.IntegralLimit)
	r.integral[1] = mathutil.Clamp(r.integral[1], -r.gains.IntegralLimit, r.gains.IntegralLimit)

	vrp := dcmDesired.Sub(dcmDesiredVel.Scale(1.0 / omega))
	vrp = vrp.Add(err.Scale(r.gains.Kp))
	vrp = vrp.Add(r.integral.Scale(r.gains.Ki))
	return vrp
}
