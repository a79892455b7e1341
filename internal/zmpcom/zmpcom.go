// Package zmpcom implements the inner balance loop of :
// a ZMP-CoM controller that turns the outer DCM loop's desired VRP/ZMP into
// a commanded CoM velocity/position, and the LIPM integrator that advances
// the CoM reference the controller tracks. Grounded on the teacher's
// FeedforwardPIDController (closed_loop/longitudinal_control/feedforward_pid_controller.go),
// which combines a feedforward term with proportional feedback on a
// measured/desired pair exactly the way combines v_ref with
// the ZMP and CoM error terms.
package zmpcom

import "github.com/GCS-LG/walking-controllers/internal/mathutil"

// Gains holds the ZMP_CONTROLLER config group.
type Gains struct {
	KZmp float64
	KCom float64
}

// StanceVelocityThreshold is the ‖DCM_d_dot‖ threshold below which the
// controller is considered to be in "stance phase" and its gains are
// reduced, and the boundary case named in
const StanceVelocityThreshold = 1e-3

// StanceGainScale scales Gains down while stance phase is detected,
// suppressing CoM drift from sensor noise while standing still rather than
// chasing it with full-authority feedback.
const StanceGainScale = 0.2

// Controller is the ZMP-CoM inner loop.
type Controller struct {
	gains Gains
}

// NewController constructs a Controller with the given gains.
func NewController(gains Gains) *Controller {
	return &Controller{gains: gains}
}

// IsStancePhase reports whether dcmDesiredVel is small enough to trigger
// the stance-phase gain reduction.
func IsStancePhase(dcmDesiredVel mathutil.Vec2) bool {
	return dcmDesiredVel.Norm() < StanceVelocityThreshold
}

// Update computes the desired CoM velocity:
//
//	CoM_vel_cmd = v_ref - kZmp(z - z_d) - kCom(c - c_ref)
//
// dcmDesiredVel is used only to detect stance phase; the reactive/MPC
// controller that produced vRef already folds DCM dynamics into v_ref.
func (c *Controller) Update(vRef, zmpMeasured, zmpDesired, comMeasured, comRef, dcmDesiredVel mathutil.Vec2) mathutil.Vec2 {
	kZmp, kCom := c.gains.KZmp, c.gains.KCom
	if IsStancePhase(dcmDesiredVel) {
		kZmp *= StanceGainScale
		kCom *= StanceGainScale
	}
	zmpErr := zmpMeasured.Sub(zmpDesired)
	comErr := comMeasured.Sub(comRef)
	out := vRef.Sub(zmpErr.Scale(kZmp))
	out = out.Sub(comErr.Scale(kCom))
	return out
}
