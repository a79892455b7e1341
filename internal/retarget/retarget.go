// Package retarget defines the external hand-retargeting collaborator,
// interface only: a teleoperation or motion-capture front end that
// produces desired hand poses/twists for the whole-body IK solver's
// optional hand tasks
// (internal/wholebody/ik's Targets.LeftHandVelocity/RightHandVelocity).
// Nothing in this module implements HandClient; config.Retargeting only
// toggles whether the orchestrator consults one.
package retarget

import (
	"context"

	"github.com/GCS-LG/walking-controllers/internal/kinematics"
)

// HandClient is polled once per tick when config.Retargeting.Enabled is
// true. A nil *kinematics.Twist return for either hand means "no task this
// tick" and the orchestrator must leave that hand's IK task inactive
// rather than substitute a zero-velocity command.
type HandClient interface {
	HandTargets(ctx context.Context) (left, right *kinematics.Twist, err error)
}

// SmoothedClient wraps a HandClient and exponentially smooths its output
// with time constant Tau, matching config.Retargeting.SmoothTime. A raw
// HandClient is expected to jump between samples (teleoperation/mocap
// jitter); smoothing it here keeps that jitter out of the IK QP's cost
// gradient instead of pushing the filtering into the solver.
type SmoothedClient struct {
	inner HandClient
	tau float64

	haveLeft, haveRight bool
	left, right kinematics.Twist
}

// NewSmoothedClient wraps inner with an exponential smoother of time
// constant tau. tau <= 0 disables smoothing (pass-through).
func NewSmoothedClient(inner HandClient, tau float64) *SmoothedClient {
	return &SmoothedClient{inner: inner, tau: tau}
}

// HandTargets fetches the inner client's latest targets and applies
// first-order smoothing with step dt since the previous call.
func (s *SmoothedClient) HandTargets(ctx context.Context, dt float64) (left, right *kinematics.Twist, err error) {
	l, r, err := s.inner.HandTargets(ctx)
	if err != nil {
		return nil, nil, err
	}
	if l != nil {
		s.left = smoothTwist(s.left, *l, s.alpha(dt), s.haveLeft)
		s.haveLeft = true
		out := s.left
		left = &out
	} else {
		s.haveLeft = false
	}
	if r != nil {
		s.right = smoothTwist(s.right, *r, s.alpha(dt), s.haveRight)
		s.haveRight = true
		out := s.right
		right = &out
	} else {
		s.haveRight = false
	}
	return left, right, nil
}

func (s *SmoothedClient) alpha(dt float64) float64 {
	if s.tau <= 0 {
		return 1
	}
	return dt / (s.tau + dt)
}

func smoothTwist(prev, next kinematics.Twist, alpha float64, havePrev bool) kinematics.Twist {
	if !havePrev {
		return next
	}
	return kinematics.Twist{
		Linear: prev.Linear.Scale(1 - alpha).Add(next.Linear.Scale(alpha)),
		Angular: prev.Angular.Scale(1 - alpha).Add(next.Angular.Scale(alpha)),
	}
}
