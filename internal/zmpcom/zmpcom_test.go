package zmpcom

import (
	"math"
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

func TestUpdateZeroErrorReturnsFeedforward(t *testing.T) {
	c := NewController(Gains{KZmp: 5, KCom: 3})
	vRef := mathutil.Vec2{0.1, -0.05}
	zmp := mathutil.Vec2{0.2, 0.1}
	com := mathutil.Vec2{0.0, 0.05}
	// Fast DCM velocity keeps this out of stance phase.
	fastVel := mathutil.Vec2{1, 0}

	out := c.Update(vRef, zmp, zmp, com, com, fastVel)
	if out != vRef {
		t.Fatalf("expected feedforward %v, got %v", vRef, out)
	}
}

func TestUpdateStancePhaseReducesGain(t *testing.T) {
	c := NewController(Gains{KZmp: 10, KCom: 0})
	vRef := mathutil.Vec2{}
	zmpMeasured := mathutil.Vec2{0.01, 0}
	zmpDesired := mathutil.Vec2{}
	com := mathutil.Vec2{}

	movingVel := mathutil.Vec2{0.5, 0}
	stillVel := mathutil.Vec2{0, 0}

	movingOut := c.Update(vRef, zmpMeasured, zmpDesired, com, com, movingVel)
	stillOut := c.Update(vRef, zmpMeasured, zmpDesired, com, com, stillVel)

	if math.Abs(stillOut[0]) >= math.Abs(movingOut[0]) {
		t.Fatalf("expected stance-phase correction %v to be smaller in magnitude than moving correction %v", stillOut, movingOut)
	}
}

func TestIsStancePhaseThreshold(t *testing.T) {
	if IsStancePhase(mathutil.Vec2{0.01, 0}) {
		t.Fatalf("velocity above threshold should not be stance phase")
	}
	if !IsStancePhase(mathutil.Vec2{1e-5, 0}) {
		t.Fatalf("velocity below threshold should be stance phase")
	}
}

func TestLIPMIntegratorStepMatchesAnalyticAcceleration(t *testing.T) {
	// Start the CoM slightly ahead of a fixed ZMP: the inverted-pendulum
	// dynamics should pull it further away (this subsystem is only stable
	// in closed loop with the DCM controller feeding a bounded z_d), so we
	// only assert the integration step matches the analytic acceleration.
	integ := NewLIPMIntegrator(mathutil.Vec2{0.05, 0}, mathutil.Vec2{})
	omega := 3.0
	dt := 0.01
	zmp := mathutil.Vec2{}

	wantAccel := integ.Position().Sub(zmp).Scale(omega * omega)
	integ.Step(zmp, omega, dt)

	wantVel := mathutil.Vec2{}.Add(wantAccel.Scale(dt))
	if math.Abs(integ.Velocity()[0]-wantVel[0]) > 1e-9 {
		t.Fatalf("expected velocity %v, got %v", wantVel, integ.Velocity())
	}
}

func TestLIPMIntegratorResetClearsState(t *testing.T) {
	integ := NewLIPMIntegrator(mathutil.Vec2{1, 1}, mathutil.Vec2{1, 1})
	integ.Reset(mathutil.Vec2{}, mathutil.Vec2{})
	if integ.Position() != (mathutil.Vec2{}) || integ.Velocity() != (mathutil.Vec2{}) {
		t.Fatalf("expected zeroed state after reset, got pos=%v vel=%v", integ.Position(), integ.Velocity())
	}
}
