package stepadaptor

import (
	"math"
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

func defaultGains() Gains {
	return Gains{
		MaxStepDuration:      1.2,
		MinStepDuration:      0.4,
		MaxFootDisplacementX: 0.1,
		MaxFootDisplacementY: 0.1,
		CostTimeWeight:       1,
		CostPositionWeight:   1,
		CostOffsetWeight:     1,
	}
}

func TestUpdateAtNominalStaysNearNominal(t *testing.T) {
	gains := defaultGains()
	a := NewAdaptor(gains)
	nominal := Nominal{
		ImpactTime: 0.6,
		ZMP:        mathutil.Vec2{0.1, 0},
		DCMOffset:  mathutil.Vec2{0.02, 0},
	}
	omega := 3.0
	e0 := math.Exp(omega * nominal.ImpactTime)
	// Choose dcm0 so that e0*(dcm0-zmp) == offset exactly at nominal T,
	// i.e. the nominal point is already feasible and the QP should find a
	// near-zero correction.
	dcm0 := mathutil.Vec2{0.1 + 0.02/e0, 0}

	got := a.Update(nominal, dcm0, omega)
	if got.Degraded {
		t.Fatalf("expected a feasible solve, got degraded result")
	}
	if diff := got.ImpactTime - nominal.ImpactTime; diff > 0.05 || diff < -0.05 {
		t.Fatalf("expected impact time near nominal, got %v want ~%v", got.ImpactTime, nominal.ImpactTime)
	}
}

func TestSwingSplineStartsAndEndsAtGivenPoses(t *testing.T) {
	current := mathutil.Vec3{0, 0, 0}
	target := mathutil.Vec3{0.2, 0.05, 0}
	samples := SwingSpline(current, target, 0, 0.05, 5)
	if len(samples) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(samples))
	}
	if samples[0] != current {
		t.Fatalf("expected first sample to equal current pose, got %v", samples[0])
	}
	last := samples[len(samples)-1]
	if last[0] != target[0] || last[1] != target[1] {
		t.Fatalf("expected last sample xy to equal target, got %v", last)
	}
	if last[2] != 0 {
		t.Fatalf("expected zero height at the end of the spline, got %v", last[2])
	}
}

func TestCheckReachabilityFlagsOutOfBoundsNominal(t *testing.T) {
	gains := defaultGains()
	err := CheckReachability(gains, mathutil.Vec2{0, 0}, mathutil.Vec2{0.5, 0})
	if err == nil {
		t.Fatalf("expected a reachability error for a far-out-of-bounds nominal footprint")
	}
}
