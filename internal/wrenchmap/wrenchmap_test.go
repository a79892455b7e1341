package wrenchmap

import (
	"math"
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

func testContactForces() config.ContactForces {
	return config.ContactForces{
		StaticFrictionCoefficient:    0.5,
		NumberOfPoints:               4,
		TorsionalFrictionCoefficient: 0.05,
		FootSize:                     [2][2]float64{{-0.1, 0.1}, {-0.05, 0.05}},
		MinimalNormalForce:           10,
	}
}

func TestDistributeDoubleSupportBalancesForce(t *testing.T) {
	cfg := testContactForces()
	m := NewMapper(cfg, 1.0)

	desired := kinematics.Wrench{Force: mathutil.Vec3{0, 0, 500}, Torque: mathutil.Vec3{0, 0, 0}}
	left := FootContact{PositionFromCoM: mathutil.Vec3{0, 0.1, -0.9}, Active: true, WeightFraction: 0.5}
	right := FootContact{PositionFromCoM: mathutil.Vec3{0, -0.1, -0.9}, Active: true, WeightFraction: 0.5}

	lw, rw, err := m.Distribute(desired, left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sumFz := lw.Force[2] + rw.Force[2]
	if math.Abs(sumFz-500) > 1e-3 {
		t.Fatalf("expected total vertical force 500, got %v", sumFz)
	}
	// Even split should land close to symmetric given equal weight fractions.
	if math.Abs(lw.Force[2]-rw.Force[2]) > 50 {
		t.Fatalf("expected roughly symmetric load sharing, got left=%v right=%v", lw.Force[2], rw.Force[2])
	}
}

func TestDistributeSingleSupportLoadsStanceFootOnly(t *testing.T) {
	cfg := testContactForces()
	m := NewMapper(cfg, 1.0)

	desired := kinematics.Wrench{Force: mathutil.Vec3{0, 0, 500}, Torque: mathutil.Vec3{0, 0, 0}}
	// The CoM sits above the stance foot: with zero desired torque, a 0.1 m
	// lateral offset would need |tx| = 50 N·m, beyond the CoP bound of
	// 0.05 m * 500 N = 25 N·m.
	left := FootContact{PositionFromCoM: mathutil.Vec3{0, 0, -0.9}, Active: true, WeightFraction: 1.0}
	right := FootContact{PositionFromCoM: mathutil.Vec3{0, -0.1, -0.9}, Active: false, WeightFraction: 0}

	lw, rw, err := m.Distribute(desired, left, right)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rw != (kinematics.Wrench{}) {
		t.Fatalf("expected zero wrench on the inactive foot, got %v", rw)
	}
	if math.Abs(lw.Force[2]-500) > 1e-3 {
		t.Fatalf("expected the stance foot to carry the full vertical load, got %v", lw.Force[2])
	}
}

func TestFrictionAndCoPRowsUnilateralityRow(t *testing.T) {
	cfg := testContactForces()
	a, l, u := FrictionAndCoPRows(cfg)
	if a[0] != [6]float64{0, 0, 1, 0, 0, 0} {
		t.Fatalf("expected first row to be the unilaterality row, got %v", a[0])
	}
	if l[0] != cfg.MinimalNormalForce {
		t.Fatalf("expected lower bound %v, got %v", cfg.MinimalNormalForce, l[0])
	}
	if u[0] <= l[0] {
		t.Fatalf("expected upper bound to exceed lower bound")
	}
}
