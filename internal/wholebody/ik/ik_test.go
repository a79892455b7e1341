package ik

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

func identityJacobian6(n int) *mat.Dense {
	// 6 x n Jacobian that is the identity on its first 6 columns (the base
	// block) and zero elsewhere, so a foot-velocity target maps directly
	// onto the base twist decision variables for a simple, checkable test.
	j := mat.NewDense(6, n, nil)
	for i := 0; i < 6; i++ {
		j.Set(i, i, 1)
	}
	return j
}

func zeroJacobian(rows, n int) *mat.Dense {
	return mat.NewDense(rows, n, nil)
}

func TestSolveSatisfiesFootVelocityConstraints(t *testing.T) {
	nJ := 2
	n := 6 + nJ
	cfg := config.InverseKinematicsQPSolver{
		UseCoMAsConstraint: false,
		KU:                 1,
		KB:                 1,
		JointRegularization: 1e-4,
	}
	solver := NewSolver(cfg, nJ)

	snap := kinematics.Snapshot{
		NumJoints:         nJ,
		LeftFootJacobian:  identityJacobian6(n),
		RightFootJacobian: zeroJacobian(6, n),
		NeckJacobian:      zeroJacobian(3, n),
		CoMJacobian:       zeroJacobian(3, n),
		NeckOrientation:   mathutil.Identity3(),
	}
	limits := kinematics.JointLimits{
		PositionLower: []float64{-1, -1},
		PositionUpper: []float64{1, 1},
		VelocityMax:   []float64{2, 2},
	}
	jointPositions := []float64{0, 0}

	targets := Targets{
		LeftFootVelocity: kinematics.Twist{Linear: mathutil.Vec3{0.1, 0, 0}},
		NeckOrientation:  mathutil.Identity3(),
		NeckGain:         1.0,
	}

	sol, err := solver.Solve(snap, limits, jointPositions, targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sol.AtVec(0)-0.1) > 1e-3 {
		t.Fatalf("expected base vx ~0.1 to satisfy the left-foot constraint, got %v", sol.AtVec(0))
	}
}

func TestSolveRespectsJointVelocityBoundsNearLimit(t *testing.T) {
	nJ := 1
	n := 6 + nJ
	cfg := config.InverseKinematicsQPSolver{KU: 5, KB: 5, JointRegularization: 1e-6}
	solver := NewSolver(cfg, nJ)

	snap := kinematics.Snapshot{
		NumJoints:         nJ,
		LeftFootJacobian:  zeroJacobian(6, n),
		RightFootJacobian: zeroJacobian(6, n),
		NeckJacobian:      zeroJacobian(3, n),
		CoMJacobian:       zeroJacobian(3, n),
		NeckOrientation:   mathutil.Identity3(),
	}
	limits := kinematics.JointLimits{
		PositionLower: []float64{-1},
		PositionUpper: []float64{1},
		VelocityMax:   []float64{10},
	}
	// Joint sitting right at its upper position limit: the tanh headroom
	// shaping should clamp the effective upper velocity bound near zero.
	jointPositions := []float64{1.0}
	targets := Targets{
		NeckOrientation:  mathutil.Identity3(),
		NeckGain:         1.0,
		JointVelocityReg: []float64{10}, // push hard toward the bound
	}

	sol, err := solver.Solve(snap, limits, jointPositions, targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.AtVec(6) > 0.1 {
		t.Fatalf("expected joint velocity to be clamped near zero at the position limit, got %v", sol.AtVec(6))
	}
}
