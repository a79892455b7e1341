// Package ik implements the inverse-kinematics variant of the whole-body QP
// : a velocity-level QP over a decision vector
//
//	x = [base twist (6); joint velocities (nJ)]
//
// columns ordered to match kinematics.Snapshot's (nJ+6)-wide Jacobians and
// mass matrix (base block first, then joints), the same convention the
// torque whole-body QP (package wholebody/torque) uses for its
// acceleration decision vector.
//
// Grounded on the teacher's mpc_controller.go for the QP-cost-assembly
// pattern (accumulate weighted quadratic terms into a shared Hessian/
// gradient pair, one task at a time) and on cartesianpid for the neck
// orientation-error machinery reused here at the velocity level.
package ik

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/qpsolve"
)

// Targets bundles the per-tick task references consumed by Solve.
type Targets struct {
	LeftFootVelocity kinematics.Twist
	RightFootVelocity kinematics.Twist
	CoMVelocity mathutil.Vec3
	NeckOrientation mathutil.Mat3
	NeckGain float64
	LeftHandVelocity *kinematics.Twist // nil if no hand task active
	RightHandVelocity *kinematics.Twist
	JointVelocityReg []float64 // desired joint velocities for the regularization cost
}

// Solver is a warm-started velocity whole-body QP.
type Solver struct {
	cfg config.InverseKinematicsQPSolver
	nJ int
	solver *qpsolve.Solver
}

// NewSolver constructs a Solver for a robot with nJ actuated joints.
func NewSolver(cfg config.InverseKinematicsQPSolver, nJ int) *Solver {
	n := 6 + nJ
	m := 12 // 6 left-foot + 6 right-foot hard constraint rows
	if cfg.UseCoMAsConstraint {
		m += 3
	}
	m += nJ // joint-velocity box rows
	return &Solver{cfg: cfg, nJ: nJ, solver: qpsolve.NewSolver(n, m)}
}

// Solve assembles and solves the velocity QP, returning the decision
// vector [base twist; joint velocities]. jointPositions are the measured
// joint angles used to shape the velocity bounds toward the position
// limits ('s tanh headroom shaping).
func (s *Solver) Solve(snap kinematics.Snapshot, limits kinematics.JointLimits, jointPositions []float64, targets Targets) (*mat.VecDense, error) {
	n := 6 + s.nJ

	p := mat.NewDense(n, n, nil)
	q := mat.NewVecDense(n, nil)

	addTask(p, q, snap.NeckJacobian, vecFromVec3(neckVelocityCommand(targets.NeckOrientation, snap.NeckOrientation, targets.NeckGain)), 1.0)
	addTask(p, q, snap.CoMJacobian, vecFromVec3(targets.CoMVelocity), comCostWeight(s.cfg))
	if targets.LeftHandVelocity != nil {
		addTask(p, q, snap.LeftHandJacobian, vecFromTwist(*targets.LeftHandVelocity), 1.0)
	}
	if targets.RightHandVelocity != nil {
		addTask(p, q, snap.RightHandJacobian, vecFromTwist(*targets.RightHandVelocity), 1.0)
	}
	addJointRegularization(p, q, s.nJ, targets.JointVelocityReg, s.cfg.JointRegularization)

	mRows := 12
	if s.cfg.UseCoMAsConstraint {
		mRows += 3
	}
	mRows += s.nJ
	a := mat.NewDense(mRows, n, nil)
	l := mat.NewVecDense(mRows, nil)
	u := mat.NewVecDense(mRows, nil)

	copyRows(a, 0, snap.LeftFootJacobian)
	setEquality(l, u, 0, vecFromTwist(targets.LeftFootVelocity))
	copyRows(a, 6, snap.RightFootJacobian)
	setEquality(l, u, 6, vecFromTwist(targets.RightFootVelocity))

	next := 12
	if s.cfg.UseCoMAsConstraint {
		copyRows(a, next, snap.CoMJacobian)
		setEquality(l, u, next, vecFromVec3(targets.CoMVelocity))
		next += 3
	}

	for i := 0; i < s.nJ; i++ {
		row := next + i
		a.Set(row, 6+i, 1)
		vMax := limits.VelocityMax[i]
		qMax := limits.PositionUpper[i]
		qMin := limits.PositionLower[i]
		qi := jointPositions[i]
		vMaxEff := math.Tanh(s.cfg.KU*(qMax-qi)) * vMax
		vMinEff := -math.Tanh(s.cfg.KB*(qi-qMin)) * vMax
		l.SetVec(row, vMinEff)
		u.SetVec(row, vMaxEff)
	}

	sol, err := s.solver.Solve(qpsolve.Problem{P: p, Q: q, A: a, L: l, U: u})
	if err != nil {
		return nil, err
	}
	return sol, nil
}

func comCostWeight(cfg config.InverseKinematicsQPSolver) float64 {
	if cfg.UseCoMAsConstraint {
		return 0 // CoM handled as a hard constraint, not a cost term
	}
	return 1.0
}

// neckVelocityCommand produces a proportional angular-velocity command
// driving the measured neck orientation toward the desired one, reusing
// the so(3) error convention from cartesianpid.Rotational but at the
// velocity level (no feedforward/damping terms, since there is no neck
// twist feedback in the IK variant).
func neckVelocityCommand(rd, r mathutil.Mat3, gain float64) mathutil.Vec3 {
	err := mathutil.SkewInverse(subMat3(r.Mul(rd.Transpose()), rd.Mul(r.Transpose())))
	return err.Scale(-gain)
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

func vecFromVec3(v mathutil.Vec3) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v[0], v[1], v[2]})
}

func vecFromTwist(t kinematics.Twist) *mat.VecDense {
	return mat.NewVecDense(6, []float64{
		t.Linear[0], t.Linear[1], t.Linear[2],
		t.Angular[0], t.Angular[1], t.Angular[2],
	})
}

func copyRows(dst *mat.Dense, startRow int, src *mat.Dense) {
	rows, cols := src.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst.Set(startRow+r, c, src.At(r, c))
		}
	}
}

func setEquality(l, u *mat.VecDense, startRow int, target *mat.VecDense) {
	n := target.Len()
	for i := 0; i < n; i++ {
		l.SetVec(startRow+i, target.AtVec(i))
		u.SetVec(startRow+i, target.AtVec(i))
	}
}

// addTask accumulates a weighted quadratic tracking cost
// weight*||J x - target||^2 into the shared (P,q) pair. J may be nil
// (inactive task, e.g. no hand command this tick).
func addTask(p *mat.Dense, q *mat.VecDense, j *mat.Dense, target *mat.VecDense, weight float64) {
	if j == nil || weight == 0 {
		return
	}
	rows, n := j.Dims()
	jt := mat.NewDense(n, rows, nil)
	jt.CloneFrom(j.T())

	jtj := mat.NewDense(n, n, nil)
	jtj.Mul(jt, j)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			p.Set(i, k, p.At(i, k)+2*weight*jtj.At(i, k))
		}
	}

	jtTarget := mat.NewVecDense(n, nil)
	jtTarget.MulVec(jt, target)
	for i := 0; i < n; i++ {
		q.SetVec(i, q.AtVec(i)-2*weight*jtTarget.AtVec(i))
	}
}

// addJointRegularization adds weight*||qdot - qdotReg||^2 for the joint
// velocity block (columns 6..6+nJ).
func addJointRegularization(p *mat.Dense, q *mat.VecDense, nJ int, reg []float64, weight float64) {
	if weight == 0 {
		return
	}
	for i := 0; i < nJ; i++ {
		col := 6 + i
		p.Set(col, col, p.At(col, col)+2*weight)
		target := 0.0
		if i < len(reg) {
			target = reg[i]
		}
		q.SetVec(col, q.AtVec(col)-2*weight*target)
	}
}
