// Package admittance implements the admittance controller: it sits
// upstream of the torque whole-body QP (package
// wholebody/torque), turning foot pose/velocity/acceleration tracking
// errors plus measured contact wrench into the desired ν̇ that the torque
// QP then tracks as its own task. It solves its own small QP minimizing
// foot-tracking, neck-orientation and joint-regularization error, with the
// CoM task as its only hard constraint. Rigid-body dynamics are not imposed
// (the mass matrix and bias forces are not used), and there is no
// wrench/friction/CoP machinery, since admittance does not itself decide
// contact forces.
package admittance

import (
	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/cartesianpid"
	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/qpsolve"
)

// FootError bundles one foot's tracking error and measured wrench input to
// the admittance law.
type FootError struct {
	PositionError mathutil.Vec3
	VelocityError mathutil.Vec3
	Measured kinematics.Wrench
	// AdmittanceGain scales how strongly the measured wrench deflects the
	// commanded acceleration away from the pure tracking term, the
	// admittance law's compliance term.
	AdmittanceGain float64
}

// Targets bundles the per-tick references for the admittance QP.
type Targets struct {
	Left, Right FootError
	CoMDesiredPosition mathutil.Vec3
	CoMDesiredVelocity mathutil.Vec3
	CoMFeedforwardAccel mathutil.Vec3
	NeckDesiredOrientation mathutil.Mat3
	NeckDesiredAngVel mathutil.Vec3
	NeckDesiredAngAccel mathutil.Vec3
	JointVelocityReg []float64
}

// Controller is a warm-started admittance QP for nJ actuated joints.
type Controller struct {
	cfg config.AdmittanceController
	comCfg config.CoMTask
	neckCfg config.NeckOrientation
	regCfg config.RegularizationTask
	nJ int

	solver *qpsolve.Solver
	neckPID *cartesianpid.Rotational
}

// NewController constructs a Controller for a robot with nJ actuated
// joints.
func NewController(cfg config.AdmittanceController, comCfg config.CoMTask, neckCfg config.NeckOrientation, regCfg config.RegularizationTask, nJ int) *Controller {
	n := nJ + 6
	const m = 3 // CoM hard constraint only; foot/neck/joint tasks are costs, not rows
	return &Controller{
		cfg: cfg, comCfg: comCfg, neckCfg: neckCfg, regCfg: regCfg, nJ: nJ,
		solver: qpsolve.NewSolver(n, m),
		neckPID: cartesianpid.NewRotational(cartesianpid.RotationalGains{
			C0: neckCfg.C0, C1: neckCfg.C1, C2: neckCfg.C2,
		}),
	}
}

// Update solves the admittance QP and returns the commanded ν̇ for the
// torque whole-body QP to track.
func (c *Controller) Update(snap kinematics.Snapshot, targets Targets) (*mat.VecDense, error) {
	n := c.nJ + 6

	p := mat.NewDense(n, n, nil)
	q := mat.NewVecDense(n, nil)

	addFootTask(p, q, snap.LeftFootJacobian, snap.LeftFootBiasAcc, footAccelCommand(targets.Left, c.cfg.Kp, c.cfg.Kd), 1.0)
	addFootTask(p, q, snap.RightFootJacobian, snap.RightFootBiasAcc, footAccelCommand(targets.Right, c.cfg.Kp, c.cfg.Kd), 1.0)

	comPID := cartesianpid.NewLinear(cartesianpid.ScalarLinearGains(c.comCfg.Kp, c.comCfg.Kd))
	measured := mathutil.Vec3{snap.CoMPosition.At(0, 0), snap.CoMPosition.At(1, 0), snap.CoMPosition.At(2, 0)}
	comAccel := comPID.Compute(targets.CoMFeedforwardAccel, targets.CoMDesiredVelocity, targets.CoMDesiredPosition, snap.CoMVelocity, measured)

	if c.neckCfg.NeckWeight > 0 {
		wanted := c.neckPID.Compute(targets.NeckDesiredOrientation, targets.NeckDesiredAngVel, targets.NeckDesiredAngAccel, snap.NeckOrientation, mathutil.Vec3{})
		addFootTask(p, q, snap.NeckJacobian, kinematics.SpatialAcceleration{Angular: snap.NeckBiasAcc}, wanted, c.neckCfg.NeckWeight)
	}

	if c.regCfg.JointRegularization > 0 {
		for i := 0; i < c.nJ; i++ {
			col := 6 + i
			w := c.regCfg.JointRegularization
			if i < len(c.regCfg.JointRegularizationWeights) {
				w *= c.regCfg.JointRegularizationWeights[i]
			}
			target := 0.0
			if i < len(targets.JointVelocityReg) {
				target = targets.JointVelocityReg[i]
			}
			p.Set(col, col, p.At(col, col)+2*w)
			q.SetVec(col, q.AtVec(col)-2*w*target)
		}
	}

	m := 3
	a := mat.NewDense(m, n, nil)
	l := mat.NewVecDense(m, nil)
	u := mat.NewVecDense(m, nil)
	for i := 0; i < 3; i++ {
		for c := 0; c < n; c++ {
			a.Set(i, c, snap.CoMJacobian.At(i, c))
		}
		rhs := comAccel[i] - snap.CoMBiasAcc[i]
		l.SetVec(i, rhs)
		u.SetVec(i, rhs)
	}

	return c.solver.Solve(qpsolve.Problem{P: p, Q: q, A: a, L: l, U: u})
}

// footAccelCommand is the admittance law itself: a stiff tracking term
// toward zero position/velocity error, deflected by the measured wrench
// scaled by AdmittanceGain so contact with an unmodeled obstacle softens
// the commanded acceleration rather than fighting it.
func footAccelCommand(fe FootError, kp, kd float64) mathutil.Vec3 {
	tracking := fe.PositionError.Scale(kp).Add(fe.VelocityError.Scale(kd))
	compliance := fe.Measured.Force.Scale(-fe.AdmittanceGain)
	return tracking.Add(compliance)
}

func addFootTask(p *mat.Dense, q *mat.VecDense, j *mat.Dense, bias kinematics.SpatialAcceleration, target mathutil.Vec3, weight float64) {
	if j == nil || weight == 0 {
		return
	}
	rows, cols := j.Dims()
	targetVec := mat.NewVecDense(rows, nil)
	if rows == 6 {
		targetVec.SetVec(0, target[0]-bias.Linear[0])
		targetVec.SetVec(1, target[1]-bias.Linear[1])
		targetVec.SetVec(2, target[2]-bias.Linear[2])
		targetVec.SetVec(3, -bias.Angular[0])
		targetVec.SetVec(4, -bias.Angular[1])
		targetVec.SetVec(5, -bias.Angular[2])
	} else {
		for i := 0; i < rows && i < 3; i++ {
			targetVec.SetVec(i, target[i]-bias.Angular[i])
		}
	}

	jt := mat.NewDense(cols, rows, nil)
	jt.CloneFrom(j.T())
	jtj := mat.NewDense(cols, cols, nil)
	jtj.Mul(jt, j)
	for i := 0; i < cols; i++ {
		for k := 0; k < cols; k++ {
			p.Set(i, k, p.At(i, k)+2*weight*jtj.At(i, k))
		}
	}
	jtTarget := mat.NewVecDense(cols, nil)
	jtTarget.MulVec(jt, targetVec)
	for i := 0; i < cols; i++ {
		q.SetVec(i, q.AtVec(i)-2*weight*jtTarget.AtVec(i))
	}
}
