// Package torque implements the task-based torque (inverse-dynamics)
// whole-body QP, the largest single component of the control cascade.
// The decision vector is fixed-size across support phases:
//
//	x = [nu_dot (nJ+6); tau (nJ); w_L (6); w_R (6)]
//
// rather than a variable-length layout that omits the swing foot's wrench
// block in single support: the swing foot's block is
// kept but pinned to zero by an equality row, the same "fixed size,
// constrain the inactive block to zero" discipline package wrenchmap and
// package dcm's MPC already use for their own QPs, so a single Solver
// instance and decision-vector layout serves both support phases without
// re-sizing qpsolve.Solver mid-walk.
//
// Grounded on the teacher's mpc_controller.go for the overall
// assemble-Hessian/assemble-constraints/solve/extract-first-block shape,
// and on package wrenchmap for the friction/CoP/unilaterality row
// construction, reused verbatim per foot via wrenchmap.FrictionAndCoPRows.
package torque

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/cartesianpid"
	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/qpsolve"
	"github.com/GCS-LG/walking-controllers/internal/wrenchmap"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// MomentumConstraint is the optional angular-momentum-rate-of-change
// constraint hook. No concrete implementation ships here, leaving
// LinearMomentumConstraint/AngularMomentumConstraint an open question.
// NewSolver stores the value it is given, but Solve never calls Rows: the
// QP has no momentum rows whether the hook is nil or not.
type MomentumConstraint interface {
	// Rows returns additional constraint rows expressed over the
	// nu_dot sub-block (columns [0, nJ+6)) plus their [l,u] bounds.
	Rows(snap kinematics.Snapshot) (a *mat.Dense, l, u *mat.VecDense)
}

// FootTarget bundles one foot's per-tick task/contact state.
type FootTarget struct {
	Active bool
	DesiredAcceleration kinematics.SpatialAcceleration // used as a tracking cost when Active is false (swing)
	DesiredZMPLocal mathutil.Vec2 // CoP target relative to the foot origin, used when Active
	NormalForceEstimate float64 // linearization point for the ZMP-as-constraint rows
	WeightFraction float64
}

// Targets bundles the per-tick references fed into Solve.
type Targets struct {
	CoMDesiredPosition mathutil.Vec3
	CoMDesiredVelocity mathutil.Vec3
	CoMFeedforwardAccel mathutil.Vec3
	NeckDesiredOrientation mathutil.Mat3
	NeckDesiredAngVel mathutil.Vec3
	NeckDesiredAngAccel mathutil.Vec3
	Left FootTarget
	Right FootTarget
	JointPositionDesired []float64
	JointVelocityDesired []float64
	TorqueDesired []float64
}

// Solver is a warm-started task-based torque whole-body QP, fixed at
// construction time to a robot with nJ actuated joints.
type Solver struct {
	cfg config.TorqueQP
	nJ int
	dt float64

	solver *qpsolve.Solver
	neckPID *cartesianpid.Rotational
	comPID *cartesianpid.Linear

	prevTorque []float64
	firstTick bool

	momentum MomentumConstraint
}

// column layout helpers.
func (s *Solver) nuDotWidth() int { return s.nJ + 6 }
func (s *Solver) tauOffset() int { return s.nuDotWidth() }
func (s *Solver) wLOffset() int { return s.tauOffset() + s.nJ }
func (s *Solver) wROffset() int { return s.wLOffset() + 6 }
func (s *Solver) n() int { return s.wROffset() + 6 }

// NewSolver constructs a Solver for nJ actuated joints at tick period dt.
// momentum may be nil.
func NewSolver(cfg config.TorqueQP, nJ int, dt float64, momentum MomentumConstraint) *Solver {
	s := &Solver{
		cfg: cfg,
		nJ: nJ,
		dt: dt,
		prevTorque: make([]float64, nJ),
		firstTick: true,
		momentum: momentum,
		neckPID: cartesianpid.NewRotational(cartesianpid.RotationalGains{
			C0: cfg.NeckOrientation.C0,
			C1: cfg.NeckOrientation.C1,
			C2: cfg.NeckOrientation.C2,
		}),
		comPID: cartesianpid.NewLinear(cartesianpid.ScalarLinearGains(cfg.CoM.Kp, cfg.CoM.Kd)),
	}
	n := s.n()
	frictionRows := len(mustFrictionRows(cfg.ContactForces))
	m := (nJ + 6) /* dynamics */ + 6 /* left no-slip or zero */ + 6 /* right no-slip or zero */
	comRows := 3
	if cfg.CoM.ControlOnlyHeight {
		comRows = 1
	}
	m += comRows
	m += 2 /* left ZMP rows */ + 2 /* right ZMP rows */
	m += 2 * frictionRows
	m += nJ // rate-of-change on tau, one two-sided box row per joint
	s.solver = qpsolve.NewSolver(n, m)
	return s
}

func mustFrictionRows(cfg config.ContactForces) [][6]float64 {
	a, _, _ := wrenchmap.FrictionAndCoPRows(cfg)
	return a
}

// Solve assembles and solves the QP, returning the full decision vector.
func (s *Solver) Solve(snap kinematics.Snapshot, state kinematics.RobotState, targets Targets) (*mat.VecDense, error) {
	n := s.n()

	p := mat.NewDense(n, n, nil)
	q := mat.NewVecDense(n, nil)

	s.addNeckCost(p, q, snap, targets)
	s.addCoMCost(p, q, snap, targets)
	s.addSwingFootCost(p, q, snap, targets.Left, true)
	s.addSwingFootCost(p, q, snap, targets.Right, false)
	s.addJointRegularizationCost(p, q, state, targets)
	s.addTorqueRegularizationCost(p, q, targets)
	s.addWrenchRegularizationCost(p, q, targets)

	rows := s.countRows()
	a := mat.NewDense(rows, n, nil)
	l := mat.NewVecDense(rows, nil)
	u := mat.NewVecDense(rows, nil)

	row := s.addDynamicsConstraint(a, l, u, 0, snap)
	row = s.addContactConstraint(a, l, u, row, snap, targets.Left, s.wLOffset())
	row = s.addContactConstraint(a, l, u, row, snap, targets.Right, s.wROffset())
	row = s.addCoMConstraint(a, l, u, row, snap, targets)
	row = s.addZMPConstraint(a, l, u, row, targets.Left, s.wLOffset())
	row = s.addZMPConstraint(a, l, u, row, targets.Right, s.wROffset())
	row = s.addFrictionRows(a, l, u, row, targets.Left, s.wLOffset())
	row = s.addFrictionRows(a, l, u, row, targets.Right, s.wROffset())
	row = s.addRateOfChangeRows(a, l, u, row)
	_ = row

	sol, err := s.solver.Solve(qpsolve.Problem{P: p, Q: q, A: a, L: l, U: u})
	if err != nil {
		return nil, err
	}

	for i := 0; i < s.nJ; i++ {
		s.prevTorque[i] = sol.AtVec(s.tauOffset() + i)
	}
	s.firstTick = false
	return sol, nil
}

func (s *Solver) countRows() int {
	frictionRows := len(mustFrictionRows(s.cfg.ContactForces))
	comRows := 3
	if s.cfg.CoM.ControlOnlyHeight {
		comRows = 1
	}
	return (s.nJ + 6) + 6 + 6 + comRows + 2 + 2 + 2*frictionRows + s.nJ
}

// addDynamicsConstraint adds M*nu_dot - S^T*tau - J_L^T*w_L - J_R^T*w_R = -h.
func (s *Solver) addDynamicsConstraint(a *mat.Dense, l, u *mat.VecDense, startRow int, snap kinematics.Snapshot) int {
	rows := s.nuDotWidth()
	for r := 0; r < rows; r++ {
		for c := 0; c < rows; c++ {
			a.Set(startRow+r, c, snap.MassMatrix.At(r, c))
		}
		if r >= 6 {
			a.Set(startRow+r, s.tauOffset()+(r-6), -1)
		}
		for c := 0; c < 6; c++ {
			a.Set(startRow+r, s.wLOffset()+c, -snap.LeftFootJacobian.At(c, r))
			a.Set(startRow+r, s.wROffset()+c, -snap.RightFootJacobian.At(c, r))
		}
		l.SetVec(startRow+r, -snap.BiasForces.AtVec(r))
		u.SetVec(startRow+r, -snap.BiasForces.AtVec(r))
	}
	return startRow + rows
}

// addContactConstraint adds, for an active foot, the no-slip rows
// J_k*nu_dot = -BiasAcc_k, or for a swing (inactive) foot, pins its wrench
// block to zero.
func (s *Solver) addContactConstraint(a *mat.Dense, l, u *mat.VecDense, startRow int, snap kinematics.Snapshot, ft FootTarget, wOffset int) int {
	if ft.Active {
		var j *mat.Dense
		var bias kinematics.SpatialAcceleration
		if wOffset == s.wLOffset() {
			j = snap.LeftFootJacobian
			bias = snap.LeftFootBiasAcc
		} else {
			j = snap.RightFootJacobian
			bias = snap.RightFootBiasAcc
		}
		biasVec := []float64{bias.Linear[0], bias.Linear[1], bias.Linear[2], bias.Angular[0], bias.Angular[1], bias.Angular[2]}
		for r := 0; r < 6; r++ {
			for c := 0; c < s.nuDotWidth(); c++ {
				a.Set(startRow+r, c, j.At(r, c))
			}
			l.SetVec(startRow+r, -biasVec[r])
			u.SetVec(startRow+r, -biasVec[r])
		}
	} else {
		for r := 0; r < 6; r++ {
			a.Set(startRow+r, wOffset+r, 1)
			l.SetVec(startRow+r, 0)
			u.SetVec(startRow+r, 0)
		}
	}
	return startRow + 6
}

func (s *Solver) addCoMConstraint(a *mat.Dense, l, u *mat.VecDense, startRow int, snap kinematics.Snapshot, targets Targets) int {
	comRows := 3
	if s.cfg.CoM.ControlOnlyHeight {
		comRows = 1
	}
	accel := s.comTaskAccel(snap, targets)
	first := 0
	if s.cfg.CoM.ControlOnlyHeight {
		first = 2
	}
	for i := 0; i < comRows; i++ {
		axis := first + i
		for c := 0; c < s.nuDotWidth(); c++ {
			a.Set(startRow+i, c, snap.CoMJacobian.At(axis, c))
		}
		rhs := accel[axis] - snap.CoMBiasAcc[axis]
		l.SetVec(startRow+i, rhs)
		u.SetVec(startRow+i, rhs)
	}
	return startRow + comRows
}

// comTaskAccel computes a_com* = Kp(c_d-c) + Kd(v_d-v) + a_ff via the
// shared Cartesian linear PID (package cartesianpid), the same controller
// the admittance cascade (package admittance) uses for its own CoM task.
func (s *Solver) comTaskAccel(snap kinematics.Snapshot, targets Targets) mathutil.Vec3 {
	measured := mathutil.Vec3{snap.CoMPosition.At(0, 0), snap.CoMPosition.At(1, 0), snap.CoMPosition.At(2, 0)}
	return s.comPID.Compute(targets.CoMFeedforwardAccel, targets.CoMDesiredVelocity, targets.CoMDesiredPosition, snap.CoMVelocity, measured)
}

// addZMPConstraint adds the two linear CoP rows for an active foot's
// wrench block: tau_y = -k*zmpLocalX, tau_x = k*zmpLocalY, where k is the
// caller-supplied normal-force linearization point ('s
// "expressed linearly in w via two rows"). Inactive feet get two trivially
// satisfied wide-band rows so the row count stays fixed across support
// phases.
func (s *Solver) addZMPConstraint(a *mat.Dense, l, u *mat.VecDense, startRow int, ft FootTarget, wOffset int) int {
	const veryLarge = 1e6
	if ft.Active {
		k := ft.NormalForceEstimate
		// tau_x (wrench index 3) - k*zmpLocalY = 0
		a.Set(startRow, wOffset+3, 1)
		l.SetVec(startRow, k*ft.DesiredZMPLocal[1])
		u.SetVec(startRow, k*ft.DesiredZMPLocal[1])
		// tau_y (wrench index 4) + k*zmpLocalX = 0
		a.Set(startRow+1, wOffset+4, 1)
		l.SetVec(startRow+1, -k*ft.DesiredZMPLocal[0])
		u.SetVec(startRow+1, -k*ft.DesiredZMPLocal[0])
	} else {
		a.Set(startRow, wOffset+3, 1)
		l.SetVec(startRow, -veryLarge)
		u.SetVec(startRow, veryLarge)
		a.Set(startRow+1, wOffset+4, 1)
		l.SetVec(startRow+1, -veryLarge)
		u.SetVec(startRow+1, veryLarge)
	}
	return startRow + 2
}

func (s *Solver) addFrictionRows(a *mat.Dense, l, u *mat.VecDense, startRow int, ft FootTarget, wOffset int) int {
	rows, lb, ub := wrenchmap.FrictionAndCoPRows(s.cfg.ContactForces)
	const veryLarge = 1e6
	for i, r := range rows {
		row := startRow + i
		if ft.Active {
			for c := 0; c < 6; c++ {
				a.Set(row, wOffset+c, r[c])
			}
			l.SetVec(row, lb[i])
			u.SetVec(row, ub[i])
		} else {
			a.Set(row, wOffset, 0)
			l.SetVec(row, -veryLarge)
			u.SetVec(row, veryLarge)
		}
	}
	return startRow + len(rows)
}

// addRateOfChangeRows bounds |tau - prevTorque| <= maxRate*dt. On the first
// tick there is no previous torque sample, so the bound is widened by a
// grace factor rather than pinned to a zero-history value of zero.
func (s *Solver) addRateOfChangeRows(a *mat.Dense, l, u *mat.VecDense, startRow int) int {
	const firstTickGrace = 50.0
	bound := s.cfg.RateOfChange.MaximumRateOfChange * s.dt
	if s.firstTick {
		bound *= firstTickGrace
	}
	for i := 0; i < s.nJ; i++ {
		row := startRow + i
		a.Set(row, s.tauOffset()+i, 1)
		l.SetVec(row, s.prevTorque[i]-bound)
		u.SetVec(row, s.prevTorque[i]+bound)
	}
	return startRow + s.nJ
}

func (s *Solver) addNeckCost(p *mat.Dense, q *mat.VecDense, snap kinematics.Snapshot, targets Targets) {
	weight := s.cfg.NeckOrientation.NeckWeight
	if weight == 0 || snap.NeckJacobian == nil {
		return
	}
	// Measured neck angular velocity is not part of Snapshot; the
	// rotational PID's damping term is evaluated against zero, which is
	// exact at standstill and a minor simplification in motion.
	wanted := s.neckPID.Compute(targets.NeckDesiredOrientation, targets.NeckDesiredAngVel, targets.NeckDesiredAngAccel, snap.NeckOrientation, mathutil.Vec3{})
	target := wanted.Sub(snap.NeckBiasAcc)
	addQuadraticCost(p, q, snap.NeckJacobian, vecFromVec3(target), weight)
}

func (s *Solver) addCoMCost(p *mat.Dense, q *mat.VecDense, snap kinematics.Snapshot, targets Targets) {
	weight := s.cfg.ZMP.Weight
	if weight == 0 {
		return
	}
	accel := s.comTaskAccel(snap, targets)
	target := accel.Sub(snap.CoMBiasAcc)
	addQuadraticCost(p, q, snap.CoMJacobian, vecFromVec3(target), weight)
}

// addSwingFootCost adds a tracking cost toward DesiredAcceleration when
// the foot is not in contact: the swing foot is a tracking task.
func (s *Solver) addSwingFootCost(p *mat.Dense, q *mat.VecDense, snap kinematics.Snapshot, ft FootTarget, left bool) {
	if ft.Active {
		return
	}
	var j *mat.Dense
	var bias kinematics.SpatialAcceleration
	if left {
		j = snap.LeftFootJacobian
		bias = snap.LeftFootBiasAcc
	} else {
		j = snap.RightFootJacobian
		bias = snap.RightFootBiasAcc
	}
	target := mat.NewVecDense(6, []float64{
		ft.DesiredAcceleration.Linear[0] - bias.Linear[0],
		ft.DesiredAcceleration.Linear[1] - bias.Linear[1],
		ft.DesiredAcceleration.Linear[2] - bias.Linear[2],
		ft.DesiredAcceleration.Angular[0] - bias.Angular[0],
		ft.DesiredAcceleration.Angular[1] - bias.Angular[1],
		ft.DesiredAcceleration.Angular[2] - bias.Angular[2],
	})
	addQuadraticCost(p, q, j, target, s.cfg.Feet.Kp)
}

func (s *Solver) addJointRegularizationCost(p *mat.Dense, q *mat.VecDense, state kinematics.RobotState, targets Targets) {
	weight := s.cfg.RegularizationTask.JointRegularization
	if weight == 0 {
		return
	}
	for i := 0; i < s.nJ; i++ {
		col := 6 + i
		w := weight
		if i < len(s.cfg.RegularizationTask.JointRegularizationWeights) {
			w *= s.cfg.RegularizationTask.JointRegularizationWeights[i]
		}
		kd, kp := 0.0, 0.0
		if i < len(s.cfg.RegularizationTask.DerivativeGains) {
			kd = s.cfg.RegularizationTask.DerivativeGains[i]
		}
		if i < len(s.cfg.RegularizationTask.ProportionalGains) {
			kp = s.cfg.RegularizationTask.ProportionalGains[i]
		}
		qd, vd := 0.0, 0.0
		if i < len(targets.JointPositionDesired) {
			qd = targets.JointPositionDesired[i]
		}
		if i < len(targets.JointVelocityDesired) {
			vd = targets.JointVelocityDesired[i]
		}
		qMeasured, vMeasured := 0.0, 0.0
		if i < len(state.JointPositions) {
			qMeasured = state.JointPositions[i]
		}
		if i < len(state.JointVelocities) {
			vMeasured = state.JointVelocities[i]
		}
		target := kd*(vd-vMeasured) + kp*(qd-qMeasured)
		p.Set(col, col, p.At(col, col)+2*w)
		q.SetVec(col, q.AtVec(col)-2*w*target)
	}
}

func (s *Solver) addTorqueRegularizationCost(p *mat.Dense, q *mat.VecDense, targets Targets) {
	for i := 0; i < s.nJ; i++ {
		w := 1.0
		if i < len(s.cfg.RegularizationTorque.RegularizationWeights) {
			w = s.cfg.RegularizationTorque.RegularizationWeights[i]
		}
		if w == 0 {
			continue
		}
		col := s.tauOffset() + i
		target := 0.0
		if i < len(targets.TorqueDesired) {
			target = targets.TorqueDesired[i]
		}
		p.Set(col, col, p.At(col, col)+2*w)
		q.SetVec(col, q.AtVec(col)-2*w*target)
	}
}

func (s *Solver) addWrenchRegularizationCost(p *mat.Dense, q *mat.VecDense, targets Targets) {
	apply := func(offset int, ft FootTarget) {
		scale, off := s.cfg.RegularizationForce.Scale, s.cfg.RegularizationForce.Offset
		w := scale*math.Abs(ft.WeightFraction) + off
		if w == 0 {
			return
		}
		for c := 0; c < 6; c++ {
			col := offset + c
			p.Set(col, col, p.At(col, col)+2*w)
		}
	}
	apply(s.wLOffset(), targets.Left)
	apply(s.wROffset(), targets.Right)
}

func addQuadraticCost(p *mat.Dense, q *mat.VecDense, j *mat.Dense, target *mat.VecDense, weight float64) {
	if j == nil || weight == 0 {
		return
	}
	rows, cols := j.Dims()
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
	jtTarget.MulVec(jt, target)
	for i := 0; i < cols; i++ {
		q.SetVec(i, q.AtVec(i)-2*weight*jtTarget.AtVec(i))
	}
}

func vecFromVec3(v mathutil.Vec3) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v[0], v[1], v[2]})
}

// CheckRowBudget lets callers confirm the assembled constraint matrix has
// the row count the Solver was sized for, the first line of defense named
// in ("check at construction time") before a mismatched
// Jacobian width silently corrupts a solve.
func CheckRowBudget(s *Solver, gotRows int) error {
	want := s.countRows()
	if gotRows != want {
		return wverr.New(wverr.KindConfig, "constraint row count mismatch")
	}
	return nil
}
