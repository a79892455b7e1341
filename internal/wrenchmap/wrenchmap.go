// Package wrenchmap implements the contact-wrench mapper of :
// given a desired centroidal wrench, it distributes it across the feet by
// solving a QP subject to the same friction-pyramid/CoP/unilaterality
// constraints as the torque whole-body QP , weighted by the commanded
// per-foot weight-fraction split. FrictionAndCoPRows is exported so the
// torque whole-body QP (package wholebody/torque) can apply the identical
// per-foot contact constraint rows to its own, larger decision vector
// rather than duplicating the linearization.
//
// Grounded on the teacher's mpc_controller.go, which also builds its QP's
// inequality rows from a small fixed set of physical bounds (acceleration,
// jerk) assembled once and reused across the solve; the friction/CoP rows
// here play the same role for contact wrenches.
package wrenchmap

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/qpsolve"
)

// wrenchDim is the size of a single 6-D wrench block: [fx,fy,fz,tx,ty,tz]
// in the local, (approximately) world-aligned contact frame.
const wrenchDim = 6

// FrictionAndCoPRows returns the local 6-variable inequality rows enforcing
// unilaterality, the N-sided linearized friction pyramid, torsional
// friction, and the foot-rectangle CoP bound, for one foot's wrench block.
// Rows are returned with Ax <= u semantics; l is -infinity (represented as
// -1e6, the same "very large" convention qpsolve callers use elsewhere) for
// every row except the unilaterality row.
func FrictionAndCoPRows(cfg config.ContactForces) (a [][6]float64, l, u []float64) {
	const veryLarge = 1e6
	n := cfg.NumberOfPoints
	if n < 3 {
		n = 4
	}

	// Unilaterality: fz >= MinimalNormalForce.
	a = append(a, [6]float64{0, 0, 1, 0, 0, 0})
	l = append(l, cfg.MinimalNormalForce)
	u = append(u, veryLarge)

	// N-sided friction pyramid: cos(theta_i)*fx + sin(theta_i)*fy - mu*fz <= 0.
	mu := cfg.StaticFrictionCoefficient
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		a = append(a, [6]float64{math.Cos(theta), math.Sin(theta), -mu, 0, 0, 0})
		l = append(l, -veryLarge)
		u = append(u, 0)
	}

	// Torsional friction: |tz| <= mu_t * fz.
	mut := cfg.TorsionalFrictionCoefficient
	a = append(a, [6]float64{0, 0, -mut, 0, 0, 1})
	l = append(l, -veryLarge)
	u = append(u, 0)
	a = append(a, [6]float64{0, 0, -mut, 0, 0, -1})
	l = append(l, -veryLarge)
	u = append(u, 0)

	// CoP inside the foot rectangle: |tx| <= Ly*fz, |ty| <= Lx*fz.
	ly := cfg.FootSize[1][1]
	lx := cfg.FootSize[0][1]
	a = append(a, [6]float64{0, 0, -ly, 1, 0, 0})
	l = append(l, -veryLarge)
	u = append(u, 0)
	a = append(a, [6]float64{0, 0, -ly, -1, 0, 0})
	l = append(l, -veryLarge)
	u = append(u, 0)
	a = append(a, [6]float64{0, 0, -lx, 0, 1, 0})
	l = append(l, -veryLarge)
	u = append(u, 0)
	a = append(a, [6]float64{0, 0, -lx, 0, -1, 0})
	l = append(l, -veryLarge)
	u = append(u, 0)

	return a, l, u
}

// FootContact is one foot's geometry/activity input to the mapper.
type FootContact struct {
	// PositionFromCoM is the foot contact frame's origin expressed
	// relative to the CoM, used to build the moment-balance equation.
	PositionFromCoM mathutil.Vec3
	Active bool
	// WeightFraction is the commanded load-sharing fraction for this foot
	// (e.g. 1.0 in that foot's single support, 0.5/0.5 in double support).
	WeightFraction float64
}

// Mapper distributes a desired centroidal wrench across up to two feet.
type Mapper struct {
	cfg config.ContactForces
	regW float64
	solver *qpsolve.Solver
}

// NewMapper constructs a Mapper. regWeight is the RegularizationWeight from
// the CONTACT_WRENCH_MAPPING config group.
func NewMapper(cfg config.ContactForces, regWeight float64) *Mapper {
	n := 2 * wrenchDim
	rowsPerFoot := len(mustRows(cfg))
	m := 6 + 2*rowsPerFoot // 6 balance equalities + per-foot inequality rows
	return &Mapper{cfg: cfg, regW: regWeight, solver: qpsolve.NewSolver(n, m)}
}

func mustRows(cfg config.ContactForces) [][6]float64 {
	a, _, _ := FrictionAndCoPRows(cfg)
	return a
}

// Distribute solves for the per-foot wrenches that sum (with moment
// transport) to desired, weighted by each foot's commanded fraction.
func (m *Mapper) Distribute(desired kinematics.Wrench, left, right FootContact) (leftWrench, rightWrench kinematics.Wrench, err error) {
	n := 2 * wrenchDim
	rows := mustRows(m.cfg)
	rowsPerFoot := len(rows)
	mRows := 6 + 2*rowsPerFoot

	p := mat.NewDense(n, n, nil)
	const eps = 1e-3
	leftWeight := m.regW / math.Max(left.WeightFraction, eps)
	rightWeight := m.regW / math.Max(right.WeightFraction, eps)
	for i := 0; i < wrenchDim; i++ {
		p.Set(i, i, leftWeight)
		p.Set(wrenchDim+i, wrenchDim+i, rightWeight)
	}
	q := mat.NewVecDense(n, nil)

	a := mat.NewDense(mRows, n, nil)
	l := mat.NewVecDense(mRows, nil)
	u := mat.NewVecDense(mRows, nil)

	// Force balance: fL + fR = F_des (rows 0-2).
	for i := 0; i < 3; i++ {
		a.Set(i, i, 1)
		a.Set(i, wrenchDim+i, 1)
		l.SetVec(i, desired.Force[i])
		u.SetVec(i, desired.Force[i])
	}
	// Moment balance about CoM: tL + pL x fL + tR + pR x fR = Tau_des (rows 3-5).
	// addCross adds the (p x f) coefficients for moment axis `axis`
	// (0=x,1=y,2=z) acting on the 6-wide wrench block starting at `base`:
	// axis 0: coeff(fy) = -pz, coeff(fz) = +py
	// axis 1: coeff(fx) = +pz, coeff(fz) = -px
	// axis 2: coeff(fx) = -py, coeff(fy) = +px
	addCross := func(row, axis, base int, pos mathutil.Vec3) {
		switch axis {
		case 0:
			a.Set(row, base+1, -pos[2])
			a.Set(row, base+2, pos[1])
		case 1:
			a.Set(row, base+0, pos[2])
			a.Set(row, base+2, -pos[0])
		case 2:
			a.Set(row, base+0, -pos[1])
			a.Set(row, base+1, pos[0])
		}
	}
	for axis := 0; axis < 3; axis++ {
		row := 3 + axis
		torqueOffset := 3 + axis // tx/ty/tz sit at offset 3..5 within a 6-block
		a.Set(row, 0+torqueOffset, 1)
		addCross(row, axis, 0, left.PositionFromCoM)
		a.Set(row, wrenchDim+torqueOffset, 1)
		addCross(row, axis, wrenchDim, right.PositionFromCoM)
		l.SetVec(row, desired.Torque[axis])
		u.SetVec(row, desired.Torque[axis])
	}

	// Per-foot friction/CoP/unilaterality rows, or a hard zero if inactive.
	placeFootRows := func(startRow, base int, active bool) {
		for i, r := range rows {
			row := startRow + i
			switch {
			case active:
				for c := 0; c < wrenchDim; c++ {
					a.Set(row, base+c, r[c])
				}
				l.SetVec(row, mustL(m.cfg)[i])
				u.SetVec(row, mustU(m.cfg)[i])
			case i < wrenchDim:
				// Force the inactive foot's wrench to zero: its first
				// wrenchDim rows become one equality row per component.
				a.Set(row, base+i, 1)
				l.SetVec(row, 0)
				u.SetVec(row, 0)
			default:
				// The remaining rows stay empty, with a trivially
				// satisfied wide band.
				l.SetVec(row, -1e6)
				u.SetVec(row, 1e6)
			}
		}
	}
	placeFootRows(6, 0, left.Active)
	placeFootRows(6+rowsPerFoot, wrenchDim, right.Active)

	sol, solveErr := m.solver.Solve(qpsolve.Problem{P: p, Q: q, A: a, L: l, U: u})
	if solveErr != nil {
		return kinematics.Wrench{}, kinematics.Wrench{}, solveErr
	}

	leftWrench = kinematics.Wrench{
		Force: mathutil.Vec3{sol.AtVec(0), sol.AtVec(1), sol.AtVec(2)},
		Torque: mathutil.Vec3{sol.AtVec(3), sol.AtVec(4), sol.AtVec(5)},
	}
	rightWrench = kinematics.Wrench{
		Force: mathutil.Vec3{sol.AtVec(6), sol.AtVec(7), sol.AtVec(8)},
		Torque: mathutil.Vec3{sol.AtVec(9), sol.AtVec(10), sol.AtVec(11)},
	}
	if !left.Active {
		leftWrench = kinematics.Wrench{}
	}
	if !right.Active {
		rightWrench = kinematics.Wrench{}
	}
	return leftWrench, rightWrench, nil
}

func mustL(cfg config.ContactForces) []float64 {
	_, l, _ := FrictionAndCoPRows(cfg)
	return l
}

func mustU(cfg config.ContactForces) []float64 {
	_, _, u := FrictionAndCoPRows(cfg)
	return u
}
