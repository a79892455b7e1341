// Package stepadaptor implements the single-support step adaptation of
// : a small QP, solved once per tick, that re-optimizes the
// next step's impact time, landing position and DCM offset around their
// planned nominal values using the closed-form DCM propagation
//
//	DCM(T) = Z + e^{ωT}(DCM0 - Z)
//
// Grounded on the teacher's AutoMPCController (closed_loop/auto_mpc_controller.go),
// which linearizes a small nonlinear residual around the previous solution
// and re-solves a bounded QP every cycle rather than running a full
// nonlinear program inline; this package applies the same discipline to
// the step-timing/footprint residual instead of a longitudinal-speed one.
package stepadaptor

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/qpsolve"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// Gains holds the STEP_ADAPTATOR config group.
type Gains struct {
	MaxStepDuration float64
	MinStepDuration float64
	MaxFootDisplacementX float64
	MaxFootDisplacementY float64
	CostTimeWeight float64
	CostPositionWeight float64
	CostOffsetWeight float64
}

// Nominal is the planner's unadapted prediction for the upcoming step,
// the point the QP's cost penalizes deviation from.
type Nominal struct {
	ImpactTime float64
	ZMP mathutil.Vec2
	DCMOffset mathutil.Vec2
}

// Adapted is the step adaptor's output: an adjusted impact time, footprint
// and DCM offset. The swing-foot spline is not part of it; SwingSpline
// builds that separately from the adapted target.
type Adapted struct {
	ImpactTime float64
	ZMP mathutil.Vec2
	DCMOffset mathutil.Vec2
	Degraded bool // true if the QP failed and nominal was used verbatim
}

// Adaptor re-optimizes step timing/footprint each tick it is invoked.
// Triggered only during single support.
type Adaptor struct {
	gains Gains
	solver *qpsolve.Solver
}

// NewAdaptor constructs an Adaptor; the QP is fixed at 5 decision variables
// (dT, dZx, dZy, dOffx, dOffy) and 2 equality rows for the linearized DCM
// propagation residual, with time/footprint bounds folded into per-variable
// inequality rows appended after those two.
func NewAdaptor(gains Gains) *Adaptor {
	const n = 5 // dT, dZx, dZy, dOffx, dOffy
	const m = 7 // 2 equality rows (DCM propagation residual) + 5 bound rows
	return &Adaptor{gains: gains, solver: qpsolve.NewSolver(n, m)}
}

// Update solves the linearized step-adaptation QP around the planner's
// nominal values, given the current measured DCM, and returns the adapted
// impact time/footprint/offset. omega is
// sqrt(g/h) at the current CoM height.
func (a *Adaptor) Update(nominal Nominal, dcm0 mathutil.Vec2, omega float64) Adapted {
	e0 := math.Exp(omega * nominal.ImpactTime)
	d0 := dcm0.Sub(nominal.ZMP)

	const n = 5
	const m = 7 // 2 equality + 5 bound rows
	p := mat.NewDense(n, n, nil)
	p.Set(0, 0, a.gains.CostTimeWeight)
	p.Set(1, 1, a.gains.CostPositionWeight)
	p.Set(2, 2, a.gains.CostPositionWeight)
	p.Set(3, 3, a.gains.CostOffsetWeight)
	p.Set(4, 4, a.gains.CostOffsetWeight)
	q := mat.NewVecDense(n, nil)

	aRows := mat.NewDense(m, n, nil)
	l := mat.NewVecDense(m, nil)
	u := mat.NewVecDense(m, nil)

	// Row 0: linearized x-axis DCM propagation residual == 0. The residual
	// at the nominal point, e0*d0 - offset, moves to the right-hand side.
	aRows.Set(0, 0, omega*e0*d0[0])
	aRows.Set(0, 1, -e0)
	aRows.Set(0, 3, -1)
	l.SetVec(0, nominal.DCMOffset[0]-e0*d0[0])
	u.SetVec(0, nominal.DCMOffset[0]-e0*d0[0])

	// Row 1: linearized y-axis residual == 0.
	aRows.Set(1, 0, omega*e0*d0[1])
	aRows.Set(1, 2, -e0)
	aRows.Set(1, 4, -1)
	l.SetVec(1, nominal.DCMOffset[1]-e0*d0[1])
	u.SetVec(1, nominal.DCMOffset[1]-e0*d0[1])

	// Row 2: impact-time bound, dT in [min-T0, max-T0].
	aRows.Set(2, 0, 1)
	l.SetVec(2, a.gains.MinStepDuration-nominal.ImpactTime)
	u.SetVec(2, a.gains.MaxStepDuration-nominal.ImpactTime)

	// Rows 3,4: footprint reachability, dZ bounded by the max displacement
	// margin around the nominal (already-reachable) footprint.
	aRows.Set(3, 1, 1)
	l.SetVec(3, -a.gains.MaxFootDisplacementX)
	u.SetVec(3, a.gains.MaxFootDisplacementX)
	aRows.Set(4, 2, 1)
	l.SetVec(4, -a.gains.MaxFootDisplacementY)
	u.SetVec(4, a.gains.MaxFootDisplacementY)

	// Rows 5,6: DCM offset kept within a generous margin of nominal so a
	// degenerate linearization can't send it to an unreasonable value.
	const offsetMargin = 1.0
	aRows.Set(5, 3, 1)
	l.SetVec(5, -offsetMargin)
	u.SetVec(5, offsetMargin)
	aRows.Set(6, 4, 1)
	l.SetVec(6, -offsetMargin)
	u.SetVec(6, offsetMargin)

	sol, err := a.solver.Solve(qpsolve.Problem{P: p, Q: q, A: aRows, L: l, U: u})
	if err != nil {
		return Adapted{
			ImpactTime: nominal.ImpactTime,
			ZMP: nominal.ZMP,
			DCMOffset: nominal.DCMOffset,
			Degraded: true,
		}
	}

	return Adapted{
		ImpactTime: nominal.ImpactTime + sol.AtVec(0),
		ZMP: nominal.ZMP.Add(mathutil.Vec2{sol.AtVec(1), sol.AtVec(2)}),
		DCMOffset: nominal.DCMOffset.Add(mathutil.Vec2{sol.AtVec(3), sol.AtVec(4)}),
	}
}

// SwingSpline builds the adapted swing-foot spatial spline: a pose sequence
// from the current swing-foot pose to the adapted target (Z* + offset, at
// the planned footprint's yaw), passing through an apex at stepHeight at
// the midpoint. samples >= 2.
func SwingSpline(current, target mathutil.Vec3, yaw float64, stepHeight float64, samples int) []mathutil.Vec3 {
	if samples < 2 {
		samples = 2
	}
	out := make([]mathutil.Vec3, samples)
	_ = yaw // yaw is applied by the caller's orientation interpolation; only position is splined here
	for i := 0; i < samples; i++ {
		s := float64(i) / float64(samples-1)
		p := current.Scale(1 - s).Add(target.Scale(s))
		// Parabolic vertical bump peaking at the midpoint, zero at the ends.
		p[2] += 4 * stepHeight * s * (1 - s)
		out[i] = p
	}
	return out
}

// CheckReachability returns a diagnostic error (non-fatal, kind
// "planner miss") if the nominal footprint itself already violates the
// displacement bounds the adaptor enforces, so callers can flag a planner
// defect distinct from an ordinary QP infeasibility.
func CheckReachability(gains Gains, stanceFoot, nominalZMP mathutil.Vec2) error {
	dx := nominalZMP[0] - stanceFoot[0]
	dy := nominalZMP[1] - stanceFoot[1]
	if math.Abs(dx) > gains.MaxFootDisplacementX || math.Abs(dy) > gains.MaxFootDisplacementY {
		return wverr.New(wverr.KindPlannerMiss, "nominal footprint exceeds step-adaptation displacement bounds")
	}
	return nil
}
