package dcm

import (
	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/qpsolve"
)

// MPCGains holds the DCM_MPC_CONTROLLER config group's tuning.
type MPCGains struct {
	Horizon int
	WeightTracking float64
	WeightInput float64
}

// MPC is the model-predictive alternative to Reactive : a
// convex QP over a receding horizon with DCM_xy state and ZMP_xy input,
// constrained to the support polygon, solved once per tick with a warm
// start via qpsolve.Solver.
type MPC struct {
	gains MPCGains
	omega float64
	dt float64

	solver *qpsolve.Solver
}

// NewMPC constructs an MPC controller. dt seeds the discrete DCM
// propagation model; omega is recomputed by the caller every tick and
// passed into Update.
func NewMPC(gains MPCGains, dt float64) *MPC {
	h := gains.Horizon
	n := 2 * h // zmp_x, zmp_y stacked per step
	// 4 convex-hull half-planes per step, no other constraints.
	m := 4 * h
	return &MPC{
		gains: gains,
		dt: dt,
		solver: qpsolve.NewSolver(n, m),
	}
}

// Update solves the horizon QP and returns the first-step desired ZMP.
// polygons must have length Horizon (one support polygon prediction per
// step; callers typically repeat the current polygon across the horizon
// unless a footstep transition is expected within it).
func (c *MPC) Update(dcm0 mathutil.Vec2, dcmRef []mathutil.Vec2, polygons []SupportPolygon, omega float64) (mathutil.Vec2, error) {
	h := c.gains.Horizon
	n := 2 * h

	// Propagation: dcm_{k+1} = a*dcm_k + b*zmp_k, a = 1+dt*omega, b = -dt*omega.
	a := 1 + c.dt*omega
	b := -c.dt * omega

	// Sx: 2h x 2 (per axis blocks handled jointly since a,b are scalar
	// and decouple per axis identically).
	sx := mat.NewDense(n, 2, nil)
	su := mat.NewDense(n, n, nil)

	// Build per-axis independently then interleave via row ordering
	// [x1,y1,x2,y2,...]. Row for step k, axis d (0=x,1=y):
	for k := 0; k < h; k++ {
		coeffX := pow(a, k+1)
		sx.Set(2*k+0, 0, coeffX)
		sx.Set(2*k+1, 1, coeffX)
		for j := 0; j <= k; j++ {
			coeff := b * pow(a, k-j)
			su.Set(2*k+0, 2*j+0, coeff)
			su.Set(2*k+1, 2*j+1, coeff)
		}
	}

	// Cost: 0.5 uᵀPu + qᵀu with
	// P = Suᵀ Wtrack Su + Winput I
	// q = Suᵀ Wtrack (Sx*dcm0 - ref)
	dcm0Vec := mat.NewVecDense(2, []float64{dcm0[0], dcm0[1]})
	predFree := mat.NewVecDense(n, nil)
	predFree.MulVec(sx, dcm0Vec)

	refVec := mat.NewVecDense(n, nil)
	for k := 0; k < h; k++ {
		r := dcmRef[k]
		refVec.SetVec(2*k+0, r[0])
		refVec.SetVec(2*k+1, r[1])
	}

	errFree := mat.NewVecDense(n, nil)
	errFree.SubVec(predFree, refVec)

	wtrack := c.gains.WeightTracking
	winput := c.gains.WeightInput

	suT := mat.NewDense(n, n, nil)
	suT.CloneFrom(su.T())

	p := mat.NewDense(n, n, nil)
	p.Mul(suT, su)
	p.Scale(wtrack, p)
	for i := 0; i < n; i++ {
		p.Set(i, i, p.At(i, i)+winput)
	}

	q := mat.NewVecDense(n, nil)
	q.MulVec(suT, errFree)
	q.ScaleVec(wtrack, q)

	// Constraint rows: per step k, 4 half-planes on (zmp_x_k, zmp_y_k).
	aIneq := mat.NewDense(4*h, n, nil)
	lb := mat.NewVecDense(4*h, nil)
	ub := mat.NewVecDense(4*h, nil)
	const veryLarge = 1e6
	for k := 0; k < h; k++ {
		poly := polygons[k]
		for r, row := range poly.A {
			ri := 4*k + r
			aIneq.Set(ri, 2*k+0, row[0])
			aIneq.Set(ri, 2*k+1, row[1])
			lb.SetVec(ri, -veryLarge)
			ub.SetVec(ri, poly.B[r])
		}
	}

	sol, err := c.solver.Solve(qpsolve.Problem{P: p, Q: q, A: aIneq, L: lb, U: ub})
	if err != nil {
		return mathutil.Vec2{}, err
	}

	return mathutil.Vec2{sol.AtVec(0), sol.AtVec(1)}, nil
}

func pow(base float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= base
	}
	return out
}
