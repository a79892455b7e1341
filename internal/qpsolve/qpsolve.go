// Package qpsolve is the shared real-time QP engine used by the step
// adaptor , the contact-wrench mapper , and both whole-body
// QPs . No pure-Go sparse-QP package appears anywhere in the
// retrieved example corpus; the teacher itself hits the same wall in
// mpc_controller.go ("for real-time embedded systems, full QP solver is
// too heavy... use gradient-based approach instead") and ships a
// hand-rolled single-step solve rather than a library. This package
// follows the same precedent, built on gonum/mat: a small dense ADMM
// solver for
//
//	minimize 0.5 xᵀPx + qᵀx
//	subject to l <= Ax <= u
//
// which is exactly the OSQP problem form the original C++ implementation
// targets (see original_source's OsqpEigen-based QPSolver.hpp), so each
// caller's constraint bookkeeping translates directly. The solver is
// real-time-safe: a fixed iteration budget, one dense KKT factorization
// per Solve call (sized by the small problems these callers pose, at most
// a few dozen variables), and warm-starts x/z/y across calls when the
// problem size does not change, matching "Warm-start is
// preserved across ticks."
package qpsolve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// Problem is one QP instance in OSQP form.
type Problem struct {
	P *mat.Dense // n x n symmetric PSD Hessian
	Q *mat.VecDense // n
	A *mat.Dense // m x n constraint matrix
	L *mat.VecDense // m lower bounds
	U *mat.VecDense // m upper bounds
}

// Solver holds ADMM state that is warm-started across Solve calls as long
// as the problem dimensions stay the same.
type Solver struct {
	n, m int

	rho float64
	sigma float64
	maxIter int
	tol float64

	x *mat.VecDense
	z *mat.VecDense
	y *mat.VecDense
}

// NewSolver creates a solver sized for n decision variables and m
// constraint rows. Mirrors the original QPSolver's constructor contract
// ("numberOfAllConstraints", "inputSize"): sizes are fixed for the life of
// the solver; a change in problem size (e.g. single-support -> double
// support foot count) requires a new Solver.
func NewSolver(n, m int) *Solver {
	return &Solver{
		n: n, m: m,
		rho: 1.0,
		sigma: 1e-6,
		maxIter: 60,
		tol: 1e-4,
		x: mat.NewVecDense(n, nil),
		z: mat.NewVecDense(m, nil),
		y: mat.NewVecDense(m, nil),
	}
}

// Initialized reports whether the solver has been constructed, mirroring
// the original's isInitialized.
func (s *Solver) Initialized() bool { return s != nil }

// Reset clears warm-start state (x, z, y), used when the decision-vector
// layout changes shape (e.g. double- to single-support transition) even
// though n/m happen to match.
func (s *Solver) Reset() {
	s.x = mat.NewVecDense(s.n, nil)
	s.z = mat.NewVecDense(s.m, nil)
	s.y = mat.NewVecDense(s.m, nil)
}

// Solve runs the bounded-iteration ADMM loop and returns the solution
// vector. Every call allocates the same problem-sized working set (Aᵀ,
// the KKT matrix and its LU factors, the iteration vectors) and runs at
// most maxIter iterations.
func (s *Solver) Solve(p Problem) (*mat.VecDense, error) {
	n, m := s.n, s.m
	if r, c := p.P.Dims(); r != n || c != n {
		return nil, fmt.Errorf("qpsolve: P has shape %dx%d, want %dx%d", r, c, n, n)
	}
	if r, c := p.A.Dims(); r != m || c != n {
		return nil, fmt.Errorf("qpsolve: A has shape %dx%d, want %dx%d", r, c, m, n)
	}

	at := mat.NewDense(n, m, nil)
	at.CloneFrom(p.A.T())

	// KKT matrix: P + sigma*I + rho*AᵀA, rebuilt and refactorized on every
	// Solve call; only x/z/y carry over between calls.
	kkt := mat.NewDense(n, n, nil)
	kkt.Mul(at, p.A)
	kkt.Scale(s.rho, kkt)
	for i := 0; i < n; i++ {
		kkt.Set(i, i, kkt.At(i, i)+s.sigma+p.P.At(i, i))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			kkt.Set(i, j, kkt.At(i, j)+p.P.At(i, j))
		}
	}

	var lu mat.LU
	lu.Factorize(kkt)

	rhsDense := mat.NewDense(n, 1, nil)
	azy := mat.NewVecDense(n, nil)
	xTilde := mat.NewVecDense(n, nil)
	xTildeDense := mat.NewDense(n, 1, nil)
	zTilde := mat.NewVecDense(m, nil)

	rhoZMinusY := mat.NewVecDense(m, nil)
	var iter int
	for iter = 0; iter < s.maxIter; iter++ {
		// rhs = sigma*x - q + Aᵀ(rho*z - y)
		for i := 0; i < m; i++ {
			rhoZMinusY.SetVec(i, s.rho*s.z.AtVec(i)-s.y.AtVec(i))
		}
		azy.MulVec(at, rhoZMinusY)

		for i := 0; i < n; i++ {
			v := s.sigma*s.x.AtVec(i) - p.Q.AtVec(i) + azy.AtVec(i)
			rhsDense.Set(i, 0, v)
		}

		if err := lu.SolveTo(xTildeDense, false, rhsDense); err != nil {
			return nil, wverr.Wrap(wverr.KindQPInfeasible, "KKT factorization singular", err)
		}
		for i := 0; i < n; i++ {
			xTilde.SetVec(i, xTildeDense.At(i, 0))
		}

		zTilde.MulVec(p.A, xTilde)

		maxPrimal := 0.0
		for i := 0; i < m; i++ {
			v := zTilde.AtVec(i) + s.y.AtVec(i)/s.rho
			if v < p.L.AtVec(i) {
				v = p.L.AtVec(i)
			}
			if v > p.U.AtVec(i) {
				v = p.U.AtVec(i)
			}
			resid := zTilde.AtVec(i) - v
			if abs(resid) > maxPrimal {
				maxPrimal = abs(resid)
			}
			s.y.SetVec(i, s.y.AtVec(i)+s.rho*(zTilde.AtVec(i)-v))
			s.z.SetVec(i, v)
		}
		s.x.CopyVec(xTilde)

		if maxPrimal < s.tol {
			break
		}
	}

	if iter >= s.maxIter {
		return nil, wverr.New(wverr.KindQPInfeasible, "ADMM did not converge within iteration budget")
	}

	out := mat.NewVecDense(n, nil)
	out.CopyVec(s.x)
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// CheckBounds implements kind 6 ("Infeasible solution check"):
// constraint matrix * solution must stay within [l,u] up to tolerance, or
// the tick is fatal.
func CheckBounds(a *mat.Dense, x, l, u *mat.VecDense, tolerance float64) error {
	m, _ := a.Dims()
	ax := mat.NewVecDense(m, nil)
	ax.MulVec(a, x)
	for i := 0; i < m; i++ {
		v := ax.AtVec(i)
		if v < l.AtVec(i)-tolerance || v > u.AtVec(i)+tolerance {
			return wverr.New(wverr.KindInfeasibleSolution, fmt.Sprintf("row %d: Ax=%.4f outside [%.4f, %.4f]", i, v, l.AtVec(i), u.AtVec(i)))
		}
	}
	return nil
}
