package dcm

import (
	"math"
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

func TestReactiveZeroErrorMatchesFeedforward(t *testing.T) {
	r := NewReactive(ReactiveGains{Kp: 2, Ki: 0.5, IntegralLimit: 1})
	dcmd := mathutil.Vec2{0.1, 0.2}
	vel := mathutil.Vec2{0.05, -0.02}
	omega := 3.0

	vrp := r.Update(dcmd, dcmd, vel, omega, 0.01)
	want := dcmd.Sub(vel.Scale(1 / omega))
	if math.Abs(vrp[0]-want[0]) > 1e-9 || math.Abs(vrp[1]-want[1]) > 1e-9 {
		t.Fatalf("expected %v got %v", want, vrp)
	}
}

func TestReactiveIntegralAccumulatesAndClamps(t *testing.T) {
	r := NewReactive(ReactiveGains{Kp: 0, Ki: 1, IntegralLimit: 0.05})
	dcm := mathutil.Vec2{1, 0}
	dcmd := mathutil.Vec2{0, 0}
	for i := 0; i < 100; i++ {
		r.Update(dcm, dcmd, mathutil.Vec2{}, 3.0, 0.01)
	}
	if r.integral[0] > 0.05+1e-9 {
		t.Fatalf("integral not clamped: %v", r.integral)
	}
}

func TestSupportPolygonContains(t *testing.T) {
	sp := FootRectangleHull([]mathutil.Vec2{{0, 0}}, 0.08, 0.04)
	if !sp.Contains(mathutil.Vec2{0, 0}, 1e-6) {
		t.Fatalf("center should be inside polygon")
	}
	if sp.Contains(mathutil.Vec2{1, 1}, 1e-6) {
		t.Fatalf("far point should be outside polygon")
	}
}

func TestMPCTracksReferenceWhenUnconstrained(t *testing.T) {
	gains := MPCGains{Horizon: 3, WeightTracking: 10, WeightInput: 1e-3}
	mpc := NewMPC(gains, 0.01)

	dcm0 := mathutil.Vec2{0.02, 0}
	ref := []mathutil.Vec2{{0, 0}, {0, 0}, {0, 0}}
	bigPoly := SupportPolygon{
		A: [][2]float64{{1, 0}, {-1, 0}, {0, 1}, {0, -1}},
		B: []float64{10, 10, 10, 10},
	}
	polys := []SupportPolygon{bigPoly, bigPoly, bigPoly}

	zmp, err := mpc.Update(dcm0, ref, polys, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// With a DCM ahead of the reference, the optimal ZMP should move in
	// the same direction as the error to pull the DCM back down.
	if zmp[0] <= 0 {
		t.Fatalf("expected positive corrective zmp_x, got %v", zmp)
	}
}
