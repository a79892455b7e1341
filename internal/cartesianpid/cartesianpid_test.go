package cartesianpid

import (
	"math"
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

func TestLinearZeroErrorReturnsFeedforward(t *testing.T) {
	pid := NewLinear(ScalarLinearGains(10, 2))
	aff := mathutil.Vec3{1, 2, 3}
	out := pid.Compute(aff, mathutil.Vec3{}, mathutil.Vec3{}, mathutil.Vec3{}, mathutil.Vec3{})
	if out != aff {
		t.Fatalf("expected pure feedforward %v, got %v", aff, out)
	}
}

func TestLinearProportionalCorrection(t *testing.T) {
	pid := NewLinear(ScalarLinearGains(10, 0))
	pd := mathutil.Vec3{1, 0, 0}
	p := mathutil.Vec3{0, 0, 0}
	out := pid.Compute(mathutil.Vec3{}, mathutil.Vec3{}, pd, mathutil.Vec3{}, p)
	want := 10.0
	if math.Abs(out[0]-want) > 1e-9 {
		t.Fatalf("expected x accel %.3f, got %.3f", want, out[0])
	}
}

func TestRotationalZeroErrorTracksFeedforward(t *testing.T) {
	pid := NewRotational(RotationalGains{C0: 5, C1: 2, C2: 1})
	r := mathutil.Identity3()
	wd := mathutil.Vec3{0.1, 0, 0}
	wdDot := mathutil.Vec3{0, 0.2, 0}
	out := pid.Compute(r, wd, wdDot, r, wd)
	// With no orientation or velocity error only the feedforward terms
	// remain: wdDot + c2*R*Rd^T*wd, i.e. wdDot + c2*wd for R = Rd.
	want := wdDot.Add(wd.Scale(pid.Gains.C2))
	for i := 0; i < 3; i++ {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("axis %d: expected %v got %v", i, want, out)
		}
	}
}
