package retarget

import (
	"context"
	"math"
	"testing"

	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
)

type fakeClient struct {
	left, right *kinematics.Twist
}

func (f fakeClient) HandTargets(ctx context.Context) (*kinematics.Twist, *kinematics.Twist, error) {
	return f.left, f.right, nil
}

func TestSmoothedClientConvergesTowardStepInput(t *testing.T) {
	target := kinematics.Twist{Linear: mathutil.Vec3{1, 0, 0}}
	c := NewSmoothedClient(fakeClient{left: &target}, 0.1)

	var got *kinematics.Twist
	for i := 0; i < 200; i++ {
		var err error
		got, _, err = c.HandTargets(context.Background(), 0.01)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if math.Abs(got.Linear[0]-1) > 1e-2 {
		t.Fatalf("expected convergence to 1.0, got %v", got.Linear[0])
	}
}

func TestSmoothedClientResetsWhenInputGoesAbsent(t *testing.T) {
	target := kinematics.Twist{Linear: mathutil.Vec3{1, 0, 0}}
	client := &toggleClient{twist: target, active: true}
	c := NewSmoothedClient(client, 0.1)

	if _, _, err := c.HandTargets(context.Background(), 0.01); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.active = false
	left, _, err := c.HandTargets(context.Background(), 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left != nil {
		t.Fatalf("expected nil left target once the source goes inactive, got %v", left)
	}
}

type toggleClient struct {
	twist  kinematics.Twist
	active bool
}

func (t *toggleClient) HandTargets(ctx context.Context) (*kinematics.Twist, *kinematics.Twist, error) {
	if !t.active {
		return nil, nil, nil
	}
	return &t.twist, nil, nil
}
