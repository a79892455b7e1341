package zmpcom

import "github.com/GCS-LG/walking-controllers/internal/mathutil"

// LIPMIntegrator advances the linear-inverted-pendulum reference CoM state:
// ẍ = ω²(x - z_d), integrated once per tick at dT. It is a
// reference generator, not a feedback controller. Its stability depends
// entirely on z_d tracking the DCM-derived VRP; an open-loop LIPM
// integration diverges if fed an unstable ZMP reference.
type LIPMIntegrator struct {
	pos mathutil.Vec2
	vel mathutil.Vec2
}

// NewLIPMIntegrator seeds the integrator at the given initial CoM position
// and velocity, typically the measured CoM at the Prepared->Walking
// transition.
func NewLIPMIntegrator(pos, vel mathutil.Vec2) *LIPMIntegrator {
	return &LIPMIntegrator{pos: pos, vel: vel}
}

// Reset reseeds the integrator state, used whenever the controller leaves
// and re-enters Walking (via Paused) to avoid carrying a stale
// trajectory across the pause.
func (l *LIPMIntegrator) Reset(pos, vel mathutil.Vec2) {
	l.pos = pos
	l.vel = vel
}

// Position returns the current integrated CoM position.
func (l *LIPMIntegrator) Position() mathutil.Vec2 { return l.pos }

// Velocity returns the current integrated CoM velocity.
func (l *LIPMIntegrator) Velocity() mathutil.Vec2 { return l.vel }

// Step advances the CoM reference by one tick of period dt under the LIPM
// dynamics driven by the desired ZMP zmpDesired, using semi-implicit Euler
// (velocity updated first, then position from the updated velocity) for
// the same numerical-damping reason the teacher's runner.go integrates its
// vehicle kinematics semi-implicitly rather than with explicit Euler.
func (l *LIPMIntegrator) Step(zmpDesired mathutil.Vec2, omega, dt float64) {
	accel := l.pos.Sub(zmpDesired).Scale(omega * omega)
	l.vel = l.vel.Add(accel.Scale(dt))
	l.pos = l.pos.Add(l.vel.Scale(dt))
}
