//go:build linux

package candriver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GCS-LG/walking-controllers/internal/kinematics"
	"github.com/GCS-LG/walking-controllers/internal/logging"
	"github.com/GCS-LG/walking-controllers/internal/mathutil"
	"github.com/GCS-LG/walking-controllers/internal/wverr"
)

// defaultReadBudget is the "bounded driver read" ceiling the tick loop
// relies on: ReadState must not block past it.
const defaultReadBudget = 10 * time.Millisecond

// Driver is the concrete driver.RobotDriver over SocketCAN: a background
// receive loop decodes joint and foot-wrench feedback frames into a shared
// RobotState, and SendTorqueCommand/SendPositionCommand encode and
// transmit one command frame per actuated joint, the same RX-goroutine /
// TX-on-demand split the teacher's Runner uses in runner.go, generalized
// from a single actuator frame to one frame per joint.
type Driver struct {
	frameMap      *FrameMap
	jointNames    []string
	useFootWrench bool
	log           *logging.Logger
	readBudget    time.Duration

	bus bus

	cancel context.CancelFunc

	mu      sync.Mutex
	state   kinematics.RobotState
	seenAll bool
	seen    map[string]bool
	updated chan struct{}
}

// Config bundles the construction parameters a deployment supplies; these
// map directly onto config.RobotControl and config.FTSensors.
type Config struct {
	Interface     string
	JointNames    []string
	UseFootWrench bool
	FrameMap      *FrameMap     // nil selects DefaultFrameMap(JointNames)
	ReadBudget    time.Duration // 0 selects defaultReadBudget
}

// NewDriver dials the SocketCAN interface and starts the receive loop.
func NewDriver(ctx context.Context, cfg Config, log *logging.Logger) (*Driver, error) {
	if len(cfg.JointNames) == 0 {
		return nil, fmt.Errorf("candriver: no actuated joints configured")
	}
	fm := cfg.FrameMap
	if fm == nil {
		fm = DefaultFrameMap(cfg.JointNames)
	}
	readBudget := cfg.ReadBudget
	if readBudget <= 0 {
		readBudget = defaultReadBudget
	}

	b, err := newCANBus(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}

	rxCtx, cancel := context.WithCancel(ctx)
	d := &Driver{
		frameMap:      fm,
		jointNames:    cfg.JointNames,
		useFootWrench: cfg.UseFootWrench,
		log:           log,
		readBudget:    readBudget,
		bus:           b,
		cancel:        cancel,
		seen:          make(map[string]bool, len(cfg.JointNames)),
		updated:       make(chan struct{}, 1),
	}
	d.state.NumJoints = len(cfg.JointNames)
	d.state.JointPositions = make([]float64, len(cfg.JointNames))
	d.state.JointVelocities = make([]float64, len(cfg.JointNames))

	go d.receiveLoop(rxCtx)
	return d, nil
}

// ReadState blocks until the receive loop has decoded at least one fresh
// reading for every joint (and both foot wrenches, if enabled) since the
// previous call, up to readBudget, or until ctx is done. Exceeding the
// budget is reported as KindFeedbackTimeout rather than a bare context
// deadline error, so callers can distinguish a slow bus from a caller
// cancellation.
func (d *Driver) ReadState(ctx context.Context) (kinematics.RobotState, error) {
	deadline, cancel := context.WithTimeout(ctx, d.readBudget)
	defer cancel()

	select {
	case <-ctx.Done():
		return kinematics.RobotState{}, ctx.Err()
	case <-deadline.Done():
		return kinematics.RobotState{}, wverr.Wrap(wverr.KindFeedbackTimeout, "candriver: read exceeded budget", deadline.Err())
	case <-d.updated:
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	// Start a new cycle: the next call waits for every frame again.
	for k := range d.seen {
		delete(d.seen, k)
	}
	select {
	case <-d.updated:
	default:
	}
	out := d.state
	out.JointPositions = append([]float64(nil), d.state.JointPositions...)
	out.JointVelocities = append([]float64(nil), d.state.JointVelocities...)
	return out, nil
}

// SendTorqueCommand encodes and transmits one torque-mode command frame
// per actuated joint, in config.RobotControl.ActuatedJoints order.
func (d *Driver) SendTorqueCommand(ctx context.Context, tau []float64) error {
	return d.sendJointCommand(ctx, "torque_cmd", 1, tau)
}

// SendPositionCommand encodes and transmits one position-mode command
// frame per actuated joint.
func (d *Driver) SendPositionCommand(ctx context.Context, q []float64) error {
	return d.sendJointCommand(ctx, "position_cmd", 0, q)
}

func (d *Driver) sendJointCommand(ctx context.Context, signalName string, mode float64, values []float64) error {
	if len(values) != len(d.jointNames) {
		return fmt.Errorf("candriver: expected %d joint commands, got %d", len(d.jointNames), len(values))
	}
	for i, name := range d.jointNames {
		frame, err := d.frameMap.EncodeEinrideFrame(name+"_cmd", map[string]float64{
			"mode":     mode,
			signalName: values[i],
		})
		if err != nil {
			return fmt.Errorf("encode %s command: %w", name, err)
		}
		if err := d.bus.WriteFrame(ctx, frame); err != nil {
			return fmt.Errorf("transmit %s command: %w", name, err)
		}
	}
	return nil
}

func (d *Driver) Close() error {
	d.cancel()
	return d.bus.Close()
}

// receiveLoopReadBudget bounds each background receive, not to enforce
// the tick-time read budget (ReadState does that), but so the loop
// notices ctx cancellation within a bounded time instead of blocking on
// the receive goroutine indefinitely.
const receiveLoopReadBudget = time.Second

func (d *Driver) receiveLoop(ctx context.Context) {
	if d.log != nil {
		d.log.Debug("candriver: receive loop started")
		defer d.log.Debug("candriver: receive loop stopped")
	}
	jointIndex := make(map[string]int, len(d.jointNames))
	for i, n := range d.jointNames {
		jointIndex[n] = i
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := d.bus.ReadFrame(ctx, receiveLoopReadBudget)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isDeadlineExceeded(err) {
				continue
			}
			if d.log != nil {
				d.log.Error("candriver: rx error: %v", err)
			}
			continue
		}

		fd, ok := d.frameMap.ByID[uint32(frame.ID)]
		if !ok {
			continue
		}
		values, err := d.frameMap.DecodeFrame(uint32(frame.ID), frame.Data[:frame.Length])
		if err != nil {
			if d.log != nil {
				d.log.Error("candriver: decode %s failed: %v", fd.Name, err)
			}
			continue
		}

		d.applyFrame(fd.Name, values, jointIndex)
	}
}

func (d *Driver) applyFrame(frameName string, values map[string]float64, jointIndex map[string]int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case len(frameName) > 3 && frameName[len(frameName)-3:] == "_fb":
		joint := frameName[:len(frameName)-3]
		i, ok := jointIndex[joint]
		if !ok {
			return
		}
		d.state.JointPositions[i] = values["position"]
		d.state.JointVelocities[i] = values["velocity"]
		d.seen[frameName] = true

	case frameName == "left_foot_force":
		d.state.LeftWrench.Force = mathutil.Vec3{values["force_x"], values["force_y"], values["force_z"]}
		d.seen[frameName] = true
	case frameName == "left_foot_torque":
		d.state.LeftWrench.Torque = mathutil.Vec3{values["torque_x"], values["torque_y"], values["torque_z"]}
		d.seen[frameName] = true
	case frameName == "right_foot_force":
		d.state.RightWrench.Force = mathutil.Vec3{values["force_x"], values["force_y"], values["force_z"]}
		d.seen[frameName] = true
	case frameName == "right_foot_torque":
		d.state.RightWrench.Torque = mathutil.Vec3{values["torque_x"], values["torque_y"], values["torque_z"]}
		d.seen[frameName] = true
	}

	if d.cycleComplete() {
		select {
		case d.updated <- struct{}{}:
		default:
		}
	}
}

func (d *Driver) cycleComplete() bool {
	for _, n := range d.jointNames {
		if !d.seen[n+"_fb"] {
			return false
		}
	}
	if d.useFootWrench {
		for _, n := range []string{"left_foot_force", "left_foot_torque", "right_foot_force", "right_foot_torque"} {
			if !d.seen[n] {
				return false
			}
		}
	}
	return true
}

func isDeadlineExceeded(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
