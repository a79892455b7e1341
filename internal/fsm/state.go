// Package fsm implements the controller lifecycle and tick orchestrator of
// : the state machine (Configured/Preparing/Prepared/
// Walking/Paused/Stopped) and the fixed-period tick that, in strict order,
// reads feedback, computes kinematics, estimates measured ZMP, advances the
// reference buffers, step-adapts, runs the outer and inner balance loops,
// solves the whole-body QP, and writes the command back out.
//
// Grounded on the teacher's Runner (closed_loop/runner.go) for the overall
// "one goroutine owns state, remote commands mutate it under a mutex,
// ticker drives the loop" shape, generalized from the teacher's single
// open/closed-loop mode switch to a full six-state lifecycle.
package fsm

import "github.com/GCS-LG/walking-controllers/internal/wverr"

// State is one of the controller lifecycle states of
type State int

const (
	Configured State = iota
	Preparing
	Prepared
	Walking
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Configured:
		return "Configured"
	case Preparing:
		return "Preparing"
	case Prepared:
		return "Prepared"
	case Walking:
		return "Walking"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Command identifies one of the remote commands names, used
// only for the transition-table lookup and error messages.
type Command int

const (
	CmdPrepareRobot Command = iota
	CmdStartWalking
	CmdPauseWalking
	CmdStopWalking
)

func (c Command) String() string {
	switch c {
	case CmdPrepareRobot:
		return "PrepareRobot"
	case CmdStartWalking:
		return "StartWalking"
	case CmdPauseWalking:
		return "PauseWalking"
	case CmdStopWalking:
		return "StopWalking"
	default:
		return "Unknown"
	}
}

// transitions is the state machine's transition table :
// transitions[cmd].from lists every state the command is legal from, and
// transitions[cmd].to gives the resulting state.
var transitions = map[Command]struct {
	from []State
	to State
}{
	CmdPrepareRobot: {from: []State{Configured}, to: Preparing},
	CmdStartWalking: {from: []State{Prepared, Paused}, to: Walking},
	CmdPauseWalking: {from: []State{Walking}, to: Paused},
	CmdStopWalking: {from: []State{Preparing, Prepared, Walking, Paused}, to: Stopped},
}

// checkTransition validates cmd against the transition table, returning
// the resulting state or a KindFSMViolation error. This kind is
// non-fatal: the command is simply rejected.
func checkTransition(current State, cmd Command) (State, error) {
	t, ok := transitions[cmd]
	if !ok {
		return current, wverr.New(wverr.KindFSMViolation, "unknown command")
	}
	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}
	return current, wverr.New(wverr.KindFSMViolation, cmd.String()+" rejected from state "+current.String())
}
