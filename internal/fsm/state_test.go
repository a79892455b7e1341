package fsm

import "testing"

func TestCheckTransitionAllowedPaths(t *testing.T) {
	cases := []struct {
		from State
		cmd  Command
		want State
	}{
		{Configured, CmdPrepareRobot, Preparing},
		{Prepared, CmdStartWalking, Walking},
		{Paused, CmdStartWalking, Walking},
		{Walking, CmdPauseWalking, Paused},
		{Preparing, CmdStopWalking, Stopped},
		{Prepared, CmdStopWalking, Stopped},
		{Walking, CmdStopWalking, Stopped},
		{Paused, CmdStopWalking, Stopped},
	}
	for _, c := range cases {
		got, err := checkTransition(c.from, c.cmd)
		if err != nil {
			t.Fatalf("%s from %s: unexpected error: %v", c.cmd, c.from, err)
		}
		if got != c.want {
			t.Fatalf("%s from %s: got %s, want %s", c.cmd, c.from, got, c.want)
		}
	}
}

func TestCheckTransitionRejectsWrongState(t *testing.T) {
	cases := []struct {
		from State
		cmd  Command
	}{
		{Configured, CmdStartWalking},
		{Walking, CmdPrepareRobot},
		{Configured, CmdPauseWalking},
		{Stopped, CmdStopWalking},
		{Stopped, CmdStartWalking},
	}
	for _, c := range cases {
		got, err := checkTransition(c.from, c.cmd)
		if err == nil {
			t.Fatalf("%s from %s: expected a rejection, got state %s", c.cmd, c.from, got)
		}
		if got != c.from {
			t.Fatalf("%s from %s: rejected transition must leave state unchanged, got %s", c.cmd, c.from, got)
		}
	}
}

func TestCheckTransitionUnknownCommand(t *testing.T) {
	if _, err := checkTransition(Configured, Command(99)); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Configured: "Configured",
		Preparing:  "Preparing",
		Prepared:   "Prepared",
		Walking:    "Walking",
		Paused:     "Paused",
		Stopped:    "Stopped",
		State(99):  "Unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
