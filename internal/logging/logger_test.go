package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, minLevel Level) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	l, err := NewFileLogger(path, minLevel, false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	return l, path
}

func TestLoggerWritesLinesAtOrAboveMinLevel(t *testing.T) {
	l, path := newTestLogger(t, WARN)
	l.Info("ignored")
	l.Warn("kept %d", 1)
	l.Error("kept %d", 2)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "ignored") {
		t.Fatalf("expected INFO line to be filtered out, got: %s", out)
	}
	if !strings.Contains(out, "kept 1") || !strings.Contains(out, "kept 2") {
		t.Fatalf("expected WARN/ERROR lines in output, got: %s", out)
	}
}

func TestLoggerCloseDrainsQueuedLines(t *testing.T) {
	l, path := newTestLogger(t, TRACE)
	for i := 0; i < 100; i++ {
		l.Debug("line %d", i)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "line 99") {
		t.Fatalf("expected the queue to be fully drained before Close returns")
	}
}

func TestLoggerLogDoesNotBlockWhenQueueIsFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	l, err := NewFileLogger(path, TRACE, false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	// Flood far past queue depth from one goroutine, faster than the
	// writer goroutine drains to disk, and confirm log() itself never
	// blocks the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < logQueueDepth*4; i++ {
			l.Info("flood %d", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("log() blocked the caller instead of dropping once the queue filled")
	}
	_ = l.Close()

	if l.Dropped() == 0 {
		t.Fatalf("expected some lines to be dropped once the queue saturated")
	}
}

func TestSetMinLevelTakesEffectForSubsequentCalls(t *testing.T) {
	l, path := newTestLogger(t, INFO)
	l.Debug("before")
	l.SetMinLevel(TRACE)
	l.Debug("after")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "before") {
		t.Fatalf("expected the pre-SetMinLevel DEBUG line to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "after") {
		t.Fatalf("expected the post-SetMinLevel DEBUG line to be kept, got: %s", out)
	}
}
