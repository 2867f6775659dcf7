package logger

import (
	"path/filepath"
	"testing"
)

func TestInitDefaultsRingBufferSize(t *testing.T) {
	Init(LevelDebug, filepath.Join(t.TempDir(), "glance.log"), Options{})
	defer Close()

	for i := 0; i < 150; i++ {
		Warn("warning")
	}
	if got := len(Entries()); got != 100 {
		t.Errorf("len(Entries()) = %d, want 100 (default RingBufferSize)", got)
	}
}

func TestInitHonorsConfiguredRingBufferSize(t *testing.T) {
	Init(LevelDebug, filepath.Join(t.TempDir(), "glance.log"), Options{RingBufferSize: 5})
	defer Close()

	for i := 0; i < 20; i++ {
		Error("boom")
	}
	if got := len(Entries()); got != 5 {
		t.Errorf("len(Entries()) = %d, want 5", got)
	}
}

func TestCountsTrackWarnAndError(t *testing.T) {
	Init(LevelDebug, filepath.Join(t.TempDir(), "glance.log"), Options{})
	defer Close()

	Warn("a")
	Warn("b")
	Error("c")

	warn, errorCount := Counts()
	if warn != 2 || errorCount != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", warn, errorCount)
	}

	ClearCounts()
	warn, errorCount = Counts()
	if warn != 0 || errorCount != 0 {
		t.Errorf("Counts() after ClearCounts = (%d, %d), want (0, 0)", warn, errorCount)
	}
}

func TestDebugEnabledReflectsInitLevel(t *testing.T) {
	Init(LevelInfo, filepath.Join(t.TempDir(), "glance.log"), Options{})
	defer Close()
	if DebugEnabled() {
		t.Error("DebugEnabled() = true after Init(LevelInfo, ...)")
	}

	Init(LevelDebug, filepath.Join(t.TempDir(), "glance.log"), Options{})
	defer Close()
	if !DebugEnabled() {
		t.Error("DebugEnabled() = false after Init(LevelDebug, ...)")
	}
}
