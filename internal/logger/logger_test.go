package logger

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		mode  string
		level string
	}{
		{"dev", "info"},
		{"prod", "debug"},
		{"production", ""},
		{"", "not-a-level"},
	}
	for _, tt := range tests {
		l, err := New(tt.mode, tt.level)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.mode, tt.level, err)
		}
		l.With("pipeline", "tree").Debug("built", "ranges", 3)
	}
}

func TestNew_Level(t *testing.T) {
	l, err := New("prod", "warn")
	if err != nil {
		t.Fatal(err)
	}
	if l.SugaredLogger.Desugar().Core().Enabled(-1) {
		t.Error("Expected debug to be disabled at warn level")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded", "k", "v")
	l.Sync()
}
