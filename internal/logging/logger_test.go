package logging

import "testing"

func TestNew_DevelopmentAndProduction(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		logger, err := New(dev, "")
		if err != nil {
			t.Fatalf("New(%v) error = %v", dev, err)
		}
		if logger == nil {
			t.Fatalf("New(%v) returned nil logger", dev)
		}
		logger.Info("logger ready")
	}
}

func TestNew_LevelParsing(t *testing.T) {
	t.Parallel()

	if _, err := New(false, "debug"); err != nil {
		t.Fatalf("debug level should parse: %v", err)
	}
	if _, err := New(false, "verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
