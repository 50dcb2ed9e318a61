package logging

import (
	"testing"

	"paperqa/config"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logger, err := New(config.LoggingConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format %s: %v", format, err)
		}
		if !logger.Core().Enabled(-1) {
			t.Errorf("format %s: expected debug level enabled", format)
		}
	}
}

func TestNew_EmptyLevelIsInfo(t *testing.T) {
	logger, err := New(config.LoggingConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(-1) {
		t.Error("expected debug disabled at default level")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
