package logging

import (
	"os"
	"testing"

	"spenser.io/synthpop/internal/config"
)

func TestLogging_RespectsLogLevelFromConfig(t *testing.T) {
	SetSilentLoggingForTest() // silence logs for this test
	resetLogger()
	config.ResetForTest()
	f, err := os.CreateTemp("", "synthpop-config-*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString(`{"log_level": "DEBUG"}`)
	f.Close()
	config.SetConfigPath(f.Name())
	if level, enabled := levelFromConfig(); level.String() != "debug" || !enabled {
		t.Errorf("log_level DEBUG: got level %v, enabled %v", level, enabled)
	}
	Debug("debug message should appear")
	Info("info message should appear")
	Warn("warn message should appear")
	Error("error message should appear")
}

func TestLogging_DefaultsToInfoIfMissing(t *testing.T) {
	SetSilentLoggingForTest() // silence logs for this test
	config.ResetForTest()
	if level, enabled := levelFromConfig(); level.String() != "info" || !enabled {
		t.Errorf("missing log_level: got level %v, enabled %v", level, enabled)
	}
}

func TestLogging_NoneLevelSuppressesAllLogs(t *testing.T) {
	resetLogger()
	config.ResetForTest()
	f, err := os.CreateTemp("", "synthpop-config-*.json")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString(`{"log_level": "NONE"}`)
	f.Close()
	config.SetConfigPath(f.Name())
	resetLogger()
	if _, enabled := levelFromConfig(); enabled {
		t.Error("log_level NONE: logging still enabled")
	}
	Debug("debug should NOT appear")
	Info("info should NOT appear")
	Warn("warn should NOT appear")
	Error("error should NOT appear")
}
