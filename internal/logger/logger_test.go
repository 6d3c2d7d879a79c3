package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]any

func decodeSingle(t *testing.T, buf *bytes.Buffer) logEntry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry logEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	return entry
}

func TestLoggerInfoWithFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf, Component: "executor"})
	require.NoError(t, err)

	log = log.WithFields(map[string]any{"strategy": "with_history"})
	log.Info("plan ready")

	entry := decodeSingle(t, buf)
	require.Equal(t, "plan ready", entry["message"])
	require.Equal(t, "with_history", entry["strategy"])
	require.Equal(t, "executor", entry["component"])
	require.Equal(t, "info", entry["level"])
}

func TestLoggerDebugRespectsLevel(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.Debug("this should not appear")
	require.Equal(t, "", strings.TrimSpace(buf.String()))
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestLoggerErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "debug", Writer: buf})
	require.NoError(t, err)

	log.WithRun("run-1").WithStep("translate", "initial").Error(errors.New("boom"), "step failed")

	entry := decodeSingle(t, buf)
	require.Equal(t, "step failed", entry["message"])
	require.Equal(t, "translate", entry["step"])
	require.Equal(t, "initial", entry["phase"])
	require.Equal(t, "run-1", entry["run_id"])
	require.Equal(t, "boom", entry["error"])
}

func TestLoggerWarnErrAndStepDone(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log, err := New(Options{Level: "info", Writer: buf})
	require.NoError(t, err)

	log.WarnErr(errors.New("bad json"), "replan degraded")
	entry := decodeSingle(t, buf)
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "bad json", entry["error"])

	buf.Reset()
	log.StepDone(1500*time.Millisecond, "step done")
	entry = decodeSingle(t, buf)
	require.Contains(t, entry, "duration")
}

func TestNilAndNopLoggersAreSilent(t *testing.T) {
	t.Parallel()

	var log *Logger
	require.NotPanics(t, func() {
		log.Info("ignored")
		log.Error(errors.New("x"), "ignored")
		require.Nil(t, log.WithStep("a", "b"))
	})
	require.NotPanics(t, func() { Nop().Warn("ignored") })
}
