package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Info("hidden", nil)
	l.Warn("shown", Fields{"task_id": "abc", "attempt": 1})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown attempt=1 task_id=abc")
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug).WithPrefix("reconcile")
	l.Debug("state change", nil)
	assert.Contains(t, buf.String(), "[DEBUG] [reconcile] state change")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}
