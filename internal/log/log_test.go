package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden")
	Info("hidden too")
	Warn("snapshot stale", "age", "5m")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] snapshot stale age=5m")
}

func TestErrorPrependsErr(t *testing.T) {
	buf := capture(t, LevelDebug)

	Error("load failed", errors.New("boom"), "source", "game.yaml", "dangling")

	assert.Contains(t, buf.String(), `[ERROR] load failed err=boom source=game.yaml`)
	assert.NotContains(t, buf.String(), "dangling")
}

func TestQuotesValuesWithSpaces(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("game", "title", "Game Night")

	assert.Contains(t, buf.String(), `title="Game Night"`)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "": LevelInfo, "Warning": LevelWarn, "ERROR": LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
