package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewHandler_JSONByDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "info", "", false))
	log.Info("subscription.create.ok", "subscriber_id", "01HZX3J6V4Q1M0W2Y8R5T7N9KD")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "subscription.create.ok", rec["msg"])
	assert.Equal(t, "01HZX3J6V4Q1M0W2Y8R5T7N9KD", rec["subscriber_id"])
}

func TestNewHandler_PrettyRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "warn", "pretty", false))
	log.Info("dropped")
	log.Warn("kept", "status", 404)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "lvl=[WARN] msg=kept")
	assert.Contains(t, out, "status=404")
}
