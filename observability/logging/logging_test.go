package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("learnd", "test", WithOutput(&buf), WithLevel(slog.LevelDebug))
	logger.Info("call executed", "method", "academy.enrollInCourse", MaskField("passphrase", "hunter2"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "learnd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "call executed", line["message"])
	require.Equal(t, RedactedValue, line["passphrase"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnd.log")
	var buf bytes.Buffer
	logger := Setup("learnd", "", WithOutput(&buf), WithFile(path, 1, 1))
	logger.Warn("mint failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "mint failed")
	require.Contains(t, buf.String(), "mint failed")
}

func TestRedaction(t *testing.T) {
	require.True(t, IsAllowlisted("Method"))
	require.Equal(t, "academy.pause", MaskField("method", "academy.pause").Value.String())
	require.Equal(t, RedactedValue, MaskField("secret", "x").Value.String())
	require.Equal(t, "", MaskField("secret", "").Value.String())
	require.Equal(t, ".../key.json", MaskPath("keystore", "/home/op/keys/key.json").Value.String())
	require.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
