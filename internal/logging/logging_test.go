package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "dir", "/tmp")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "dir=/tmp")
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sizetree.log")

	logger, closeFn, err := Open(path, "debug")
	require.NoError(t, err)
	logger.Debug("scan started")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan started")
}

func TestOpen_NoPathDiscards(t *testing.T) {
	logger, closeFn, err := Open("", "info")
	require.NoError(t, err)
	logger.Info("nowhere")
	assert.NoError(t, closeFn())
}

func TestOpen_BadLevel(t *testing.T) {
	_, _, err := Open("", "verbose")
	assert.Error(t, err)
}
