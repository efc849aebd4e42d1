package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: " WARN ", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req := require.New(t)
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestNew_Writes_To_Rotating_File(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "nested", "relay.log")

	log, err := New(Options{Level: "info", Path: path})
	req.NoError(err)

	log.Info("Client connected")
	log.Debug("hidden below level")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Contains(string(data), `"msg":"Client connected"`)
	req.NotContains(string(data), "hidden below level")
}

func TestNew_Rejects_Unknown_Level(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
}

func TestNew_Defaults_To_Console(t *testing.T) {
	req := require.New(t)
	log, err := New(Options{})
	req.NoError(err)
	req.True(log.Core().Enabled(zapcore.InfoLevel))
	req.False(log.Core().Enabled(zapcore.DebugLevel))
}
