// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := WithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("search attempt", "attempt", 2)
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "search attempt")
	assert.Contains(t, stderr.String(), "attempt=2")
	assert.NotContains(t, stderr.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	assert.Equal(t, "search attempt", rec["msg"])
	assert.Equal(t, float64(2), rec["attempt"])
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	var stderr bytes.Buffer

	logger, cleanup, err := Setup(types.LogConfig{Level: "warn", File: path}, &stderr)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("found fewer quotes than requested", "found", 3)
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"found":3`)
	assert.Contains(t, stderr.String(), "found fewer quotes")
}

func TestSetup_StderrOnly(t *testing.T) {
	var stderr bytes.Buffer
	logger, cleanup, err := Setup(types.LogConfig{}, &stderr)
	require.NoError(t, err)
	logger.Info("hello")
	assert.NoError(t, cleanup())
	assert.Contains(t, stderr.String(), "hello")
}

func TestSetup_BadLevel(t *testing.T) {
	_, _, err := Setup(types.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
