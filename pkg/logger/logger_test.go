package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLevels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for name, want := range cases {
		l := New(&Config{Level: name})
		assert.True(t, l.Core().Enabled(want), name)
		if want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(want-1), name)
		}
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.log")
	l := New(&Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
	require.NotNil(t, l)
	l.Info("hello", zap.String("node", "10.0.0.1"))
	require.NoError(t, l.Sync())
	assert.FileExists(t, path)
}

func TestReplace(t *testing.T) {
	Replace(zap.NewNop())
	assert.NotNil(t, L())
	Info("noop")
	Sync()
}

func TestNewFileOutputWithoutPathFallsBack(t *testing.T) {
	l := New(&Config{Level: "debug", Output: "file"})
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestCallerPointsAtCallSite(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core, zap.AddCaller()))
	defer Replace(zap.NewNop())

	Info("from wrapper")
	L().Info("from logger")

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "logger_test.go", filepath.Base(e.Caller.File), e.Message)
	}
}
