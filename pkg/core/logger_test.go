package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "error"} {
		l, err := NewLogger(LogConfig{Level: level})
		require.NoError(t, err, "level %q", level)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LogConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestNewLogger_Console(t *testing.T) {
	l, err := NewLogger(LogConfig{Format: "console", Name: "txworker"})
	require.NoError(t, err)
	l.Debug("not shown at info")
}

func TestZapLogger_Forwarding(t *testing.T) {
	zc, logs := observer.New(zap.DebugLevel)
	l := NewZapLogger(zap.New(zc))

	l.Info("active count ", 3)
	l.Infof("alive threads: %v", []string{"a"})
	l.Warnf("timeout after %d", 2)
	l.Errorf("failed: %s", "boom")
	l.Debug("poll")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, "active count 3", entries[0].Message)
	assert.Equal(t, "alive threads: [a]", entries[1].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
	assert.Equal(t, zap.DebugLevel, entries[4].Level)
}

func TestNewZapLogger_Nil(t *testing.T) {
	l := NewZapLogger(nil)
	l.Error("dropped")
}
