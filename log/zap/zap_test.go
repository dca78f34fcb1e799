package zap

import (
	"testing"

	"github.com/prashanthpai/readcache"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	assert := require.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	l := Logger{L: zap.New(core)}

	l.Debug("d", nil)
	l.Info("i", readcache.Fields{})
	l.Warn("w", readcache.Fields{"key": "sqlcache_f1"})
	l.Error("e", readcache.Fields{"error": "boom"})

	entries := logs.AllUntimed()
	assert.Len(entries, 4)
	assert.Equal(zapcore.WarnLevel, entries[2].Level)
	assert.Equal("sqlcache_f1", entries[2].ContextMap()["key"])
	assert.Equal("boom", entries[3].ContextMap()["error"])
}
