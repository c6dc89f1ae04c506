// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	require := require.New(t)

	require.Equal(zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(zapcore.WarnLevel, parseLevel("WARN"))
	require.Equal(zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(zapcore.InfoLevel, parseLevel("info"))
	require.Equal(zapcore.InfoLevel, parseLevel("bogus"))
}

func TestNewWithFormat(t *testing.T) {
	require := require.New(t)

	for _, format := range []string{FormatJSON, FormatConsole, "bogus"} {
		logger, ok := NewWithFormat("warn", format).(*zapLogger)
		require.True(ok, format)
		require.False(logger.log.Core().Enabled(zapcore.InfoLevel), format)
		require.True(logger.log.Core().Enabled(zapcore.WarnLevel), format)
	}
}

func TestFromZapCarriesFields(t *testing.T) {
	require := require.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With(String("session", "s1"))

	logger.Info("tick", Int("day", 3), Float64("bid", 0.9))
	logger.Debug("detail")

	entries := logs.All()
	require.Len(entries, 2)
	require.Equal("tick", entries[0].Message)

	ctx := entries[0].ContextMap()
	require.Equal("s1", ctx["session"])
	require.EqualValues(3, ctx["day"])
	require.Equal(0.9, ctx["bid"])
}

func TestNoOpLogger(t *testing.T) {
	require := require.New(t)

	logger := NoOp()
	logger.Info("ignored")
	require.Same(logger, logger.With(String("k", "v")))
	require.NoError(logger.Sync())
	require.NotNil(FromZap(nil))
}
