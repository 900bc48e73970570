package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kadrisk/pkg/logging"
)

func TestContextFieldsAreMerged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewForTest(core).Named("enrichment")

	ctx := logging.WithCheckID(context.Background(), "chk-42")
	log.InfowCtx(ctx, "case enriched", "case_id", "A40-1/2024")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "chk-42", fields["check_id"])
	assert.Equal(t, "A40-1/2024", fields["case_id"])
	assert.Equal(t, "enrichment", fields["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	log.InfowCtx(context.Background(), "ignored")
	assert.NotNil(t, log.Named("x"))
}
