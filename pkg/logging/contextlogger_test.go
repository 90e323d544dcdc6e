package logging_test

import (
	"context"
	"testing"

	"github.com/rfmoraes/accounts-api-go/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLogger(t *testing.T) {
	t.Run("without span logs only the given fields", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		logger := logging.NewContextLogger(zap.New(core))

		logger.InfoCtx(context.Background(), "evento", zap.String("user_id", "user-1"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "evento", entry.Message)
		fields := entry.ContextMap()
		assert.Equal(t, "user-1", fields["user_id"])
		assert.NotContains(t, fields, "trace_id")
	})

	t.Run("active span adds trace and span ids", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		logger := logging.NewContextLogger(zap.New(core))

		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{0x01},
			SpanID:  trace.SpanID{0x02},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

		logger.InfoCtx(ctx, "evento")

		require.Equal(t, 1, logs.Len())
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
		assert.Equal(t, spanCtx.SpanID().String(), fields["span_id"])
	})
}
