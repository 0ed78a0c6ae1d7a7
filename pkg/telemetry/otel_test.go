package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/polisai/sourcemark/pkg/domain"
)

func TestSetupProvider_NoEndpoint(t *testing.T) {
	shutdown, err := SetupProvider(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTracedFind_RecordsOutcome(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	m := TracedFind(context.Background(), "secret policy text", "policy")
	assert.Equal(t, domain.TierExact, m.Tier)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "locate.Find", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "exact", attrs["match.tier"].AsString())
	assert.Equal(t, int64(7), attrs["match.start"].AsInt64())
	assert.Equal(t, int64(len("policy")), attrs["match.bytes"].AsInt64())
	assert.Equal(t, int64(18), attrs["document.length"].AsInt64())
	for _, kv := range spans[0].Attributes() {
		assert.NotContains(t, kv.Value.Emit(), "secret")
	}
}
