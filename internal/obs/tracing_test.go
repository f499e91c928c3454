package obs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-billing/internal/obs"
)

func TestInitTracerWithoutExporter(t *testing.T) {
	for _, cfg := range []obs.TracingConfig{
		{ServiceName: "toko-billing-api", Exporter: "none", Endpoint: "http://collector:4318"},
		{ServiceName: "toko-billing-api", Exporter: "otlp"},
	} {
		shutdown, err := obs.InitTracer(context.Background(), cfg)
		require.NoError(t, err)
		require.NoError(t, shutdown(context.Background()))
	}
}

func TestInitTracerRejectsUnknownExporter(t *testing.T) {
	_, err := obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "zipkin")
}
