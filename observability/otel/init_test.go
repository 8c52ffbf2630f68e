package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{ServiceName: "  "})
	require.Error(t, err)
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "learnd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := Tracer("rpc").Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestResourceAttributes(t *testing.T) {
	attrs := Config{ServiceName: "learnd", Environment: "dev", Network: "testnet", ChainID: "learn-local"}.attributes()
	set := attribute.NewSet(attrs...)

	ns, ok := set.Value("service.namespace")
	require.True(t, ok)
	require.Equal(t, "learnchain", ns.AsString())
	chain, ok := set.Value(ChainIDKey)
	require.True(t, ok)
	require.Equal(t, "learn-local", chain.AsString())
	network, ok := set.Value(NetworkKey)
	require.True(t, ok)
	require.Equal(t, "testnet", network.AsString())

	minimal := attribute.NewSet(Config{ServiceName: "learn-cli"}.attributes()...)
	require.Equal(t, 2, minimal.Len())
}
