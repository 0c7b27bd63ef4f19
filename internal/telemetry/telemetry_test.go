package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetup_ShutdownFlushesCleanly(t *testing.T) {
	// Non-routable address; nothing is exported because no span is started.
	shutdown, err := Setup(context.Background(), "http://192.0.2.1:4318", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
