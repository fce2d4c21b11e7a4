package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)
	require.NotNil(t, r.Connections)

	r.Connections.Inc()
	r.QueueDrops.WithLabelValues("full").Inc()
	r.BanHits.WithLabelValues("K").Inc()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}
