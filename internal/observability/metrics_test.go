package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordProvision("failed")
	m.RecordSession("opened")

	snap := m.Snapshot()
	snap.Provision["failed"] = 99

	require.Equal(t, int64(1), m.Snapshot().Provision["failed"])
	require.Equal(t, int64(1), snap.Requests["/|GET|200"])
	require.Equal(t, int64(1), snap.Sessions["opened"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordProvision("requested")
	m.RecordError("/", "GET", "X")
	require.Empty(t, m.Snapshot().Provision)
}
