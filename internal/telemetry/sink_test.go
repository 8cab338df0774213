package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkRecordAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	sink, err := Open(path)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Record(Event{ClientIdx: 0, Kind: 0, ObjectID: 1, Flags: 7, Score: 12.5, Set: 1, Tic: 100}))
	require.NoError(t, sink.Record(Event{ClientIdx: 1, Kind: 2, ObjectID: 2, Flags: 1, Score: 3, Set: 1, Tic: 100}))

	events, err := sink.Events(0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, uint32(1), events[0].ObjectID)

	all, err := sink.Events(-1, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
