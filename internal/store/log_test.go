package store

import (
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestSegmentedLog(t *testing.T) {
	table := map[string]func(t *testing.T, l *SegmentedLog, mock *clock.Mock){
		"append and read round trip":     testAppendReadAll,
		"cursor reads are idempotent":    testCursorIdempotence,
		"rotation on overflow":           testRotation,
		"oversized record is rejected":   testOversizedRejected,
		"metadata persists across opens": testMetadataPersistence,
	}

	for scenario, fn := range table {
		t.Run(scenario, func(t *testing.T) {
			dir, err := os.MkdirTemp("", "store-test")
			require.NoError(t, err)
			defer os.RemoveAll(dir)

			mock := clock.NewMock()
			l, err := New(dir, Config{BaseName: "broker_log", SegmentSize: 256, Clock: mock})
			require.NoError(t, err)
			defer l.Close()

			fn(t, l, mock)
		})
	}
}

func testAppendReadAll(t *testing.T, l *SegmentedLog, _ *clock.Mock) {
	l.Append(LevelInfo, "hello")
	l.Append(LevelInfo, "world")

	records := l.ReadAll(0)
	require.Len(t, records, 2)
	require.Contains(t, string(records[0]), "message: hello")
	require.Contains(t, string(records[1]), "message: world")
}

func testCursorIdempotence(t *testing.T, l *SegmentedLog, _ *clock.Mock) {
	l.Append(LevelInfo, "only-record")

	cursor := Cursor{}
	record, ok := l.ReadNext(&cursor)
	require.True(t, ok)
	require.Contains(t, string(record), "only-record")

	_, ok = l.ReadNext(&cursor)
	require.False(t, ok)
}

func testRotation(t *testing.T, l *SegmentedLog, _ *clock.Mock) {
	// segmentSize is 256; each record is ~60 bytes, so a handful of
	// appends force at least one rotation.
	for i := 0; i < 6; i++ {
		l.Append(LevelInfo, "rotate-me")
	}

	require.GreaterOrEqual(t, l.CurrentSegmentIndex(), uint64(1))

	seg0 := l.ReadAll(0)
	seg1 := l.ReadAll(l.CurrentSegmentIndex())
	require.NotEmpty(t, seg0)
	require.NotEmpty(t, seg1)
}

func testOversizedRejected(t *testing.T, l *SegmentedLog, _ *clock.Mock) {
	huge := make([]byte, 1024)
	for i := range huge {
		huge[i] = 'x'
	}
	l.Append(LevelInfo, string(huge))

	records := l.ReadAll(0)
	require.Empty(t, records)
}

func testMetadataPersistence(t *testing.T, l *SegmentedLog, mock *clock.Mock) {
	l.Append(LevelInfo, "first")
	l.Append(LevelInfo, "second")
	mock.Add(2 * time.Second)

	dir := l.dir
	require.NoError(t, l.Close())

	reopened, err := New(dir, Config{BaseName: "broker_log", SegmentSize: 256})
	require.NoError(t, err)
	defer reopened.Close()

	cursor := Cursor{}
	var got []string
	for {
		rec, ok := reopened.ReadNext(&cursor)
		if !ok {
			break
		}
		got = append(got, string(rec))
	}
	require.Len(t, got, 2)
}
