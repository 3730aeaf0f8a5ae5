package topic

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingLog is a minimal ActivityLog double that captures every line
// recorded, so tests can assert on what the registry mirrors to disk.
type recordingLog struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLog) Append(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level+": "+message)
}

func TestRegistry(t *testing.T) {
	table := map[string]func(t *testing.T, r *Registry, log *recordingLog){
		"publish then pull preserves FIFO order": testFIFOOrder,
		"pull on unknown topic reports false":    testPullUnknownTopic,
		"pull on empty topic reports false":      testPullEmptyTopic,
		"topic list reflects published topics":   testTopicList,
	}

	for scenario, fn := range table {
		t.Run(scenario, func(t *testing.T) {
			log := &recordingLog{}
			r := New(log)
			fn(t, r, log)
		})
	}
}

func testFIFOOrder(t *testing.T, r *Registry, log *recordingLog) {
	ctx := context.Background()
	r.Publish(ctx, "topic1", "m1")
	r.Publish(ctx, "topic1", "m2")
	r.Publish(ctx, "topic1", "m3")

	for _, want := range []string{"m1", "m2", "m3"} {
		got, ok := r.Pull(ctx, "topic1")
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	_, ok := r.Pull(ctx, "topic1")
	require.False(t, ok)

	require.Contains(t, log.lines, "info: Published to topic1: m1")
	require.Contains(t, log.lines, "info: Pulled from topic: topic1")
}

func testPullUnknownTopic(t *testing.T, r *Registry, _ *recordingLog) {
	_, ok := r.Pull(context.Background(), "never-created")
	require.False(t, ok)
	require.False(t, r.HasTopic("never-created"))
}

func testPullEmptyTopic(t *testing.T, r *Registry, _ *recordingLog) {
	ctx := context.Background()
	r.Publish(ctx, "topic1", "only")
	_, ok := r.Pull(ctx, "topic1")
	require.True(t, ok)

	_, ok = r.Pull(ctx, "topic1")
	require.False(t, ok)
	require.True(t, r.HasTopic("topic1"))
}

func testTopicList(t *testing.T, r *Registry, _ *recordingLog) {
	ctx := context.Background()
	r.Publish(ctx, "alpha", "1")
	r.Publish(ctx, "beta", "2")

	list := r.TopicList()
	require.ElementsMatch(t, []string{"alpha", "beta"}, list)
}
