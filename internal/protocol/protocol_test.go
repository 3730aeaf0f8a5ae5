package protocol

import (
	"context"
	"sync"
	"testing"

	"github.com/mensah-dev/brokerd/internal/topic"
	"github.com/stretchr/testify/require"
)

type recordingLog struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLog) Append(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level+": "+message)
}

type fakeSubscriber struct {
	topics []string
}

func (f *fakeSubscriber) Subscribe(topicName string) {
	f.topics = append(f.topics, topicName)
}

func (f *fakeSubscriber) Topics() []string {
	return f.topics
}

func newHandler() (*Handler, *topic.Registry) {
	log := &recordingLog{}
	registry := topic.New(log)
	return New(registry, log), registry
}

func TestHandle(t *testing.T) {
	t.Run("SUBSCRIBE with a topic replies OK and grows the subscriber", func(t *testing.T) {
		h, _ := newHandler()
		sub := &fakeSubscriber{}
		require.Equal(t, ReplyOK, h.Handle(context.Background(), "SUBSCRIBE topic1\n", sub))
		require.Equal(t, []string{"topic1"}, sub.Topics())
	})

	t.Run("SUBSCRIBE with no topic name is invalid", func(t *testing.T) {
		h, _ := newHandler()
		sub := &fakeSubscriber{}
		require.Equal(t, "INVALID_CMD: SUBSCRIBE", h.Handle(context.Background(), "SUBSCRIBE \n", sub))
	})

	t.Run("PULL with no subscriptions reports NO_TOPIC", func(t *testing.T) {
		h, _ := newHandler()
		sub := &fakeSubscriber{}
		require.Equal(t, ReplyNoTopic, h.Handle(context.Background(), "PULL\n", sub))
	})

	t.Run("PULL on a subscribed but empty topic reports NO_MESSAGES", func(t *testing.T) {
		h, _ := newHandler()
		sub := &fakeSubscriber{topics: []string{"topic1"}}
		require.Equal(t, ReplyNoMessages, h.Handle(context.Background(), "PULL\n", sub))
	})

	t.Run("publish then subscribe then pull returns the message", func(t *testing.T) {
		h, _ := newHandler()
		ctx := context.Background()
		require.Equal(t, ReplyOK, h.Handle(ctx, "PUBLISH topic1 hello world\n", &fakeSubscriber{}))

		sub := &fakeSubscriber{}
		require.Equal(t, ReplyOK, h.Handle(ctx, "SUBSCRIBE topic1\n", sub))
		require.Equal(t, "hello world", h.Handle(ctx, "PULL\n", sub))
	})

	t.Run("PUBLISH with no message is invalid", func(t *testing.T) {
		h, _ := newHandler()
		require.Equal(t, "INVALID_CMD: PUBLISH topic1", h.Handle(context.Background(), "PUBLISH topic1\n", &fakeSubscriber{}))
	})

	t.Run("unrecognized verbs are invalid", func(t *testing.T) {
		h, _ := newHandler()
		require.Equal(t, "INVALID_CMD: BOGUS foo", h.Handle(context.Background(), "BOGUS foo\n", &fakeSubscriber{}))
	})
}
