// Package topic implements the process-wide routing layer: a map from
// topic name to its FIFO queue, plus the best-effort activity log that
// mirrors every publish/pull.
package topic

import (
	"context"
	"sync"

	"github.com/mensah-dev/brokerd/internal/telemetry"
	"go.opencensus.io/trace"
	"go.uber.org/zap"
)

// ActivityLog is the minimal logging surface Registry needs. It is
// satisfied by store.StringLog; the interface exists so this package
// doesn't have to import the storage layer directly.
type ActivityLog interface {
	Append(level, message string)
}

// Registry is the process-wide, singleton topic -> queue map. One is
// constructed at startup (see internal/agent) and shared by reference
// through the protocol.Handler that serves every connection; there is no
// hidden global.
type Registry struct {
	mu     sync.Mutex
	topics map[string]*Queue

	log    ActivityLog
	logger *zap.Logger
}

// New constructs an empty Registry that mirrors activity into log.
func New(log ActivityLog) *Registry {
	return &Registry{
		topics: make(map[string]*Queue),
		log:    log,
		logger: zap.L().Named("topic"),
	}
}

// queueFor returns (creating if absent) the queue for name. Callers must
// not hold any Queue lock when calling this - it acquires the outer map
// lock, and the outer map lock is always acquired before any per-queue
// lock, never the reverse.
func (r *Registry) queueFor(name string) *Queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.topics[name]
	if !ok {
		q = &Queue{}
		r.topics[name] = q
	}
	return q
}

// Publish appends msg to topic's tail, creating the topic if needed, and
// records the event. Publish always succeeds.
func (r *Registry) Publish(ctx context.Context, topicName, msg string) {
	ctx, span := trace.StartSpan(ctx, "topic.Publish")
	defer span.End()

	q := r.queueFor(topicName)
	q.Publish(msg)

	r.log.Append("info", "Published to "+topicName+": "+msg)
	telemetry.RecordPublish(ctx, topicName)
	r.logger.Debug("published", zap.String("topic", topicName))
}

// Pull removes and returns the head of topic's queue. ok is false if the
// topic is unknown or its queue is currently empty; neither case is
// treated as an error.
func (r *Registry) Pull(ctx context.Context, topicName string) (msg string, ok bool) {
	ctx, span := trace.StartSpan(ctx, "topic.Pull")
	defer span.End()

	r.mu.Lock()
	q, exists := r.topics[topicName]
	r.mu.Unlock()
	if !exists {
		telemetry.RecordPull(ctx, topicName, false)
		return "", false
	}

	msg, ok = q.Pull()
	if ok {
		r.log.Append("info", "Pulled from topic: "+topicName)
	}
	telemetry.RecordPull(ctx, topicName, ok)
	return msg, ok
}

// HasTopic reports whether topicName has ever been published to.
func (r *Registry) HasTopic(topicName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.topics[topicName]
	return ok
}

// TopicList returns a snapshot of all known topic names, for diagnostics
// (see internal/admin). Iteration order is unspecified.
func (r *Registry) TopicList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}
	return names
}
