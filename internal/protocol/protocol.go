// Package protocol implements the line-delimited text wire protocol:
// SUBSCRIBE, PULL, PUBLISH, and an INVALID_CMD fallback.
package protocol

import (
	"context"
	"strings"

	"github.com/mensah-dev/brokerd/internal/topic"
	"go.uber.org/zap"
)

const (
	ReplyOK          = "OK"
	ReplyNoMessages  = "NO_MESSAGES"
	ReplyNoTopic     = "NO_TOPIC"
	invalidCmdPrefix = "INVALID_CMD: "
)

// ActivityLog is the logging surface Handler needs to mirror command
// dispatch, independently of whatever the topic registry itself logs.
type ActivityLog interface {
	Append(level, message string)
}

// Subscriber is the subset of *session.Session the handler needs: a
// growable set of subscribed topics. There is no way to shrink it - no
// UNSUBSCRIBE exists in this protocol.
type Subscriber interface {
	Subscribe(topicName string)
	Topics() []string
}

// Handler parses and dispatches one command at a time. It holds no
// per-connection state itself; that lives in the Subscriber passed to
// Handle.
type Handler struct {
	registry *topic.Registry
	log      ActivityLog
	logger   *zap.Logger
}

// New builds a Handler bound to registry, mirroring dispatch events into
// log.
func New(registry *topic.Registry, log ActivityLog) *Handler {
	return &Handler{registry: registry, log: log, logger: zap.L().Named("protocol")}
}

// Handle parses and executes a single already newline-split command line
// and returns the reply to write back verbatim (no trailing newline). It
// never returns an empty string and never closes the connection itself -
// transport errors are the connection server's concern, not the
// handler's.
func (h *Handler) Handle(ctx context.Context, raw string, sub Subscriber) string {
	cmd := strings.TrimRight(raw, " \t\r\n")
	h.log.Append("info", "received command: "+cmd)

	switch {
	case strings.HasPrefix(cmd, "SUBSCRIBE "):
		return h.handleSubscribe(cmd, sub)
	case cmd == "PULL" || strings.HasPrefix(cmd, "PULL "):
		return h.handlePull(ctx, sub)
	case strings.HasPrefix(cmd, "PUBLISH "):
		return h.handlePublish(ctx, cmd)
	default:
		return h.invalid(cmd)
	}
}

func (h *Handler) handleSubscribe(cmd string, sub Subscriber) string {
	topicName := cmd[len("SUBSCRIBE "):]
	if topicName == "" {
		return h.invalid(cmd)
	}

	sub.Subscribe(topicName)
	h.log.Append("info", "Subscribed client to "+topicName)
	return ReplyOK
}

func (h *Handler) handlePull(ctx context.Context, sub Subscriber) string {
	topics := sub.Topics()
	if len(topics) == 0 {
		return ReplyNoTopic
	}

	for _, topicName := range topics {
		if msg, ok := h.registry.Pull(ctx, topicName); ok {
			h.log.Append("info", "Pulled message for client from "+topicName)
			return msg
		}
	}

	h.log.Append("info", "No messages available for client")
	return ReplyNoMessages
}

func (h *Handler) handlePublish(ctx context.Context, cmd string) string {
	rest := cmd[len("PUBLISH "):]
	sep := strings.IndexByte(rest, ' ')
	if sep < 0 {
		return h.invalid(cmd)
	}

	topicName, msg := rest[:sep], rest[sep+1:]
	h.registry.Publish(ctx, topicName, msg)
	h.log.Append("info", "Published via command to "+topicName)
	return ReplyOK
}

func (h *Handler) invalid(cmd string) string {
	h.log.Append("info", "Invalid command: "+cmd)
	return invalidCmdPrefix + cmd
}
