// Package events publishes thread lifecycle notifications to NATS JetStream.
// Publishing is fire-and-forget: a failure is logged and never fails the
// write that produced the event.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/community-platform/services/threads/internal/store"
)

const (
	StreamName    = "THREADS_EVENTS"
	StreamSubject = "threads.>"

	SubjectReplyCreated = "threads.reply.created"
	SubjectReplyUpdated = "threads.reply.updated"
	SubjectReplyDeleted = "threads.reply.deleted"
	SubjectPostDeleted  = "threads.post.deleted"
)

// Event is the envelope sent to every threads.* subject.
type Event struct {
	EventID    string          `json:"event_id"`
	EventName  string          `json:"event_name"`
	ActorID    string          `json:"actor_id,omitempty"`
	PostID     int64           `json:"post_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type ReplyPayload struct {
	ReplyID     int64  `json:"reply_id"`
	InReplyToID *int64 `json:"in_reply_to_id,omitempty"`
	RootReplyID *int64 `json:"root_reply_id,omitempty"`
	Depth       int    `json:"depth"`
	Cascaded    int64  `json:"cascaded,omitempty"`
}

type PostPayload struct {
	RepliesDeleted int64 `json:"replies_deleted"`
}

// Publisher is safe to use as a nil pointer; every method is then a no-op.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher. Pass js=nil for a no-op stub.
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureStream creates the THREADS_EVENTS stream or widens its subjects.
func (p *Publisher) EnsureStream(_ context.Context) error {
	if p == nil || p.js == nil {
		return nil
	}
	info, err := p.js.StreamInfo(StreamName)
	if err == nil {
		for _, s := range info.Config.Subjects {
			if s == StreamSubject {
				return nil
			}
		}
		cfg := info.Config
		cfg.Subjects = []string{StreamSubject}
		_, err := p.js.UpdateStream(&cfg)
		return err
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamSubject},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

func (p *Publisher) ReplyCreated(r store.Reply) {
	p.publish(SubjectReplyCreated, "reply_created", r.AuthorID, r.PostID, replyPayload(r, 0))
}

func (p *Publisher) ReplyUpdated(r store.Reply) {
	p.publish(SubjectReplyUpdated, "reply_updated", r.AuthorID, r.PostID, replyPayload(r, 0))
}

func (p *Publisher) ReplyDeleted(r store.Reply, cascaded int64) {
	p.publish(SubjectReplyDeleted, "reply_deleted", r.AuthorID, r.PostID, replyPayload(r, cascaded))
}

func (p *Publisher) PostDeleted(actorID string, postID, repliesDeleted int64) {
	p.publish(SubjectPostDeleted, "post_deleted", actorID, postID, PostPayload{RepliesDeleted: repliesDeleted})
}

func replyPayload(r store.Reply, cascaded int64) ReplyPayload {
	return ReplyPayload{
		ReplyID:     r.ID,
		InReplyToID: r.InReplyToID,
		RootReplyID: r.RootReplyID,
		Depth:       r.Depth,
		Cascaded:    cascaded,
	}
}

func (p *Publisher) publish(subject, name, actorID string, postID int64, payload any) {
	if p == nil || p.js == nil {
		return
	}
	data, err := p.encode(name, actorID, postID, payload)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", name), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (p *Publisher) encode(name, actorID string, postID int64, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{
		EventID:    uuid.NewString(),
		EventName:  name,
		ActorID:    actorID,
		PostID:     postID,
		OccurredAt: p.now(),
		Payload:    raw,
	})
}
