package thread

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/community-platform/services/threads/internal/store"
)

type CreateReplyParams struct {
	PostID      int64
	AuthorID    string
	Content     string
	InReplyToID *int64
}

// CreateReply validates the reply context and inserts the row. Depth and
// root pointer are derived from the parent inside the same transaction.
// Content is checked last, after post, author and parent.
func (s *Service) CreateReply(ctx context.Context, p CreateReplyParams) (store.Reply, error) {
	var created store.Reply
	err := s.store.InTx(ctx, func(q store.Queries) error {
		if _, err := openPost(ctx, q, p.PostID); err != nil {
			return err
		}
		if _, err := q.GetAuthor(ctx, p.AuthorID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthorizedAuthor
			}
			return err
		}

		row := store.NewReply{PostID: p.PostID, AuthorID: p.AuthorID, Content: p.Content}
		if p.InReplyToID != nil {
			parent, err := q.GetReply(ctx, *p.InReplyToID)
			if errors.Is(err, store.ErrNotFound) {
				return ErrParentNotFound
			}
			if err != nil {
				return err
			}
			if parent.PostID != p.PostID {
				return ErrParentMismatch
			}
			row.InReplyToID = &parent.ID
			row.Depth, row.RootReplyID = childPosition(parent)
		}
		if strings.TrimSpace(p.Content) == "" {
			return ErrEmptyContent
		}

		var err error
		created, err = q.InsertReply(ctx, row)
		return err
	})
	if err != nil {
		return store.Reply{}, err
	}

	if created.Depth == 0 {
		s.invalidateCount(ctx, created.PostID)
	}
	s.log.Debug("reply created",
		zap.Int64("reply_id", created.ID),
		zap.Int64("post_id", created.PostID),
		zap.Int("depth", created.Depth))
	return created, nil
}

// childPosition returns depth and root pointer for a reply to parent. The
// root pointer always names the depth-0 ancestor directly.
func childPosition(parent store.Reply) (int, *int64) {
	root := parent.ID
	if parent.Depth > 0 && parent.RootReplyID != nil {
		root = *parent.RootReplyID
	}
	return parent.Depth + 1, &root
}

// UpdateReply replaces the content of a live reply owned by authorID.
func (s *Service) UpdateReply(ctx context.Context, replyID int64, authorID, content string) (store.Reply, error) {
	if strings.TrimSpace(content) == "" {
		return store.Reply{}, ErrEmptyContent
	}

	var updated store.Reply
	err := s.store.InTx(ctx, func(q store.Queries) error {
		r, err := q.GetReplyForUpdate(ctx, replyID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrReplyNotFound
		}
		if err != nil {
			return err
		}
		if r.AuthorID != authorID {
			return ErrNotReplyAuthor
		}
		updated, err = q.UpdateContent(ctx, replyID, content, s.now())
		if errors.Is(err, store.ErrNotFound) {
			return ErrReplyNotFound
		}
		return err
	})
	return updated, err
}
