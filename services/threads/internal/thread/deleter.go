package thread

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/community-platform/services/threads/internal/store"
)

// DeleteResult describes a completed reply deletion.
type DeleteResult struct {
	Reply    store.Reply `json:"reply"`
	Cascaded int64       `json:"cascaded"`
}

// DeleteReply soft-deletes a reply owned by actingAuthorID and all of its
// descendants.
//
// A top-level reply's descendants all share its id as root pointer, so one
// bulk update covers them. A nested reply's subtree cannot be isolated that
// way and is found by walking children level by level instead.
func (s *Service) DeleteReply(ctx context.Context, replyID int64, actingAuthorID string) (DeleteResult, error) {
	var res DeleteResult
	err := s.store.InTx(ctx, func(q store.Queries) error {
		r, err := q.GetReplyForUpdate(ctx, replyID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrReplyNotFound
		}
		if err != nil {
			return err
		}
		if r.AuthorID != actingAuthorID {
			return ErrNotReplyAuthor
		}

		at := s.now()
		// Conditional on deleted_at IS NULL: a concurrent delete that won
		// the race surfaces here as not found.
		if err := q.SoftDeleteReply(ctx, r.ID, at); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrReplyNotFound
			}
			return err
		}
		r.DeletedAt = &at
		res.Reply = r

		if r.Depth == 0 {
			res.Cascaded, err = q.SoftDeleteByRoot(ctx, r.ID, at)
		} else {
			res.Cascaded, err = deleteSubtree(ctx, q, r.ID, at)
		}
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}

	if res.Reply.Depth == 0 {
		s.invalidateCount(ctx, res.Reply.PostID)
	}
	s.log.Info("reply deleted",
		zap.Int64("reply_id", res.Reply.ID),
		zap.Int64("post_id", res.Reply.PostID),
		zap.Int("depth", res.Reply.Depth),
		zap.Int64("cascaded", res.Cascaded))
	return res, nil
}

// deleteSubtree walks descendants of id to a fixed point, soft-deleting each
// level as it is discovered. Already-deleted rows are still walked so that
// stragglers left under them by a racing create are swept too.
func deleteSubtree(ctx context.Context, q store.Queries, id int64, at time.Time) (int64, error) {
	visited := map[int64]struct{}{id: {}}
	frontier := []int64{id}
	var total int64

	for len(frontier) > 0 {
		children, err := q.ListChildIDs(ctx, frontier)
		if err != nil {
			return total, err
		}
		next := children[:0]
		for _, c := range children {
			if _, seen := visited[c]; seen {
				continue
			}
			visited[c] = struct{}{}
			next = append(next, c)
		}
		if len(next) == 0 {
			break
		}
		n, err := q.SoftDeleteReplies(ctx, next, at)
		if err != nil {
			return total, err
		}
		total += n
		frontier = next
	}
	return total, nil
}

// DeletePost soft-deletes a post and every live reply attached to it. The
// caller is responsible for authorising the request.
func (s *Service) DeletePost(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(q store.Queries) error {
		at := s.now()
		if err := q.SoftDeletePost(ctx, postID, at); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		var err error
		n, err = q.SoftDeleteByPost(ctx, postID, at)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidateCount(ctx, postID)
	s.log.Info("post deleted", zap.Int64("post_id", postID), zap.Int64("replies_deleted", n))
	return n, nil
}
