package thread

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/community-platform/services/threads/internal/store"
)

type ListParams struct {
	PostID int64
	Limit  int
	// Cursor is the id of the last top-level reply already seen; 0 starts
	// from the beginning.
	Cursor int64
}

// Page is one materialised slice of a thread. Only top-level replies are
// paginated; each carries its full subtree.
type Page struct {
	Tree       []*Node `json:"tree"`
	NextCursor int64   `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
	TotalCount int     `json:"total_count"`
}

// ListReplies returns up to Limit top-level replies after Cursor together
// with every live descendant.
func (s *Service) ListReplies(ctx context.Context, p ListParams) (Page, error) {
	if _, err := openPost(ctx, s.store, p.PostID); err != nil {
		return Page{}, err
	}
	limit := s.clampLimit(p.Limit)

	top, err := s.store.ListTopLevel(ctx, p.PostID, p.Cursor, limit+1)
	if err != nil {
		return Page{}, err
	}
	page := Page{}
	if len(top) > limit {
		page.HasMore = true
		top = top[:limit]
	}

	flat := top
	if len(top) > 0 {
		page.NextCursor = top[len(top)-1].ID

		rootIDs := make([]int64, len(top))
		for i, r := range top {
			rootIDs[i] = r.ID
		}
		nested, err := s.store.ListByRoots(ctx, rootIDs)
		if err != nil {
			return Page{}, err
		}
		flat = make([]store.Reply, 0, len(top)+len(nested))
		flat = append(flat, top...)
		flat = append(flat, nested...)
	}

	tree, orphans := BuildTree(flat)
	if len(orphans) > 0 {
		s.log.Warn("thread contains orphaned replies",
			zap.Int64("post_id", p.PostID),
			zap.Int64s("reply_ids", orphans))
	}
	page.Tree = tree

	page.TotalCount, err = s.totalCount(ctx, p.PostID)
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// totalCount counts live top-level replies, consulting the cache first.
// The count is not transactionally tied to the page contents.
func (s *Service) totalCount(ctx context.Context, postID int64) (int, error) {
	if s.counts != nil {
		n, ok, err := s.counts.GetCount(ctx, postID)
		if err != nil {
			s.log.Warn("count cache read failed", zap.Int64("post_id", postID), zap.Error(err))
		} else if ok {
			return n, nil
		}
	}

	n, err := s.store.CountTopLevel(ctx, postID)
	if err != nil {
		return 0, err
	}
	if s.counts != nil {
		if err := s.counts.SetCount(ctx, postID, n); err != nil {
			s.log.Warn("count cache write failed", zap.Int64("post_id", postID), zap.Error(err))
		}
	}
	return n, nil
}
