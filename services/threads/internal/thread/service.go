// Package thread implements the threaded reply engine: creating replies with
// a denormalised root pointer, cursor-paginated tree reads, and cascading
// soft deletes.
package thread

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/community-platform/services/threads/internal/store"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// CountCache caches the number of live top-level replies per post. A
// miss is reported as ok == false.
type CountCache interface {
	GetCount(ctx context.Context, postID int64) (n int, ok bool, err error)
	SetCount(ctx context.Context, postID int64, n int) error
	Invalidate(ctx context.Context, postID int64) error
}

// Options configures a Service. Only Store is required.
type Options struct {
	Store  store.Store
	Logger *zap.Logger
	Counts CountCache
	// DefaultLimit and MaxLimit bound ListReplies page sizes.
	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
}

type Service struct {
	store        store.Store
	log          *zap.Logger
	counts       CountCache
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

func NewService(opts Options) *Service {
	s := &Service{
		store:        opts.Store,
		log:          opts.Logger,
		counts:       opts.Counts,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		now:          opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxLimit <= 0 {
		s.maxLimit = MaxLimit
	}
	if s.defaultLimit <= 0 || s.defaultLimit > s.maxLimit {
		s.defaultLimit = min(DefaultLimit, s.maxLimit)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// openPost loads a post that accepts replies.
func openPost(ctx context.Context, q store.Queries, postID int64) (store.Post, error) {
	p, err := q.GetPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Post{}, ErrPostNotFound
	}
	if err != nil {
		return store.Post{}, err
	}
	if !p.AllowComments {
		return store.Post{}, ErrCommentsDisabled
	}
	return p, nil
}

// invalidateCount drops the cached total for a post. Cache failures are
// logged but never fail the write that triggered them.
func (s *Service) invalidateCount(ctx context.Context, postID int64) {
	if s.counts == nil {
		return
	}
	if err := s.counts.Invalidate(ctx, postID); err != nil {
		s.log.Warn("count cache invalidate failed", zap.Int64("post_id", postID), zap.Error(err))
	}
}
