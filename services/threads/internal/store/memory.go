package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a development-only in-memory implementation.
// Transactions are serialised and rolled back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex

	mu         sync.RWMutex
	nextPostID int64
	nextID     int64
	posts      map[int64]Post
	profiles   map[string]AuthorSummary
	replies    map[int64]Reply

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[int64]Post),
		profiles: make(map[string]AuthorSummary),
		replies:  make(map[int64]Reply),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddPost registers a post. A zero ID is replaced with the next free id.
func (s *MemoryStore) AddPost(p Post) Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextPostID++
		p.ID = s.nextPostID
	} else if p.ID > s.nextPostID {
		s.nextPostID = p.ID
	}
	s.posts[p.ID] = p
	return p
}

// AddProfile registers an author profile.
func (s *MemoryStore) AddProfile(a AuthorSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[a.ID] = a
}

// Reply returns a row regardless of its deleted state. Test helper.
func (s *MemoryStore) Reply(id int64) (Reply, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.replies[id]
	return r, ok
}

// PutReply stores a raw row as-is, bypassing every invariant. Integrity
// tests use it to plant corrupted data.
func (s *MemoryStore) PutReply(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID > s.nextID {
		s.nextID = r.ID
	}
	s.replies[r.ID] = r
}

func (s *MemoryStore) InTx(_ context.Context, fn func(q Queries) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	posts := make(map[int64]Post, len(s.posts))
	for k, v := range s.posts {
		posts[k] = v
	}
	replies := make(map[int64]Reply, len(s.replies))
	for k, v := range s.replies {
		replies[k] = v
	}
	nextID := s.nextID
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.posts, s.replies, s.nextID = posts, replies, nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, postID int64) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[postID]
	if !ok || p.DeletedAt != nil {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetAuthor(_ context.Context, authorID string) (AuthorSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.profiles[authorID]
	if !ok {
		return AuthorSummary{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) GetReply(_ context.Context, replyID int64) (Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.replies[replyID]
	if !ok || r.DeletedAt != nil {
		return Reply{}, ErrNotFound
	}
	return s.withAuthor(r), nil
}

// GetReplyForUpdate is GetReply; InTx already serialises writers.
func (s *MemoryStore) GetReplyForUpdate(ctx context.Context, replyID int64) (Reply, error) {
	return s.GetReply(ctx, replyID)
}

func (s *MemoryStore) LookupReplies(_ context.Context, ids []int64) ([]Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Reply
	for id := range idSet(ids) {
		if r, ok := s.replies[id]; ok {
			out = append(out, s.withAuthor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) InsertReply(_ context.Context, n NewReply) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r := Reply{
		ID:          s.nextID,
		PostID:      n.PostID,
		AuthorID:    n.AuthorID,
		Content:     n.Content,
		InReplyToID: n.InReplyToID,
		Depth:       n.Depth,
		RootReplyID: n.RootReplyID,
		CreatedAt:   s.now(),
	}
	s.replies[r.ID] = r
	return s.withAuthor(r), nil
}

func (s *MemoryStore) UpdateContent(_ context.Context, replyID int64, content string, at time.Time) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replies[replyID]
	if !ok || r.DeletedAt != nil {
		return Reply{}, ErrNotFound
	}
	r.Content = content
	r.UpdatedAt = &at
	s.replies[replyID] = r
	return s.withAuthor(r), nil
}

func (s *MemoryStore) ListTopLevel(_ context.Context, postID, afterID int64, limit int) ([]Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Reply
	for _, r := range s.replies {
		if r.PostID == postID && r.Depth == 0 && r.DeletedAt == nil && r.ID > afterID {
			out = append(out, s.withAuthor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountTopLevel(_ context.Context, postID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.replies {
		if r.PostID == postID && r.Depth == 0 && r.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListByRoots(_ context.Context, rootIDs []int64) ([]Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := idSet(rootIDs)
	var out []Reply
	for _, r := range s.replies {
		if r.RootReplyID == nil || r.DeletedAt != nil {
			continue
		}
		if _, ok := roots[*r.RootReplyID]; ok {
			out = append(out, s.withAuthor(r))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *MemoryStore) ListChildIDs(_ context.Context, parentIDs []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parents := idSet(parentIDs)
	var out []int64
	for _, r := range s.replies {
		if r.InReplyToID == nil {
			continue
		}
		if _, ok := parents[*r.InReplyToID]; ok {
			out = append(out, r.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStore) ListAllForPost(_ context.Context, postID int64) ([]Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Reply
	for _, r := range s.replies {
		if r.PostID == postID {
			out = append(out, s.withAuthor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListPostIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int64
	for id := range s.posts {
		if id > afterID {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SoftDeleteReply(_ context.Context, replyID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replies[replyID]
	if !ok || r.DeletedAt != nil {
		return ErrNotFound
	}
	r.DeletedAt = &at
	s.replies[replyID] = r
	return nil
}

func (s *MemoryStore) SoftDeleteReplies(_ context.Context, ids []int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		r, ok := s.replies[id]
		if !ok || r.DeletedAt != nil {
			continue
		}
		r.DeletedAt = &at
		s.replies[id] = r
		n++
	}
	return n, nil
}

func (s *MemoryStore) SoftDeleteByRoot(_ context.Context, rootID int64, at time.Time) (int64, error) {
	return s.softDeleteWhere(at, func(r Reply) bool {
		return r.RootReplyID != nil && *r.RootReplyID == rootID
	}), nil
}

func (s *MemoryStore) SoftDeletePost(_ context.Context, postID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok || p.DeletedAt != nil {
		return ErrNotFound
	}
	p.DeletedAt = &at
	s.posts[postID] = p
	return nil
}

func (s *MemoryStore) SoftDeleteByPost(_ context.Context, postID int64, at time.Time) (int64, error) {
	return s.softDeleteWhere(at, func(r Reply) bool { return r.PostID == postID }), nil
}

func (s *MemoryStore) softDeleteWhere(at time.Time, match func(Reply) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.replies {
		if r.DeletedAt != nil || !match(r) {
			continue
		}
		r.DeletedAt = &at
		s.replies[id] = r
		n++
	}
	return n
}

// withAuthor resolves display fields; caller holds s.mu.
func (s *MemoryStore) withAuthor(r Reply) Reply {
	if a, ok := s.profiles[r.AuthorID]; ok {
		r.Author = a
	} else {
		r.Author = AuthorSummary{ID: r.AuthorID}
	}
	return r
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortByCreated(rs []Reply) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}
