// Package store persists posts, profiles and reply rows for the thread engine.
//
// Replies form a self-referencing hierarchy kept flat in storage: every row
// carries its immediate parent (InReplyToID) and a denormalised pointer to
// its depth-0 ancestor (RootReplyID). Tree shape is rebuilt on read.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when the row is missing or
// soft-deleted.
var ErrNotFound = errors.New("not found")

// Post is the container a reply thread hangs off.
type Post struct {
	ID            int64      `json:"id"`
	BoardID       int64      `json:"board_id"`
	AllowComments bool       `json:"allow_comments"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// AuthorSummary holds the display fields of a reply author.
type AuthorSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Reply is a single row of a thread.
type Reply struct {
	ID          int64         `json:"id"`
	PostID      int64         `json:"post_id"`
	AuthorID    string        `json:"author_id"`
	Author      AuthorSummary `json:"author"`
	Content     string        `json:"content"`
	InReplyToID *int64        `json:"in_reply_to_id,omitempty"`
	Depth       int           `json:"depth"`
	RootReplyID *int64        `json:"root_reply_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// NewReply carries the columns written on insert. ID and timestamps are
// assigned by the store.
type NewReply struct {
	PostID      int64
	AuthorID    string
	Content     string
	InReplyToID *int64
	Depth       int
	RootReplyID *int64
}

// Queries is the set of operations available both on the store and inside
// a transaction.
type Queries interface {
	// GetPost returns a live post or ErrNotFound.
	GetPost(ctx context.Context, postID int64) (Post, error)
	// GetAuthor returns the profile summary or ErrNotFound.
	GetAuthor(ctx context.Context, authorID string) (AuthorSummary, error)
	// GetReply returns a live reply or ErrNotFound. Inside a transaction the
	// row is share-locked so it cannot be deleted before commit.
	GetReply(ctx context.Context, replyID int64) (Reply, error)
	// GetReplyForUpdate is GetReply with an exclusive row lock, for callers
	// that go on to modify the row in the same transaction.
	GetReplyForUpdate(ctx context.Context, replyID int64) (Reply, error)
	// LookupReplies returns the rows with the given ids regardless of post
	// or deleted state, ascending by id. Missing ids are skipped.
	LookupReplies(ctx context.Context, ids []int64) ([]Reply, error)

	InsertReply(ctx context.Context, r NewReply) (Reply, error)
	// UpdateContent rewrites a live reply's content and returns the new row,
	// or ErrNotFound.
	UpdateContent(ctx context.Context, replyID int64, content string, at time.Time) (Reply, error)

	// ListTopLevel returns live depth-0 replies of a post with id > afterID,
	// ascending by id, at most limit rows.
	ListTopLevel(ctx context.Context, postID, afterID int64, limit int) ([]Reply, error)
	// CountTopLevel counts live depth-0 replies of a post.
	CountTopLevel(ctx context.Context, postID int64) (int, error)
	// ListByRoots returns every live reply whose RootReplyID is in rootIDs,
	// ordered by created_at then id.
	ListByRoots(ctx context.Context, rootIDs []int64) ([]Reply, error)
	// ListChildIDs returns ids of replies (deleted or not) whose InReplyToID
	// is in parentIDs, ascending.
	ListChildIDs(ctx context.Context, parentIDs []int64) ([]int64, error)
	// ListAllForPost returns every reply of a post including soft-deleted
	// rows, ascending by id. Used by integrity checks.
	ListAllForPost(ctx context.Context, postID int64) ([]Reply, error)
	// ListPostIDs pages over all post ids (deleted or not) above afterID.
	ListPostIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)

	// SoftDeleteReply marks one live reply deleted. It returns ErrNotFound
	// when the row is missing or already deleted.
	SoftDeleteReply(ctx context.Context, replyID int64, at time.Time) error
	// SoftDeleteReplies marks the live rows among ids deleted and returns
	// the number of rows changed.
	SoftDeleteReplies(ctx context.Context, ids []int64, at time.Time) (int64, error)
	// SoftDeleteByRoot marks every live reply with RootReplyID == rootID
	// deleted in one statement.
	SoftDeleteByRoot(ctx context.Context, rootID int64, at time.Time) (int64, error)
	// SoftDeletePost marks a live post deleted or returns ErrNotFound.
	SoftDeletePost(ctx context.Context, postID int64, at time.Time) error
	// SoftDeleteByPost marks every live reply of a post deleted.
	SoftDeleteByPost(ctx context.Context, postID int64, at time.Time) (int64, error)
}

// Store is a Queries implementation that can also run a unit of work
// atomically. fn's Queries must not be used after fn returns.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
