// Package integrity audits stored reply rows for structural corruption:
// broken root pointers, depth drift, dangling parents and parent cycles.
package integrity

import (
	"context"
	"fmt"
	"sort"

	"github.com/example/community-platform/services/threads/internal/store"
)

type Kind string

const (
	DepthMismatch   Kind = "depth_mismatch"
	RootMismatch    Kind = "root_mismatch"
	RootOnTopLevel  Kind = "root_on_top_level"
	ParentMissing   Kind = "parent_missing"
	PostMismatch    Kind = "post_mismatch"
	Cycle           Kind = "cycle"
	LiveUnderDelete Kind = "live_under_deleted"
)

type Violation struct {
	ReplyID int64  `json:"reply_id"`
	Kind    Kind   `json:"kind"`
	Detail  string `json:"detail"`
}

type Report struct {
	PostID     int64       `json:"post_id"`
	Replies    int         `json:"replies"`
	Violations []Violation `json:"violations"`
}

func (r Report) OK() bool { return len(r.Violations) == 0 }

type Checker struct {
	Store store.Queries
	// PageSize bounds ListPostIDs batches in CheckAll.
	PageSize int
}

// CheckPost validates every row of a post, soft-deleted ones included.
func (c Checker) CheckPost(ctx context.Context, postID int64) (Report, error) {
	rows, err := c.Store.ListAllForPost(ctx, postID)
	if err != nil {
		return Report{}, fmt.Errorf("list replies of post %d: %w", postID, err)
	}
	rep := Report{PostID: postID, Replies: len(rows), Violations: []Violation{}}

	byID := make(map[int64]store.Reply, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	foreign, err := c.foreignParents(ctx, rows, byID)
	if err != nil {
		return Report{}, fmt.Errorf("look up parents of post %d: %w", postID, err)
	}
	add := func(id int64, k Kind, format string, args ...any) {
		rep.Violations = append(rep.Violations, Violation{ReplyID: id, Kind: k, Detail: fmt.Sprintf(format, args...)})
	}

	for _, r := range rows {
		if r.InReplyToID == nil {
			if r.Depth != 0 {
				add(r.ID, DepthMismatch, "top-level reply has depth %d", r.Depth)
			}
			if r.RootReplyID != nil {
				add(r.ID, RootOnTopLevel, "top-level reply points at root %d", *r.RootReplyID)
			}
			continue
		}

		parent, ok := byID[*r.InReplyToID]
		if !ok {
			if other, found := foreign[*r.InReplyToID]; found {
				add(r.ID, PostMismatch, "parent %d belongs to post %d", other.ID, other.PostID)
			} else {
				add(r.ID, ParentMissing, "parent %d does not exist", *r.InReplyToID)
			}
			continue
		}
		if r.Depth != parent.Depth+1 {
			add(r.ID, DepthMismatch, "depth %d, parent depth %d", r.Depth, parent.Depth)
		}
		if r.DeletedAt == nil && parent.DeletedAt != nil {
			add(r.ID, LiveUnderDelete, "parent %d is deleted", parent.ID)
		}

		root, cyclic := walkToRoot(r, byID)
		switch {
		case cyclic:
			add(r.ID, Cycle, "parent chain loops")
		case root == 0:
			// chain leaves the post; reported on the broken link
		case r.RootReplyID == nil:
			add(r.ID, RootMismatch, "missing root pointer, expected %d", root)
		case *r.RootReplyID != root:
			add(r.ID, RootMismatch, "root pointer %d, expected %d", *r.RootReplyID, root)
		}
	}

	sort.SliceStable(rep.Violations, func(i, j int) bool {
		return rep.Violations[i].ReplyID < rep.Violations[j].ReplyID
	})
	return rep, nil
}

// foreignParents loads parents referenced by rows but absent from the post.
func (c Checker) foreignParents(ctx context.Context, rows []store.Reply, byID map[int64]store.Reply) (map[int64]store.Reply, error) {
	var ids []int64
	for _, r := range rows {
		if r.InReplyToID == nil {
			continue
		}
		if _, ok := byID[*r.InReplyToID]; !ok {
			ids = append(ids, *r.InReplyToID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := c.Store.LookupReplies(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]store.Reply, len(found))
	for _, r := range found {
		out[r.ID] = r
	}
	return out, nil
}

// walkToRoot follows parent links to the depth-0 ancestor. It returns 0 when
// the chain reaches a parent outside byID.
func walkToRoot(r store.Reply, byID map[int64]store.Reply) (int64, bool) {
	seen := map[int64]struct{}{r.ID: {}}
	cur := r
	for cur.InReplyToID != nil {
		next, ok := byID[*cur.InReplyToID]
		if !ok {
			return 0, false
		}
		if _, loop := seen[next.ID]; loop {
			return 0, true
		}
		seen[next.ID] = struct{}{}
		cur = next
	}
	return cur.ID, false
}

// CheckAll runs CheckPost over every post and returns only failing reports.
func (c Checker) CheckAll(ctx context.Context) (checked int, failing []Report, err error) {
	size := c.PageSize
	if size <= 0 {
		size = 500
	}
	var after int64
	for {
		ids, err := c.Store.ListPostIDs(ctx, after, size)
		if err != nil {
			return checked, failing, fmt.Errorf("list posts: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return checked, failing, err
			}
			rep, err := c.CheckPost(ctx, id)
			if err != nil {
				return checked, failing, err
			}
			checked++
			if !rep.OK() {
				failing = append(failing, rep)
			}
		}
		if len(ids) < size {
			return checked, failing, nil
		}
		after = ids[len(ids)-1]
	}
}
