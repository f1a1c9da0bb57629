package thread

import (
	"time"

	"github.com/example/community-platform/services/threads/internal/store"
)

// Node is one reply in a materialised thread tree.
type Node struct {
	ID        int64               `json:"id"`
	PostID    int64               `json:"post_id"`
	Content   string              `json:"content"`
	Depth     int                 `json:"depth"`
	Author    store.AuthorSummary `json:"author"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
	Children  []*Node             `json:"children"`
}

// BuildTree links a flat reply set into trees. Roots keep their input order
// and so do siblings; nothing is re-sorted.
//
// A reply whose parent is absent from the input cannot be placed and is left
// out of the result; its id is returned in orphans.
func BuildTree(replies []store.Reply) (roots []*Node, orphans []int64) {
	index := make(map[int64]*Node, len(replies))
	for _, r := range replies {
		index[r.ID] = &Node{
			ID:        r.ID,
			PostID:    r.PostID,
			Content:   r.Content,
			Depth:     r.Depth,
			Author:    r.Author,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			Children:  []*Node{},
		}
	}

	roots = []*Node{}
	for _, r := range replies {
		n := index[r.ID]
		if r.InReplyToID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := index[*r.InReplyToID]
		if !ok {
			orphans = append(orphans, r.ID)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots, orphans
}

// CountNodes returns the number of nodes in the forest, nested ones included.
func CountNodes(nodes []*Node) int {
	n := 0
	stack := append([]*Node(nil), nodes...)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, top.Children...)
	}
	return n
}
