package thread

import (
	"testing"
	"time"

	"github.com/example/community-platform/services/threads/internal/store"
)

func ptr(v int64) *int64 { return &v }

func flatThread() []store.Reply {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []store.Reply{
		{ID: 1, PostID: 9, Content: "root a", CreatedAt: t0},
		{ID: 2, PostID: 9, Content: "root b", CreatedAt: t0.Add(time.Second)},
		{ID: 3, PostID: 9, Content: "a.1", InReplyToID: ptr(1), Depth: 1, RootReplyID: ptr(1), CreatedAt: t0.Add(2 * time.Second)},
		{ID: 5, PostID: 9, Content: "a.1.1", InReplyToID: ptr(3), Depth: 2, RootReplyID: ptr(1), CreatedAt: t0.Add(3 * time.Second)},
		{ID: 4, PostID: 9, Content: "a.2", InReplyToID: ptr(1), Depth: 1, RootReplyID: ptr(1), CreatedAt: t0.Add(4 * time.Second)},
		{ID: 6, PostID: 9, Content: "b.1", InReplyToID: ptr(2), Depth: 1, RootReplyID: ptr(2), CreatedAt: t0.Add(5 * time.Second)},
	}
}

func TestBuildTree_Shape(t *testing.T) {
	roots, orphans := BuildTree(flatThread())
	if len(orphans) != 0 {
		t.Fatalf("expected no orphans, got %v", orphans)
	}
	if len(roots) != 2 || roots[0].ID != 1 || roots[1].ID != 2 {
		t.Fatalf("unexpected roots: %+v", roots)
	}
	a := roots[0]
	if len(a.Children) != 2 || a.Children[0].ID != 3 || a.Children[1].ID != 4 {
		t.Fatalf("expected children [3 4] in input order, got %+v", a.Children)
	}
	if len(a.Children[0].Children) != 1 || a.Children[0].Children[0].ID != 5 {
		t.Fatalf("expected 5 under 3, got %+v", a.Children[0].Children)
	}
	if len(roots[1].Children) != 1 || roots[1].Children[0].ID != 6 {
		t.Fatalf("expected 6 under 2, got %+v", roots[1].Children)
	}
}

func TestBuildTree_NodeCountMatchesInput(t *testing.T) {
	flat := flatThread()
	roots, _ := BuildTree(flat)
	if got := CountNodes(roots); got != len(flat) {
		t.Fatalf("expected %d nodes, got %d", len(flat), got)
	}
}

func TestBuildTree_KeepsInputOrder(t *testing.T) {
	flat := []store.Reply{
		{ID: 7},
		{ID: 2},
		{ID: 9, InReplyToID: ptr(7), Depth: 1, RootReplyID: ptr(7)},
		{ID: 8, InReplyToID: ptr(7), Depth: 1, RootReplyID: ptr(7)},
	}
	roots, _ := BuildTree(flat)
	if roots[0].ID != 7 || roots[1].ID != 2 {
		t.Fatalf("roots must not be re-sorted: %d, %d", roots[0].ID, roots[1].ID)
	}
	if roots[0].Children[0].ID != 9 || roots[0].Children[1].ID != 8 {
		t.Fatal("children must not be re-sorted")
	}
}

func TestBuildTree_DropsOrphans(t *testing.T) {
	flat := []store.Reply{
		{ID: 1},
		{ID: 2, InReplyToID: ptr(1), Depth: 1, RootReplyID: ptr(1)},
		{ID: 3, InReplyToID: ptr(42), Depth: 2, RootReplyID: ptr(1)},
	}
	roots, orphans := BuildTree(flat)
	if len(orphans) != 1 || orphans[0] != 3 {
		t.Fatalf("expected orphan [3], got %v", orphans)
	}
	if CountNodes(roots) != 2 {
		t.Fatalf("expected orphan dropped, got %d nodes", CountNodes(roots))
	}
}

func TestBuildTree_Empty(t *testing.T) {
	roots, orphans := BuildTree(nil)
	if roots == nil || len(roots) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", roots)
	}
	if orphans != nil {
		t.Fatalf("expected no orphans, got %v", orphans)
	}
}

func TestBuildTree_LeafChildrenNonNil(t *testing.T) {
	roots, _ := BuildTree([]store.Reply{{ID: 1}})
	if roots[0].Children == nil {
		t.Fatal("leaf children must encode as [] not null")
	}
}
