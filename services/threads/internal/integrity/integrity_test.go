package integrity

import (
	"context"
	"testing"
	"time"

	"github.com/example/community-platform/services/threads/internal/store"
)

func ptr(v int64) *int64 { return &v }

func plant(s *store.MemoryStore, rows ...store.Reply) {
	for _, r := range rows {
		s.PutReply(r)
	}
}

func kinds(rep Report) map[int64]Kind {
	out := map[int64]Kind{}
	for _, v := range rep.Violations {
		out[v.ReplyID] = v.Kind
	}
	return out
}

func TestCheckPost_CleanThread(t *testing.T) {
	s := store.NewMemoryStore()
	p := s.AddPost(store.Post{AllowComments: true})
	plant(s,
		store.Reply{ID: 1, PostID: p.ID},
		store.Reply{ID: 2, PostID: p.ID, InReplyToID: ptr(1), Depth: 1, RootReplyID: ptr(1)},
		store.Reply{ID: 3, PostID: p.ID, InReplyToID: ptr(2), Depth: 2, RootReplyID: ptr(1)},
	)

	rep, err := Checker{Store: s}.CheckPost(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !rep.OK() || rep.Replies != 3 {
		t.Fatalf("expected clean report for 3 replies, got %+v", rep)
	}
}

func TestCheckPost_DetectsCorruption(t *testing.T) {
	s := store.NewMemoryStore()
	p := s.AddPost(store.Post{AllowComments: true})
	now := time.Now()
	plant(s,
		store.Reply{ID: 1, PostID: p.ID},
		// depth on top-level
		store.Reply{ID: 2, PostID: p.ID, Depth: 1},
		// root on top-level
		store.Reply{ID: 3, PostID: p.ID, RootReplyID: ptr(1)},
		// depth drift
		store.Reply{ID: 4, PostID: p.ID, InReplyToID: ptr(1), Depth: 3, RootReplyID: ptr(1)},
		// root points at parent
		store.Reply{ID: 5, PostID: p.ID, InReplyToID: ptr(4), Depth: 4, RootReplyID: ptr(4)},
		// dangling parent
		store.Reply{ID: 6, PostID: p.ID, InReplyToID: ptr(99), Depth: 1, RootReplyID: ptr(99)},
		// 7 and 8 form a cycle
		store.Reply{ID: 7, PostID: p.ID, InReplyToID: ptr(8), Depth: 1, RootReplyID: ptr(1)},
		store.Reply{ID: 8, PostID: p.ID, InReplyToID: ptr(7), Depth: 2, RootReplyID: ptr(1)},
		store.Reply{ID: 9, PostID: p.ID, DeletedAt: &now},
		// live under deleted
		store.Reply{ID: 10, PostID: p.ID, InReplyToID: ptr(9), Depth: 1, RootReplyID: ptr(9)},
	)

	rep, err := Checker{Store: s}.CheckPost(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	want := map[int64]Kind{
		2:  DepthMismatch,
		3:  RootOnTopLevel,
		4:  DepthMismatch,
		5:  RootMismatch,
		6:  ParentMissing,
		7:  Cycle,
		8:  Cycle,
		10: LiveUnderDelete,
	}
	got := kinds(rep)
	for id, k := range want {
		if got[id] != k {
			t.Fatalf("reply %d: expected %s, got %q (all: %+v)", id, k, got[id], rep.Violations)
		}
	}
	if _, flagged := got[1]; flagged {
		t.Fatal("reply 1 is valid")
	}
}

func TestCheckPost_ParentOnAnotherPost(t *testing.T) {
	s := store.NewMemoryStore()
	a := s.AddPost(store.Post{AllowComments: true})
	b := s.AddPost(store.Post{AllowComments: true})
	plant(s,
		store.Reply{ID: 1, PostID: a.ID},
		store.Reply{ID: 2, PostID: b.ID, InReplyToID: ptr(1), Depth: 1, RootReplyID: ptr(1)},
		store.Reply{ID: 3, PostID: b.ID, InReplyToID: ptr(77), Depth: 1, RootReplyID: ptr(77)},
	)

	rep, err := Checker{Store: s}.CheckPost(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	got := kinds(rep)
	if got[2] != PostMismatch {
		t.Fatalf("reply 2: expected %s, got %+v", PostMismatch, rep.Violations)
	}
	if got[3] != ParentMissing {
		t.Fatalf("reply 3: expected %s, got %+v", ParentMissing, rep.Violations)
	}
	if len(rep.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", rep.Violations)
	}
}

func TestCheckAll_PagesAndReportsFailures(t *testing.T) {
	s := store.NewMemoryStore()
	var bad int64
	for i := 0; i < 5; i++ {
		p := s.AddPost(store.Post{AllowComments: true})
		id := int64(100 + i*10)
		plant(s, store.Reply{ID: id, PostID: p.ID})
		if i == 3 {
			bad = p.ID
			plant(s, store.Reply{ID: id + 1, PostID: p.ID, InReplyToID: ptr(id), Depth: 1})
		}
	}

	checked, failing, err := Checker{Store: s, PageSize: 2}.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if checked != 5 {
		t.Fatalf("expected 5 posts checked, got %d", checked)
	}
	if len(failing) != 1 || failing[0].PostID != bad {
		t.Fatalf("expected post %d to fail, got %+v", bad, failing)
	}
	if failing[0].Violations[0].Kind != RootMismatch {
		t.Fatalf("expected root_mismatch, got %+v", failing[0].Violations)
	}
}
