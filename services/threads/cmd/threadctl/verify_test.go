package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/example/community-platform/services/threads/internal/integrity"
	"github.com/example/community-platform/services/threads/internal/store"
)

func ptr(v int64) *int64 { return &v }

func seeded() (*store.MemoryStore, store.Post, store.Post) {
	s := store.NewMemoryStore()
	good := s.AddPost(store.Post{AllowComments: true})
	bad := s.AddPost(store.Post{AllowComments: true})
	s.PutReply(store.Reply{ID: 1, PostID: good.ID})
	s.PutReply(store.Reply{ID: 2, PostID: good.ID, InReplyToID: ptr(1), Depth: 1, RootReplyID: ptr(1)})
	s.PutReply(store.Reply{ID: 3, PostID: bad.ID})
	s.PutReply(store.Reply{ID: 4, PostID: bad.ID, InReplyToID: ptr(3), Depth: 5, RootReplyID: ptr(3)})
	return s, good, bad
}

func TestRunVerify_SinglePostClean(t *testing.T) {
	s, good, _ := seeded()
	var out bytes.Buffer

	err := runVerify(context.Background(), &out, s, verifyOptions{postID: good.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, out.String())
	}
	if !strings.Contains(out.String(), "checked 1 posts, 0 failing") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunVerify_AllReportsFailures(t *testing.T) {
	s, _, bad := seeded()
	var out bytes.Buffer

	err := runVerify(context.Background(), &out, s, verifyOptions{pageSize: 1})
	if !errors.Is(err, errCorrupt) {
		t.Fatalf("expected errCorrupt, got %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "FAIL: post 2") || !strings.Contains(text, string(integrity.DepthMismatch)) {
		t.Fatalf("expected failing post %d in output, got %q", bad.ID, text)
	}
	if !strings.Contains(text, "checked 2 posts, 1 failing") {
		t.Fatalf("unexpected summary %q", text)
	}
}

func TestRunVerify_JSON(t *testing.T) {
	s, _, bad := seeded()
	var out bytes.Buffer

	_ = runVerify(context.Background(), &out, s, verifyOptions{jsonOut: true})

	var reports []integrity.Report
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("decode: %v (%s)", err, out.String())
	}
	if len(reports) != 1 || reports[0].PostID != bad.ID {
		t.Fatalf("unexpected reports %+v", reports)
	}
}

func TestVerifyCmd_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"verify"})
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)
	cmd.SetOut(&errOut)

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected missing DATABASE_URL error, got %v", err)
	}
}
