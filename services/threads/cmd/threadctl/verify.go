package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/community-platform/internal/platform/db"
	"github.com/example/community-platform/services/threads/internal/integrity"
	"github.com/example/community-platform/services/threads/internal/store"
)

type verifyOptions struct {
	databaseURL string
	postID      int64
	pageSize    int
	timeout     time.Duration
	jsonOut     bool
}

func newVerifyCmd() *cobra.Command {
	var o verifyOptions
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored replies for structural corruption",
		Long: `Check that every reply's depth and root pointer agree with its parent
chain, and that no reply dangles or sits in a parent cycle.

Without --post every post is checked.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dsn := o.databaseURL
			if dsn == "" {
				dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
			}
			if dsn == "" {
				return fmt.Errorf("either --database-url or DATABASE_URL must be provided")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			pool, err := db.Open(ctx, db.Options{DSN: dsn, MaxConns: 2})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			return runVerify(ctx, cmd.OutOrStdout(), store.NewPostgresStore(pool), o)
		},
	}
	cmd.Flags().StringVar(&o.databaseURL, "database-url", "", "Postgres connection URL")
	cmd.Flags().Int64Var(&o.postID, "post", 0, "Check a single post")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 500, "Posts fetched per batch")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 10*time.Minute, "Overall time limit")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "Print failing reports as JSON")
	return cmd
}

// errCorrupt is returned when any violation is found so the exit code is
// non-zero.
var errCorrupt = errors.New("integrity violations found")

func runVerify(ctx context.Context, out io.Writer, q store.Queries, o verifyOptions) error {
	checker := integrity.Checker{Store: q, PageSize: o.pageSize}

	var (
		checked int
		failing []integrity.Report
	)
	if o.postID > 0 {
		rep, err := checker.CheckPost(ctx, o.postID)
		if err != nil {
			return err
		}
		checked = 1
		if !rep.OK() {
			failing = append(failing, rep)
		}
	} else {
		var err error
		checked, failing, err = checker.CheckAll(ctx)
		if err != nil {
			return err
		}
	}

	if o.jsonOut {
		if failing == nil {
			failing = []integrity.Report{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(failing); err != nil {
			return err
		}
	} else {
		for _, rep := range failing {
			fmt.Fprintf(out, "FAIL: post %d (%d replies)\n", rep.PostID, rep.Replies)
			for _, v := range rep.Violations {
				fmt.Fprintf(out, "  reply %-10d %-20s %s\n", v.ReplyID, v.Kind, v.Detail)
			}
		}
		fmt.Fprintf(out, "checked %d posts, %d failing\n", checked, len(failing))
	}

	if len(failing) > 0 {
		return errCorrupt
	}
	return nil
}
