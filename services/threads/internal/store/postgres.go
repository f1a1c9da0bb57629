package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var replyColumns = []string{
	"r.id", "r.post_id", "r.author_id",
	"COALESCE(pr.display_name, '')", "COALESCE(pr.avatar_url, '')",
	"r.content", "r.in_reply_to_id", "r.depth", "r.root_reply_id",
	"r.created_at", "r.updated_at", "r.deleted_at",
}

// PostgresStore persists threads in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	pgQueries
}

// NewPostgresStore creates a store backed by Postgres.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, pgQueries: pgQueries{db: pool}}
}

// InTx runs fn inside a read-committed transaction. Reply lookups made
// through fn's Queries take a FOR SHARE lock on the row.
func (s *PostgresStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgQueries{db: tx, inTx: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgQueries struct {
	db   querier
	inTx bool
}

func (q pgQueries) GetPost(ctx context.Context, postID int64) (Post, error) {
	query, args, err := psql.
		Select("p.id", "p.board_id", "p.allow_comments AND COALESCE(b.allow_comments, true)", "p.deleted_at").
		From("posts p").
		LeftJoin("boards b ON b.id = p.board_id").
		Where(sq.Eq{"p.id": postID, "p.deleted_at": nil}).
		ToSql()
	if err != nil {
		return Post{}, err
	}
	var p Post
	err = q.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.BoardID, &p.AllowComments, &p.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

func (q pgQueries) GetAuthor(ctx context.Context, authorID string) (AuthorSummary, error) {
	query, args, err := psql.
		Select("user_id", "display_name", "COALESCE(avatar_url, '')").
		From("profiles").
		Where(sq.Eq{"user_id": authorID}).
		ToSql()
	if err != nil {
		return AuthorSummary{}, err
	}
	var a AuthorSummary
	err = q.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.DisplayName, &a.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthorSummary{}, ErrNotFound
	}
	return a, err
}

func (q pgQueries) GetReply(ctx context.Context, replyID int64) (Reply, error) {
	return q.getReply(ctx, replyID, "FOR SHARE OF r")
}

func (q pgQueries) GetReplyForUpdate(ctx context.Context, replyID int64) (Reply, error) {
	return q.getReply(ctx, replyID, "FOR UPDATE OF r")
}

// getReply applies lock only inside a transaction. A row deleted by a
// transaction we waited on is re-checked against deleted_at and comes back
// as ErrNotFound.
func (q pgQueries) getReply(ctx context.Context, replyID int64, lock string) (Reply, error) {
	b := selectReplies().Where(sq.Eq{"r.id": replyID, "r.deleted_at": nil})
	if q.inTx {
		b = b.Suffix(lock)
	}
	rows, err := q.scan(ctx, b)
	if err != nil {
		return Reply{}, err
	}
	if len(rows) == 0 {
		return Reply{}, ErrNotFound
	}
	return rows[0], nil
}

func (q pgQueries) InsertReply(ctx context.Context, n NewReply) (Reply, error) {
	query, args, err := psql.
		Insert("replies").
		Columns("post_id", "author_id", "content", "in_reply_to_id", "depth", "root_reply_id").
		Values(n.PostID, n.AuthorID, n.Content, n.InReplyToID, n.Depth, n.RootReplyID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return Reply{}, err
	}
	r := Reply{
		PostID:      n.PostID,
		AuthorID:    n.AuthorID,
		Content:     n.Content,
		InReplyToID: n.InReplyToID,
		Depth:       n.Depth,
		RootReplyID: n.RootReplyID,
	}
	if err := q.db.QueryRow(ctx, query, args...).Scan(&r.ID, &r.CreatedAt); err != nil {
		return Reply{}, err
	}
	r.Author, err = q.GetAuthor(ctx, n.AuthorID)
	if errors.Is(err, ErrNotFound) {
		r.Author, err = AuthorSummary{ID: n.AuthorID}, nil
	}
	return r, err
}

func (q pgQueries) UpdateContent(ctx context.Context, replyID int64, content string, at time.Time) (Reply, error) {
	query, args, err := psql.
		Update("replies").
		Set("content", content).
		Set("updated_at", at).
		Where(sq.Eq{"id": replyID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return Reply{}, err
	}
	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return Reply{}, err
	}
	if tag.RowsAffected() == 0 {
		return Reply{}, ErrNotFound
	}
	return q.GetReply(ctx, replyID)
}

func (q pgQueries) ListTopLevel(ctx context.Context, postID, afterID int64, limit int) ([]Reply, error) {
	b := selectReplies().
		Where(sq.Eq{"r.post_id": postID, "r.depth": 0, "r.deleted_at": nil}).
		OrderBy("r.id ASC")
	if afterID > 0 {
		b = b.Where(sq.Gt{"r.id": afterID})
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return q.scan(ctx, b)
}

func (q pgQueries) CountTopLevel(ctx context.Context, postID int64) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("replies").
		Where(sq.Eq{"post_id": postID, "depth": 0, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = q.db.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (q pgQueries) ListByRoots(ctx context.Context, rootIDs []int64) ([]Reply, error) {
	if len(rootIDs) == 0 {
		return nil, nil
	}
	b := selectReplies().
		Where("r.root_reply_id = ANY(?)", rootIDs).
		Where(sq.Eq{"r.deleted_at": nil}).
		OrderBy("r.created_at ASC", "r.id ASC")
	return q.scan(ctx, b)
}

func (q pgQueries) ListChildIDs(ctx context.Context, parentIDs []int64) ([]int64, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	query, args, err := psql.
		Select("id").
		From("replies").
		Where("in_reply_to_id = ANY(?)", parentIDs).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	return q.scanIDs(ctx, query, args...)
}

func (q pgQueries) ListAllForPost(ctx context.Context, postID int64) ([]Reply, error) {
	return q.scan(ctx, selectReplies().Where(sq.Eq{"r.post_id": postID}).OrderBy("r.id ASC"))
}

func (q pgQueries) LookupReplies(ctx context.Context, ids []int64) ([]Reply, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return q.scan(ctx, selectReplies().Where("r.id = ANY(?)", ids).OrderBy("r.id ASC"))
}

func (q pgQueries) ListPostIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	b := psql.Select("id").From("posts").Where(sq.Gt{"id": afterID}).OrderBy("id ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return q.scanIDs(ctx, query, args...)
}

func (q pgQueries) SoftDeleteReply(ctx context.Context, replyID int64, at time.Time) error {
	n, err := q.softDelete(ctx, "replies", sq.Eq{"id": replyID, "deleted_at": nil}, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q pgQueries) SoftDeleteReplies(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return q.softDelete(ctx, "replies", sq.And{
		sq.Expr("id = ANY(?)", ids),
		sq.Eq{"deleted_at": nil},
	}, at)
}

func (q pgQueries) SoftDeleteByRoot(ctx context.Context, rootID int64, at time.Time) (int64, error) {
	return q.softDelete(ctx, "replies", sq.Eq{"root_reply_id": rootID, "deleted_at": nil}, at)
}

func (q pgQueries) SoftDeletePost(ctx context.Context, postID int64, at time.Time) error {
	n, err := q.softDelete(ctx, "posts", sq.Eq{"id": postID, "deleted_at": nil}, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q pgQueries) SoftDeleteByPost(ctx context.Context, postID int64, at time.Time) (int64, error) {
	return q.softDelete(ctx, "replies", sq.Eq{"post_id": postID, "deleted_at": nil}, at)
}

func (q pgQueries) softDelete(ctx context.Context, table string, pred sq.Sqlizer, at time.Time) (int64, error) {
	query, args, err := psql.Update(table).Set("deleted_at", at).Where(pred).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := q.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func selectReplies() sq.SelectBuilder {
	return psql.Select(replyColumns...).
		From("replies r").
		LeftJoin("profiles pr ON pr.user_id = r.author_id")
}

func (q pgQueries) scan(ctx context.Context, b sq.SelectBuilder) ([]Reply, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reply
	for rows.Next() {
		var r Reply
		if err := rows.Scan(&r.ID, &r.PostID, &r.AuthorID,
			&r.Author.DisplayName, &r.Author.AvatarURL,
			&r.Content, &r.InReplyToID, &r.Depth, &r.RootReplyID,
			&r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
			return nil, err
		}
		r.Author.ID = r.AuthorID
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q pgQueries) scanIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
