package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/community-platform/internal/platform/api"
	"github.com/example/community-platform/internal/platform/auth"
	"github.com/example/community-platform/internal/platform/httpserver"
	"github.com/example/community-platform/services/threads/internal/events"
	"github.com/example/community-platform/services/threads/internal/thread"
)

const maxBodyBytes = 1 << 20

// Deps are shared by every reply handler. Events and Log may be nil.
type Deps struct {
	Threads *thread.Service
	Events  *events.Publisher
	Log     *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

type createReplyRequest struct {
	Content     string `json:"content"`
	InReplyToID *int64 `json:"in_reply_to_id,omitempty"`
}

type updateReplyRequest struct {
	Content string `json:"content"`
}

type deleteReplyResponse struct {
	DeletedID int64 `json:"deleted_id"`
	Cascaded  int64 `json:"cascaded"`
}

type deletePostResponse struct {
	PostID         int64 `json:"post_id"`
	RepliesDeleted int64 `json:"replies_deleted"`
}

// ListReplies handles GET /v1/posts/{post_id}/replies
func ListReplies(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := httpserver.RequestIDFromContext(r.Context())
		postID, ok := pathID(w, r, "post_id", reqID)
		if !ok {
			return
		}

		q := r.URL.Query()
		var p thread.ListParams
		p.PostID = postID
		if l := strings.TrimSpace(q.Get("limit")); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				api.BadRequest(w, "INVALID_LIMIT", "limit must be a positive integer", reqID, nil)
				return
			}
			p.Limit = n
		}
		if c := strings.TrimSpace(q.Get("cursor")); c != "" {
			n, err := strconv.ParseInt(c, 10, 64)
			if err != nil || n < 0 {
				api.BadRequest(w, "INVALID_CURSOR", "cursor is malformed", reqID, nil)
				return
			}
			p.Cursor = n
		}

		page, err := d.Threads.ListReplies(r.Context(), p)
		if err != nil {
			writeThreadError(w, d.logger(), err, reqID)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// CreateReply handles POST /v1/posts/{post_id}/replies
func CreateReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := httpserver.RequestIDFromContext(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", reqID)
			return
		}
		postID, ok := pathID(w, r, "post_id", reqID)
		if !ok {
			return
		}

		var req createReplyRequest
		if err := api.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", reqID, nil)
			return
		}

		created, err := d.Threads.CreateReply(r.Context(), thread.CreateReplyParams{
			PostID:      postID,
			AuthorID:    userID,
			Content:     req.Content,
			InReplyToID: req.InReplyToID,
		})
		if err != nil {
			writeThreadError(w, d.logger(), err, reqID)
			return
		}
		d.Events.ReplyCreated(created)
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// UpdateReply handles PATCH /v1/replies/{reply_id}
func UpdateReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := httpserver.RequestIDFromContext(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", reqID)
			return
		}
		replyID, ok := pathID(w, r, "reply_id", reqID)
		if !ok {
			return
		}

		var req updateReplyRequest
		if err := api.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", reqID, nil)
			return
		}

		updated, err := d.Threads.UpdateReply(r.Context(), replyID, userID, req.Content)
		if err != nil {
			writeThreadError(w, d.logger(), err, reqID)
			return
		}
		d.Events.ReplyUpdated(updated)
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// DeleteReply handles DELETE /v1/replies/{reply_id}
func DeleteReply(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := httpserver.RequestIDFromContext(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", reqID)
			return
		}
		replyID, ok := pathID(w, r, "reply_id", reqID)
		if !ok {
			return
		}

		res, err := d.Threads.DeleteReply(r.Context(), replyID, userID)
		if err != nil {
			writeThreadError(w, d.logger(), err, reqID)
			return
		}
		d.Events.ReplyDeleted(res.Reply, res.Cascaded)
		api.WriteJSON(w, http.StatusOK, deleteReplyResponse{DeletedID: res.Reply.ID, Cascaded: res.Cascaded})
	}
}

// DeletePost handles DELETE /v1/posts/{post_id}. Mount behind
// auth.RequireModerator.
func DeletePost(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := httpserver.RequestIDFromContext(r.Context())
		postID, ok := pathID(w, r, "post_id", reqID)
		if !ok {
			return
		}

		n, err := d.Threads.DeletePost(r.Context(), postID)
		if err != nil {
			writeThreadError(w, d.logger(), err, reqID)
			return
		}
		actor, _ := auth.UserIDFromContext(r.Context())
		d.Events.PostDeleted(actor, postID, n)
		api.WriteJSON(w, http.StatusOK, deletePostResponse{PostID: postID, RepliesDeleted: n})
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name, reqID string) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		api.BadRequest(w, "MISSING_ID", name+" is required", reqID, nil)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.BadRequest(w, "INVALID_ID", name+" must be a positive integer", reqID, nil)
		return 0, false
	}
	return id, true
}

func writeThreadError(w http.ResponseWriter, log *zap.Logger, err error, reqID string) {
	switch {
	case errors.Is(err, thread.ErrEmptyContent):
		api.BadRequest(w, "EMPTY_CONTENT", "content must not be empty", reqID, nil)
	case errors.Is(err, thread.ErrPostNotFound):
		api.NotFound(w, "POST_NOT_FOUND", "post not found", reqID)
	case errors.Is(err, thread.ErrParentNotFound):
		api.NotFound(w, "PARENT_NOT_FOUND", "parent reply not found", reqID)
	case errors.Is(err, thread.ErrReplyNotFound):
		api.NotFound(w, "REPLY_NOT_FOUND", "reply not found", reqID)
	case errors.Is(err, thread.ErrCommentsDisabled):
		api.Forbidden(w, "COMMENTS_DISABLED", "comments are disabled for this post", reqID)
	case errors.Is(err, thread.ErrUnauthorizedAuthor):
		api.Forbidden(w, "UNAUTHORIZED_AUTHOR", "author profile not found", reqID)
	case errors.Is(err, thread.ErrNotReplyAuthor):
		api.Forbidden(w, "NOT_REPLY_AUTHOR", "only the author may change this reply", reqID)
	case errors.Is(err, thread.ErrParentMismatch):
		api.Unprocessable(w, "PARENT_MISMATCH", "parent reply belongs to another post", reqID, nil)
	default:
		log.Error("thread operation failed", zap.String("request_id", reqID), zap.Error(err))
		api.Internal(w, reqID)
	}
}
