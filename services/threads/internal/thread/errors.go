package thread

import "errors"

// Request-level rejections. None of them are retryable.
var (
	ErrEmptyContent       = errors.New("reply content must not be empty")
	ErrPostNotFound       = errors.New("post not found")
	ErrCommentsDisabled   = errors.New("comments are disabled for this post")
	ErrUnauthorizedAuthor = errors.New("author profile not found")
	ErrParentNotFound     = errors.New("parent reply not found")
	ErrParentMismatch     = errors.New("parent reply belongs to another post")
	ErrReplyNotFound      = errors.New("reply not found")
	ErrNotReplyAuthor     = errors.New("only the author may change this reply")
)
