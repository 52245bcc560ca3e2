package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrEmailTaken is returned by CreateUser when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Comment is the persisted comment record. Replies are never stored;
// they are derived when a post's comments are assembled into a tree.
type Comment struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	PostSlug  string    `db:"post_slug"`
	ParentID  *string   `db:"parent_id"`
	AuthorID  string    `db:"author_id"`
	IsPinned  bool      `db:"is_pinned"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CommentPatch lists the only mutable comment fields. Nil fields are left alone.
type CommentPatch struct {
	Content  *string
	IsPinned *bool
}

func (p CommentPatch) apply(c *Comment, now time.Time) {
	if p.Content != nil {
		c.Content = *p.Content
	}
	if p.IsPinned != nil {
		c.IsPinned = *p.IsPinned
	}
	c.UpdatedAt = now
}

func (p CommentPatch) empty() bool {
	return p.Content == nil && p.IsPinned == nil
}
