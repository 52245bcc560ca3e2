// Package comments implements threaded post comments: assembling flat records
// into ordered reply trees, authorising and applying mutations against a store,
// and keeping a viewer's cached tree in step with those mutations.
package comments

import (
	"time"

	"folio/api/internal/store"
)

// Actor is the signed-in identity performing an operation. A nil *Actor is an
// unauthenticated caller.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Author holds display attributes resolved from the identity directory at read time.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Comment is a comment record as returned to callers, with its author resolved.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	PostSlug  string    `json:"postSlug"`
	ParentID  *string   `json:"parentId"`
	AuthorID  string    `json:"authorId"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	IsPinned  bool      `json:"isPinned"`
}

// IsRoot reports whether c is a top-level comment.
func (c Comment) IsRoot() bool {
	return c.ParentID == nil
}

// Node is a comment together with its ordered replies.
type Node struct {
	Comment
	Replies []Node `json:"replies"`
}

// Forest is the ordered set of root nodes for one post.
type Forest []Node

const unknownAuthor = "Anonymous"

func fromRecord(record store.Comment, author Author) Comment {
	var parentID *string
	if record.ParentID != nil {
		id := *record.ParentID
		parentID = &id
	}
	return Comment{
		ID:        record.ID,
		Content:   record.Content,
		PostSlug:  record.PostSlug,
		ParentID:  parentID,
		AuthorID:  record.AuthorID,
		Author:    author,
		CreatedAt: record.CreatedAt,
		IsPinned:  record.IsPinned,
	}
}

func authorFromUser(user store.User, ok bool) Author {
	if !ok {
		return Author{Name: unknownAuthor}
	}
	return Author{Name: user.Name, Email: user.Email}
}

func authorFromActor(actor *Actor) Author {
	return Author{Name: actor.Name, Email: actor.Email}
}
