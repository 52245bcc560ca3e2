package comments

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"folio/api/internal/store"
)

// MaxContentLength is the longest accepted comment, in code points.
const MaxContentLength = 1000

// Store is the durable record collaborator.
type Store interface {
	InsertComment(context.Context, store.Comment) (store.Comment, error)
	FindComment(context.Context, string) (store.Comment, error)
	UpdateComment(context.Context, string, store.CommentPatch) (store.Comment, error)
	DeleteComment(context.Context, string) error
	ListCommentsByPost(context.Context, string) ([]store.Comment, error)
}

// Directory resolves author display attributes.
type Directory interface {
	LookupUsers(context.Context, []string) (map[string]store.User, error)
}

// ReplyNotice describes a reply to someone else's comment.
type ReplyNotice struct {
	PostSlug       string
	CommentID      string
	ParentID       string
	ParentAuthorID string
	Replier        Author
	Content        string
}

// Notifier receives reply notices. Implementations must not block the caller.
type Notifier interface {
	CommentReplied(ReplyNotice)
}

type Option func(*Engine)

// WithNotifier sets the reply notifier. The default drops notices.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the authoritative side of the comment system: every mutation is
// validated, authorised against the stored record and only then applied.
type Engine struct {
	store    Store
	users    Directory
	notifier Notifier
	now      func() time.Time
}

func NewEngine(records Store, users Directory, opts ...Option) *Engine {
	e := &Engine{
		store:    records,
		users:    users,
		notifier: discardNotifier{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type discardNotifier struct{}

func (discardNotifier) CommentReplied(ReplyNotice) {}

// List returns the ordered comment forest of a post.
func (e *Engine) List(ctx context.Context, postSlug string) (Forest, error) {
	records, err := e.store.ListCommentsByPost(ctx, postSlug)
	if err != nil {
		return nil, e.failure("list comments", err)
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if _, ok := seen[record.AuthorID]; ok {
			continue
		}
		seen[record.AuthorID] = struct{}{}
		ids = append(ids, record.AuthorID)
	}
	users, err := e.users.LookupUsers(ctx, ids)
	if err != nil {
		return nil, e.failure("resolve comment authors", err)
	}

	items := make([]Comment, 0, len(records))
	for _, record := range records {
		user, ok := users[record.AuthorID]
		items = append(items, fromRecord(record, authorFromUser(user, ok)))
	}
	return BuildForest(items), nil
}

// Create adds a comment to a post, as a reply when parentID is set.
func (e *Engine) Create(ctx context.Context, actor *Actor, postSlug, content string, parentID *string) (Comment, error) {
	if !CanCreate(actor) {
		return Comment{}, &Error{Kind: KindUnauthorized, Message: "You must be signed in to comment", Err: ErrSignedOut}
	}
	if err := validateContent(content); err != nil {
		return Comment{}, err
	}
	if postSlug == "" {
		return Comment{}, newError(KindValidation, "Post is required")
	}

	var parent *store.Comment
	if parentID != nil {
		found, err := e.store.FindComment(ctx, *parentID)
		if errors.Is(err, store.ErrNotFound) {
			return Comment{}, newError(KindNotFound, "Parent comment not found")
		}
		if err != nil {
			return Comment{}, e.failure("load parent comment", err)
		}
		if found.PostSlug != postSlug {
			return Comment{}, newError(KindValidation, "Parent comment belongs to a different post")
		}
		parent = &found
	}

	record := store.Comment{
		Content:   content,
		PostSlug:  postSlug,
		AuthorID:  actor.ID,
		IsPinned:  false,
		CreatedAt: e.now().Truncate(time.Microsecond),
	}
	if parent != nil {
		id := parent.ID
		record.ParentID = &id
	}
	created, err := e.store.InsertComment(ctx, record)
	if err != nil {
		return Comment{}, e.failure("insert comment", err)
	}

	result := fromRecord(created, authorFromActor(actor))
	if parent != nil && parent.AuthorID != actor.ID {
		e.notifier.CommentReplied(ReplyNotice{
			PostSlug:       postSlug,
			CommentID:      result.ID,
			ParentID:       parent.ID,
			ParentAuthorID: parent.AuthorID,
			Replier:        result.Author,
			Content:        content,
		})
	}
	return result, nil
}

// Edit replaces the content of the actor's own comment.
func (e *Engine) Edit(ctx context.Context, actor *Actor, id, content string) (Comment, error) {
	if actor == nil {
		return Comment{}, signedOut()
	}
	if err := validateContent(content); err != nil {
		return Comment{}, err
	}
	target, err := e.load(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if !CanEdit(actor, target) {
		return Comment{}, unauthorized(actor, "You can only edit your own comments")
	}

	updated, err := e.update(ctx, id, store.CommentPatch{Content: &content})
	if err != nil {
		return Comment{}, err
	}
	return fromRecord(updated, authorFromActor(actor)), nil
}

// Delete removes only the comment itself. Its replies stay in the store and
// drop out of every forest built afterwards.
func (e *Engine) Delete(ctx context.Context, actor *Actor, id string) error {
	if actor == nil {
		return signedOut()
	}
	target, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(actor, target) {
		return unauthorized(actor, "You can only delete your own comments")
	}
	if err := e.store.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, "Comment not found")
		}
		return e.failure("delete comment", err)
	}
	return nil
}

// TogglePin sets the pinned state of the actor's own top-level comment.
func (e *Engine) TogglePin(ctx context.Context, actor *Actor, id string, pinned bool) (Comment, error) {
	if actor == nil {
		return Comment{}, signedOut()
	}
	target, err := e.load(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if !target.IsRoot() {
		return Comment{}, newError(KindIllegalPinTarget, "Only top-level comments can be pinned")
	}
	if !CanPin(actor, target) {
		return Comment{}, unauthorized(actor, "You can only pin your own comments")
	}

	updated, err := e.update(ctx, id, store.CommentPatch{IsPinned: &pinned})
	if err != nil {
		return Comment{}, err
	}
	return fromRecord(updated, authorFromActor(actor)), nil
}

func (e *Engine) load(ctx context.Context, id string) (Comment, error) {
	if id == "" {
		return Comment{}, newError(KindNotFound, "Comment not found")
	}
	record, err := e.store.FindComment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Comment{}, newError(KindNotFound, "Comment not found")
	}
	if err != nil {
		return Comment{}, e.failure("load comment", err)
	}
	return fromRecord(record, Author{}), nil
}

func (e *Engine) update(ctx context.Context, id string, patch store.CommentPatch) (store.Comment, error) {
	updated, err := e.store.UpdateComment(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return store.Comment{}, newError(KindNotFound, "Comment not found")
	}
	if err != nil {
		return store.Comment{}, e.failure("update comment", err)
	}
	return updated, nil
}

func (e *Engine) failure(action string, err error) *Error {
	log.Printf("comments: %s: %v", action, err)
	return storeFailure("Something went wrong, please try again", err)
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return newError(KindValidation, "Comment cannot be empty")
	}
	if n > MaxContentLength {
		return newError(KindValidation, "Comment is too long")
	}
	return nil
}

func signedOut() *Error {
	return &Error{Kind: KindUnauthorized, Message: "You must be signed in", Err: ErrSignedOut}
}

func unauthorized(actor *Actor, message string) *Error {
	if actor == nil {
		return signedOut()
	}
	return newError(KindUnauthorized, message)
}
