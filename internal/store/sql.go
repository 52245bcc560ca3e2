package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLStore persists users, comments and sessions in Postgres or SQLite.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const commentColumns = `id, content, post_slug, parent_id, author_id, is_pinned, created_at, updated_at`

func (s *SQLStore) CreateUser(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	var existing int
	if err := s.db.GetContext(ctx, &existing, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE email=?`), user.Email); err != nil {
		return User{}, fmt.Errorf("check user email: %w", err)
	}
	if existing > 0 {
		return User{}, ErrEmailTaken
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT id, name, email, password_hash, created_at FROM users WHERE id=?`), id)
	if err != nil {
		return User{}, notFound(err, "get user")
	}
	return user, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT id, name, email, password_hash, created_at FROM users WHERE email=?`), email)
	if err != nil {
		return User{}, notFound(err, "get user by email")
	}
	return user, nil
}

// LookupUsers returns the users among ids that exist, keyed by id.
func (s *SQLStore) LookupUsers(ctx context.Context, ids []string) (map[string]User, error) {
	users := make(map[string]User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email, password_hash, created_at FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build user lookup: %w", err)
	}
	var rows []User
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup users: %w", err)
	}
	for _, user := range rows {
		users[user.ID] = user
	}
	return users, nil
}

// InsertComment stores a new comment and assigns its id.
func (s *SQLStore) InsertComment(ctx context.Context, comment Comment) (Comment, error) {
	comment.ID = uuid.NewString()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	// Postgres keeps microseconds; the returned record must match a reread.
	comment.CreatedAt = comment.CreatedAt.Truncate(time.Microsecond)
	comment.UpdatedAt = comment.CreatedAt
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO comments (`+commentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), comment.ID, comment.Content, comment.PostSlug, comment.ParentID, comment.AuthorID, comment.IsPinned, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *SQLStore) FindComment(ctx context.Context, id string) (Comment, error) {
	var comment Comment
	err := s.db.GetContext(ctx, &comment, s.db.Rebind(`SELECT `+commentColumns+` FROM comments WHERE id=?`), id)
	if err != nil {
		return Comment{}, notFound(err, "find comment")
	}
	return comment, nil
}

func (s *SQLStore) UpdateComment(ctx context.Context, id string, patch CommentPatch) (Comment, error) {
	if patch.empty() {
		return s.FindComment(ctx, id)
	}
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Content != nil {
		sets = append(sets, "content=?")
		args = append(args, *patch.Content)
	}
	if patch.IsPinned != nil {
		sets = append(sets, "is_pinned=?")
		args = append(args, *patch.IsPinned)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, s.now(), id)

	result, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE comments SET `+strings.Join(sets, ", ")+` WHERE id=?`), args...)
	if err != nil {
		return Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return Comment{}, ErrNotFound
	}
	return s.FindComment(ctx, id)
}

func (s *SQLStore) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM comments WHERE id=?`), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCommentsByPost returns every comment of a post, newest first.
func (s *SQLStore) ListCommentsByPost(ctx context.Context, slug string) ([]Comment, error) {
	items := make([]Comment, 0)
	err := s.db.SelectContext(ctx, &items, s.db.Rebind(`
		SELECT `+commentColumns+`
		FROM comments
		WHERE post_slug=?
		ORDER BY created_at DESC
	`), slug)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return items, nil
}

func (s *SQLStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=excluded.user_id, expires_at=excluded.expires_at, revoked_at=NULL
	`), tokenHash, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

// LookupRefreshSession returns the user id owning a live, unrevoked refresh token.
func (s *SQLStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.GetContext(ctx, &userID, s.db.Rebind(`
		SELECT user_id
		FROM refresh_sessions
		WHERE token_hash = ?
			AND revoked_at IS NULL
			AND expires_at > ?
	`), tokenHash, s.now())
	if err != nil {
		return "", notFound(err, "lookup refresh session")
	}
	return userID, nil
}

func (s *SQLStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE refresh_sessions SET revoked_at=? WHERE token_hash=?`), s.now(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *SQLStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES (?, ?)
		ON CONFLICT (jti) DO NOTHING
	`), jti, exp.UTC())
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *SQLStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM revoked_access_tokens WHERE jti=?`), jti)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func notFound(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}
