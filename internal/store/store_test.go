package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentStore is the surface shared by SQLStore and MemoryStore.
type commentStore interface {
	CreateUser(context.Context, User) (User, error)
	GetUserByID(context.Context, string) (User, error)
	GetUserByEmail(context.Context, string) (User, error)
	LookupUsers(context.Context, []string) (map[string]User, error)
	InsertComment(context.Context, Comment) (Comment, error)
	FindComment(context.Context, string) (Comment, error)
	UpdateComment(context.Context, string, CommentPatch) (Comment, error)
	DeleteComment(context.Context, string) error
	ListCommentsByPost(context.Context, string) ([]Comment, error)
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (string, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
}

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, ApplyMigrations(ctx, db))
	return NewSQLStore(db)
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) commentStore{
		"memory": func(*testing.T) commentStore { return NewMemoryStore() },
		"sqlite": func(t *testing.T) commentStore { return openSQLite(t) },
	}
	if dsn := strings.TrimSpace(os.Getenv("FOLIO_TEST_DATABASE_URL")); dsn != "" {
		stores["postgres"] = func(t *testing.T) commentStore {
			ctx := context.Background()
			db, err := Open(ctx, DriverPostgres, dsn)
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			require.NoError(t, ApplyMigrations(ctx, db))
			t.Cleanup(func() { _ = RollbackMigrations(ctx, db) })
			return NewSQLStore(db)
		}
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
			t.Run("comments", func(t *testing.T) { testComments(t, open(t)) })
			t.Run("sessions", func(t *testing.T) { testSessions(t, open(t)) })
			t.Run("timestamps", func(t *testing.T) { testCommentTimestamps(t, open(t)) })
		})
	}
}

func testUsers(t *testing.T, s commentStore) {
	ctx := context.Background()
	ada, err := s.CreateUser(ctx, User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	require.NotEmpty(t, ada.ID)

	_, err = s.CreateUser(ctx, User{Name: "Other Ada", Email: "ada@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, byEmail.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := s.LookupUsers(ctx, []string{ada.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "Ada", found[ada.ID].Name)
}

func testComments(t *testing.T, s commentStore) {
	ctx := context.Background()
	author, err := s.CreateUser(ctx, User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	root, err := s.InsertComment(ctx, Comment{Content: "first", PostSlug: "hello", AuthorID: author.ID, CreatedAt: base})
	require.NoError(t, err)
	require.NotEmpty(t, root.ID)
	assert.False(t, root.IsPinned)

	reply, err := s.InsertComment(ctx, Comment{Content: "reply", PostSlug: "hello", AuthorID: author.ID, ParentID: &root.ID, CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = s.InsertComment(ctx, Comment{Content: "elsewhere", PostSlug: "other", AuthorID: author.ID, CreatedAt: base})
	require.NoError(t, err)

	listed, err := s.ListCommentsByPost(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, reply.ID, listed[0].ID, "newest first")
	require.NotNil(t, listed[0].ParentID)
	assert.Equal(t, root.ID, *listed[0].ParentID)
	assert.Nil(t, listed[1].ParentID)

	content := "edited"
	pinned := true
	updated, err := s.UpdateComment(ctx, root.ID, CommentPatch{Content: &content, IsPinned: &pinned})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.True(t, updated.IsPinned)
	assert.True(t, updated.CreatedAt.Equal(base))

	_, err = s.UpdateComment(ctx, "missing", CommentPatch{Content: &content})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteComment(ctx, root.ID))
	assert.ErrorIs(t, s.DeleteComment(ctx, root.ID), ErrNotFound)
	_, err = s.FindComment(ctx, root.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Replies are not cascaded.
	orphan, err := s.FindComment(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "reply", orphan.Content)
}

func testCommentTimestamps(t *testing.T, s commentStore) {
	ctx := context.Background()
	author, err := s.CreateUser(ctx, User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	stamp := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	created, err := s.InsertComment(ctx, Comment{Content: "hi", PostSlug: "hello", AuthorID: author.ID, CreatedAt: stamp})
	require.NoError(t, err)
	assert.Equal(t, 123456000, created.CreatedAt.Nanosecond())

	found, err := s.FindComment(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found.CreatedAt.Equal(created.CreatedAt), "stored %v, returned %v", found.CreatedAt, created.CreatedAt)
}

func testSessions(t *testing.T, s commentStore) {
	ctx := context.Background()
	user, err := s.CreateUser(ctx, User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	require.NoError(t, s.SaveRefreshSession(ctx, "live", user.ID, time.Now().Add(time.Hour)))
	userID, err := s.LookupRefreshSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	require.NoError(t, s.RevokeRefreshSession(ctx, "live"))
	_, err = s.LookupRefreshSession(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveRefreshSession(ctx, "stale", user.ID, time.Now().Add(-time.Hour)))
	_, err = s.LookupRefreshSession(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	revoked, err := s.IsAccessTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	require.NoError(t, s.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, s.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = s.IsAccessTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	for _, driver := range []string{DriverPostgres, DriverSQLite} {
		ups, err := migrationFiles(driver, ".up.sql")
		require.NoError(t, err)
		downs, err := migrationFiles(driver, ".down.sql")
		require.NoError(t, err)
		require.NotEmpty(t, ups, driver)
		require.Len(t, downs, len(ups), driver)
		for i := range ups {
			assert.Equal(t, strings.TrimSuffix(ups[i], ".up.sql"), strings.TrimSuffix(downs[i], ".down.sql"))
		}
	}
}

func TestMigrationsRoundTripSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db), "second pass is a no-op")
	require.NoError(t, RollbackMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))
}
