package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process. It backs tests and single-process demos.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []User
	comments []Comment
	refresh  map[string]memoryRefresh
	revoked  map[string]time.Time
	now      func() time.Time
}

type memoryRefresh struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refresh: make(map[string]memoryRefresh),
		revoked: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func findComment(items []Comment, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) CreateUser(_ context.Context, user User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return User{}, ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	m.users = append(m.users, user)
	return user, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) LookupUsers(_ context.Context, ids []string) (map[string]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	users := make(map[string]User, len(ids))
	for _, user := range m.users {
		if _, ok := wanted[user.ID]; ok {
			users[user.ID] = user
		}
	}
	return users, nil
}

func (m *MemoryStore) InsertComment(_ context.Context, comment Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = uuid.NewString()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = m.now()
	}
	comment.CreatedAt = comment.CreatedAt.Truncate(time.Microsecond)
	comment.UpdatedAt = comment.CreatedAt
	if comment.ParentID != nil {
		parent := *comment.ParentID
		comment.ParentID = &parent
	}
	m.comments = append(m.comments, comment)
	return comment, nil
}

func (m *MemoryStore) FindComment(_ context.Context, id string) (Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := findComment(m.comments, id)
	if idx < 0 {
		return Comment{}, ErrNotFound
	}
	return m.comments[idx], nil
}

func (m *MemoryStore) UpdateComment(_ context.Context, id string, patch CommentPatch) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := findComment(m.comments, id)
	if idx < 0 {
		return Comment{}, ErrNotFound
	}
	if !patch.empty() {
		patch.apply(&m.comments[idx], m.now())
	}
	return m.comments[idx], nil
}

func (m *MemoryStore) DeleteComment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := findComment(m.comments, id)
	if idx < 0 {
		return ErrNotFound
	}
	m.comments = append(m.comments[:idx:idx], m.comments[idx+1:]...)
	return nil
}

// ListCommentsByPost returns a post's comments newest first; equal timestamps keep insertion order.
func (m *MemoryStore) ListCommentsByPost(_ context.Context, slug string) ([]Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]Comment, 0)
	for _, comment := range m.comments {
		if comment.PostSlug == slug {
			items = append(items, comment)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *MemoryStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = memoryRefresh{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.refresh[tokenHash]
	if !ok || session.revoked || !session.expiresAt.After(m.now()) {
		return "", ErrNotFound
	}
	return session.userID, nil
}

func (m *MemoryStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.refresh[tokenHash]; ok {
		session.revoked = true
		m.refresh[tokenHash] = session
	}
	return nil
}

func (m *MemoryStore) RevokeAccessToken(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = exp
	return nil
}

func (m *MemoryStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
