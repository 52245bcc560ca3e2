package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrDraftNotFound = errors.New("draft not found")
	ErrPostExists    = errors.New("post already exists")
	ErrTitleRequired = errors.New("title is required")
)

// Journal receives the file contents after every write, with a short
// description of the change.
type Journal interface {
	Record(slug string, source []byte, message string) error
}

type Option func(*Library)

func WithJournal(j Journal) Option {
	return func(l *Library) { l.journal = j }
}

func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// Library is the post collection rooted at one content directory.
type Library struct {
	root    string
	journal Journal
	now     func() time.Time
	mu      sync.Mutex
}

func NewLibrary(root string, opts ...Option) *Library {
	l := &Library{
		root: root,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewPost describes a post or draft to create.
type NewPost struct {
	Title        string
	Description  string
	Tags         []string
	CoverImage   string
	PostOfTheDay bool
	Body         string
}

// Patch updates selected fields. Nil fields keep their current value.
type Patch struct {
	Title        *string
	Description  *string
	Tags         []string
	CoverImage   *string
	PostOfTheDay *bool
	Body         *string
}

func (p Patch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil &&
		p.CoverImage == nil && p.PostOfTheDay == nil && p.Body == nil
}

// Slugify derives a post slug from a title.
func Slugify(title string) string {
	return slug.Make(title)
}

// Create publishes a new post dated now.
func (l *Library) Create(in NewPost) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.newPost(in, Published)
	if err != nil {
		return Post{}, err
	}
	if l.exists(Published, post.Slug) {
		return Post{}, fmt.Errorf("%w: %s", ErrPostExists, post.Slug)
	}
	return l.write(post, "Create post: "+post.Title)
}

// SaveDraft creates a draft. Drafts share the slug space of published posts.
func (l *Library) SaveDraft(in NewPost) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.newPost(in, Drafts)
	if err != nil {
		return Post{}, err
	}
	if l.exists(Drafts, post.Slug) || l.exists(Published, post.Slug) {
		return Post{}, fmt.Errorf("%w: %s", ErrPostExists, post.Slug)
	}
	return l.write(post, "Create draft: "+post.Title)
}

// List returns published posts, newest first. Posts dated the same day are
// ordered by most recent file modification.
func (l *Library) List() ([]Post, error) {
	posts, err := l.readAll(Published)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if sameDay(a.Date, b.Date) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Date.After(b.Date)
	})
	return posts, nil
}

// ListDrafts returns drafts, most recently edited first.
func (l *Library) ListDrafts() ([]Post, error) {
	return l.byModTime(Drafts)
}

// ListTrash returns trashed posts, most recently trashed first.
func (l *Library) ListTrash() ([]Post, error) {
	return l.byModTime(Trash)
}

// Get loads a published post.
func (l *Library) Get(postSlug string) (Post, error) {
	return l.read(Published, postSlug)
}

// GetDraft loads a draft.
func (l *Library) GetDraft(postSlug string) (Post, error) {
	return l.read(Drafts, postSlug)
}

// Tags returns every tag used by a published post, sorted.
func (l *Library) Tags() ([]string, error) {
	posts, err := l.readAll(Published)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	tags := make([]string, 0)
	for _, post := range posts {
		for _, tag := range post.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// ByTag returns the published posts carrying tag, in List order.
func (l *Library) ByTag(tag string) ([]Post, error) {
	posts, err := l.List()
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0)
	for _, post := range posts {
		for _, t := range post.Tags {
			if t == tag {
				out = append(out, post)
				break
			}
		}
	}
	return out, nil
}

// Update edits a published post. The original date is kept; a new title
// moves the post to the matching slug.
func (l *Library) Update(postSlug string, patch Patch) (Post, error) {
	return l.update(Published, postSlug, patch)
}

// UpdateDraft edits a draft the same way Update edits a post.
func (l *Library) UpdateDraft(postSlug string, patch Patch) (Post, error) {
	return l.update(Drafts, postSlug, patch)
}

// Publish moves a draft to the published posts, dated now.
func (l *Library) Publish(postSlug string) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.read(Drafts, postSlug)
	if err != nil {
		return Post{}, err
	}
	if l.exists(Published, postSlug) {
		return Post{}, fmt.Errorf("%w: %s", ErrPostExists, postSlug)
	}
	post.Date = l.now()
	post.LastEdited = nil
	return l.move(post, Published, "Publish draft")
}

// Unpublish moves a published post back to drafts.
func (l *Library) Unpublish(postSlug string) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.read(Published, postSlug)
	if err != nil {
		return Post{}, err
	}
	if l.exists(Drafts, postSlug) {
		return Post{}, fmt.Errorf("%w: draft %s", ErrPostExists, postSlug)
	}
	return l.move(post, Drafts, "Unpublish post")
}

// DeleteDraft removes a draft permanently.
func (l *Library) DeleteDraft(postSlug string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.read(Drafts, postSlug)
	if err != nil {
		return err
	}
	if err := os.Remove(l.path(Drafts, postSlug)); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return l.record(post, "Delete draft")
}

// MoveToTrash takes a post off the blog without deleting it. A trashed post
// with the same slug is replaced.
func (l *Library) MoveToTrash(postSlug string) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.read(Published, postSlug)
	if err != nil {
		return Post{}, err
	}
	return l.move(post, Trash, "Move post to trash")
}

// Restore puts a trashed post back on the blog.
func (l *Library) Restore(postSlug string) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.read(Trash, postSlug)
	if err != nil {
		return Post{}, err
	}
	if l.exists(Published, postSlug) {
		return Post{}, fmt.Errorf("%w: %s", ErrPostExists, postSlug)
	}
	return l.move(post, Published, "Restore post from trash")
}

// EmptyTrash deletes every trashed post and reports how many there were.
func (l *Library) EmptyTrash() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	posts, err := l.readAll(Trash)
	if err != nil {
		return 0, err
	}
	for i, post := range posts {
		if err := os.Remove(l.path(Trash, post.Slug)); err != nil {
			return i, fmt.Errorf("delete %s: %w", post.Slug, err)
		}
	}
	return len(posts), nil
}

func (l *Library) update(loc Location, postSlug string, patch Patch) (Post, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	post, err := l.read(loc, postSlug)
	if err != nil {
		return Post{}, err
	}
	if patch.empty() {
		return post, nil
	}

	oldSlug := post.Slug
	if patch.Title != nil && *patch.Title != post.Title {
		title := strings.TrimSpace(*patch.Title)
		newSlug := Slugify(title)
		if newSlug == "" {
			return Post{}, ErrTitleRequired
		}
		if newSlug != oldSlug && l.slugTaken(newSlug) {
			return Post{}, fmt.Errorf("%w: %s", ErrPostExists, newSlug)
		}
		post.Title = title
		post.Slug = newSlug
	}
	if patch.Description != nil {
		post.Description = *patch.Description
	}
	if patch.Tags != nil {
		post.Tags = cleanTags(patch.Tags)
	}
	if patch.CoverImage != nil {
		post.CoverImage = *patch.CoverImage
	}
	if patch.PostOfTheDay != nil {
		post.PostOfTheDay = *patch.PostOfTheDay
	}
	if patch.Body != nil {
		post.Body = *patch.Body
	}
	edited := l.now()
	post.LastEdited = &edited

	message := "Update post"
	if loc == Drafts {
		message = "Update draft"
	}
	if post.Slug != oldSlug {
		message += fmt.Sprintf(" (renamed from %s)", oldSlug)
	}
	updated, err := l.write(post, message)
	if err != nil {
		return Post{}, err
	}
	if post.Slug != oldSlug {
		if err := os.Remove(l.path(loc, oldSlug)); err != nil {
			return Post{}, fmt.Errorf("remove old post file: %w", err)
		}
	}
	return updated, nil
}

func (l *Library) newPost(in NewPost, loc Location) (Post, error) {
	title := strings.TrimSpace(in.Title)
	postSlug := Slugify(title)
	if postSlug == "" {
		return Post{}, ErrTitleRequired
	}
	return Post{
		Slug: postSlug,
		FrontMatter: FrontMatter{
			Title:        title,
			Description:  in.Description,
			Date:         l.now(),
			Tags:         cleanTags(in.Tags),
			CoverImage:   in.CoverImage,
			PostOfTheDay: in.PostOfTheDay,
		},
		Body:     in.Body,
		Location: loc,
	}, nil
}

func (l *Library) move(post Post, to Location, message string) (Post, error) {
	from := post.Location
	post.Location = to
	moved, err := l.write(post, message)
	if err != nil {
		return Post{}, err
	}
	if err := os.Remove(l.path(from, post.Slug)); err != nil {
		return Post{}, fmt.Errorf("remove %s copy: %w", from, err)
	}
	return moved, nil
}

func (l *Library) write(post Post, message string) (Post, error) {
	source, err := post.Source()
	if err != nil {
		return Post{}, err
	}
	path := l.path(post.Location, post.Slug)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Post{}, fmt.Errorf("create %s dir: %w", post.Location, err)
	}
	if err := os.WriteFile(path, source, 0o644); err != nil {
		return Post{}, fmt.Errorf("write post: %w", err)
	}
	if info, err := os.Stat(path); err == nil {
		post.ModTime = info.ModTime()
	}
	if err := l.record(post, message); err != nil {
		return Post{}, err
	}
	return post, nil
}

func (l *Library) record(post Post, message string) error {
	if l.journal == nil {
		return nil
	}
	source, err := post.Source()
	if err != nil {
		return err
	}
	if err := l.journal.Record(post.Slug, source, message); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

func (l *Library) read(loc Location, postSlug string) (Post, error) {
	if !slug.IsSlug(postSlug) {
		return Post{}, notFound(loc)
	}
	path := l.path(loc, postSlug)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Post{}, notFound(loc)
	}
	if err != nil {
		return Post{}, fmt.Errorf("read post: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Post{}, fmt.Errorf("stat post: %w", err)
	}
	fm, body, err := Parse(data)
	if err != nil {
		return Post{}, fmt.Errorf("%s: %w", postSlug, err)
	}
	return Post{Slug: postSlug, FrontMatter: fm, Body: body, Location: loc, ModTime: info.ModTime()}, nil
}

func (l *Library) readAll(loc Location) ([]Post, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, string(loc)))
	if errors.Is(err, fs.ErrNotExist) {
		return []Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", loc, err)
	}
	suffix := fileSuffix(loc)
	posts := make([]Post, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		postSlug := strings.TrimSuffix(name, suffix)
		if entry.IsDir() || !strings.HasSuffix(name, suffix) || !slug.IsSlug(postSlug) {
			continue
		}
		post, err := l.read(loc, postSlug)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (l *Library) byModTime(loc Location) ([]Post, error) {
	posts, err := l.readAll(loc)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].ModTime.After(posts[j].ModTime)
	})
	return posts, nil
}

func (l *Library) exists(loc Location, postSlug string) bool {
	_, err := os.Stat(l.path(loc, postSlug))
	return err == nil
}

func (l *Library) slugTaken(postSlug string) bool {
	return l.exists(Published, postSlug) || l.exists(Drafts, postSlug)
}

func (l *Library) path(loc Location, postSlug string) string {
	return filepath.Join(l.root, string(loc), postSlug+fileSuffix(loc))
}

func fileSuffix(loc Location) string {
	if loc == Drafts {
		return ".draft.md"
	}
	return ".md"
}

func notFound(loc Location) error {
	if loc == Drafts {
		return ErrDraftNotFound
	}
	return ErrPostNotFound
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
