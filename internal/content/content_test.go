package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journalEntry struct {
	slug    string
	source  string
	message string
}

type memJournal struct {
	entries []journalEntry
}

func (j *memJournal) Record(slug string, source []byte, message string) error {
	j.entries = append(j.entries, journalEntry{slug: slug, source: string(source), message: message})
	return nil
}

func (j *memJournal) messages() []string {
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.message)
	}
	return out
}

func newTestLibrary(t *testing.T) (*Library, *memJournal, *time.Time) {
	t.Helper()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	journal := &memJournal{}
	lib := NewLibrary(t.TempDir(),
		WithJournal(journal),
		WithClock(func() time.Time { return now }),
	)
	return lib, journal, &now
}

func TestParseAndFormat(t *testing.T) {
	source := []byte("---\ntitle: Hello World\ndescription: First post\ndate: 2024-01-02T03:04:05Z\ntags:\n  - go\n  - blog\ncoverImage: /img/cover.png\npostOfTheDay: true\n---\n# Hello\n\nBody text.\n")

	fm, body, err := Parse(source)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", fm.Title)
	assert.Equal(t, "First post", fm.Description)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), fm.Date.UTC())
	assert.Equal(t, []string{"go", "blog"}, fm.Tags)
	assert.Equal(t, "/img/cover.png", fm.CoverImage)
	assert.True(t, fm.PostOfTheDay)
	assert.Equal(t, "# Hello\n\nBody text.\n", body)

	formatted, err := Format(fm, body)
	require.NoError(t, err)
	again, againBody, err := Parse(formatted)
	require.NoError(t, err)
	assert.Equal(t, fm.Title, again.Title)
	assert.True(t, fm.Date.Equal(again.Date))
	assert.Equal(t, fm.Tags, again.Tags)
	assert.Equal(t, body, againBody)
}

func TestParseEdgeCases(t *testing.T) {
	fm, body, err := Parse([]byte("just markdown"))
	require.NoError(t, err)
	assert.Equal(t, "just markdown", body)
	assert.Empty(t, fm.Title)
	assert.NotNil(t, fm.Tags)

	fm, body, err = Parse([]byte("---\r\ntitle: Windows\r\n---\r\nbody\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Windows", fm.Title)
	assert.Equal(t, "body\n", body)

	_, _, err = Parse([]byte("---\ntitle: open\nno closing"))
	assert.Error(t, err)

	fm, body, err = Parse([]byte("---\ntitle: Only header\n---"))
	require.NoError(t, err)
	assert.Equal(t, "Only header", fm.Title)
	assert.Empty(t, body)
}

func TestRender(t *testing.T) {
	html := Render("# Title\n\nSome *emphasis* and a [link](https://example.com).\n\n<script>alert(1)</script>\n\n```go\nfmt.Println(1)\n```\n")
	assert.Contains(t, html, "Title</h1>")
	assert.Contains(t, html, "<em>emphasis</em>")
	assert.Contains(t, html, `href="https://example.com"`)
	assert.Contains(t, html, "fmt.Println(1)")
	assert.NotContains(t, html, "<script>")
}

func TestCreateAndGet(t *testing.T) {
	lib, journal, _ := newTestLibrary(t)

	post, err := lib.Create(NewPost{
		Title:       "Hello, World!",
		Description: "First",
		Tags:        []string{" go ", "", "blog"},
		Body:        "Start writing your post here...",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, []string{"go", "blog"}, post.Tags)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), post.Date)
	assert.FileExists(t, filepath.Join(lib.root, "posts", "hello-world.md"))

	got, err := lib.Get("hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", got.Title)
	assert.Equal(t, "Start writing your post here...\n", got.Body)

	_, err = lib.Create(NewPost{Title: "hello world"})
	assert.ErrorIs(t, err, ErrPostExists)
	_, err = lib.Create(NewPost{Title: "   "})
	assert.ErrorIs(t, err, ErrTitleRequired)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "hello-world", journal.entries[0].slug)
	assert.Contains(t, journal.entries[0].source, "title: Hello, World!")
}

func TestGetRejectsUnknownAndUnsafeSlugs(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_, err := lib.Get("missing")
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = lib.Get("../../etc/passwd")
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = lib.GetDraft("missing")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestListOrdering(t *testing.T) {
	lib, _, now := newTestLibrary(t)

	*now = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	_, err := lib.Create(NewPost{Title: "Old"})
	require.NoError(t, err)
	*now = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	_, err = lib.Create(NewPost{Title: "Same Day Early Edit"})
	require.NoError(t, err)
	*now = time.Date(2024, 2, 1, 7, 0, 0, 0, time.UTC)
	_, err = lib.Create(NewPost{Title: "Same Day Late Edit"})
	require.NoError(t, err)

	base := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(lib.path(Published, "same-day-early-edit"), base, base))
	require.NoError(t, os.Chtimes(lib.path(Published, "same-day-late-edit"), base.Add(time.Hour), base.Add(time.Hour)))

	posts, err := lib.List()
	require.NoError(t, err)
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	assert.Equal(t, []string{"same-day-late-edit", "same-day-early-edit", "old"}, slugs)
}

func TestListEmptyLibrary(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	posts, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestTags(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_, err := lib.Create(NewPost{Title: "One", Tags: []string{"go", "web"}})
	require.NoError(t, err)
	_, err = lib.Create(NewPost{Title: "Two", Tags: []string{"go", "cli"}})
	require.NoError(t, err)

	tags, err := lib.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"cli", "go", "web"}, tags)

	tagged, err := lib.ByTag("web")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "one", tagged[0].Slug)
}

func TestDraftLifecycle(t *testing.T) {
	lib, journal, now := newTestLibrary(t)

	draft, err := lib.SaveDraft(NewPost{Title: "Work In Progress", Tags: []string{"draft"}})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(lib.root, "_drafts", "work-in-progress.draft.md"))

	drafts, err := lib.ListDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.Slug, drafts[0].Slug)

	body := "Finished text"
	_, err = lib.UpdateDraft(draft.Slug, Patch{Body: &body})
	require.NoError(t, err)

	*now = now.Add(48 * time.Hour)
	published, err := lib.Publish(draft.Slug)
	require.NoError(t, err)
	assert.Equal(t, *now, published.Date)
	assert.Nil(t, published.LastEdited)
	assert.Equal(t, "Finished text\n", published.Body)
	assert.NoFileExists(t, filepath.Join(lib.root, "_drafts", "work-in-progress.draft.md"))

	_, err = lib.Publish(draft.Slug)
	assert.ErrorIs(t, err, ErrDraftNotFound)

	back, err := lib.Unpublish(draft.Slug)
	require.NoError(t, err)
	assert.Equal(t, Drafts, back.Location)
	_, err = lib.Get(draft.Slug)
	assert.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, lib.DeleteDraft(draft.Slug))
	assert.ErrorIs(t, lib.DeleteDraft(draft.Slug), ErrDraftNotFound)

	assert.Equal(t, []string{
		"Create draft: Work In Progress",
		"Update draft",
		"Publish draft",
		"Unpublish post",
		"Delete draft",
	}, journal.messages())
}

func TestSaveDraftConflictsWithPublished(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_, err := lib.Create(NewPost{Title: "Taken"})
	require.NoError(t, err)
	_, err = lib.SaveDraft(NewPost{Title: "Taken"})
	assert.ErrorIs(t, err, ErrPostExists)
}

func TestUpdateKeepsDateAndRenames(t *testing.T) {
	lib, _, now := newTestLibrary(t)
	created, err := lib.Create(NewPost{Title: "First Title", Description: "before", Tags: []string{"a"}})
	require.NoError(t, err)
	_, err = lib.Create(NewPost{Title: "Other"})
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	description := "after"
	updated, err := lib.Update(created.Slug, Patch{Description: &description, Tags: []string{"b"}})
	require.NoError(t, err)
	assert.True(t, created.Date.Equal(updated.Date))
	assert.Equal(t, "after", updated.Description)
	assert.Equal(t, []string{"b"}, updated.Tags)
	require.NotNil(t, updated.LastEdited)
	assert.Equal(t, *now, *updated.LastEdited)

	taken := "Other"
	_, err = lib.Update(created.Slug, Patch{Title: &taken})
	assert.ErrorIs(t, err, ErrPostExists)

	title := "Second Title"
	renamed, err := lib.Update(created.Slug, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "second-title", renamed.Slug)
	_, err = lib.Get("first-title")
	assert.ErrorIs(t, err, ErrPostNotFound)
	got, err := lib.Get("second-title")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Description)

	unchanged, err := lib.Update("second-title", Patch{})
	require.NoError(t, err)
	assert.Equal(t, "second-title", unchanged.Slug)
}

func TestTrashLifecycle(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	for _, title := range []string{"Keep", "Bin One", "Bin Two"} {
		_, err := lib.Create(NewPost{Title: title})
		require.NoError(t, err)
	}

	_, err := lib.MoveToTrash("bin-one")
	require.NoError(t, err)
	_, err = lib.MoveToTrash("bin-two")
	require.NoError(t, err)
	_, err = lib.MoveToTrash("bin-two")
	assert.ErrorIs(t, err, ErrPostNotFound)

	trash, err := lib.ListTrash()
	require.NoError(t, err)
	assert.Len(t, trash, 2)

	restored, err := lib.Restore("bin-one")
	require.NoError(t, err)
	assert.Equal(t, Published, restored.Location)

	posts, err := lib.List()
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	n, err := lib.EmptyTrash()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	trash, err = lib.ListTrash()
	require.NoError(t, err)
	assert.Empty(t, trash)

	n, err = lib.EmptyTrash()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRestoreConflict(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_, err := lib.Create(NewPost{Title: "Again"})
	require.NoError(t, err)
	_, err = lib.MoveToTrash("again")
	require.NoError(t, err)
	_, err = lib.Create(NewPost{Title: "Again"})
	require.NoError(t, err)

	_, err = lib.Restore("again")
	assert.ErrorIs(t, err, ErrPostExists)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello World"))
	assert.Equal(t, "go-1-22-release-notes", Slugify("Go 1.22: Release Notes"))
	assert.True(t, strings.HasPrefix(Slugify("Über cool"), "uber"))
}
