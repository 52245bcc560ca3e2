package search

import (
	"errors"
	"strings"
	"testing"
)

func seededService() *Service {
	svc := NewService(nil)
	svc.ReindexAll([]PostRecord{
		{ID: "go-concurrency", Title: "Go Concurrency", Description: "Channels and goroutines", Body: "Select statements explained.", Tags: []string{"go"}, Date: 300},
		{ID: "rust-ownership", Title: "Rust Ownership", Description: "Borrowing rules", Body: "Unlike Go, Rust has no GC.", Tags: []string{"rust"}, Date: 200},
		{ID: "hello-world", Title: "Hello World", Description: "", Body: "My first post about <b>go</b> and more.", Tags: []string{"meta"}, Date: 100},
	})
	return svc
}

func slugs(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Slug)
	}
	return out
}

func TestMemorySearchRanking(t *testing.T) {
	svc := seededService()
	resp := svc.Search(Query{Text: "go"})

	got := strings.Join(slugs(resp.Results), ",")
	if got != "go-concurrency,rust-ownership,hello-world" {
		t.Fatalf("ranking = %s", got)
	}
	if resp.Total != 3 || resp.Query != "go" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestMemorySearchAllTermsMustMatch(t *testing.T) {
	svc := seededService()
	resp := svc.Search(Query{Text: "rust borrowing"})
	if got := slugs(resp.Results); len(got) != 1 || got[0] != "rust-ownership" {
		t.Fatalf("results = %v", got)
	}
	if resp := svc.Search(Query{Text: "haskell"}); len(resp.Results) != 0 || resp.Results == nil {
		t.Fatalf("expected empty non-nil results, got %#v", resp.Results)
	}
}

func TestMemorySearchTagFilterAndPaging(t *testing.T) {
	svc := seededService()
	resp := svc.Search(Query{Tag: "RUST"})
	if got := slugs(resp.Results); len(got) != 1 || got[0] != "rust-ownership" {
		t.Fatalf("tag filter results = %v", got)
	}

	page := svc.Search(Query{Limit: 1, Offset: 1})
	if got := slugs(page.Results); len(got) != 1 || got[0] != "rust-ownership" || page.Total != 3 {
		t.Fatalf("paged results = %v total %d", got, page.Total)
	}
	past := svc.Search(Query{Offset: 10})
	if len(past.Results) != 0 {
		t.Fatalf("offset past end returned %v", slugs(past.Results))
	}
}

func TestMemorySearchSnippetIsEscapedAndHighlighted(t *testing.T) {
	svc := seededService()
	resp := svc.Search(Query{Text: "first"})
	if len(resp.Results) != 1 {
		t.Fatalf("results = %v", slugs(resp.Results))
	}
	snippet := resp.Results[0].Snippet
	if !strings.Contains(snippet, "<mark>first</mark>") {
		t.Fatalf("snippet not highlighted: %q", snippet)
	}
	if strings.Contains(snippet, "<b>") {
		t.Fatalf("snippet not escaped: %q", snippet)
	}
}

func TestReindexDropsRemovedPosts(t *testing.T) {
	svc := seededService()
	svc.ReindexAll([]PostRecord{{ID: "go-concurrency", Title: "Go Concurrency", Date: 300}})

	if got := slugs(svc.Search(Query{}).Results); len(got) != 1 || got[0] != "go-concurrency" {
		t.Fatalf("results after reindex = %v", got)
	}
	if resp := svc.Search(Query{Text: "rust"}); len(resp.Results) != 0 {
		t.Fatalf("dropped post still matches: %v", slugs(resp.Results))
	}
}

type fakeRemote struct {
	healthy   bool
	searchErr error
	results   []Result
	replaced  [][]PostRecord
	closed    bool
}

func (f *fakeRemote) Healthy() bool { return f.healthy }

func (f *fakeRemote) Search(Query) ([]Result, int, error) {
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.results, len(f.results), nil
}

func (f *fakeRemote) ReplacePosts(posts []PostRecord) error {
	f.replaced = append(f.replaced, append([]PostRecord(nil), posts...))
	return nil
}

func (f *fakeRemote) Close() { f.closed = true }

func TestReindexReplacesRemoteContents(t *testing.T) {
	remote := &fakeRemote{healthy: true}
	svc := newService(remote)

	svc.ReindexAll([]PostRecord{{ID: "a"}, {ID: "b"}})
	svc.ReindexAll([]PostRecord{{ID: "b"}})
	svc.ReindexAll(nil)

	if len(remote.replaced) != 3 {
		t.Fatalf("replace calls = %d, want 3", len(remote.replaced))
	}
	if got := remote.replaced[1]; len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("second replace = %+v", got)
	}
	if got := remote.replaced[2]; len(got) != 0 {
		t.Fatalf("an empty library must clear the remote index, got %+v", got)
	}
}

func TestReindexSkipsUnhealthyRemote(t *testing.T) {
	remote := &fakeRemote{}
	svc := newService(remote)
	svc.ReindexAll([]PostRecord{{ID: "a", Title: "Alpha"}})

	if len(remote.replaced) != 0 {
		t.Fatalf("unhealthy remote was written to: %+v", remote.replaced)
	}
	if got := slugs(svc.Search(Query{Text: "alpha"}).Results); len(got) != 1 {
		t.Fatalf("memory index not updated: %v", got)
	}
}

func TestSearchPrefersHealthyRemote(t *testing.T) {
	remote := &fakeRemote{healthy: true, results: []Result{{Slug: "from-remote"}}}
	svc := newService(remote)
	svc.ReindexAll([]PostRecord{{ID: "from-memory", Title: "Memory"}})

	if got := slugs(svc.Search(Query{}).Results); len(got) != 1 || got[0] != "from-remote" {
		t.Fatalf("healthy remote results = %v", got)
	}

	remote.searchErr = errors.New("connection refused")
	if got := slugs(svc.Search(Query{}).Results); len(got) != 1 || got[0] != "from-memory" {
		t.Fatalf("results after remote error = %v", got)
	}

	remote.searchErr = nil
	remote.healthy = false
	if got := slugs(svc.Search(Query{}).Results); len(got) != 1 || got[0] != "from-memory" {
		t.Fatalf("results with unhealthy remote = %v", got)
	}

	svc.Close()
	if !remote.closed {
		t.Fatal("Close did not reach the remote index")
	}
}

func TestNilMeiliUsesMemoryOnly(t *testing.T) {
	svc := NewService(nil)
	if svc.remote != nil {
		t.Fatalf("nil *Meili became a non-nil remote: %#v", svc.remote)
	}
	svc.Close()
}

func TestHighlightCaseInsensitive(t *testing.T) {
	got := highlight("Go and GO & go", []string{"go"})
	want := "<mark>Go</mark> and <mark>GO</mark> &amp; <mark>go</mark>"
	if got != want {
		t.Fatalf("highlight = %q, want %q", got, want)
	}
}
