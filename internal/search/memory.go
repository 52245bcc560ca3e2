package search

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// MemoryIndex is the in-process fallback used when Meilisearch is not
// configured or unreachable. It matches every query term as a
// case-insensitive substring.
type MemoryIndex struct {
	mu    sync.RWMutex
	posts map[string]PostRecord
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{posts: make(map[string]PostRecord)}
}

// Replace swaps the whole index content.
func (m *MemoryIndex) Replace(posts []PostRecord) {
	next := make(map[string]PostRecord, len(posts))
	for _, post := range posts {
		next[post.ID] = post
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = next
}

type scored struct {
	post  PostRecord
	score int
}

// Search ranks title matches above description and tag matches, and those
// above body matches; equal scores go newest first.
func (m *MemoryIndex) Search(q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))

	m.mu.RLock()
	hits := make([]scored, 0)
	for _, post := range m.posts {
		if q.Tag != "" && !hasTag(post.Tags, q.Tag) {
			continue
		}
		score, ok := scorePost(post, terms)
		if !ok {
			continue
		}
		hits = append(hits, scored{post: post, score: score})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if hits[i].post.Date != hits[j].post.Date {
			return hits[i].post.Date > hits[j].post.Date
		}
		return hits[i].post.ID < hits[j].post.ID
	})

	total := len(hits)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + limitOf(q)
	if end > total {
		end = total
	}

	results := make([]Result, 0, end-start)
	for _, hit := range hits[start:end] {
		results = append(results, Result{
			Slug:    hit.post.ID,
			Title:   hit.post.Title,
			Snippet: snippet(hit.post, terms),
			Tags:    nonNilTags(hit.post.Tags),
			Date:    hit.post.Date,
		})
	}
	return results, total, nil
}

func scorePost(post PostRecord, terms []string) (int, bool) {
	title := strings.ToLower(post.Title)
	description := strings.ToLower(post.Description)
	tags := strings.ToLower(strings.Join(post.Tags, " "))
	body := strings.ToLower(post.Body)

	score := 0
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			score += 3
		case strings.Contains(description, term), strings.Contains(tags, term):
			score += 2
		case strings.Contains(body, term):
			score++
		default:
			return 0, false
		}
	}
	return score, true
}

func snippet(post PostRecord, terms []string) string {
	text := post.Description
	if text == "" {
		text = post.Body
	}
	if len(terms) == 0 {
		return html.EscapeString(crop(text, 160))
	}
	lower := strings.ToLower(post.Body)
	for _, term := range terms {
		if strings.Contains(strings.ToLower(post.Description), term) {
			return highlight(crop(post.Description, 160), terms)
		}
		if idx := strings.Index(lower, term); idx >= 0 {
			start := idx - 60
			if start < 0 || start > len(post.Body) {
				start = 0
			}
			return highlight(crop(validStart(post.Body, start), 160), terms)
		}
	}
	return highlight(crop(text, 160), terms)
}

func highlight(text string, terms []string) string {
	escaped := html.EscapeString(text)
	if len(terms) == 0 {
		return escaped
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, regexp.QuoteMeta(html.EscapeString(term)))
	}
	pattern := regexp.MustCompile("(?i)(" + strings.Join(quoted, "|") + ")")
	return pattern.ReplaceAllString(escaped, "<mark>$1</mark>")
}

func crop(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// validStart moves a byte offset forward to the next rune boundary.
func validStart(s string, i int) string {
	for i < len(s) && i > 0 && !isRuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
