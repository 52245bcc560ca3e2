package export

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"folio/api/internal/comments"
	"folio/api/internal/content"
)

type fakePosts map[string]content.Post

func (f fakePosts) Get(slug string) (content.Post, error) {
	post, ok := f[slug]
	if !ok {
		return content.Post{}, content.ErrPostNotFound
	}
	return post, nil
}

type fakeComments struct {
	forest comments.Forest
	err    error
}

func (f fakeComments) List(context.Context, string) (comments.Forest, error) {
	return f.forest, f.err
}

func samplePost() content.Post {
	return content.Post{
		Slug: "hello-world",
		FrontMatter: content.FrontMatter{
			Title:       "Hello World",
			Description: "A first post",
			Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			Tags:        []string{"go", "meta"},
		},
		Body:     "# Intro\n\nSome **bold** text.\n",
		Location: content.Published,
	}
}

func newTestService(threads CommentSource) (*Service, *string) {
	svc := NewService(fakePosts{"hello-world": samplePost()}, threads)
	var captured string
	capture := func(_ context.Context, html, title string) (*Result, error) {
		captured = html
		return &Result{Data: []byte("%PDF"), Filename: sanitizeFilename(title) + ".pdf", MimeType: "application/pdf"}, nil
	}
	svc.pdf = capture
	svc.docx = capture
	return svc, &captured
}

func TestExportRendersPost(t *testing.T) {
	svc, captured := newTestService(nil)

	result, err := svc.Export(context.Background(), Request{Slug: "hello-world", Format: FormatPDF})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "hello-world.pdf" {
		t.Fatalf("Filename = %q", result.Filename)
	}
	for _, want := range []string{"<title>Hello World</title>", "A first post", "March 14, 2026", "<strong>bold</strong>", `<span class="tag">go</span>`} {
		if !strings.Contains(*captured, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}
	if strings.Contains(*captured, "Comments") {
		t.Error("comments section rendered without request")
	}
}

func TestExportIncludesCommentTree(t *testing.T) {
	parent := "c1"
	forest := comments.Forest{
		{
			Comment: comments.Comment{ID: "c1", Content: "Great <post>", Author: comments.Author{Name: "Ada"}, IsPinned: true},
			Replies: []comments.Node{
				{Comment: comments.Comment{ID: "c2", ParentID: &parent, Content: "Agreed", Author: comments.Author{Name: "Grace"}}, Replies: []comments.Node{}},
			},
		},
	}
	svc, captured := newTestService(fakeComments{forest: forest})

	if _, err := svc.Export(context.Background(), Request{Slug: "hello-world", Format: FormatDOCX, IncludeComments: true}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	html := *captured
	if !strings.Contains(html, "Great &lt;post&gt;") {
		t.Error("comment content should be escaped")
	}
	if !strings.Contains(html, `class="comment pinned"`) {
		t.Error("pinned comment not marked")
	}
	if strings.Index(html, "Ada") > strings.Index(html, "Grace") {
		t.Error("reply rendered before its parent")
	}
	if !strings.Contains(html, "margin-left: 24px") {
		t.Error("reply not indented")
	}
}

func TestExportErrors(t *testing.T) {
	svc, _ := newTestService(fakeComments{err: errors.New("db down")})
	ctx := context.Background()

	if _, err := svc.Export(ctx, Request{Slug: "hello-world", Format: "odt"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("unsupported format error = %v", err)
	}
	if _, err := svc.Export(ctx, Request{Slug: "missing", Format: FormatPDF}); !errors.Is(err, content.ErrPostNotFound) {
		t.Fatalf("missing post error = %v", err)
	}
	if _, err := svc.Export(ctx, Request{Slug: "hello-world", Format: FormatPDF, IncludeComments: true}); err == nil {
		t.Fatal("expected comment listing failure")
	}
}

func TestFlattenOrder(t *testing.T) {
	forest := []comments.Node{
		{Comment: comments.Comment{ID: "a"}, Replies: []comments.Node{
			{Comment: comments.Comment{ID: "a1"}, Replies: []comments.Node{
				{Comment: comments.Comment{ID: "a1x"}},
			}},
		}},
		{Comment: comments.Comment{ID: "b"}},
	}
	got := flatten(forest, 0, nil)
	depths := make([]int, 0, len(got))
	for _, c := range got {
		depths = append(depths, c.Depth)
	}
	want := []int{0, 1, 2, 0}
	if len(depths) != len(want) {
		t.Fatalf("depths = %v, want %v", depths, want)
	}
	for i := range want {
		if depths[i] != want[i] {
			t.Fatalf("depths = %v, want %v", depths, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("pdf"); err != nil || f != FormatPDF {
		t.Fatalf("ParseFormat(pdf) = %q, %v", f, err)
	}
	if f, err := ParseFormat("docx"); err != nil || f != FormatDOCX {
		t.Fatalf("ParseFormat(docx) = %q, %v", f, err)
	}
	if _, err := ParseFormat("PDF"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("ParseFormat(PDF) error = %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"Hello, World!", "hello-world"},
		{"", "post"},
		{"!!!", "post"},
		{strings.Repeat("word ", 20), "word-word-word-word-word-word-word-word-word-word-word-word"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"café", "caf%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderPostHTMLKeepsBodyUnescaped(t *testing.T) {
	html, err := RenderPostHTML(TemplateData{
		Title:    "Test",
		BodyHTML: template.HTML("<p>This is the content.</p>"),
	})
	if err != nil {
		t.Fatalf("RenderPostHTML() error = %v", err)
	}
	if !strings.Contains(html, "<p>This is the content.</p>") {
		t.Error("body html should be rendered raw")
	}
	if strings.Contains(html, "edited") {
		t.Error("edited marker rendered without LastEdited")
	}
}
