package export

import (
	"context"
	"fmt"
	"html/template"

	"folio/api/internal/comments"
	"folio/api/internal/content"
)

// PostSource looks up published posts.
type PostSource interface {
	Get(slug string) (content.Post, error)
}

// CommentSource lists a post's comment tree.
type CommentSource interface {
	List(ctx context.Context, postSlug string) (comments.Forest, error)
}

type converter func(ctx context.Context, html, title string) (*Result, error)

// Service provides post export functionality
type Service struct {
	posts    PostSource
	comments CommentSource
	pdf      converter
	docx     converter
}

// NewService creates a new export service. threads may be nil, in which case
// comments are never included.
func NewService(posts PostSource, threads CommentSource) *Service {
	return &Service{
		posts:    posts,
		comments: threads,
		pdf:      exportPDF,
		docx:     exportDOCX,
	}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	var convert converter
	switch req.Format {
	case FormatPDF:
		convert = s.pdf
	case FormatDOCX:
		convert = s.docx
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	post, err := s.posts.Get(req.Slug)
	if err != nil {
		return nil, err
	}

	data := TemplateData{
		Title:       post.Title,
		Description: post.Description,
		Date:        post.Date,
		LastEdited:  post.LastEdited,
		Tags:        post.Tags,
		BodyHTML:    template.HTML(content.Render(post.Body)),
	}

	if req.IncludeComments && s.comments != nil {
		forest, err := s.comments.List(ctx, post.Slug)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		data.Comments = flatten(forest, 0, nil)
	}

	html, err := RenderPostHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	return convert(ctx, html, post.Title)
}

// flatten walks the tree depth-first so replies follow their parent.
func flatten(nodes []comments.Node, depth int, out []TemplateComment) []TemplateComment {
	for _, node := range nodes {
		out = append(out, TemplateComment{
			Author:    node.Author.Name,
			Content:   node.Content,
			CreatedAt: node.CreatedAt,
			Pinned:    node.IsPinned,
			Depth:     depth,
		})
		out = flatten(node.Replies, depth+1, out)
	}
	return out
}
