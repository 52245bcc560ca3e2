package export

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"time"
)

// SafeHTML is a template function that marks a string as safe HTML
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

//go:embed templates/*.html
var templateFS embed.FS

var postTemplate = template.Must(template.New("post.html").Funcs(template.FuncMap{
	"formatDate": func(t any, layout string) string {
		switch v := t.(type) {
		case time.Time:
			return v.Format(layout)
		case *time.Time:
			if v == nil {
				return ""
			}
			return v.Format(layout)
		default:
			return ""
		}
	},
	"safeHTML": SafeHTML,
	"indent": func(depth int) template.CSS {
		if depth > 6 {
			depth = 6
		}
		return template.CSS(strconv.Itoa(depth * 24))
	},
}).ParseFS(templateFS, "templates/post.html"))

// TemplateData holds data for post template rendering
type TemplateData struct {
	Title       string
	Description string
	Date        time.Time
	LastEdited  *time.Time
	Tags        []string
	BodyHTML    template.HTML
	Comments    []TemplateComment
}

// TemplateComment is one comment flattened out of its tree. Depth 0 is a
// top-level comment.
type TemplateComment struct {
	Author    string
	Content   string
	CreatedAt time.Time
	Pinned    bool
	Depth     int
}

// RenderPostHTML renders the post template with provided data
func RenderPostHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := postTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
