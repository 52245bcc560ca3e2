// Package content manages the markdown posts of the blog: published posts,
// drafts and trash, each a file with YAML front matter.
package content

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

type FrontMatter struct {
	Title        string     `yaml:"title" json:"title"`
	Description  string     `yaml:"description" json:"description"`
	Date         time.Time  `yaml:"date" json:"date"`
	Tags         []string   `yaml:"tags" json:"tags"`
	CoverImage   string     `yaml:"coverImage,omitempty" json:"coverImage,omitempty"`
	PostOfTheDay bool       `yaml:"postOfTheDay,omitempty" json:"postOfTheDay"`
	LastEdited   *time.Time `yaml:"lastEdited,omitempty" json:"lastEdited,omitempty"`
}

// Location is the folder a post file lives in.
type Location string

const (
	Published Location = "posts"
	Drafts    Location = "_drafts"
	Trash     Location = "_trash"
)

type Post struct {
	Slug string `json:"slug"`
	FrontMatter
	Body     string    `json:"-"`
	Location Location  `json:"-"`
	ModTime  time.Time `json:"-"`
}

// Source is the file form of the post.
func (p Post) Source() ([]byte, error) {
	return Format(p.FrontMatter, p.Body)
}

// Parse splits a post file into front matter and markdown body. A file
// without a leading front matter block is all body.
func Parse(data []byte) (FrontMatter, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, delimiter+"\n") {
		return FrontMatter{Tags: []string{}}, text, nil
	}
	rest := text[len(delimiter)+1:]

	var header, body string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n"):
		body = rest[len(delimiter)+1:]
	case rest == delimiter:
	default:
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+delimiter) {
				return FrontMatter{}, "", fmt.Errorf("parse front matter: missing closing %q", delimiter)
			}
			header = strings.TrimSuffix(rest, "\n"+delimiter)
		} else {
			header = rest[:end]
			body = rest[end+len(delimiter)+2:]
		}
	}

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return FrontMatter{}, "", fmt.Errorf("parse front matter: %w", err)
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	return fm, body, nil
}

// Format renders front matter and body back into a post file.
func Format(fm FrontMatter, body string) ([]byte, error) {
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(header)
	buf.WriteString(delimiter + "\n")
	buf.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
