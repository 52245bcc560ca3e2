package app

import (
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/sourcegraph/sitemap"

	"folio/api/internal/content"
)

const feedItems = 20

func (s *Service) postURL(slug string) string {
	return strings.TrimRight(s.cfg.SiteURL, "/") + "/blog/" + slug
}

// Feed builds the RSS feed of the newest published posts.
func (s *Service) Feed() (*feeds.Feed, error) {
	posts, err := s.posts.List()
	if err != nil {
		return nil, err
	}
	feed := &feeds.Feed{
		Title:       s.cfg.SiteTitle,
		Link:        &feeds.Link{Href: s.cfg.SiteURL},
		Description: s.cfg.SiteDescription,
		Created:     time.Now(),
	}
	if s.cfg.AuthorName != "" || s.cfg.AuthorEmail != "" {
		feed.Author = &feeds.Author{Name: s.cfg.AuthorName, Email: s.cfg.AuthorEmail}
	}
	if len(posts) > 0 {
		feed.Updated = lastModified(posts[0])
	}
	if len(posts) > feedItems {
		posts = posts[:feedItems]
	}
	for _, post := range posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          s.postURL(post.Slug),
			Title:       post.Title,
			Link:        &feeds.Link{Href: s.postURL(post.Slug)},
			Description: post.Description,
			Content:     content.Render(post.Body),
			Created:     post.Date,
			Updated:     lastModified(post),
		})
	}
	return feed, nil
}

// Sitemap lists the home page, the blog index and every published post.
func (s *Service) Sitemap() ([]byte, error) {
	posts, err := s.posts.List()
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(s.cfg.SiteURL, "/")

	var urlSet sitemap.URLSet
	urlSet.URLs = append(urlSet.URLs,
		sitemap.URL{Loc: base + "/", ChangeFreq: sitemap.Weekly, Priority: 1.0},
		sitemap.URL{Loc: base + "/blog", ChangeFreq: sitemap.Daily, Priority: 0.8},
	)
	for _, post := range posts {
		modified := lastModified(post)
		urlSet.URLs = append(urlSet.URLs, sitemap.URL{
			Loc:        s.postURL(post.Slug),
			LastMod:    &modified,
			ChangeFreq: sitemap.Monthly,
			Priority:   0.7,
		})
	}
	return sitemap.Marshal(&urlSet)
}

func lastModified(post content.Post) time.Time {
	if post.LastEdited != nil {
		return *post.LastEdited
	}
	return post.Date
}
