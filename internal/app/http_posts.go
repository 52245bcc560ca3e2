package app

import (
	"net/http"
	"strconv"
	"strings"

	"folio/api/internal/export"
	"folio/api/internal/search"
)

func (s *HTTPServer) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.service.ListPosts(r.URL.Query().Get("tag"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *HTTPServer) handleGetPost(w http.ResponseWriter, r *http.Request, slug string) {
	post, err := s.service.GetPost(slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (s *HTTPServer) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.Tags()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit > 100 {
		limit = 100
	}
	resp, err := s.service.Search(search.Query{
		Text:   strings.TrimSpace(r.URL.Query().Get("q")),
		Tag:    strings.TrimSpace(r.URL.Query().Get("tag")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request, slug string) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	revisions, err := s.service.PostHistory(slug, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, slug, rawFormat string) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	includeComments, _ := strconv.ParseBool(r.URL.Query().Get("comments"))
	result, err := s.service.Export(r.Context(), export.Request{
		Slug:            slug,
		Format:          format,
		IncludeComments: includeComments,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := s.service.Feed()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rss, err := feed.ToRss()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rss))
}

func (s *HTTPServer) handleSitemap(w http.ResponseWriter, r *http.Request) {
	xml, err := s.service.Sitemap()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xml)
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var body ContactRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.Contact(body); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Thanks, your message has been sent"})
}
