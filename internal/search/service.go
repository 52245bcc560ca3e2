package search

import (
	"log"
)

// remoteIndex is the external engine the service prefers over the memory
// index. *Meili is the production implementation.
type remoteIndex interface {
	Searcher
	Healthy() bool
	ReplacePosts(posts []PostRecord) error
	Close()
}

// Service is the facade that tries Meilisearch first and falls back to the
// in-process index, which always holds every published post.
type Service struct {
	remote remoteIndex
	memory *MemoryIndex
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili) *Service {
	if meili == nil {
		return newService(nil)
	}
	return newService(meili)
}

func newService(remote remoteIndex) *Service {
	return &Service{remote: remote, memory: NewMemoryIndex()}
}

func (s *Service) Search(q Query) Response {
	if s.remote != nil && s.remote.Healthy() {
		results, total, err := s.remote.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to memory index: %v", err)
	}

	results, total, err := s.memory.Search(q)
	if err != nil {
		log.Printf("search: memory index error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// ReindexAll makes both indexes hold exactly posts. Anything indexed earlier
// and missing from posts (trashed or unpublished since) stops matching.
func (s *Service) ReindexAll(posts []PostRecord) {
	s.memory.Replace(posts)
	if s.remote == nil || !s.remote.Healthy() {
		return
	}
	if err := s.remote.ReplacePosts(posts); err != nil {
		log.Printf("search: reindex posts: %v", err)
	}
}

func (s *Service) Close() {
	if s.remote != nil {
		s.remote.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
