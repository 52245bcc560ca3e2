package comments

import "sync"

// Cache mirrors the comment forests a viewer currently has open, one per post,
// and patches them from mutation results instead of refetching.
//
// Forests returned by the cache are shared and must be treated as read-only.
// Every update builds new slices along the changed path.
type Cache struct {
	mu      sync.Mutex
	posts   map[string]*cachedPost
	lastGen uint64
}

type cachedPost struct {
	forest Forest
	loaded bool
	gen    uint64
}

// Ticket identifies one fetch of a post's forest.
type Ticket struct {
	PostSlug string
	gen      uint64
}

func NewCache() *Cache {
	return &Cache{posts: make(map[string]*cachedPost)}
}

// Begin marks postSlug as open and starts a fetch. Only the most recent
// ticket of an open post may install its result.
func (c *Cache) Begin(postSlug string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastGen++
	entry, ok := c.posts[postSlug]
	if !ok {
		entry = &cachedPost{}
		c.posts[postSlug] = entry
	}
	entry.gen = c.lastGen
	return Ticket{PostSlug: postSlug, gen: c.lastGen}
}

// Install stores a fetched forest. It reports false, and drops the forest,
// when the post was closed, a newer fetch started, or a mutation was applied
// after the ticket was issued.
func (c *Cache) Install(ticket Ticket, forest Forest) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.posts[ticket.PostSlug]
	if !ok || entry.gen != ticket.gen {
		return false
	}
	if forest == nil {
		forest = Forest{}
	}
	entry.forest = forest
	entry.loaded = true
	return true
}

// Close forgets a post. Fetches still in flight for it are discarded.
func (c *Cache) Close(postSlug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.posts, postSlug)
}

// Forest returns the cached forest of a post, if one has been installed.
func (c *Cache) Forest(postSlug string) (Forest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.posts[postSlug]
	if !ok || !entry.loaded {
		return nil, false
	}
	return entry.forest, true
}

// ApplyCreated inserts a newly created comment. Roots go in front and the
// roots are re-sorted; replies are appended under their parent, whose replies
// alone are re-sorted. Unknown posts, missing parents and ids already present
// leave the cache unchanged.
func (c *Cache) ApplyCreated(comment Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.loaded(comment.PostSlug)
	if entry == nil || contains(entry.forest, comment.ID) {
		return false
	}
	node := Node{Comment: comment, Replies: []Node{}}

	if comment.ParentID == nil {
		roots := make([]Node, 0, len(entry.forest)+1)
		roots = append(roots, node)
		roots = append(roots, entry.forest...)
		SortSiblings(roots)
		c.replace(entry, roots)
		return true
	}

	forest, ok := withReply(entry.forest, *comment.ParentID, node)
	if !ok {
		return false
	}
	c.replace(entry, forest)
	return true
}

// ApplyEdited replaces a comment's fields and keeps its replies. A comment
// that is no longer cached, for example because a delete landed first, is
// ignored.
func (c *Cache) ApplyEdited(comment Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.loaded(comment.PostSlug)
	if entry == nil {
		return false
	}
	forest, ok := withComment(entry.forest, comment)
	if !ok {
		return false
	}
	c.replace(entry, forest)
	return true
}

// ApplyPinned updates a root comment's pinned state and re-sorts all roots.
func (c *Cache) ApplyPinned(comment Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.loaded(comment.PostSlug)
	if entry == nil {
		return false
	}
	for i, root := range entry.forest {
		if root.ID != comment.ID {
			continue
		}
		root.Comment = comment
		roots := replaceAt(entry.forest, i, root)
		SortSiblings(roots)
		c.replace(entry, roots)
		return true
	}
	return false
}

// ApplyDeleted removes a comment, with its replies, from whichever open post
// holds it.
func (c *Cache) ApplyDeleted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.posts {
		if !entry.loaded {
			continue
		}
		if forest, ok := without(entry.forest, id); ok {
			c.replace(entry, forest)
			return true
		}
	}
	return false
}

// replace installs a patched forest. Fetches started before the patch would
// overwrite it with a snapshot that may predate the mutation, so their
// tickets stop being current.
func (c *Cache) replace(entry *cachedPost, forest Forest) {
	entry.forest = forest
	c.lastGen++
	entry.gen = c.lastGen
}

func (c *Cache) loaded(postSlug string) *cachedPost {
	entry, ok := c.posts[postSlug]
	if !ok || !entry.loaded {
		return nil
	}
	return entry
}
