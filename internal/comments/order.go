package comments

import "sort"

// Before reports whether a sorts ahead of b among siblings: pinned comments
// first, then the most recently created.
func Before(a, b Comment) bool {
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// SortSiblings orders nodes in place. The sort is stable, so equal keys keep
// the order they arrived in.
func SortSiblings(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return Before(nodes[i].Comment, nodes[j].Comment)
	})
}
