package comments

// The helpers below never modify a slice they were given. Each returns a new
// slice for every level on the path from the root to the changed node and
// shares everything else, so forests handed out earlier stay valid.

// withReply appends child under the node with id parentID and re-sorts that
// node's replies.
func withReply(nodes []Node, parentID string, child Node) ([]Node, bool) {
	for i, node := range nodes {
		if node.ID == parentID {
			replies := make([]Node, 0, len(node.Replies)+1)
			replies = append(replies, node.Replies...)
			replies = append(replies, child)
			SortSiblings(replies)
			node.Replies = replies
			return replaceAt(nodes, i, node), true
		}
		if replies, ok := withReply(node.Replies, parentID, child); ok {
			node.Replies = replies
			return replaceAt(nodes, i, node), true
		}
	}
	return nodes, false
}

// without drops the node with id, and its subtree, from wherever it sits.
func without(nodes []Node, id string) ([]Node, bool) {
	for i, node := range nodes {
		if node.ID == id {
			out := make([]Node, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			return append(out, nodes[i+1:]...), true
		}
		if replies, ok := without(node.Replies, id); ok {
			node.Replies = replies
			return replaceAt(nodes, i, node), true
		}
	}
	return nodes, false
}

// withComment swaps in new scalar fields for the node with the same id and
// keeps its replies as they are.
func withComment(nodes []Node, comment Comment) ([]Node, bool) {
	for i, node := range nodes {
		if node.ID == comment.ID {
			node.Comment = comment
			return replaceAt(nodes, i, node), true
		}
		if replies, ok := withComment(node.Replies, comment); ok {
			node.Replies = replies
			return replaceAt(nodes, i, node), true
		}
	}
	return nodes, false
}

func replaceAt(nodes []Node, i int, node Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	out[i] = node
	return out
}

func contains(nodes []Node, id string) bool {
	_, ok := findNode(nodes, id)
	return ok
}
