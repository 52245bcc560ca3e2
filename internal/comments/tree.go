package comments

// BuildForest assembles one post's flat comment list into an ordered forest.
//
// Children are grouped under their parent id, keeping input order inside each
// group, and each level is then sorted on its own. Only nodes reachable from a
// root end up in the result, so a comment whose parent is missing disappears
// together with its whole subtree. Repeated ids are kept once.
func BuildForest(records []Comment) Forest {
	children := make(map[string][]Comment, len(records))
	var roots []Comment
	for _, record := range records {
		if record.ParentID == nil {
			roots = append(roots, record)
			continue
		}
		children[*record.ParentID] = append(children[*record.ParentID], record)
	}

	seen := make(map[string]struct{}, len(records))
	return Forest(buildLevel(roots, children, seen))
}

func buildLevel(level []Comment, children map[string][]Comment, seen map[string]struct{}) []Node {
	if len(level) == 0 {
		return []Node{}
	}
	nodes := make([]Node, 0, len(level))
	for _, comment := range level {
		if _, dup := seen[comment.ID]; dup {
			continue
		}
		seen[comment.ID] = struct{}{}
		nodes = append(nodes, Node{Comment: comment})
	}
	for i := range nodes {
		nodes[i].Replies = buildLevel(children[nodes[i].ID], children, seen)
	}
	SortSiblings(nodes)
	return nodes
}

// Count returns the number of comments in the forest at every depth.
func (f Forest) Count() int {
	return countNodes(f)
}

func countNodes(nodes []Node) int {
	total := len(nodes)
	for _, node := range nodes {
		total += countNodes(node.Replies)
	}
	return total
}

// Find returns the node with the given id at any depth.
func (f Forest) Find(id string) (Node, bool) {
	return findNode(f, id)
}

func findNode(nodes []Node, id string) (Node, bool) {
	for _, node := range nodes {
		if node.ID == id {
			return node, true
		}
		if found, ok := findNode(node.Replies, id); ok {
			return found, true
		}
	}
	return Node{}, false
}
