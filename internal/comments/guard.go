package comments

// CanCreate reports whether actor may start or reply to a thread. Any
// signed-in actor may.
func CanCreate(actor *Actor) bool {
	return actor != nil
}

// CanEdit reports whether actor may change the content of comment. Only its
// author may.
func CanEdit(actor *Actor, comment Comment) bool {
	return owns(actor, comment)
}

// CanDelete reports whether actor may delete comment. Only its author may.
func CanDelete(actor *Actor, comment Comment) bool {
	return owns(actor, comment)
}

// CanPin requires ownership and a top-level target.
func CanPin(actor *Actor, comment Comment) bool {
	return owns(actor, comment) && comment.IsRoot()
}

func owns(actor *Actor, comment Comment) bool {
	return actor != nil && actor.ID != "" && actor.ID == comment.AuthorID
}
