package comments

import "context"

// Backend is the comment operation surface as seen by one viewer, whose
// identity is already bound.
type Backend interface {
	List(ctx context.Context, postSlug string) (Forest, error)
	Create(ctx context.Context, postSlug, content string, parentID *string) (Comment, error)
	Edit(ctx context.Context, id, content string) (Comment, error)
	Delete(ctx context.Context, id string) error
	TogglePin(ctx context.Context, id string, pinned bool) (Comment, error)
}

// For binds actor to the engine. A nil actor is an anonymous viewer.
func (e *Engine) For(actor *Actor) Backend {
	return boundEngine{engine: e, actor: actor}
}

type boundEngine struct {
	engine *Engine
	actor  *Actor
}

func (b boundEngine) List(ctx context.Context, postSlug string) (Forest, error) {
	return b.engine.List(ctx, postSlug)
}

func (b boundEngine) Create(ctx context.Context, postSlug, content string, parentID *string) (Comment, error) {
	return b.engine.Create(ctx, b.actor, postSlug, content, parentID)
}

func (b boundEngine) Edit(ctx context.Context, id, content string) (Comment, error) {
	return b.engine.Edit(ctx, b.actor, id, content)
}

func (b boundEngine) Delete(ctx context.Context, id string) error {
	return b.engine.Delete(ctx, b.actor, id)
}

func (b boundEngine) TogglePin(ctx context.Context, id string, pinned bool) (Comment, error) {
	return b.engine.TogglePin(ctx, b.actor, id, pinned)
}

// View is one viewer's cached window onto the comment system. Each mutation
// waits for the backend and only then patches the cache; a failed mutation
// leaves the cache as it was.
type View struct {
	backend Backend
	cache   *Cache
}

func NewView(backend Backend) *View {
	return &View{backend: backend, cache: NewCache()}
}

// Open fetches a post's forest and caches it. If the post is closed, or opened
// again, before the fetch returns, the result is returned but not cached.
// If one of the viewer's mutations lands while the fetch is in flight, the
// cached forest already holds it and is returned instead.
func (v *View) Open(ctx context.Context, postSlug string) (Forest, error) {
	ticket := v.cache.Begin(postSlug)
	forest, err := v.backend.List(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if !v.cache.Install(ticket, forest) {
		if cached, ok := v.cache.Forest(postSlug); ok {
			return cached, nil
		}
	}
	return forest, nil
}

// Refresh refetches an open post.
func (v *View) Refresh(ctx context.Context, postSlug string) (Forest, error) {
	return v.Open(ctx, postSlug)
}

func (v *View) Close(postSlug string) {
	v.cache.Close(postSlug)
}

// Forest returns the cached forest of an open post.
func (v *View) Forest(postSlug string) (Forest, bool) {
	return v.cache.Forest(postSlug)
}

func (v *View) Create(ctx context.Context, postSlug, content string, parentID *string) (Comment, error) {
	comment, err := v.backend.Create(ctx, postSlug, content, parentID)
	if err != nil {
		return Comment{}, err
	}
	v.cache.ApplyCreated(comment)
	return comment, nil
}

func (v *View) Edit(ctx context.Context, id, content string) (Comment, error) {
	comment, err := v.backend.Edit(ctx, id, content)
	if err != nil {
		return Comment{}, err
	}
	v.cache.ApplyEdited(comment)
	return comment, nil
}

func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.backend.Delete(ctx, id); err != nil {
		return err
	}
	v.cache.ApplyDeleted(id)
	return nil
}

func (v *View) TogglePin(ctx context.Context, id string, pinned bool) (Comment, error) {
	comment, err := v.backend.TogglePin(ctx, id, pinned)
	if err != nil {
		return Comment{}, err
	}
	v.cache.ApplyPinned(comment)
	return comment, nil
}
