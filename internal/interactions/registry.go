package interactions

import (
	"sync"

	"engagement/internal/poststate"
)

// Registry owns the controllers of every post currently held in memory. It
// is created once at startup with the remote service and closed at shutdown;
// controllers for different posts share nothing but that service.
type Registry struct {
	remote RemoteService
	opts   []Option

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry whose controllers use remote and opts.
func NewRegistry(remote RemoteService, opts ...Option) *Registry {
	return &Registry{
		remote:      remote,
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// Open returns the controller for seed.ID, creating it from seed when the
// post is not loaded yet. An already loaded post keeps its current state.
func (r *Registry) Open(seed poststate.Seed) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[seed.ID]; ok {
		return c
	}
	c := NewController(r.remote, seed, r.opts...)
	r.controllers[seed.ID] = c
	return c
}

// Get returns the controller of a loaded post.
func (r *Registry) Get(postID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[postID]
	return c, ok
}

// Evict closes and forgets the controller of a post leaving memory.
func (r *Registry) Evict(postID string) {
	r.mu.Lock()
	c, ok := r.controllers[postID]
	delete(r.controllers, postID)
	r.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Len returns the number of loaded posts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Close evicts every post.
func (r *Registry) Close() {
	r.mu.Lock()
	controllers := r.controllers
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}
