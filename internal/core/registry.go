package core

// Registry is the source of truth for live connections and the rooms each
// one joined. Like the Directory it is owned by the hub goroutine, which is
// the single writer; no internal locking is needed.
type Registry struct {
	clients map[string]*Client
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add registers a connection. Registering the same connection ID twice is a
// contract violation and returns ErrAlreadyRegistered.
func (r *Registry) Add(c *Client) error {
	if _, ok := r.clients[c.ID]; ok {
		return ErrAlreadyRegistered
	}
	r.clients[c.ID] = c
	return nil
}

// Remove deletes the registry entry and returns the client, or nil if the
// connection was never registered. Room cleanup is the hub's job; callers
// use the returned client's Rooms set to cascade the leaves.
func (r *Registry) Remove(id string) *Client {
	c := r.clients[id]
	if c != nil {
		delete(r.clients, id)
	}
	return c
}

// Get returns the client for a connection ID, or nil.
func (r *Registry) Get(id string) *Client {
	return r.clients[id]
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return len(r.clients)
}

// TrackJoin records room membership on the connection. Idempotent.
func (r *Registry) TrackJoin(c *Client, room string) {
	c.Rooms[room] = struct{}{}
}

// TrackLeave forgets room membership on the connection. Idempotent.
func (r *Registry) TrackLeave(c *Client, room string) {
	delete(c.Rooms, room)
}
