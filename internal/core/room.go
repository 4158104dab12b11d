package core

// Room groups the connections that joined the same class. The teacher subset
// is maintained as a side effect of joining with the teacher role, so alerts
// addressed to "teachers of class X" never depend on a naming convention the
// client has to know about.
type Room struct {
	Name     string
	members  map[*Client]struct{}
	teachers map[*Client]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		Name:     name,
		members:  make(map[*Client]struct{}),
		teachers: make(map[*Client]struct{}),
	}
}

func (r *Room) add(c *Client) bool {
	if _, ok := r.members[c]; ok {
		return false
	}
	r.members[c] = struct{}{}
	if c.Role == RoleTeacher {
		r.teachers[c] = struct{}{}
	}
	return true
}

func (r *Room) remove(c *Client) bool {
	if _, ok := r.members[c]; !ok {
		return false
	}
	delete(r.members, c)
	delete(r.teachers, c)
	return true
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}

// Directory maps class room names to their member connections. It is owned
// by the hub goroutine; all access is serialized through the hub's run loop.
type Directory struct {
	rooms map[string]*Room
}

// NewDirectory constructs an empty room directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// Join adds the client to the named room, creating it on first use.
// Idempotent: a second join of the same room returns false.
func (d *Directory) Join(name string, c *Client) bool {
	room := d.rooms[name]
	if room == nil {
		room = newRoom(name)
		d.rooms[name] = room
	}
	return room.add(c)
}

// Leave removes the client from the named room. A room that loses its last
// member is deleted, so an empty room is indistinguishable from one that
// never existed. Leaving an unknown room is a no-op.
func (d *Directory) Leave(name string, c *Client) bool {
	room := d.rooms[name]
	if room == nil {
		return false
	}
	removed := room.remove(c)
	if room.empty() {
		delete(d.rooms, name)
	}
	return removed
}

// Members returns a snapshot of the room's member connections. The snapshot
// is taken at call time; fan-out happens outside the hub's critical section.
func (d *Directory) Members(name string) []*Client {
	room := d.rooms[name]
	if room == nil {
		return nil
	}
	out := make([]*Client, 0, len(room.members))
	for c := range room.members {
		out = append(out, c)
	}
	return out
}

// Teachers returns a snapshot of the teacher-role members of the room.
func (d *Directory) Teachers(name string) []*Client {
	room := d.rooms[name]
	if room == nil {
		return nil
	}
	out := make([]*Client, 0, len(room.teachers))
	for c := range room.teachers {
		out = append(out, c)
	}
	return out
}

// Size returns the current member count of the room.
func (d *Directory) Size(name string) int {
	room := d.rooms[name]
	if room == nil {
		return 0
	}
	return len(room.members)
}
