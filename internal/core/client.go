package core

// Roles a user can hold inside a classroom.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

// Client is one live connection as seen by the core layer. UserID and Role
// are supplied by the transport layer; the core trusts them. Rooms is the set
// of class rooms this connection currently belongs to and is owned by the hub
// goroutine.
type Client struct {
	ID       string
	UserID   string
	Role     string
	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}

	// closed by the hub once unregistration and the membership cleanup
	// cascade have finished.
	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, userID, role string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Role:     role,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		Rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Done is closed when the hub has removed the client from every room it
// joined and deleted its registry entry.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
