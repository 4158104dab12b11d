package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// audienceScope selects who receives the event produced by a route.
type audienceScope int

const (
	// audienceNone produces no broadcast.
	audienceNone audienceScope = iota
	// audienceSender delivers to the originating connection only.
	audienceSender
	// audienceRoom delivers to every member of the class room.
	audienceRoom
	// audienceTeachers delivers to the teacher-role members of the room.
	audienceTeachers
)

// route is one row of the hub's dispatch table: field validation, the state
// mutation plus event construction, and the audience policy. Keeping the
// policy here instead of inline at call sites makes "who receives this"
// testable per event type.
type route struct {
	require    func(cmd *Command) string
	apply      func(h *Hub, sender *Client, cmd *Command) *Event
	audience   audienceScope
	skipSender bool
}

// submission pairs a command with its originating connection. Sender is nil
// for commands injected by server-side collaborators.
type submission struct {
	sender *Client
	cmd    *Command
}

// memberQuery asks the hub for a consistent snapshot of room membership.
type memberQuery struct {
	room         string
	teachersOnly bool
	reply        chan []Presence
}

// Presence describes one member of a room at snapshot time.
type Presence struct {
	ConnectionID string
	UserID       string
	Role         string
}

// Hub owns the connection registry and room directory. A single run-loop
// goroutine processes every mutation and snapshot, which serializes access
// to the shared state and gives per-room FIFO delivery for free. Actual
// sends happen on buffered per-client channels, so a slow recipient never
// blocks the loop.
type Hub struct {
	log       zerolog.Logger
	registry  *Registry
	directory *Directory

	register   chan *Client
	unregister chan *Client
	inbox      chan submission
	queries    chan memberQuery

	routes map[CommandKind]route
}

// NewHub creates a hub with an empty registry and directory.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		log:        *logger,
		registry:   NewRegistry(),
		directory:  NewDirectory(),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		inbox:      make(chan submission, 1024),
		queries:    make(chan memberQuery),
	}
	h.routes = map[CommandKind]route{
		CommandJoinClass: {
			require:    requireJoin,
			apply:      (*Hub).applyJoin,
			audience:   audienceRoom,
			skipSender: true,
		},
		CommandLeaveClass: {
			require:  requireLeave,
			apply:    (*Hub).applyLeave,
			audience: audienceNone,
		},
		CommandPollResponse: {
			require:  requirePoll,
			apply:    (*Hub).applyPollResponse,
			audience: audienceRoom,
		},
		CommandEngagementAlert: {
			require:  requireAlert,
			apply:    (*Hub).applyEngagementAlert,
			audience: audienceTeachers,
		},
	}
	return h
}

// Run processes registrations, commands and snapshot queries until the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case sub := <-h.inbox:
			h.handleCommand(sub.sender, sub.cmd)
		case q := <-h.queries:
			q.reply <- h.snapshot(q)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// shutdown releases every live and queued connection so transport goroutines
// parked in UnregisterClient can finish during server teardown.
func (h *Hub) shutdown() {
	for {
		select {
		case c := <-h.register:
			h.release(c)
		case c := <-h.unregister:
			h.release(c)
		default:
			for id, c := range h.registry.clients {
				delete(h.registry.clients, id)
				h.release(c)
			}
			return
		}
	}
}

func (h *Hub) release(c *Client) {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// RegisterClient hands a new connection to the hub. The hub confirms with an
// EventConnected on the client's event channel; a duplicate connection ID is
// a programming error and fails the setup path instead.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes the connection and, as part of the same hub-side
// transition, leaves every room it joined. It blocks until the cascade has
// finished, so callers can rely on no stale membership remaining afterwards.
// Safe to call for a connection that never joined a room, and safe to call
// twice.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-c.done:
		return
	}
	<-c.done
}

// Dispatch injects a server-originated command (poll service, engagement
// detector). There is no sender, so skip-sender policies do not apply.
func (h *Hub) Dispatch(cmd *Command) {
	h.inbox <- submission{sender: nil, cmd: cmd}
}

// RoomMembers returns a snapshot of the room's members, taken inside the hub
// loop so it is consistent with respect to concurrent joins and leaves.
func (h *Hub) RoomMembers(room string) []Presence {
	q := memberQuery{room: room, reply: make(chan []Presence, 1)}
	h.queries <- q
	return <-q.reply
}

// RoomTeachers returns a snapshot of the teacher-role members of the room.
func (h *Hub) RoomTeachers(room string) []Presence {
	q := memberQuery{room: room, teachersOnly: true, reply: make(chan []Presence, 1)}
	h.queries <- q
	return <-q.reply
}

func (h *Hub) handleRegister(c *Client) {
	select {
	case <-c.done:
		// The unregister for this connection was processed first (register
		// and unregister travel on separate channels, so a fast
		// connect/disconnect can reorder them). Registering now would leave
		// an entry nothing ever removes.
		return
	default:
	}
	if err := h.registry.Add(c); err != nil {
		h.log.Error().Str("connection_id", c.ID).Msg("duplicate connection registration")
		h.send(c, &Event{
			Kind:  EventError,
			Error: coreError(ErrCodeAlreadyRegistered, "connection already registered"),
		})
		close(c.done)
		return
	}
	go h.pump(c)
	h.send(c, &Event{
		Kind:    EventConnected,
		Message: "connected to classwire server",
	})
	h.log.Debug().Str("connection_id", c.ID).Str("user_id", c.UserID).Msg("connection registered")
}

func (h *Hub) handleUnregister(c *Client) {
	if h.registry.Get(c.ID) != c {
		// Never registered, or setup failed. Release any waiter.
		h.release(c)
		return
	}
	h.registry.Remove(c.ID)
	for room := range c.Rooms {
		h.directory.Leave(room, c)
	}
	c.Rooms = make(map[string]struct{})
	close(c.done)
	h.log.Debug().Str("connection_id", c.ID).Msg("connection unregistered")
}

func (h *Hub) handleCommand(sender *Client, cmd *Command) {
	if cmd == nil {
		return
	}
	rt, ok := h.routes[cmd.Kind]
	if !ok {
		h.log.Warn().Str("kind", cmd.Kind.String()).Msg("no route for command")
		return
	}
	if missing := rt.require(cmd); missing != "" {
		h.log.Warn().
			Str("kind", cmd.Kind.String()).
			Str("missing", missing).
			Msg("dropping malformed event")
		if sender != nil {
			h.send(sender, &Event{
				Kind:  EventError,
				Error: coreError(ErrCodeBadRequest, "missing required field: "+missing),
			})
		}
		return
	}
	ev := rt.apply(h, sender, cmd)
	if ev == nil || rt.audience == audienceNone {
		return
	}

	// Audience is computed here, from current directory state, for every
	// dispatch. A connection that left between receipt and now is simply
	// not in the snapshot.
	switch rt.audience {
	case audienceSender:
		if sender != nil {
			h.send(sender, ev)
		}
	case audienceRoom:
		h.broadcast(h.directory.Members(cmd.Class), skipOf(rt, sender), ev)
	case audienceTeachers:
		h.broadcast(h.directory.Teachers(cmd.Class), skipOf(rt, sender), ev)
	}
}

func skipOf(rt route, sender *Client) *Client {
	if rt.skipSender {
		return sender
	}
	return nil
}

func (h *Hub) applyJoin(sender *Client, cmd *Command) *Event {
	if sender == nil {
		return nil
	}
	if sender.UserID == "" {
		sender.UserID = cmd.User
	}
	if sender.Role == "" {
		sender.Role = cmd.Role
	}
	if !h.directory.Join(cmd.Class, sender) {
		// Already a member; joining twice is a no-op.
		return nil
	}
	h.registry.TrackJoin(sender, cmd.Class)
	h.log.Info().
		Str("class_id", cmd.Class).
		Str("user_id", sender.UserID).
		Str("role", sender.Role).
		Msg("user joined class")
	return &Event{
		Kind: EventUserJoined,
		Room: cmd.Class,
		User: sender.UserID,
		Role: sender.Role,
	}
}

func (h *Hub) applyLeave(sender *Client, cmd *Command) *Event {
	if sender == nil {
		return nil
	}
	h.directory.Leave(cmd.Class, sender)
	h.registry.TrackLeave(sender, cmd.Class)
	h.log.Info().
		Str("class_id", cmd.Class).
		Str("user_id", sender.UserID).
		Msg("user left class")
	return nil
}

func (h *Hub) applyPollResponse(_ *Client, cmd *Command) *Event {
	return &Event{
		Kind: EventPollUpdated,
		Room: cmd.Class,
		Poll: cmd.Poll,
	}
}

func (h *Hub) applyEngagementAlert(_ *Client, cmd *Command) *Event {
	return &Event{
		Kind:  EventEngagementAlert,
		Room:  cmd.Class,
		Alert: cmd.Alert,
	}
}

func requireJoin(cmd *Command) string {
	switch {
	case cmd.Class == "":
		return "class_id"
	case cmd.User == "":
		return "user_id"
	case cmd.Role == "":
		return "role"
	case !ValidRole(cmd.Role):
		return "role"
	}
	return ""
}

func requireLeave(cmd *Command) string {
	switch {
	case cmd.Class == "":
		return "class_id"
	case cmd.User == "":
		return "user_id"
	}
	return ""
}

func requirePoll(cmd *Command) string {
	switch {
	case cmd.Poll == nil || cmd.Poll.PollID == "":
		return "poll_id"
	case cmd.Class == "":
		return "class_id"
	case cmd.Poll.TotalResponses < 0:
		return "total_responses"
	}
	return ""
}

func requireAlert(cmd *Command) string {
	switch {
	case cmd.Class == "":
		return "class_id"
	case cmd.Alert == nil || cmd.Alert.StudentID == "":
		return "student_id"
	case cmd.Alert.AlertType == "":
		return "alert_type"
	case cmd.Alert.Severity == "":
		return "severity"
	case cmd.Alert.Message == "":
		return "message"
	}
	return ""
}

// broadcast stamps the envelope and fans it out. Delivery failure to one
// recipient (full send buffer) is isolated to that recipient.
func (h *Hub) broadcast(targets []*Client, skip *Client, ev *Event) {
	if len(targets) == 0 {
		return
	}
	ev.Timestamp = time.Now().UTC()
	for _, c := range targets {
		if c == skip {
			continue
		}
		select {
		case c.Events <- ev:
		default:
			h.log.Warn().Str("connection_id", c.ID).Msg("slow consumer, event dropped")
		}
	}
}

func (h *Hub) send(c *Client, ev *Event) {
	ev.Timestamp = time.Now().UTC()
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("connection_id", c.ID).Msg("slow consumer, event dropped")
	}
}

// pump forwards the client's commands into the shared inbox so the run loop
// can select over a single channel. It exits once the client is unregistered.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			select {
			case h.inbox <- submission{sender: c, cmd: cmd}:
			case <-c.done:
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) snapshot(q memberQuery) []Presence {
	var clients []*Client
	if q.teachersOnly {
		clients = h.directory.Teachers(q.room)
	} else {
		clients = h.directory.Members(q.room)
	}
	out := make([]Presence, 0, len(clients))
	for _, c := range clients {
		out = append(out, Presence{ConnectionID: c.ID, UserID: c.UserID, Role: c.Role})
	}
	return out
}
