package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected confirms registration to the connecting client only.
	EventConnected EventKind = iota
	// EventUserJoined notifies a class room that a user joined it.
	EventUserJoined
	// EventPollUpdated notifies a class room about a new poll response count.
	EventPollUpdated
	// EventEngagementAlert notifies the teachers of a class about an alert.
	EventEngagementAlert
	// EventError notifies the sender about a dropped or rejected command.
	EventError
)

// Event is the outbound envelope. Timestamp is set by the hub at dispatch
// time, not when the inbound command was received. The audience is computed
// at the same moment and never cached.
type Event struct {
	Kind      EventKind
	Room      string
	User      string
	Role      string
	Message   string
	Poll      *PollUpdate
	Alert     *EngagementAlert
	Error     *CoreError
	Timestamp time.Time
}
