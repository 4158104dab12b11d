package core

// CommandKind describes what the sender wants the hub to do.
type CommandKind int

const (
	// CommandJoinClass subscribes the connection to a class room.
	CommandJoinClass CommandKind = iota
	// CommandLeaveClass unsubscribes the connection from a class room.
	CommandLeaveClass
	// CommandPollResponse forwards an updated poll response count to the
	// class room. The hub does not recompute the count.
	CommandPollResponse
	// CommandEngagementAlert forwards an engagement alert to the teachers
	// of the class.
	CommandEngagementAlert
)

// String returns the wire-level tag for the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandJoinClass:
		return "join_class"
	case CommandLeaveClass:
		return "leave_class"
	case CommandPollResponse:
		return "poll_response_submitted"
	case CommandEngagementAlert:
		return "engagement_alert"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client connection or by a
// server-side collaborator (poll service, engagement detector).
type Command struct {
	Kind  CommandKind
	Class string
	User  string
	Role  string
	Poll  *PollUpdate
	Alert *EngagementAlert
}

// PollUpdate carries aggregate poll state. The count is computed by the poll
// service and passed through opaquely.
type PollUpdate struct {
	PollID         string
	TotalResponses int
}

// EngagementAlert carries an alert produced by the engagement detector.
type EngagementAlert struct {
	StudentID string
	AlertType string
	Severity  string
	Message   string
}
