package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoinClass       = "join_class"
	InboundTypeLeaveClass      = "leave_class"
	InboundTypePollResponse    = "poll_response_submitted"
	InboundTypeEngagementAlert = "engagement_alert"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventConnected       = "connected"
	EventUserJoined      = "user_joined"
	EventPollUpdated     = "poll_updated"
	EventEngagementAlert = "engagement_alert_received"
)

// JoinClassData requests membership in a class room. UserID and Role are
// ignored when the connection carries an authenticated identity.
type JoinClassData struct {
	ClassID string `json:"class_id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

// LeaveClassData requests leaving a class room.
type LeaveClassData struct {
	ClassID string `json:"class_id"`
	UserID  string `json:"user_id"`
}

// PollResponseData announces an updated response count for a poll. The count
// is supplied by the caller; the server forwards it as-is.
type PollResponseData struct {
	PollID         string `json:"poll_id"`
	ClassID        string `json:"class_id"`
	TotalResponses int    `json:"total_responses"`
}

// EngagementAlertData carries an alert addressed to the teachers of a class.
type EngagementAlertData struct {
	ClassID   string `json:"class_id"`
	StudentID string `json:"student_id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventConnectedData confirms the connection to the newly connected client.
type EventConnectedData struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// EventUserJoinedData notifies a class room that a user joined it.
type EventUserJoinedData struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

// EventPollUpdatedData notifies a class room about a poll's response count.
type EventPollUpdatedData struct {
	PollID         string `json:"poll_id"`
	TotalResponses int    `json:"total_responses"`
	Timestamp      string `json:"timestamp"`
}

// EventEngagementAlertData delivers an engagement alert to teachers.
type EventEngagementAlertData struct {
	StudentID string `json:"student_id"`
	AlertType string `json:"alert_type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
