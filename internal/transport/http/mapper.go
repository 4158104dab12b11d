package http

import (
	"encoding/json"
	"time"

	"github.com/ameplabs/classwire-server/internal/core"
	"github.com/ameplabs/classwire-server/internal/proto"
)

// inboundToCommand validates and maps a wire message. authUserID and authRole
// come from the connection's JWT when one was presented; they take precedence
// over identity fields in the payload.
func inboundToCommand(authUserID, authRole string, inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinClass:
		var join proto.JoinClassData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.ClassID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "class_id is required"}, nil
		}
		cmd := &core.Command{
			Kind:  core.CommandJoinClass,
			Class: join.ClassID,
			User:  join.UserID,
			Role:  join.Role,
		}
		// An authenticated connection always wins over what the client claims.
		if authUserID != "" {
			cmd.User = authUserID
			cmd.Role = authRole
		}
		if cmd.User == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		return cmd, nil, nil
	case proto.InboundTypeLeaveClass:
		var leave proto.LeaveClassData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.ClassID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "class_id is required"}, nil
		}
		cmd := &core.Command{
			Kind:  core.CommandLeaveClass,
			Class: leave.ClassID,
			User:  leave.UserID,
		}
		if authUserID != "" {
			cmd.User = authUserID
		}
		if cmd.User == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		return cmd, nil, nil
	case proto.InboundTypePollResponse:
		var pr proto.PollResponseData
		if err := json.Unmarshal(inbound.Data, &pr); err != nil {
			return nil, nil, err
		}
		if pr.ClassID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "class_id is required"}, nil
		}
		if pr.PollID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "poll_id is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandPollResponse,
			Class: pr.ClassID,
			Poll: &core.PollUpdate{
				PollID:         pr.PollID,
				TotalResponses: pr.TotalResponses,
			},
		}, nil, nil
	case proto.InboundTypeEngagementAlert:
		var alert proto.EngagementAlertData
		if err := json.Unmarshal(inbound.Data, &alert); err != nil {
			return nil, nil, err
		}
		if alert.ClassID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "class_id is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandEngagementAlert,
			Class: alert.ClassID,
			Alert: &core.EngagementAlert{
				StudentID: alert.StudentID,
				AlertType: alert.AlertType,
				Severity:  alert.Severity,
				Message:   alert.Message,
			},
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	ts := event.Timestamp.UTC().Format(time.RFC3339)
	switch event.Kind {
	case core.EventConnected:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventConnected,
			Data: proto.EventConnectedData{
				Message:   event.Message,
				Timestamp: ts,
			},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoined,
			Data: proto.EventUserJoinedData{
				UserID:    event.User,
				Role:      event.Role,
				Timestamp: ts,
			},
		}
	case core.EventPollUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPollUpdated,
			Data: proto.EventPollUpdatedData{
				PollID:         event.Poll.PollID,
				TotalResponses: event.Poll.TotalResponses,
				Timestamp:      ts,
			},
		}
	case core.EventEngagementAlert:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventEngagementAlert,
			Data: proto.EventEngagementAlertData{
				StudentID: event.Alert.StudentID,
				AlertType: event.Alert.AlertType,
				Severity:  event.Alert.Severity,
				Message:   event.Alert.Message,
				Timestamp: ts,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
