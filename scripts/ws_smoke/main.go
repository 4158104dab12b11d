// Command ws_smoke is a manual smoke client for the realtime endpoint. It
// joins a class, optionally announces a poll response, and prints whatever
// the server pushes back until the timeout expires.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ameplabs/classwire-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "JWT to authenticate with (optional)")
	user := flag.String("user", "smoke-tester", "user id to join as when unauthenticated")
	role := flag.String("role", "student", "role to join as when unauthenticated")
	class := flag.String("class", "smoke-class", "class room to join")
	poll := flag.String("poll", "", "poll id to announce a response for (optional)")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	url := *addr
	if *token != "" {
		url += "?token=" + *token
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoinClass, proto.JoinClassData{
		ClassID: *class,
		UserID:  *user,
		Role:    *role,
	}); err != nil {
		return err
	}

	if *poll != "" {
		if err := send(proto.InboundTypePollResponse, proto.PollResponseData{
			PollID:         *poll,
			ClassID:        *class,
			TotalResponses: 1,
		}); err != nil {
			return err
		}
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("received: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("error: %s %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventUserJoined:
			var evt proto.EventUserJoinedData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("joined: user=%s role=%s at=%s\n", evt.UserID, evt.Role, evt.Timestamp)
			}
		case proto.EventPollUpdated:
			var evt proto.EventPollUpdatedData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("poll update: poll=%s total=%d\n", evt.PollID, evt.TotalResponses)
			}
		case proto.EventEngagementAlert:
			var evt proto.EventEngagementAlertData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("alert: student=%s severity=%s %q\n", evt.StudentID, evt.Severity, evt.Message)
			}
		default:
			fmt.Printf("raw data: %s\n", string(outbound.Data))
		}
	}
}
