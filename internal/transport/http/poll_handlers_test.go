package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ameplabs/classwire-server/internal/proto"
)

func createClass(t *testing.T, env *testEnv, token, name string) ClassResponse {
	t.Helper()

	resp, body := env.doJSON(t, "POST", "/api/classes", token, CreateClassRequest{
		Name:    name,
		Subject: "Math",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create class status: %d body: %s", resp.StatusCode, body)
	}
	var cls ClassResponse
	if err := json.Unmarshal(body, &cls); err != nil {
		t.Fatalf("unmarshal class: %v", err)
	}
	return cls
}

func createPoll(t *testing.T, env *testEnv, token, classID string) PollResponse {
	t.Helper()

	resp, body := env.doJSON(t, "POST", "/api/classes/"+classID+"/polls", token, CreatePollRequest{
		Question: "Is this clear so far?",
		Options:  []string{"yes", "no"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create poll status: %d body: %s", resp.StatusCode, body)
	}
	var poll PollResponse
	if err := json.Unmarshal(body, &poll); err != nil {
		t.Fatalf("unmarshal poll: %v", err)
	}
	return poll
}

func TestClassLifecycle(t *testing.T) {
	env := newTestEnv(t)
	teacherToken, _ := env.registerUser(t, "teacher1", "teacher")
	studentToken, _ := env.registerUser(t, "alice", "student")

	cls := createClass(t, env, teacherToken, "Algebra")

	resp, _ := env.doJSON(t, "POST", "/api/classes/"+cls.ID+"/enroll", studentToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("enroll status: %d", resp.StatusCode)
	}

	resp, body := env.doJSON(t, "GET", "/api/classes", studentToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("list classes status: %d", resp.StatusCode)
	}
	var classes []ClassResponse
	if err := json.Unmarshal(body, &classes); err != nil {
		t.Fatalf("unmarshal classes: %v", err)
	}
	if len(classes) != 1 || classes[0].ID != cls.ID {
		t.Fatalf("student should see the enrolled class, got %+v", classes)
	}

	resp, _ = env.doJSON(t, "DELETE", "/api/classes/"+cls.ID+"/enroll", studentToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("unenroll status: %d", resp.StatusCode)
	}

	resp, body = env.doJSON(t, "GET", "/api/classes", studentToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("list classes status: %d", resp.StatusCode)
	}
	classes = nil
	if err := json.Unmarshal(body, &classes); err != nil {
		t.Fatalf("unmarshal classes: %v", err)
	}
	if len(classes) != 0 {
		t.Fatalf("unenrolled student should see no classes, got %+v", classes)
	}
}

func TestEnrollMissingClassReturns404(t *testing.T) {
	env := newTestEnv(t)
	studentToken, _ := env.registerUser(t, "alice", "student")

	resp, _ := env.doJSON(t, "POST", "/api/classes/no-such-class/enroll", studentToken, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitResponseBroadcastsPollUpdate(t *testing.T) {
	env := newTestEnv(t)
	teacherToken, _ := env.registerUser(t, "teacher1", "teacher")
	studentToken, _ := env.registerUser(t, "alice", "student")

	cls := createClass(t, env, teacherToken, "Algebra")
	poll := createPoll(t, env, teacherToken, cls.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env, teacherToken)
	joinClass(t, ctx, conn, cls.ID, "", "")

	deadline := time.Now().Add(2 * time.Second)
	for len(env.hub.RoomMembers(cls.ID)) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("join never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := env.doJSON(t, "POST", "/api/polls/"+poll.ID+"/responses", studentToken, SubmitResponseRequest{Choice: "yes"})
	if resp.StatusCode != 200 {
		t.Fatalf("submit response status: %d body: %s", resp.StatusCode, body)
	}

	outbound := readOutbound(t, ctx, conn)
	if outbound.Event != proto.EventPollUpdated {
		t.Fatalf("expected poll_updated, got %q", outbound.Event)
	}
	var update proto.EventPollUpdatedData
	if err := json.Unmarshal(outbound.Data, &update); err != nil {
		t.Fatalf("unmarshal poll_updated: %v", err)
	}
	if update.PollID != poll.ID || update.TotalResponses != 1 {
		t.Fatalf("unexpected poll_updated payload: %+v", update)
	}
}

func TestSubmitResponseUpsertsPerUser(t *testing.T) {
	env := newTestEnv(t)
	teacherToken, _ := env.registerUser(t, "teacher1", "teacher")
	studentToken, _ := env.registerUser(t, "alice", "student")

	cls := createClass(t, env, teacherToken, "Algebra")
	poll := createPoll(t, env, teacherToken, cls.ID)

	for _, choice := range []string{"yes", "no"} {
		resp, body := env.doJSON(t, "POST", "/api/polls/"+poll.ID+"/responses", studentToken, SubmitResponseRequest{Choice: choice})
		if resp.StatusCode != 200 {
			t.Fatalf("submit response status: %d body: %s", resp.StatusCode, body)
		}
		var result map[string]any
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatalf("unmarshal result: %v", err)
		}
		if result["total_responses"].(float64) != 1 {
			t.Fatalf("resubmission should not inflate the count: %v", result)
		}
	}
}

func TestClosedPollRejectsResponses(t *testing.T) {
	env := newTestEnv(t)
	teacherToken, _ := env.registerUser(t, "teacher1", "teacher")
	studentToken, _ := env.registerUser(t, "alice", "student")

	cls := createClass(t, env, teacherToken, "Algebra")
	poll := createPoll(t, env, teacherToken, cls.ID)

	resp, _ := env.doJSON(t, "POST", "/api/polls/"+poll.ID+"/close", teacherToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("close poll status: %d", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, "POST", "/api/polls/"+poll.ID+"/responses", studentToken, SubmitResponseRequest{Choice: "yes"})
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 for closed poll, got %d", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, "POST", "/api/polls/"+poll.ID+"/close", teacherToken, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("double close should 404, got %d", resp.StatusCode)
	}
}

func TestIngestAlertReachesConnectedTeachers(t *testing.T) {
	env := newTestEnv(t)
	teacherToken, _ := env.registerUser(t, "teacher1", "teacher")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env, teacherToken)
	joinClass(t, ctx, conn, "class-1", "", "")

	deadline := time.Now().Add(2 * time.Second)
	for len(env.hub.RoomTeachers("class-1")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("teacher join never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, _ := env.doJSON(t, "POST", "/api/engagement/alerts", teacherToken, IngestAlertRequest{
		ClassID:   "class-1",
		StudentID: "alice",
		AlertType: "inactivity",
		Severity:  "medium",
		Message:   "no interaction for 5 minutes",
	})
	if resp.StatusCode != 202 {
		t.Fatalf("ingest alert status: %d", resp.StatusCode)
	}

	outbound := readOutbound(t, ctx, conn)
	if outbound.Event != proto.EventEngagementAlert {
		t.Fatalf("expected engagement_alert_received, got %q", outbound.Event)
	}
}

func TestPresenceSnapshot(t *testing.T) {
	env := newTestEnv(t)
	teacherToken, teacherID := env.registerUser(t, "teacher1", "teacher")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, env, teacherToken)
	joinClass(t, ctx, conn, "class-1", "", "")

	deadline := time.Now().Add(2 * time.Second)
	for len(env.hub.RoomMembers("class-1")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("join never landed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := env.doJSON(t, "GET", "/api/classes/class-1/presence", teacherToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("presence status: %d", resp.StatusCode)
	}
	var present struct {
		ClassID string             `json:"class_id"`
		Members []PresenceResponse `json:"members"`
	}
	if err := json.Unmarshal(body, &present); err != nil {
		t.Fatalf("unmarshal presence: %v", err)
	}
	if len(present.Members) != 1 || present.Members[0].UserID != teacherID || present.Members[0].Role != "teacher" {
		t.Fatalf("unexpected presence snapshot: %+v", present)
	}
}
