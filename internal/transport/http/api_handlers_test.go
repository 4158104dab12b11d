package http

import (
	"encoding/json"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.doJSON(t, "GET", "/api/health", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if health["status"] != "healthy" || health["database"] != "connected" {
		t.Fatalf("unexpected health payload: %v", health)
	}
}

func TestRegisterLoginVerify(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.doJSON(t, "POST", "/api/register", "", RegisterRequest{
		Email:     "alice@classwire.test",
		Username:  "alice",
		Password:  "secret123",
		Role:      "student",
		FirstName: "Alice",
		LastName:  "Lee",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("register status: %d body: %s", resp.StatusCode, body)
	}

	var created AuthResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if created.Token == "" || created.User.Role != "student" {
		t.Fatalf("unexpected register response: %+v", created)
	}

	resp, body = env.doJSON(t, "POST", "/api/login", "", LoginRequest{
		Email:    "alice@classwire.test",
		Password: "secret123",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("login status: %d body: %s", resp.StatusCode, body)
	}
	var logged AuthResponse
	if err := json.Unmarshal(body, &logged); err != nil {
		t.Fatalf("unmarshal login response: %v", err)
	}

	resp, _ = env.doJSON(t, "GET", "/api/verify", logged.Token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("verify status: %d", resp.StatusCode)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice", "student")

	resp, _ := env.doJSON(t, "POST", "/api/register", "", RegisterRequest{
		Email:     "alice@classwire.test",
		Username:  "alice2",
		Password:  "secret123",
		Role:      "student",
		FirstName: "Alice",
		LastName:  "Lee",
	})
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPasswordRejected(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "alice", "student")

	resp, _ := env.doJSON(t, "POST", "/api/login", "", LoginRequest{
		Email:    "alice@classwire.test",
		Password: "wrong-password",
	})
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.doJSON(t, "GET", "/api/me", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, "GET", "/api/me", "not-a-jwt", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 with garbage token, got %d", resp.StatusCode)
	}
}

func TestRoleMiddlewareBlocksStudents(t *testing.T) {
	env := newTestEnv(t)
	studentToken, _ := env.registerUser(t, "alice", "student")

	resp, _ := env.doJSON(t, "POST", "/api/classes", studentToken, CreateClassRequest{
		Name:    "Algebra",
		Subject: "Math",
	})
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403 for student, got %d", resp.StatusCode)
	}
}

func TestChangePasswordRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "alice", "student")

	resp, body := env.doJSON(t, "POST", "/api/change-password", token, ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "evenmoresecret",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("change password status: %d body: %s", resp.StatusCode, body)
	}

	resp, _ = env.doJSON(t, "POST", "/api/login", "", LoginRequest{
		Email:    "alice@classwire.test",
		Password: "secret123",
	})
	if resp.StatusCode != 401 {
		t.Fatalf("old password should be rejected, got %d", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, "POST", "/api/login", "", LoginRequest{
		Email:    "alice@classwire.test",
		Password: "evenmoresecret",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("new password should work, got %d", resp.StatusCode)
	}
}

func TestMeIncludesProfile(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "teacher1", "teacher")

	resp, body := env.doJSON(t, "GET", "/api/me", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("me status: %d", resp.StatusCode)
	}

	var me map[string]any
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me["profile"] == nil {
		t.Fatalf("expected teacher profile in response: %v", me)
	}
}
