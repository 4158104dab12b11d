package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ameplabs/classwire-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func studentReg(email, username string) Registration {
	return Registration{
		Email:     email,
		Username:  username,
		Password:  "password123",
		Role:      "student",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestRegister_RejectsInvalidRole(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	reg := studentReg("a@school.test", "ada")
	reg.Role = "principal"
	if _, _, err := svc.Register(ctx, reg); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	reg := studentReg("a@school.test", "ada")
	reg.Password = "12345"
	if _, _, err := svc.Register(ctx, reg); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_RejectsMissingFields(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	reg := studentReg("a@school.test", "ada")
	reg.FirstName = ""
	if _, _, err := svc.Register(ctx, reg); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestRegister_CreatesUserWithRoleClaims(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, user, err := svc.Register(ctx, studentReg("a@school.test", "ada"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" || user.ID == "" {
		t.Fatal("expected token and user ID")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// Email and username collisions are both conflicts.
	if _, _, err := svc.Register(ctx, studentReg("a@school.test", "other")); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for email, got %v", err)
	}
	if _, _, err := svc.Register(ctx, studentReg("b@school.test", "ada")); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for username, got %v", err)
	}
}

func TestLoginAndChangePassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, user, err := svc.Register(ctx, studentReg("a@school.test", "ada"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "a@school.test", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	token, _, err := svc.Login(ctx, "a@school.test", "password123")
	if err != nil || token == "" {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "password123", "newpassword"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@school.test", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted")
	}
	if _, _, err := svc.Login(ctx, "a@school.test", "newpassword"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestValidateToken_RejectsTampering(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, _, err := svc.Register(ctx, studentReg("a@school.test", "ada"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.ValidateToken(token + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}

	other := NewService(nil, &JWTConfig{
		Secret: []byte("different-secret"), Issuer: "test", Audience: "test", TTL: time.Hour,
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token accepted under wrong secret")
	}
}
