package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ameplabs/classwire-server/internal/core"
	"github.com/ameplabs/classwire-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when email or username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidRole is returned for a role outside student/teacher/admin.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrMissingField is returned when a required registration field is empty.
	ErrMissingField = errors.New("missing required field")
)

// Registration carries the fields accepted at sign-up. GradeLevel/Section
// apply to students, SubjectArea/Department to teachers.
type Registration struct {
	Email       string
	Username    string
	Password    string
	Role        string
	FirstName   string
	LastName    string
	GradeLevel  int
	Section     string
	SubjectArea string
	Department  string
}

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new user with a hashed password and a role-specific
// profile, and returns a JWT token together with the created user.
func (s *Service) Register(ctx context.Context, reg Registration) (string, *store.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)

	if reg.Email == "" || reg.Username == "" || reg.FirstName == "" || reg.LastName == "" {
		return "", nil, ErrMissingField
	}
	if !core.ValidRole(reg.Role) {
		return "", nil, ErrInvalidRole
	}
	if len(reg.Password) < 6 {
		return "", nil, ErrInvalidPassword
	}

	if existing, err := s.store.GetUserByEmail(ctx, reg.Email); err == nil && existing != nil {
		return "", nil, ErrUserExists
	}
	if existing, err := s.store.GetUserByUsername(ctx, reg.Username); err == nil && existing != nil {
		return "", nil, ErrUserExists
	}

	hashedPassword, err := HashPassword(reg.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		ID:           uuid.NewString(),
		Email:        reg.Email,
		Username:     reg.Username,
		PasswordHash: hashedPassword,
		Role:         reg.Role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", nil, ErrUserExists
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	switch reg.Role {
	case core.RoleStudent:
		profile := &store.StudentProfile{
			UserID:     user.ID,
			FirstName:  reg.FirstName,
			LastName:   reg.LastName,
			GradeLevel: reg.GradeLevel,
			Section:    reg.Section,
		}
		if profile.GradeLevel == 0 {
			profile.GradeLevel = 8
		}
		if profile.Section == "" {
			profile.Section = "Section-A"
		}
		if err := s.store.CreateStudentProfile(ctx, profile); err != nil {
			return "", nil, fmt.Errorf("create student profile: %w", err)
		}
	case core.RoleTeacher:
		profile := &store.TeacherProfile{
			UserID:      user.ID,
			FirstName:   reg.FirstName,
			LastName:    reg.LastName,
			SubjectArea: reg.SubjectArea,
			Department:  reg.Department,
		}
		if profile.SubjectArea == "" {
			profile.SubjectArea = "General"
		}
		if profile.Department == "" {
			profile.Department = "Education"
		}
		if err := s.store.CreateTeacherProfile(ctx, profile); err != nil {
			return "", nil, fmt.Errorf("create teacher profile: %w", err)
		}
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// Login validates credentials and returns a JWT token with the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		return "", nil, fmt.Errorf("update last login: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// ChangePassword verifies the old password and stores a hash of the new one.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrInvalidPassword
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return ErrInvalidCredentials
	}
	if errPwd := ComparePassword(user.PasswordHash, oldPassword); errPwd != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
