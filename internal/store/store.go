package store

import (
	"context"
	"time"
)

// User represents an account in the system.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// StudentProfile holds the student-specific part of an account.
type StudentProfile struct {
	UserID     string
	FirstName  string
	LastName   string
	GradeLevel int
	Section    string
	CreatedAt  time.Time
}

// TeacherProfile holds the teacher-specific part of an account.
type TeacherProfile struct {
	UserID      string
	FirstName   string
	LastName    string
	SubjectArea string
	Department  string
	CreatedAt   time.Time
}

// Class represents a classroom.
type Class struct {
	ID        string
	Name      string
	Subject   string
	TeacherID string
	CreatedAt time.Time
}

// Poll represents a live poll inside a class.
type Poll struct {
	ID        string
	ClassID   string
	Question  string
	Options   []string
	CreatedBy string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// PollResponse is one student's answer to a poll. A student answers a poll
// at most once; re-submitting replaces the previous choice.
type PollResponse struct {
	PollID    string
	UserID    string
	Choice    string
	CreatedAt time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser inserts a new account.
	CreateUser(ctx context.Context, u *User) error

	// GetUserByID retrieves an account by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves an account by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByUsername retrieves an account by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// UpdateLastLogin stamps the account's last login time.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// CreateStudentProfile inserts the student profile row.
	CreateStudentProfile(ctx context.Context, p *StudentProfile) error

	// CreateTeacherProfile inserts the teacher profile row.
	CreateTeacherProfile(ctx context.Context, p *TeacherProfile) error

	// GetStudentProfile retrieves a student profile by user ID.
	GetStudentProfile(ctx context.Context, userID string) (*StudentProfile, error)

	// GetTeacherProfile retrieves a teacher profile by user ID.
	GetTeacherProfile(ctx context.Context, userID string) (*TeacherProfile, error)
}

// ClassStore handles classroom persistence.
type ClassStore interface {
	// CreateClass inserts a new classroom.
	CreateClass(ctx context.Context, c *Class) error

	// GetClass retrieves a classroom by ID.
	GetClass(ctx context.Context, id string) (*Class, error)

	// ListClassesForTeacher lists classrooms owned by a teacher.
	ListClassesForTeacher(ctx context.Context, teacherID string) ([]*Class, error)

	// ListClassesForStudent lists classrooms a student is enrolled in.
	ListClassesForStudent(ctx context.Context, userID string) ([]*Class, error)

	// Enroll adds a student to a class. Enrolling twice is a no-op.
	Enroll(ctx context.Context, classID, userID string) error

	// Unenroll removes a student from a class.
	Unenroll(ctx context.Context, classID, userID string) error

	// IsEnrolled checks class membership.
	IsEnrolled(ctx context.Context, classID, userID string) (bool, error)

	// ListEnrollments lists the user IDs enrolled in a class.
	ListEnrollments(ctx context.Context, classID string) ([]string, error)
}

// PollStore handles poll persistence.
type PollStore interface {
	// CreatePoll inserts a new poll.
	CreatePoll(ctx context.Context, p *Poll) error

	// GetPoll retrieves a poll by ID.
	GetPoll(ctx context.Context, id string) (*Poll, error)

	// ListPollsForClass lists polls belonging to a class, newest first.
	ListPollsForClass(ctx context.Context, classID string) ([]*Poll, error)

	// SaveResponse upserts a student's answer to a poll.
	SaveResponse(ctx context.Context, r *PollResponse) error

	// CountResponses returns the number of distinct respondents for a poll.
	CountResponses(ctx context.Context, pollID string) (int, error)

	// ClosePoll marks a poll as closed.
	ClosePoll(ctx context.Context, pollID string, at time.Time) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ClassStore
	PollStore

	// Ping verifies the underlying database is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
