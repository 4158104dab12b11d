package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ameplabs/classwire-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login    DATETIME
);

CREATE TABLE IF NOT EXISTS student_profiles (
	user_id     TEXT PRIMARY KEY,
	first_name  TEXT NOT NULL,
	last_name   TEXT NOT NULL,
	grade_level INTEGER NOT NULL DEFAULT 8,
	section     TEXT NOT NULL DEFAULT 'Section-A',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS teacher_profiles (
	user_id      TEXT PRIMARY KEY,
	first_name   TEXT NOT NULL,
	last_name    TEXT NOT NULL,
	subject_area TEXT NOT NULL DEFAULT 'General',
	department   TEXT NOT NULL DEFAULT 'Education',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS classes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	teacher_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (teacher_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS enrollments (
	class_id    TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	enrolled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (class_id, user_id),
	FOREIGN KEY (class_id) REFERENCES classes(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS polls (
	id         TEXT PRIMARY KEY,
	class_id   TEXT NOT NULL,
	question   TEXT NOT NULL,
	options    TEXT NOT NULL DEFAULT '[]',
	created_by TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	closed_at  DATETIME,
	FOREIGN KEY (class_id) REFERENCES classes(id)
);

CREATE TABLE IF NOT EXISTS poll_responses (
	poll_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	choice     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (poll_id, user_id),
	FOREIGN KEY (poll_id) REFERENCES polls(id)
);

CREATE INDEX IF NOT EXISTS idx_polls_class ON polls(class_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrollments_user ON enrollments(user_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts a new account.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *store.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Email, u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves an account by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves an account by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByUsername retrieves an account by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*store.User, error) {
	query := fmt.Sprintf(`
		SELECT id, email, username, password_hash, role, created_at, last_login
		FROM users WHERE %s = ?
	`, column)

	var u store.User
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by %s: %w", column, err)
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// UpdatePassword replaces the password hash.
func (s *SQLiteStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// UpdateLastLogin stamps the account's last login time.
func (s *SQLiteStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, at, userID)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return requireRow(res)
}

// CreateStudentProfile inserts the student profile row.
func (s *SQLiteStore) CreateStudentProfile(ctx context.Context, p *store.StudentProfile) error {
	query := `
		INSERT INTO student_profiles (user_id, first_name, last_name, grade_level, section)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, p.UserID, p.FirstName, p.LastName, p.GradeLevel, p.Section)
	if err != nil {
		return fmt.Errorf("insert student profile: %w", err)
	}
	return nil
}

// CreateTeacherProfile inserts the teacher profile row.
func (s *SQLiteStore) CreateTeacherProfile(ctx context.Context, p *store.TeacherProfile) error {
	query := `
		INSERT INTO teacher_profiles (user_id, first_name, last_name, subject_area, department)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, p.UserID, p.FirstName, p.LastName, p.SubjectArea, p.Department)
	if err != nil {
		return fmt.Errorf("insert teacher profile: %w", err)
	}
	return nil
}

// GetStudentProfile retrieves a student profile by user ID.
func (s *SQLiteStore) GetStudentProfile(ctx context.Context, userID string) (*store.StudentProfile, error) {
	var p store.StudentProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, first_name, last_name, grade_level, section, created_at
		FROM student_profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.GradeLevel, &p.Section, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query student profile: %w", err)
	}
	return &p, nil
}

// GetTeacherProfile retrieves a teacher profile by user ID.
func (s *SQLiteStore) GetTeacherProfile(ctx context.Context, userID string) (*store.TeacherProfile, error) {
	var p store.TeacherProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, first_name, last_name, subject_area, department, created_at
		FROM teacher_profiles WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.FirstName, &p.LastName, &p.SubjectArea, &p.Department, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query teacher profile: %w", err)
	}
	return &p, nil
}

// ==== ClassStore implementation ====

// CreateClass inserts a new classroom.
func (s *SQLiteStore) CreateClass(ctx context.Context, c *store.Class) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, subject, teacher_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Subject, c.TeacherID, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// GetClass retrieves a classroom by ID.
func (s *SQLiteStore) GetClass(ctx context.Context, id string) (*store.Class, error) {
	var c store.Class
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, subject, teacher_id, created_at FROM classes WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Subject, &c.TeacherID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query class: %w", err)
	}
	return &c, nil
}

// ListClassesForTeacher lists classrooms owned by a teacher.
func (s *SQLiteStore) ListClassesForTeacher(ctx context.Context, teacherID string) ([]*store.Class, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, subject, teacher_id, created_at
		FROM classes WHERE teacher_id = ? ORDER BY created_at
	`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query classes for teacher: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// ListClassesForStudent lists classrooms a student is enrolled in.
func (s *SQLiteStore) ListClassesForStudent(ctx context.Context, userID string) ([]*store.Class, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.subject, c.teacher_id, c.created_at
		FROM classes c
		JOIN enrollments e ON e.class_id = c.id
		WHERE e.user_id = ? ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query classes for student: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

func scanClasses(rows *sql.Rows) ([]*store.Class, error) {
	var out []*store.Class
	for rows.Next() {
		var c store.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Enroll adds a student to a class. Enrolling twice is a no-op.
func (s *SQLiteStore) Enroll(ctx context.Context, classID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO enrollments (class_id, user_id) VALUES (?, ?)
	`, classID, userID)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Unenroll removes a student from a class.
func (s *SQLiteStore) Unenroll(ctx context.Context, classID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM enrollments WHERE class_id = ? AND user_id = ?
	`, classID, userID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// IsEnrolled checks class membership.
func (s *SQLiteStore) IsEnrolled(ctx context.Context, classID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM enrollments WHERE class_id = ? AND user_id = ?
	`, classID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query enrollment: %w", err)
	}
	return true, nil
}

// ListEnrollments lists the user IDs enrolled in a class.
func (s *SQLiteStore) ListEnrollments(ctx context.Context, classID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM enrollments WHERE class_id = ? ORDER BY enrolled_at
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ==== PollStore implementation ====

// CreatePoll inserts a new poll.
func (s *SQLiteStore) CreatePoll(ctx context.Context, p *store.Poll) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	options, err := json.Marshal(p.Options)
	if err != nil {
		return fmt.Errorf("marshal poll options: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO polls (id, class_id, question, options, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.ClassID, p.Question, string(options), p.CreatedBy, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

// GetPoll retrieves a poll by ID.
func (s *SQLiteStore) GetPoll(ctx context.Context, id string) (*store.Poll, error) {
	var p store.Poll
	var options string
	var closedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, class_id, question, options, created_by, created_at, closed_at
		FROM polls WHERE id = ?
	`, id).Scan(&p.ID, &p.ClassID, &p.Question, &options, &p.CreatedBy, &p.CreatedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query poll: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
		return nil, fmt.Errorf("unmarshal poll options: %w", err)
	}
	if closedAt.Valid {
		p.ClosedAt = &closedAt.Time
	}
	return &p, nil
}

// ListPollsForClass lists polls belonging to a class, newest first.
func (s *SQLiteStore) ListPollsForClass(ctx context.Context, classID string) ([]*store.Poll, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_id, question, options, created_by, created_at, closed_at
		FROM polls WHERE class_id = ? ORDER BY created_at DESC
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}
	defer rows.Close()

	var out []*store.Poll
	for rows.Next() {
		var p store.Poll
		var options string
		var closedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.ClassID, &p.Question, &options, &p.CreatedBy, &p.CreatedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &p.Options); err != nil {
			return nil, fmt.Errorf("unmarshal poll options: %w", err)
		}
		if closedAt.Valid {
			p.ClosedAt = &closedAt.Time
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// SaveResponse upserts a student's answer to a poll.
func (s *SQLiteStore) SaveResponse(ctx context.Context, r *store.PollResponse) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO poll_responses (poll_id, user_id, choice, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(poll_id, user_id) DO UPDATE SET choice = excluded.choice
	`, r.PollID, r.UserID, r.Choice, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert poll response: %w", err)
	}
	return nil
}

// CountResponses returns the number of distinct respondents for a poll.
func (s *SQLiteStore) CountResponses(ctx context.Context, pollID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM poll_responses WHERE poll_id = ?
	`, pollID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count poll responses: %w", err)
	}
	return n, nil
}

// ClosePoll marks a poll as closed.
func (s *SQLiteStore) ClosePoll(ctx context.Context, pollID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE polls SET closed_at = ? WHERE id = ? AND closed_at IS NULL
	`, at, pollID)
	if err != nil {
		return fmt.Errorf("close poll: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
