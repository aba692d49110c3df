package school

import "time"

// Role of a profile.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is a supported value.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// ProfileStatus of a profile. Profiles are never deleted, only paused.
type ProfileStatus string

const (
	StatusActive ProfileStatus = "active"
	StatusPaused ProfileStatus = "paused"
)

// Valid reports whether the status is a supported value.
func (s ProfileStatus) Valid() bool {
	return s == StatusActive || s == StatusPaused
}

// Student belongs to exactly one class at a time. Students are soft-deleted
// via the Active flag, never removed.
type Student struct {
	ID            string    `json:"id"`
	StudentNumber string    `json:"student_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	ClassID       string    `json:"class_id"`
	Active        bool      `json:"active"`
	DateOfBirth   *string   `json:"date_of_birth,omitempty"`
	EnrolledOn    string    `json:"enrolled_on"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Class groups students by year level and optional section.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	YearLevel int       `json:"year_level"`
	Section   *string   `json:"section,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile maps a signed-in identity to a role and a default class. The id is
// shared with the external identity provider.
type Profile struct {
	ID             string        `json:"id"`
	Email          string        `json:"email"`
	FullName       string        `json:"full_name"`
	Role           Role          `json:"role"`
	Status         ProfileStatus `json:"status"`
	DefaultClassID *string       `json:"default_class_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
