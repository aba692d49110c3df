package attendance

import "time"

// Status of a day's attendance mark. The empty string means unmarked; unmarked
// students never get a persisted record.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Valid reports whether the status is a supported non-empty value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent:
		return true
	default:
		return false
	}
}

// DateLayout is the wire and storage format for day-granularity dates.
const DateLayout = "2006-01-02"

// ValidDate reports whether d is a well-formed YYYY-MM-DD date.
func ValidDate(d string) bool {
	_, err := time.Parse(DateLayout, d)
	return err == nil
}

// Record is a persisted attendance row. At most one exists per
// (student, date); the store enforces this with a unique constraint.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	TeacherID string    `json:"teacher_id"`
	Date      string    `json:"date"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is the transient editable state for one student. It lives only in a
// Sheet and is never persisted directly.
type Entry struct {
	Status Status `json:"status"`
	Notes  string `json:"notes"`
}

// Insert is a pending new record computed by a submission.
type Insert struct {
	StudentID string
	ClassID   string
	TeacherID string
	Date      string
	Status    Status
	Notes     string
}

// Update is a pending overwrite of an existing record.
type Update struct {
	RecordID  string
	StudentID string
	Status    Status
	Notes     string
	UpdatedAt time.Time
}

// Submission partitions pending writes into new rows and overwrites.
type Submission struct {
	Inserts []Insert
	Updates []Update
}

// Summary is the per-class, per-date aggregate the worker maintains.
type Summary struct {
	ClassID    string    `json:"class_id"`
	Date       string    `json:"date"`
	Present    int       `json:"present"`
	Late       int       `json:"late"`
	Absent     int       `json:"absent"`
	Marked     int       `json:"marked"`
	RosterSize int       `json:"roster_size"`
	UpdatedAt  time.Time `json:"updated_at"`
}
