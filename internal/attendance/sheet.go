package attendance

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/school"
)

// Field selects which part of an entry SetField overwrites.
type Field string

const (
	FieldStatus Field = "status"
	FieldNotes  Field = "notes"
)

var (
	// ErrUnknownField is returned by SetField for an unsupported field name.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidStatus is returned for a status outside present/late/absent.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrUnknownConfirmation is returned when a confirmation token is
	// unknown or already spent.
	ErrUnknownConfirmation = errors.New("unknown or spent confirmation")
	// ErrNoUnsavedEdits is returned when a discard is requested on a clean
	// sheet; switching class or date needs no confirmation then.
	ErrNoUnsavedEdits = errors.New("no unsaved edits")
)

type actionKind int

const (
	actionBulkStatus actionKind = iota + 1
	actionDiscard
)

type pendingAction struct {
	kind   actionKind
	status Status
}

// Sheet holds the editable attendance state for one (class, date) pair: an
// entry map keyed by student id pre-filled from persisted records, the record
// ids those entries came from, and a dirty flag. Destructive operations (bulk
// status overwrite, discarding unsaved edits) are two-step: request a
// confirmation token, then confirm it.
type Sheet struct {
	ClassID   string
	TeacherID string
	Date      string

	roster      []school.Student
	entries     map[string]Entry
	existingIDs map[string]string
	dirty       bool
	pending     map[string]pendingAction

	now func() time.Time
}

// NewSheet builds the editable state from a roster and the records already
// persisted for the (class, date) pair. Students without a record get no
// entry and count as unmarked. The roster is assumed to be filtered to active
// students of the class.
func NewSheet(teacherID, classID, date string, roster []school.Student, existing []Record) *Sheet {
	s := &Sheet{
		ClassID:     classID,
		TeacherID:   teacherID,
		Date:        date,
		roster:      roster,
		entries:     make(map[string]Entry, len(existing)),
		existingIDs: make(map[string]string, len(existing)),
		pending:     make(map[string]pendingAction),
		now:         time.Now,
	}
	for _, rec := range existing {
		s.entries[rec.StudentID] = Entry{Status: rec.Status, Notes: rec.Notes}
		s.existingIDs[rec.StudentID] = rec.ID
	}
	return s
}

// Dirty reports whether the sheet holds edits not yet persisted.
func (s *Sheet) Dirty() bool { return s.dirty }

// Roster returns the students the sheet was built for.
func (s *Sheet) Roster() []school.Student { return s.roster }

// Entry returns the editable entry for a student, if any.
func (s *Sheet) Entry(studentID string) (Entry, bool) {
	e, ok := s.entries[studentID]
	return e, ok
}

// Entries returns a copy of the editable map.
func (s *Sheet) Entries() map[string]Entry {
	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// ExistingID returns the persisted record id backing a student's entry.
func (s *Sheet) ExistingID(studentID string) (string, bool) {
	id, ok := s.existingIDs[studentID]
	return id, ok
}

// ExistingIDs returns a copy of the student-to-record-id map.
func (s *Sheet) ExistingIDs() map[string]string {
	out := make(map[string]string, len(s.existingIDs))
	for k, v := range s.existingIDs {
		out[k] = v
	}
	return out
}

// SetField overwrites one field of one student's entry and marks the sheet
// dirty. Setting status to the empty string unmarks the student.
func (s *Sheet) SetField(studentID string, field Field, value string) error {
	if studentID == "" {
		return errors.New("student id required")
	}
	entry := s.entries[studentID]
	switch field {
	case FieldStatus:
		st := Status(value)
		if st != "" && !st.Valid() {
			return ErrInvalidStatus
		}
		entry.Status = st
	case FieldNotes:
		entry.Notes = value
	default:
		return ErrUnknownField
	}
	s.entries[studentID] = entry
	s.dirty = true
	return nil
}

// RequestBulkStatus stages an overwrite of every roster student's status.
// The overwrite is destructive to unsaved per-student choices, so it only
// applies once the returned token is confirmed.
func (s *Sheet) RequestBulkStatus(status Status) (string, error) {
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	token := uuid.NewString()
	s.pending[token] = pendingAction{kind: actionBulkStatus, status: status}
	return token, nil
}

// RequestDiscard stages dropping all unsaved edits, as needed before
// switching to another class or date. Clean sheets have nothing to discard.
func (s *Sheet) RequestDiscard() (string, error) {
	if !s.dirty {
		return "", ErrNoUnsavedEdits
	}
	token := uuid.NewString()
	s.pending[token] = pendingAction{kind: actionDiscard}
	return token, nil
}

// Confirm applies a previously requested action. Tokens are single-use.
func (s *Sheet) Confirm(token string) error {
	action, ok := s.pending[token]
	if !ok {
		return ErrUnknownConfirmation
	}
	delete(s.pending, token)

	switch action.kind {
	case actionBulkStatus:
		for _, st := range s.roster {
			entry := s.entries[st.ID]
			entry.Status = action.status
			s.entries[st.ID] = entry
		}
		s.dirty = true
	case actionDiscard:
		s.entries = make(map[string]Entry)
		s.existingIDs = make(map[string]string)
		s.dirty = false
	}
	return nil
}

// Decline drops a requested action without applying it. Declining an unknown
// token is a no-op.
func (s *Sheet) Decline(token string) {
	delete(s.pending, token)
}

// Unmarked counts roster students with no status set. They are omitted from
// submissions, not written as empty rows.
func (s *Sheet) Unmarked() int {
	n := 0
	for _, st := range s.roster {
		if s.entries[st.ID].Status == "" {
			n++
		}
	}
	return n
}

// ComputeSubmission partitions entries with a non-empty status into inserts
// and updates. Students backed by an existing record become updates with a
// refreshed timestamp; everyone else becomes inserts. Output is ordered by
// student id so repeated calls on an unmodified sheet are identical.
func (s *Sheet) ComputeSubmission() Submission {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stamp := s.now().UTC()
	var sub Submission
	for _, id := range ids {
		entry := s.entries[id]
		if entry.Status == "" {
			continue
		}
		if recordID, ok := s.existingIDs[id]; ok {
			sub.Updates = append(sub.Updates, Update{
				RecordID:  recordID,
				StudentID: id,
				Status:    entry.Status,
				Notes:     entry.Notes,
				UpdatedAt: stamp,
			})
			continue
		}
		sub.Inserts = append(sub.Inserts, Insert{
			StudentID: id,
			ClassID:   s.ClassID,
			TeacherID: s.TeacherID,
			Date:      s.Date,
			Status:    entry.Status,
			Notes:     entry.Notes,
		})
	}
	return sub
}

// markClean records a completed persist cycle.
func (s *Sheet) markClean() { s.dirty = false }
