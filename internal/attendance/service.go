package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"classtrack/internal/queue"
	"classtrack/internal/school"
)

// ErrDuplicateRecord signals an insert that collided with the one-record-per-
// student-per-day constraint: the client's view of existing records was stale.
// The remedy is to reload the sheet and retry.
var ErrDuplicateRecord = errors.New("attendance record already exists for student and date")

// EventSubmitted is published after a successful submission so the worker can
// refresh the class daily summary.
const EventSubmitted = "attendance.submitted"

// SubmittedEvent is the queue payload for EventSubmitted messages.
type SubmittedEvent struct {
	ClassID string `json:"class_id"`
	Date    string `json:"date"`
}

// RosterSource loads the active students of a class.
type RosterSource interface {
	Roster(ctx context.Context, classID string) ([]school.Student, error)
}

// RecordStore persists attendance records and summaries. *Repository
// satisfies it.
type RecordStore interface {
	ListForDate(ctx context.Context, classID, date string) ([]Record, error)
	InsertBatch(ctx context.Context, inserts []Insert) error
	UpdateRecord(ctx context.Context, u Update) error
	CountStatuses(ctx context.Context, classID, date string) (present, late, absent int, err error)
	UpsertSummary(ctx context.Context, s Summary) error
	GetSummary(ctx context.Context, classID, date string) (*Summary, error)
}

// Publisher enqueues messages for the worker. May be nil when no queue is
// wired (tests, one-off tools).
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Service coordinates sheet loading and submission persistence.
type Service struct {
	roster  RosterSource
	records RecordStore
	pub     Publisher
}

// NewService creates a service over a roster source and a record store.
func NewService(roster RosterSource, records RecordStore, pub Publisher) *Service {
	return &Service{roster: roster, records: records, pub: pub}
}

// SubmitResult reports what a submission wrote. Unmarked counts roster
// students omitted because they had no status set.
type SubmitResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Unmarked int `json:"unmarked"`
}

// LoadSheet fetches the roster and existing records for a (class, date) pair
// and builds the editable sheet. A load failure leaves no sheet behind; the
// caller decides whether to retry.
func (s *Service) LoadSheet(ctx context.Context, teacherID, classID, date string) (*Sheet, error) {
	if classID == "" {
		return nil, errors.New("class id required")
	}
	if !ValidDate(date) {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	roster, err := s.roster.Roster(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	existing, err := s.records.ListForDate(ctx, classID, date)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}
	return NewSheet(teacherID, classID, date, roster, existing), nil
}

// Submit reconciles the client's editable entries against a fresh fetch of
// the persisted records and writes the result: one batched insert, then
// updates one at a time. The first failure aborts the remaining batch;
// already-applied writes are not rolled back.
func (s *Service) Submit(ctx context.Context, teacherID, classID, date string, entries map[string]Entry) (SubmitResult, error) {
	if teacherID == "" {
		return SubmitResult{}, errors.New("teacher id required")
	}
	for studentID, entry := range entries {
		if entry.Status != "" && !entry.Status.Valid() {
			return SubmitResult{}, fmt.Errorf("student %s: %w", studentID, ErrInvalidStatus)
		}
	}

	sheet, err := s.LoadSheet(ctx, teacherID, classID, date)
	if err != nil {
		return SubmitResult{}, err
	}
	for studentID, entry := range entries {
		if err := sheet.SetField(studentID, FieldStatus, string(entry.Status)); err != nil {
			return SubmitResult{}, err
		}
		if err := sheet.SetField(studentID, FieldNotes, entry.Notes); err != nil {
			return SubmitResult{}, err
		}
	}

	sub := sheet.ComputeSubmission()
	result := SubmitResult{Unmarked: sheet.Unmarked()}

	if err := s.records.InsertBatch(ctx, sub.Inserts); err != nil {
		submissionFailures.Inc()
		return result, fmt.Errorf("insert attendance: %w", err)
	}
	result.Inserted = len(sub.Inserts)
	recordsWritten.WithLabelValues("insert").Add(float64(len(sub.Inserts)))

	for _, u := range sub.Updates {
		if err := s.records.UpdateRecord(ctx, u); err != nil {
			submissionFailures.Inc()
			return result, fmt.Errorf("update attendance record %s: %w", u.RecordID, err)
		}
		result.Updated++
		recordsWritten.WithLabelValues("update").Inc()
	}

	sheet.markClean()
	submissionsTotal.Inc()
	s.publishSubmitted(ctx, classID, date)
	return result, nil
}

func (s *Service) publishSubmitted(ctx context.Context, classID, date string) {
	if s.pub == nil {
		return
	}
	body, err := json.Marshal(SubmittedEvent{ClassID: classID, Date: date})
	if err != nil {
		return
	}
	if err := s.pub.Publish(ctx, queue.Message{Type: EventSubmitted, Body: body}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// RefreshSummary recounts the persisted marks for a (class, date) pair and
// upserts the daily summary. Called by the worker after submissions.
func (s *Service) RefreshSummary(ctx context.Context, classID, date string) (Summary, error) {
	present, late, absent, err := s.records.CountStatuses(ctx, classID, date)
	if err != nil {
		return Summary{}, fmt.Errorf("count statuses: %w", err)
	}
	roster, err := s.roster.Roster(ctx, classID)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch roster: %w", err)
	}
	summary := Summary{
		ClassID:    classID,
		Date:       date,
		Present:    present,
		Late:       late,
		Absent:     absent,
		Marked:     present + late + absent,
		RosterSize: len(roster),
	}
	if err := s.records.UpsertSummary(ctx, summary); err != nil {
		return Summary{}, fmt.Errorf("upsert summary: %w", err)
	}
	return summary, nil
}

// Summary returns the worker-maintained aggregate, nil when none exists yet.
func (s *Service) Summary(ctx context.Context, classID, date string) (*Summary, error) {
	if classID == "" {
		return nil, errors.New("class id required")
	}
	if !ValidDate(date) {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return s.records.GetSummary(ctx, classID, date)
}
