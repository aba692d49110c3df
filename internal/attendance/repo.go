package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListForDate returns the records for an exact (class, date) pair.
func (r *Repository) ListForDate(ctx context.Context, classID, date string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, class_id, teacher_id, date, status, notes, created_at, updated_at
		FROM attendance_records
		WHERE class_id = $1 AND date = $2
		ORDER BY student_id
	`, classID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		var notes sql.NullString
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.TeacherID, &rec.Date, &rec.Status, &notes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Notes = notes.String
		res = append(res, rec)
	}
	return res, rows.Err()
}

// InsertBatch writes new records in a single multi-row statement. A unique
// violation on (student_id, date) means the caller's view of existing records
// is stale and surfaces as ErrDuplicateRecord.
func (r *Repository) InsertBatch(ctx context.Context, inserts []Insert) error {
	if len(inserts) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO attendance_records (id, student_id, class_id, teacher_id, date, status, notes) VALUES `)
	args := make([]any, 0, len(inserts)*7)
	for i, ins := range inserts {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, uuid.NewString(), ins.StudentID, ins.ClassID, ins.TeacherID, ins.Date, ins.Status, ins.Notes)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
		}
		return err
	}
	return nil
}

// UpdateRecord overwrites status and notes of one existing record.
func (r *Repository) UpdateRecord(ctx context.Context, u Update) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = $2, notes = $3, updated_at = $4
		WHERE id = $1
	`, u.RecordID, u.Status, u.Notes, u.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s not found", u.RecordID)
	}
	return nil
}

// CountStatuses aggregates the persisted marks for a (class, date) pair.
func (r *Repository) CountStatuses(ctx context.Context, classID, date string) (present, late, absent int, err error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM attendance_records
		WHERE class_id = $1 AND date = $2
		GROUP BY status
	`, classID, date)
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return 0, 0, 0, err
		}
		switch status {
		case StatusPresent:
			present = n
		case StatusLate:
			late = n
		case StatusAbsent:
			absent = n
		}
	}
	return present, late, absent, rows.Err()
}

// UpsertSummary writes the per-class daily aggregate.
func (r *Repository) UpsertSummary(ctx context.Context, s Summary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_daily_summaries (class_id, date, present, late, absent, marked, roster_size, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (class_id, date) DO UPDATE SET
			present = EXCLUDED.present,
			late = EXCLUDED.late,
			absent = EXCLUDED.absent,
			marked = EXCLUDED.marked,
			roster_size = EXCLUDED.roster_size,
			updated_at = NOW()
	`, s.ClassID, s.Date, s.Present, s.Late, s.Absent, s.Marked, s.RosterSize)
	return err
}

// GetSummary returns the aggregate for a (class, date) pair, nil when the
// worker has not produced one yet.
func (r *Repository) GetSummary(ctx context.Context, classID, date string) (*Summary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT class_id, date, present, late, absent, marked, roster_size, updated_at
		FROM class_daily_summaries
		WHERE class_id = $1 AND date = $2
	`, classID, date)
	var s Summary
	if err := row.Scan(&s.ClassID, &s.Date, &s.Present, &s.Late, &s.Absent, &s.Marked, &s.RosterSize, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
