package school

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists school records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertClass writes a new class.
func (r *Repository) InsertClass(ctx context.Context, c Class) (Class, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, name, year_level, section, active)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.YearLevel, c.Section, c.Active)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Class{}, err
	}
	return c, nil
}

// UpdateClass overwrites the mutable fields of a class.
func (r *Repository) UpdateClass(ctx context.Context, c Class) (Class, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE classes
		SET name = $2, year_level = $3, section = $4, active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.YearLevel, c.Section, c.Active)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Class{}, err
	}
	return c, nil
}

// GetClass returns a class by id, nil when absent.
func (r *Repository) GetClass(ctx context.Context, id string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, year_level, section, active, created_at, updated_at
		FROM classes WHERE id = $1
	`, id)
	var c Class
	if err := row.Scan(&c.ID, &c.Name, &c.YearLevel, &c.Section, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListClasses returns all classes ordered by year level then name.
func (r *Repository) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, year_level, section, active, created_at, updated_at
		FROM classes
		ORDER BY year_level, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.YearLevel, &c.Section, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// InsertStudent writes a new student.
func (r *Repository) InsertStudent(ctx context.Context, s Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, student_number, first_name, last_name, class_id, active, date_of_birth, enrolled_on)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`, s.ID, s.StudentNumber, s.FirstName, s.LastName, s.ClassID, s.Active, s.DateOfBirth, s.EnrolledOn)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// UpdateStudent overwrites the mutable fields of a student.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET student_number = $2, first_name = $3, last_name = $4, class_id = $5,
		    active = $6, date_of_birth = $7, enrolled_on = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, s.ID, s.StudentNumber, s.FirstName, s.LastName, s.ClassID, s.Active, s.DateOfBirth, s.EnrolledOn)
	if err := row.Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// SetStudentActive flips the soft-delete flag.
func (r *Repository) SetStudentActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("student not found")
	}
	return nil
}

// GetStudent returns a student by id, nil when absent.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_number, first_name, last_name, class_id, active, date_of_birth, enrolled_on, created_at, updated_at
		FROM students WHERE id = $1
	`, id)
	var s Student
	if err := row.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.ClassID, &s.Active, &s.DateOfBirth, &s.EnrolledOn, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListStudents returns students, optionally filtered by class, including
// inactive ones. Roster loading uses Roster instead.
func (r *Repository) ListStudents(ctx context.Context, classID string) ([]Student, error) {
	query := `
		SELECT id, student_number, first_name, last_name, class_id, active, date_of_birth, enrolled_on, created_at, updated_at
		FROM students`
	args := []any{}
	if classID != "" {
		query += ` WHERE class_id = $1`
		args = append(args, classID)
	}
	query += ` ORDER BY last_name, first_name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudents(rows)
}

// Roster returns the active students of a class ordered by last name. The
// ordering is total (last name, first name, id) so repeated loads are stable.
func (r *Repository) Roster(ctx context.Context, classID string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_number, first_name, last_name, class_id, active, date_of_birth, enrolled_on, created_at, updated_at
		FROM students
		WHERE class_id = $1 AND active = TRUE
		ORDER BY last_name, first_name, id
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudents(rows)
}

func scanStudents(rows *sql.Rows) ([]Student, error) {
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.ClassID, &s.Active, &s.DateOfBirth, &s.EnrolledOn, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// InsertProfile writes a new profile.
func (r *Repository) InsertProfile(ctx context.Context, p Profile) (Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, status, default_class_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, p.ID, p.Email, p.FullName, p.Role, p.Status, p.DefaultClassID)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdateProfile overwrites role, status, name and default class.
func (r *Repository) UpdateProfile(ctx context.Context, p Profile) (Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET full_name = $2, role = $3, status = $4, default_class_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING email, created_at, updated_at
	`, p.ID, p.FullName, p.Role, p.Status, p.DefaultClassID)
	if err := row.Scan(&p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// GetProfile returns a profile by id, nil when absent.
func (r *Repository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	return r.getProfile(ctx, `WHERE id = $1`, id)
}

// GetProfileByEmail returns a profile by email, nil when absent.
func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.getProfile(ctx, `WHERE email = $1`, email)
}

func (r *Repository) getProfile(ctx context.Context, where string, arg any) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, status, default_class_id, created_at, updated_at
		FROM profiles `+where, arg)
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.Status, &p.DefaultClassID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by full name.
func (r *Repository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, full_name, role, status, default_class_id, created_at, updated_at
		FROM profiles
		ORDER BY full_name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.Status, &p.DefaultClassID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, profileID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (profile_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, profileID, token, expiresAt)
	return err
}

// RefreshTokenProfile returns the profile id a live refresh token belongs to,
// or empty when the token is unknown, revoked or expired.
func (r *Repository) RefreshTokenProfile(ctx context.Context, token string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT profile_id FROM refresh_tokens
		WHERE token = $1 AND revoked = FALSE AND expires_at > NOW()
	`, token)
	var profileID string
	if err := row.Scan(&profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return profileID, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
