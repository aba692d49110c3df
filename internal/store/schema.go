package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements bootstrap the tables the app needs. Every statement is
// idempotent so both the API and the worker can run them on startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS classes (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		year_level INT  NOT NULL,
		section    TEXT,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id             TEXT PRIMARY KEY,
		student_number TEXT NOT NULL UNIQUE,
		first_name     TEXT NOT NULL,
		last_name      TEXT NOT NULL,
		class_id       TEXT NOT NULL REFERENCES classes(id),
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		date_of_birth  TEXT,
		enrolled_on    TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id               TEXT PRIMARY KEY,
		email            TEXT NOT NULL UNIQUE,
		full_name        TEXT NOT NULL,
		role             TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'active',
		default_class_id TEXT REFERENCES classes(id),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id         TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		class_id   TEXT NOT NULL REFERENCES classes(id),
		teacher_id TEXT NOT NULL REFERENCES profiles(id),
		date       TEXT NOT NULL,
		status     TEXT NOT NULL,
		notes      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (student_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_class_date
		ON attendance_records (class_id, date)`,
	`CREATE TABLE IF NOT EXISTS class_daily_summaries (
		class_id    TEXT NOT NULL REFERENCES classes(id),
		date        TEXT NOT NULL,
		present     INT NOT NULL DEFAULT 0,
		late        INT NOT NULL DEFAULT 0,
		absent      INT NOT NULL DEFAULT 0,
		marked      INT NOT NULL DEFAULT 0,
		roster_size INT NOT NULL DEFAULT 0,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (class_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		profile_id TEXT NOT NULL,
		token      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_token
		ON refresh_tokens (token)`,
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
