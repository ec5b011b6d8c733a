package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect initializes the database connection and applies migrations.
func Connect(dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
            id BIGSERIAL PRIMARY KEY,
            full_name TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('parent', 'teacher', 'student', 'admin')),
            school_id BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS guardian_links (
            parent_id BIGINT NOT NULL REFERENCES accounts(id),
            child_id BIGINT NOT NULL REFERENCES accounts(id),
            PRIMARY KEY (parent_id, child_id)
        );`,
		`CREATE TABLE IF NOT EXISTS class_rosters (
            class_id BIGINT NOT NULL,
            teacher_id BIGINT NOT NULL REFERENCES accounts(id),
            student_id BIGINT NOT NULL REFERENCES accounts(id),
            PRIMARY KEY (class_id, teacher_id, student_id)
        );`,
		`CREATE TABLE IF NOT EXISTS conversations (
            id BIGSERIAL PRIMARY KEY,
            teacher_id BIGINT NOT NULL,
            counterparty_id BIGINT NOT NULL,
            child_id BIGINT NOT NULL,
            is_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'archived')),
            last_message_snippet TEXT NOT NULL DEFAULT '',
            last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS conversations_active_triple
            ON conversations (teacher_id, counterparty_id, child_id)
            WHERE status = 'active';`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            conversation_id BIGINT NOT NULL REFERENCES conversations(id),
            sender_id BIGINT NOT NULL,
            sender_role TEXT NOT NULL,
            content TEXT NOT NULL,
            is_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
            is_flagged BOOLEAN NOT NULL DEFAULT FALSE,
            safety_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_order
            ON messages (conversation_id, id);`,
		`CREATE TABLE IF NOT EXISTS conversation_unread (
            conversation_id BIGINT NOT NULL REFERENCES conversations(id),
            viewer_id BIGINT NOT NULL,
            unread INT NOT NULL DEFAULT 0,
            PRIMARY KEY (conversation_id, viewer_id)
        );`,
		`CREATE TABLE IF NOT EXISTS child_messages (
            id BIGSERIAL PRIMARY KEY,
            message_id BIGINT NOT NULL REFERENCES messages(id),
            child_id BIGINT NOT NULL,
            guardian_id BIGINT NOT NULL,
            direction TEXT NOT NULL CHECK (direction IN ('sent', 'received')),
            content TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (message_id, guardian_id)
        );`,
		`CREATE TABLE IF NOT EXISTS office_hours_windows (
            id BIGSERIAL PRIMARY KEY,
            teacher_id BIGINT NOT NULL,
            day_of_week INT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        );`,
		`CREATE INDEX IF NOT EXISTS office_hours_by_teacher
            ON office_hours_windows (teacher_id, day_of_week);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
