package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"page-notifier/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DB archives every notification sent during a run in Postgres
type DB struct {
	conn  *sql.DB
	runID uuid.UUID
}

// NewDB connects to Postgres and makes sure the schema exists
func NewDB(connStr string) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// RunID returns the id of the current run, or uuid.Nil before StartRun
func (db *DB) RunID() uuid.UUID {
	return db.runID
}

func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			pages TEXT[] NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			changed_urls TEXT[] NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}

	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_notifications_sent_at ON notifications(sent_at)`)
	if err != nil {
		log.Printf("Warning: Failed to create index on notifications.sent_at: %v\n", err)
	}

	return nil
}

// StartRun registers a new run and makes it the target of Record
func (db *DB) StartRun(ctx context.Context, pages []string, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	if pages == nil {
		pages = []string{}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (id, pages, started_at) VALUES ($1, $2, $3)
	`, id, pq.Array(pages), startedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start run: %w", err)
	}

	db.runID = id
	return id, nil
}

// FinishRun stamps the end of the current run
func (db *DB) FinishRun(ctx context.Context, finishedAt time.Time) error {
	if db.runID == uuid.Nil {
		return fmt.Errorf("no run started")
	}

	_, err := db.conn.ExecContext(ctx, `
		UPDATE runs SET finished_at = $1 WHERE id = $2
	`, finishedAt, db.runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Record stores a sent notification. It implements notifier.Recorder.
func (db *DB) Record(ctx context.Context, msg models.Message) error {
	if db.runID == uuid.Nil {
		return fmt.Errorf("no run started")
	}

	urls := msg.ChangedURLs
	if urls == nil {
		urls = []string{}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO notifications (run_id, title, sent_at, changed_urls) VALUES ($1, $2, $3, $4)
	`, db.runID, msg.Title, msg.Timestamp, pq.Array(urls))
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// RecentNotifications returns the latest archived notifications of all runs, newest first
func (db *DB) RecentNotifications(ctx context.Context, limit int) ([]models.Message, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT title, sent_at, changed_urls
		FROM notifications
		ORDER BY sent_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var urls pq.StringArray
		if err := rows.Scan(&msg.Title, &msg.Timestamp, &urls); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		msg.ChangedURLs = []string(urls)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	return messages, nil
}
