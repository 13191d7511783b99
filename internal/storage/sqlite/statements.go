package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/pkg/logger"
)

// timeLayout is fixed width so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionRecord is one journaled session
type SessionRecord struct {
	ID             string     `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	StatementCount int        `json:"statement_count"`
}

// StatementRecord is one journaled statement and its result, if any
type StatementRecord struct {
	ID         int64                `json:"id"`
	SessionID  string               `json:"session_id"`
	Index      uint64               `json:"index"`
	Text       string               `json:"text"`
	CreatedAt  time.Time            `json:"timestamp"`
	Processed  bool                 `json:"processed"`
	ResultType factcheck.ResultType `json:"type,omitempty"`
	Accuracy   factcheck.Accuracy   `json:"accuracy,omitempty"`
	Reasoning  string               `json:"reasoning,omitempty"`
	CheckedAt  *time.Time           `json:"checked_at,omitempty"`
}

// StatementStorage is a write-through audit log of sessions. It is never
// read back into a live session.
type StatementStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewStatementStorage creates the journal and its tables
func NewStatementStorage(db *sql.DB, log *logger.Logger) (*StatementStorage, error) {
	storage := &StatementStorage{
		db:     db,
		logger: log.Named("sqlite-journal"),
	}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize statement storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *StatementStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS statements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			is_processed BOOLEAN NOT NULL DEFAULT 0,
			result_type TEXT,
			accuracy TEXT,
			reasoning TEXT,
			checked_at TIMESTAMP,
			UNIQUE(session_id, idx)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create statements table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_statements_created_at ON statements(created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	return nil
}

// StartSession records a new session
func (s *StatementStorage) StartSession(ctx context.Context, sessionID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		sessionID, startedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// EndSession records when a session ended
func (s *StatementStorage) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		endedAt.UTC().Format(timeLayout), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// RecordStatement stores a finalized statement. Recording the same index
// twice is a no-op.
func (s *StatementStorage) RecordStatement(ctx context.Context, sessionID string, index uint64, text string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO statements (session_id, idx, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, int64(index), text, createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert statement: %w", err)
	}
	return nil
}

// RecordResult stores the classification of a statement. Only the first
// result for a statement is kept.
func (s *StatementStorage) RecordResult(ctx context.Context, sessionID string, index uint64, result *factcheck.Result) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE statements
		SET is_processed = 1, result_type = ?, accuracy = ?, reasoning = ?, checked_at = ?
		WHERE session_id = ? AND idx = ? AND is_processed = 0`,
		string(result.Type),
		nullString(string(result.Accuracy)),
		nullString(result.Reasoning),
		time.Now().UTC().Format(timeLayout),
		sessionID, int64(index),
	)
	if err != nil {
		return fmt.Errorf("failed to update statement result: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("Result not recorded, statement missing or already processed",
			logger.String("session_id", sessionID),
			logger.Uint64("index", index))
	}
	return nil
}

// GetSessions returns sessions, newest first
func (s *StatementStorage) GetSessions(ctx context.Context, limit, offset int) ([]*SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.started_at, s.ended_at, COUNT(st.id)
		FROM sessions s
		LEFT JOIN statements st ON st.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	records := []*SessionRecord{}
	for rows.Next() {
		var record SessionRecord
		var startedAt string
		var endedAt sql.NullString

		if err := rows.Scan(&record.ID, &startedAt, &endedAt, &record.StatementCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		record.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if record.EndedAt, err = parseNullableTime(endedAt); err != nil {
			return nil, fmt.Errorf("failed to parse ended_at: %w", err)
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// GetStatements returns statements across all sessions, newest first
func (s *StatementStorage) GetStatements(ctx context.Context, limit, offset int) ([]*StatementRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+statementColumns+`
		FROM statements
		ORDER BY created_at DESC, idx DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	return scanStatements(rows)
}

// GetStatementsBySession returns one session's statements in index order
func (s *StatementStorage) GetStatementsBySession(ctx context.Context, sessionID string, limit, offset int) ([]*StatementRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+statementColumns+`
		FROM statements
		WHERE session_id = ?
		ORDER BY idx ASC
		LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements by session: %w", err)
	}
	defer rows.Close()

	return scanStatements(rows)
}

const statementColumns = `id, session_id, idx, content, created_at, is_processed, result_type, accuracy, reasoning, checked_at`

func scanStatements(rows *sql.Rows) ([]*StatementRecord, error) {
	records := []*StatementRecord{}
	for rows.Next() {
		var record StatementRecord
		var index int64
		var createdAt string
		var resultType, accuracy, reasoning, checkedAt sql.NullString

		if err := rows.Scan(
			&record.ID,
			&record.SessionID,
			&index,
			&record.Text,
			&createdAt,
			&record.Processed,
			&resultType,
			&accuracy,
			&reasoning,
			&checkedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}

		record.Index = uint64(index)

		var err error
		record.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if record.CheckedAt, err = parseNullableTime(checkedAt); err != nil {
			return nil, fmt.Errorf("failed to parse checked_at: %w", err)
		}

		// Handle nullable fields
		record.ResultType = factcheck.ResultType(resultType.String)
		record.Accuracy = factcheck.Accuracy(accuracy.String)
		record.Reasoning = reasoning.String

		records = append(records, &record)
	}

	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
