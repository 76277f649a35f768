package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no exchange has the requested ID.
var ErrNotFound = errors.New("exchange not found")

// ExchangeStatus is the outcome of a recorded exchange.
type ExchangeStatus string

const (
	StatusPending   ExchangeStatus = "PENDING"
	StatusCompleted ExchangeStatus = "COMPLETED"
	StatusFailed    ExchangeStatus = "FAILED"
)

// Exchange is one message sent to an agent and the reply it produced.
type Exchange struct {
	ID                string         `json:"id"`
	SessionID         string         `json:"sessionId,omitempty"`
	AgentType         string         `json:"agentType"`
	ExecutorProfileID string         `json:"executorProfileId,omitempty"`
	Message           string         `json:"message"`
	ResponseText      string         `json:"responseText,omitempty"`
	Status            ExchangeStatus `json:"status"`
	Complete          bool           `json:"complete"`
	Error             string         `json:"error,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Store persists exchanges.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateExchange records a new PENDING exchange and returns it with its ID.
func (s *Store) CreateExchange(ctx context.Context, e Exchange) (*Exchange, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now().UTC()
	e.Status = StatusPending
	e.CreatedAt, e.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_exchanges (id, session_id, agent_type, executor_profile_id, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.AgentType, e.ExecutorProfileID, e.Message, e.Status, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}
	return &e, nil
}

// CompleteExchange stores the reply of exchange id.
func (s *Store) CompleteExchange(ctx context.Context, id, sessionID, text string, complete bool) error {
	return s.update(ctx, `
		UPDATE chat_exchanges
		SET status = ?, session_id = ?, response_text = ?, complete = ?, updated_at = ?
		WHERE id = ?`,
		StatusCompleted, sessionID, text, complete, s.now().UTC().UnixMilli(), id)
}

// FailExchange marks exchange id as failed with reason.
func (s *Store) FailExchange(ctx context.Context, id, reason string) error {
	return s.update(ctx, `
		UPDATE chat_exchanges
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		StatusFailed, reason, s.now().UTC().UnixMilli(), id)
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update exchange: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update exchange: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetExchange returns exchange id or ErrNotFound.
func (s *Store) GetExchange(ctx context.Context, id string) (*Exchange, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, agent_type, executor_profile_id, message, response_text,
		       status, complete, error, created_at, updated_at
		FROM chat_exchanges WHERE id = ?`, id)

	var (
		e                Exchange
		created, updated int64
	)
	err := row.Scan(&e.ID, &e.SessionID, &e.AgentType, &e.ExecutorProfileID, &e.Message,
		&e.ResponseText, &e.Status, &e.Complete, &e.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return &e, nil
}

// ListExchanges returns the most recent exchanges of a session, newest first.
// An empty sessionID lists across all sessions.
func (s *Store) ListExchanges(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, agent_type, executor_profile_id, message, response_text,
		       status, complete, error, created_at, updated_at
		FROM chat_exchanges
		WHERE ? = '' OR session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var (
			e                Exchange
			created, updated int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.AgentType, &e.ExecutorProfileID, &e.Message,
			&e.ResponseText, &e.Status, &e.Complete, &e.Error, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		e.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
