package dialog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"supportbot/core/logger"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Store persists dialog entries and conversation statuses in Postgres.
// All writes are synchronous; a returned nil error means the row is durable.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type entryRow struct {
	ID        int64          `db:"id"`
	UserID    int64          `db:"user_id"`
	Username  string         `db:"username"`
	FullName  string         `db:"full_name"`
	Role      string         `db:"role"`
	Text      sql.NullString `db:"text"`
	PhotoRef  sql.NullString `db:"photo_ref"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r entryRow) toEntry() Entry {
	var body Body
	switch {
	case r.Text.Valid && r.PhotoRef.Valid:
		body = TextAndPhoto(r.Text.String, r.PhotoRef.String)
	case r.PhotoRef.Valid:
		body = PhotoBody(r.PhotoRef.String)
	default:
		body = TextBody(r.Text.String)
	}
	return Entry{
		ID:        r.ID,
		UserID:    r.UserID,
		Username:  r.Username,
		FullName:  r.FullName,
		Role:      Role(r.Role),
		Body:      body,
		CreatedAt: r.CreatedAt,
	}
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Append persists one entry and returns its assigned sequence id.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	if e.Body.Empty() {
		return 0, fmt.Errorf("append entry: empty body")
	}

	const q = `
		INSERT INTO dialog_entries (user_id, username, full_name, role, text, photo_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	var id int64
	err := s.db.QueryRowxContext(ctx, q,
		e.UserID, e.Username, e.FullName, string(e.Role),
		nullable(e.Body.Text()), nullable(e.Body.Photo()),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append entry: %w", err)
	}

	logger.STORE.Debug("entry.append",
		slog.String("event", "append"),
		slog.Int64("dialog_user_id", e.UserID),
		slog.Int64("entry_id", id),
		slog.String("role", string(e.Role)),
	)
	return id, nil
}

// History returns all entries for userID in ascending id order.
func (s *Store) History(ctx context.Context, userID int64) ([]Entry, error) {
	const q = `
		SELECT id, user_id, username, full_name, role, text, photo_ref, created_at
		FROM dialog_entries
		WHERE user_id = $1
		ORDER BY id`

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

// SetStatus upserts the status record for userID.
func (s *Store) SetStatus(ctx context.Context, userID int64, status Status) error {
	if !ValidStatus(status) {
		return fmt.Errorf("set status: unknown status %q", status)
	}

	const q = `
		INSERT INTO conversation_status (user_id, status)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status`

	if _, err := s.db.ExecContext(ctx, q, userID, string(status)); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	logger.STORE.Debug("status.set",
		slog.String("event", "set_status"),
		slog.Int64("dialog_user_id", userID),
		slog.String("dialog_status", string(status)),
	)
	return nil
}

// GetStatus reads the status for userID. A conversation with no status
// record is pending: no row is written until an explicit status change.
func (s *Store) GetStatus(ctx context.Context, userID int64) (Status, error) {
	const q = `SELECT status FROM conversation_status WHERE user_id = $1`

	var raw string
	err := s.db.GetContext(ctx, &raw, q, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return Status(raw), nil
}
