package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/repositories"
)

const transcriptColumns = `id, session_id, user_id, order_id, role, message,
	metadata_json, is_archived, created_at, updated_at`

// TranscriptRepositoryDeps bundles the transcript repository dependencies.
type TranscriptRepositoryDeps struct {
	DB          *sql.DB
	Clock       func() time.Time
	IDGenerator func() string
}

// TranscriptRepository persists the durable chat log in SQLite.
type TranscriptRepository struct {
	db    *sql.DB
	clock func() time.Time
	newID func() string
}

// NewTranscriptRepository constructs a SQLite-backed transcript repository.
func NewTranscriptRepository(deps TranscriptRepositoryDeps) (*TranscriptRepository, error) {
	if deps.DB == nil {
		return nil, errors.New("transcript repository requires a database handle")
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return ulid.Make().String() }
	}
	return &TranscriptRepository{db: deps.DB, clock: deps.Clock, newID: deps.IDGenerator}, nil
}

// Insert appends one record. ID and timestamps are filled when empty.
func (r *TranscriptRepository) Insert(ctx context.Context, record domain.TranscriptRecord) error {
	if strings.TrimSpace(record.SessionID) == "" {
		return errors.New("transcript repository: session id is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return errors.New("transcript repository: user id is required")
	}

	if strings.TrimSpace(record.ID) == "" {
		record.ID = r.newID()
	}
	now := r.clock().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	var metadata any
	if len(record.Metadata) > 0 {
		raw, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("transcript repository: encode metadata: %w", err)
		}
		metadata = string(raw)
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_history (
		id, session_id, user_id, order_id, role, message, metadata_json,
		is_archived, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.SessionID, record.UserID, nullString(record.OrderID),
		string(record.Role), record.Body, metadata, boolToInt(record.Archived),
		encodeTime(record.CreatedAt), encodeTime(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("transcript repository: insert %s: %w", record.ID, err)
	}
	return nil
}

// FindByID loads a single record.
func (r *TranscriptRepository) FindByID(ctx context.Context, recordID string) (domain.TranscriptRecord, error) {
	record, err := scanTranscript(r.db.QueryRowContext(ctx,
		"SELECT "+transcriptColumns+" FROM chat_history WHERE id = ?", recordID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TranscriptRecord{}, repositories.ErrTranscriptNotFound
	}
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("transcript repository: find %s: %w", recordID, err)
	}
	return record, nil
}

// ListBySession returns a session's records oldest first.
func (r *TranscriptRepository) ListBySession(ctx context.Context, filter repositories.TranscriptFilter) ([]domain.TranscriptRecord, error) {
	if strings.TrimSpace(filter.SessionID) == "" {
		return nil, errors.New("transcript repository: session id is required")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + transcriptColumns + " FROM chat_history WHERE session_id = ?"
	args := []any{filter.SessionID}
	if strings.TrimSpace(filter.UserID) != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if !filter.IncludeArchived {
		query += " AND is_archived = 0"
	}
	query += " ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transcript repository: list session %s: %w", filter.SessionID, err)
	}
	defer rows.Close()

	var records []domain.TranscriptRecord
	for rows.Next() {
		record, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("transcript repository: scan: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript repository: list session %s: %w", filter.SessionID, err)
	}
	return records, nil
}

// ListConversations groups the user's unarchived records per session, most
// recent activity first.
func (r *TranscriptRepository) ListConversations(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("transcript repository: user id is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MAX(created_at)
		FROM chat_history WHERE user_id = ? AND is_archived = 0
		GROUP BY session_id ORDER BY MAX(created_at) DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("transcript repository: list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var summary domain.ConversationSummary
		var lastAt string
		if err := rows.Scan(&summary.SessionID, &summary.MessageCount, &lastAt); err != nil {
			return nil, fmt.Errorf("transcript repository: scan conversation: %w", err)
		}
		summary.LastTimestamp = decodeTime(lastAt)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript repository: list conversations: %w", err)
	}

	for i := range summaries {
		err := r.db.QueryRowContext(ctx,
			`SELECT message FROM chat_history
			WHERE session_id = ? AND user_id = ? AND is_archived = 0
			ORDER BY created_at DESC, id DESC LIMIT 1`,
			summaries[i].SessionID, userID,
		).Scan(&summaries[i].LastBody)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transcript repository: last message %s: %w", summaries[i].SessionID, err)
		}
	}
	return summaries, nil
}

// UpdateBody replaces the message text of one record.
func (r *TranscriptRepository) UpdateBody(ctx context.Context, recordID, body string) (domain.TranscriptRecord, error) {
	now := r.clock().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE chat_history SET message = ?, updated_at = ? WHERE id = ?",
		body, encodeTime(now), recordID,
	)
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("transcript repository: update %s: %w", recordID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return domain.TranscriptRecord{}, repositories.ErrTranscriptNotFound
	}
	return r.FindByID(ctx, recordID)
}

// Delete removes one record.
func (r *TranscriptRepository) Delete(ctx context.Context, recordID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM chat_history WHERE id = ?", recordID)
	if err != nil {
		return fmt.Errorf("transcript repository: delete %s: %w", recordID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return repositories.ErrTranscriptNotFound
	}
	return nil
}

// ArchiveSession flags every record of the user's session as archived and
// returns how many rows changed.
func (r *TranscriptRepository) ArchiveSession(ctx context.Context, sessionID, userID string) (int, error) {
	now := r.clock().UTC()
	result, err := r.db.ExecContext(ctx,
		"UPDATE chat_history SET is_archived = 1, updated_at = ? WHERE session_id = ? AND user_id = ? AND is_archived = 0",
		encodeTime(now), sessionID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("transcript repository: archive %s: %w", sessionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transcript repository: archive %s: %w", sessionID, err)
	}
	return int(affected), nil
}

// Stats aggregates message counts across the user's history.
func (r *TranscriptRepository) Stats(ctx context.Context, userID string) (domain.TranscriptStats, error) {
	var stats domain.TranscriptStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN role = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT session_id)
		FROM chat_history WHERE user_id = ?`,
		string(domain.TranscriptRoleUser), string(domain.TranscriptRoleAgent), userID,
	).Scan(&stats.TotalMessages, &stats.UserMessages, &stats.AgentMessages, &stats.Sessions)
	if err != nil {
		return domain.TranscriptStats{}, fmt.Errorf("transcript repository: stats: %w", err)
	}
	return stats, nil
}

func scanTranscript(row rowScanner) (domain.TranscriptRecord, error) {
	var (
		record               domain.TranscriptRecord
		orderID, metadata    sql.NullString
		role                 string
		archived             int
		createdAt, updatedAt string
	)
	if err := row.Scan(&record.ID, &record.SessionID, &record.UserID, &orderID,
		&role, &record.Body, &metadata, &archived, &createdAt, &updatedAt); err != nil {
		return domain.TranscriptRecord{}, err
	}

	record.OrderID = orderID.String
	record.Role = domain.TranscriptRole(role)
	record.Archived = archived != 0
	record.CreatedAt = decodeTime(createdAt)
	record.UpdatedAt = decodeTime(updatedAt)
	if metadata.Valid && strings.TrimSpace(metadata.String) != "" {
		parsed := map[string]string{}
		if err := json.Unmarshal([]byte(metadata.String), &parsed); err == nil {
			record.Metadata = parsed
		}
	}
	return record, nil
}
