package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, s *repository.Session) error {
	lists, err := encodeLists(s)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO bot_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, nullableCallID(s.CallID), s.UserID, s.MeetingURL, s.BotDisplayName, s.MeetingID, string(s.Status),
		lists.participants, lists.transcript, s.StartedAt, s.EndedAt, s.ErrorMessage, s.LastActivityAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveSession(ctx context.Context, s *repository.Session) error {
	lists, err := encodeLists(s)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE bot_sessions SET
			call_id = $2, status = $3, participants = $4, transcript_entries = $5,
			started_at = $6, ended_at = $7, error_message = $8, last_activity_at = $9
		 WHERE id = $1`,
		s.ID, nullableCallID(s.CallID), string(s.Status), lists.participants, lists.transcript,
		s.StartedAt, s.EndedAt, s.ErrorMessage, s.LastActivityAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update session %s: no row", s.ID)
	}
	return nil
}

func (r *PostgresRepository) FindSessionByID(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM bot_sessions WHERE id = $1`, sessionID)
	return scanPostgresSession(row)
}

func (r *PostgresRepository) FindSessionByCallID(ctx context.Context, callID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM bot_sessions WHERE call_id = $1`, callID)
	return scanPostgresSession(row)
}

func (r *PostgresRepository) ListSessions(ctx context.Context, input repository.ListSessionsInput) ([]*repository.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM bot_sessions WHERE user_id = $1`
	args := []any{input.UserID}
	if len(input.Statuses) > 0 {
		args = append(args, statusStrings(input.Statuses))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	query += " ORDER BY created_at DESC"
	if input.Limit > 0 {
		args = append(args, input.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var list []*repository.Session
	for rows.Next() {
		s, err := scanPostgresSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanPostgresSession(row pgx.Row) (*repository.Session, error) {
	var (
		s            repository.Session
		callID       *string
		status       string
		participants []byte
		transcript   []byte
		startedAt    *time.Time
		endedAt      *time.Time
	)
	err := row.Scan(&s.ID, &callID, &s.UserID, &s.MeetingURL, &s.BotDisplayName, &s.MeetingID, &status,
		&participants, &transcript, &startedAt, &endedAt, &s.ErrorMessage, &s.LastActivityAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if callID != nil {
		s.CallID = *callID
	}
	s.Status = repository.SessionStatus(status)
	s.StartedAt = startedAt
	s.EndedAt = endedAt
	if err := decodeLists(&s, participants, transcript); err != nil {
		return nil, err
	}
	return &s, nil
}
