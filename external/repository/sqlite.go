package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
	_ "modernc.org/sqlite"
)

// Fixed-width so that lexical ORDER BY matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a SQLite database. dsn is passed to the modernc driver as-is.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent webhook deliveries.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, stmt := range sqliteMigrationStatements {
		if _, err := db.ExecContext(ctx, strings.TrimSpace(stmt)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, s *repository.Session) error {
	lists, err := encodeLists(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO bot_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, nullableCallID(s.CallID), s.UserID, s.MeetingURL, s.BotDisplayName, s.MeetingID, string(s.Status),
		string(lists.participants), string(lists.transcript), formatSQLiteTime(s.StartedAt), formatSQLiteTime(s.EndedAt),
		s.ErrorMessage, s.LastActivityAt.UTC().Format(sqliteTimeLayout), s.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s *repository.Session) error {
	lists, err := encodeLists(s)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bot_sessions SET
			call_id = ?, status = ?, participants = ?, transcript_entries = ?,
			started_at = ?, ended_at = ?, error_message = ?, last_activity_at = ?
		 WHERE id = ?`,
		nullableCallID(s.CallID), string(s.Status), string(lists.participants), string(lists.transcript),
		formatSQLiteTime(s.StartedAt), formatSQLiteTime(s.EndedAt), s.ErrorMessage,
		s.LastActivityAt.UTC().Format(sqliteTimeLayout), s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update session %s: no row", s.ID)
	}
	return nil
}

func (r *SQLiteRepository) FindSessionByID(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM bot_sessions WHERE id = ?`, sessionID)
	return scanSQLiteSession(row)
}

func (r *SQLiteRepository) FindSessionByCallID(ctx context.Context, callID string) (*repository.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM bot_sessions WHERE call_id = ?`, callID)
	return scanSQLiteSession(row)
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, input repository.ListSessionsInput) ([]*repository.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM bot_sessions WHERE user_id = ?`
	args := []any{input.UserID}
	if len(input.Statuses) > 0 {
		placeholders := make([]string, 0, len(input.Statuses))
		for _, st := range statusStrings(input.Statuses) {
			placeholders = append(placeholders, "?")
			args = append(args, st)
		}
		query += " AND status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at DESC"
	if input.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, input.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var list []*repository.Session
	for rows.Next() {
		s, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteSession(row rowScanner) (*repository.Session, error) {
	var (
		s              repository.Session
		callID         sql.NullString
		meetingID      sql.NullString
		status         string
		participants   string
		transcript     string
		startedAt      sql.NullString
		endedAt        sql.NullString
		errorMessage   sql.NullString
		lastActivityAt string
		createdAt      string
	)
	err := row.Scan(&s.ID, &callID, &s.UserID, &s.MeetingURL, &s.BotDisplayName, &meetingID, &status,
		&participants, &transcript, &startedAt, &endedAt, &errorMessage, &lastActivityAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	s.CallID = callID.String
	s.Status = repository.SessionStatus(status)
	if meetingID.Valid {
		s.MeetingID = &meetingID.String
	}
	if errorMessage.Valid {
		s.ErrorMessage = &errorMessage.String
	}
	if s.StartedAt, err = parseSQLiteTime(startedAt); err != nil {
		return nil, err
	}
	if s.EndedAt, err = parseSQLiteTime(endedAt); err != nil {
		return nil, err
	}
	if s.LastActivityAt, err = time.Parse(sqliteTimeLayout, lastActivityAt); err != nil {
		return nil, fmt.Errorf("parse last_activity_at: %w", err)
	}
	if s.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if err := decodeLists(&s, []byte(participants), []byte(transcript)); err != nil {
		return nil, err
	}
	return &s, nil
}

func formatSQLiteTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", v.String, err)
	}
	return &t, nil
}
