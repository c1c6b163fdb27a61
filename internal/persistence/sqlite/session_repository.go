package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/session-planner/internal/persistence"
	"github.com/example/session-planner/internal/wallclock"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool        *ConnectionPool
	idGenerator func() string
	retry       retryConfig
}

// NewSessionRepository creates a SQLite-backed session repository. The id
// generator is used for tag rows created during upsert-by-name.
func NewSessionRepository(pool *ConnectionPool, idGenerator func() string) *SessionRepository {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &SessionRepository{
		pool:        pool,
		idGenerator: idGenerator,
		retry:       defaultRetryConfig(),
	}
}

const sessionColumns = `id, owner_id, title, description, scheduled_at, estimated_minutes,
	recurrence_type, recurrence_day_of_week, recurrence_end_date, recurrence_count,
	status, last_notified_at, linked_session_id, created_at, updated_at`

// InsertSessions persists the base session and its expanded instances as one
// atomic set, upserting tags by name and linking them to every row.
func (r *SessionRepository) InsertSessions(ctx context.Context, sessions []persistence.ScheduledSession) error {
	if len(sessions) == 0 {
		return nil
	}
	for _, session := range sessions {
		if session.ID == "" || session.OwnerID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, session := range sessions {
				if err := r.insertSessionTx(tx, session); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (r *SessionRepository) insertSessionTx(tx *sql.Tx, session persistence.ScheduledSession) error {
	query := `
		INSERT INTO scheduled_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		session.ID,
		session.OwnerID,
		session.Title,
		session.Description,
		wallclock.Format(session.ScheduledAt),
		nullInt(session.EstimatedMinutes),
		string(session.Recurrence),
		nullableDayOfWeek(session),
		nullWallclockDate(session.RecurrenceEndDate),
		nullInt(session.RecurrenceCount),
		string(session.Status),
		nullWallclock(session.LastNotifiedAt),
		nullString(session.LinkedSessionID),
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}

	return r.setTagsTx(tx, session.OwnerID, session.ID, session.Tags)
}

// GetSession retrieves one session scoped to its owner.
func (r *SessionRepository) GetSession(ctx context.Context, ownerID, id string) (persistence.ScheduledSession, error) {
	if ownerID == "" || id == "" {
		return persistence.ScheduledSession{}, persistence.ErrNotFound
	}

	query := "SELECT " + sessionColumns + " FROM scheduled_sessions WHERE id = ? AND owner_id = ?"
	row := r.pool.db.QueryRowContext(ctx, query, id, ownerID)

	session, err := scanSession(row)
	if err != nil {
		return persistence.ScheduledSession{}, mapError(err)
	}

	tags, err := r.loadTags(ctx, []string{session.ID})
	if err != nil {
		return persistence.ScheduledSession{}, err
	}
	session.Tags = tags[session.ID]

	return session, nil
}

// ListSessions returns sessions matching the filter in chronological order,
// with tag names flattened onto each record.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.ScheduledSession, error) {
	query, args := buildListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.ScheduledSession
	var ids []string

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, mapError(err)
		}
		sessions = append(sessions, session)
		ids = append(ids, session.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	tags, err := r.loadTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Tags = tags[sessions[i].ID]
	}

	return sessions, nil
}

// UpdateSession applies a partial update to mutable fields. A missing row
// yields persistence.ErrNotFound.
func (r *SessionRepository) UpdateSession(ctx context.Context, ownerID, id string, update persistence.SessionUpdate) error {
	if ownerID == "" || id == "" {
		return persistence.ErrNotFound
	}

	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			sets := []string{"updated_at = ?"}
			args := []interface{}{update.UpdatedAt.UTC().Format(time.RFC3339)}

			if update.Title != nil {
				sets = append(sets, "title = ?")
				args = append(args, *update.Title)
			}
			if update.Description != nil {
				sets = append(sets, "description = ?")
				args = append(args, *update.Description)
			}
			if update.ScheduledAt != nil {
				sets = append(sets, "scheduled_at = ?")
				args = append(args, wallclock.Format(*update.ScheduledAt))
			}
			if update.EstimatedMinutes != nil {
				sets = append(sets, "estimated_minutes = ?")
				args = append(args, *update.EstimatedMinutes)
			}

			query := fmt.Sprintf("UPDATE scheduled_sessions SET %s WHERE id = ? AND owner_id = ?", strings.Join(sets, ", "))
			args = append(args, id, ownerID)

			result, err := tx.Exec(query, args...)
			if err != nil {
				return mapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: rows affected: %w", err)
			}
			if affected == 0 {
				return persistence.ErrNotFound
			}

			if update.Tags != nil {
				if _, err := tx.Exec("DELETE FROM scheduled_session_tags WHERE session_id = ?", id); err != nil {
					return mapError(err)
				}
				if err := r.setTagsTx(tx, ownerID, id, update.Tags); err != nil {
					return err
				}
			}

			return nil
		})
	})
}

// CompleteSession marks the session completed and stamps the tracking-session
// link. Completing an already-completed session succeeds without touching
// the stored link, which makes the transition idempotent.
func (r *SessionRepository) CompleteSession(ctx context.Context, ownerID, id, linkedSessionID string, at time.Time) error {
	if ownerID == "" || id == "" {
		return persistence.ErrNotFound
	}

	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.db.ExecContext(ctx, `
			UPDATE scheduled_sessions
			SET status = ?, linked_session_id = COALESCE(linked_session_id, ?), updated_at = ?
			WHERE id = ? AND owner_id = ?
		`,
			string(persistence.StatusCompleted),
			linkedSessionID,
			at.UTC().Format(time.RFC3339),
			id,
			ownerID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// MarkNotified stamps the day-before reminder guard timestamp.
func (r *SessionRepository) MarkNotified(ctx context.Context, ownerID, id string, at time.Time) error {
	if ownerID == "" || id == "" {
		return persistence.ErrNotFound
	}

	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.db.ExecContext(ctx, `
			UPDATE scheduled_sessions
			SET last_notified_at = ?
			WHERE id = ? AND owner_id = ?
		`, wallclock.Format(at), id, ownerID)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// DeleteSession removes one session row and its tag links. Other rows
// materialized from the same recurrence rule are untouched.
func (r *SessionRepository) DeleteSession(ctx context.Context, ownerID, id string) error {
	if ownerID == "" || id == "" {
		return persistence.ErrNotFound
	}

	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec("DELETE FROM scheduled_session_tags WHERE session_id = ?", id); err != nil {
				return mapError(err)
			}

			result, err := tx.Exec("DELETE FROM scheduled_sessions WHERE id = ? AND owner_id = ?", id, ownerID)
			if err != nil {
				return mapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: rows affected: %w", err)
			}
			if affected == 0 {
				return persistence.ErrNotFound
			}
			return nil
		})
	})
}

// setTagsTx upserts tags by name for the owner and links them to the session.
func (r *SessionRepository) setTagsTx(tx *sql.Tx, ownerID, sessionID string, names []string) error {
	for _, name := range uniqueTagNames(names) {
		if _, err := tx.Exec(
			"INSERT INTO tags (id, owner_id, name) VALUES (?, ?, ?) ON CONFLICT (owner_id, name) DO NOTHING",
			r.idGenerator(), ownerID, name,
		); err != nil {
			return mapError(err)
		}

		var tagID string
		if err := tx.QueryRow("SELECT id FROM tags WHERE owner_id = ? AND name = ?", ownerID, name).Scan(&tagID); err != nil {
			return mapError(err)
		}

		if _, err := tx.Exec(
			"INSERT INTO scheduled_session_tags (session_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			sessionID, tagID,
		); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// loadTags returns tag names grouped by session id, sorted for stable output.
func (r *SessionRepository) loadTags(ctx context.Context, sessionIDs []string) (map[string][]string, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(sessionIDs))
	args := make([]interface{}, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT st.session_id, t.name
		FROM scheduled_session_tags st
		JOIN tags t ON t.id = st.tag_id
		WHERE st.session_id IN (%s)
	`, strings.Join(placeholders, ","))

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	tags := make(map[string][]string)
	for rows.Next() {
		var sessionID, name string
		if err := rows.Scan(&sessionID, &name); err != nil {
			return nil, mapError(err)
		}
		tags[sessionID] = append(tags[sessionID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for _, names := range tags {
		sort.Strings(names)
	}

	return tags, nil
}

func buildListQuery(filter persistence.SessionFilter) (string, []interface{}) {
	query := "SELECT " + sessionColumns + " FROM scheduled_sessions"

	conditions := []string{"owner_id = ?"}
	args := []interface{}{filter.OwnerID}

	// The wall-clock layout sorts lexicographically in timestamp order, so
	// text comparison is a range scan over scheduled_at.
	if filter.From != nil {
		conditions = append(conditions, "scheduled_at >= ?")
		args = append(args, wallclock.Format(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "scheduled_at < ?")
		args = append(args, wallclock.Format(*filter.To))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query += " WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY scheduled_at ASC, id ASC"

	return query, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (persistence.ScheduledSession, error) {
	var session persistence.ScheduledSession
	var scheduledAt, recurrenceType, status, createdAt, updatedAt string
	var estimatedMinutes, recurrenceDayOfWeek, recurrenceCount sql.NullInt64
	var recurrenceEndDate, lastNotifiedAt, linkedSessionID sql.NullString

	err := row.Scan(
		&session.ID,
		&session.OwnerID,
		&session.Title,
		&session.Description,
		&scheduledAt,
		&estimatedMinutes,
		&recurrenceType,
		&recurrenceDayOfWeek,
		&recurrenceEndDate,
		&recurrenceCount,
		&status,
		&lastNotifiedAt,
		&linkedSessionID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.ScheduledSession{}, err
	}

	session.Recurrence = persistence.RecurrenceType(recurrenceType)
	session.Status = persistence.SessionStatus(status)

	if session.ScheduledAt, err = wallclock.Parse(scheduledAt); err != nil {
		return persistence.ScheduledSession{}, fmt.Errorf("sqlite: parse scheduled_at: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.ScheduledSession{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return persistence.ScheduledSession{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	if estimatedMinutes.Valid {
		value := int(estimatedMinutes.Int64)
		session.EstimatedMinutes = &value
	}
	if recurrenceDayOfWeek.Valid {
		session.RecurrenceDayOfWeek = int(recurrenceDayOfWeek.Int64)
	}
	if recurrenceCount.Valid {
		value := int(recurrenceCount.Int64)
		session.RecurrenceCount = &value
	}
	if recurrenceEndDate.Valid {
		endDate, err := wallclock.Parse(recurrenceEndDate.String)
		if err != nil {
			return persistence.ScheduledSession{}, fmt.Errorf("sqlite: parse recurrence_end_date: %w", err)
		}
		session.RecurrenceEndDate = &endDate
	}
	if lastNotifiedAt.Valid {
		notified, err := wallclock.Parse(lastNotifiedAt.String)
		if err != nil {
			return persistence.ScheduledSession{}, fmt.Errorf("sqlite: parse last_notified_at: %w", err)
		}
		session.LastNotifiedAt = &notified
	}
	if linkedSessionID.Valid {
		session.LinkedSessionID = &linkedSessionID.String
	}

	return session, nil
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullWallclock(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: wallclock.Format(*value), Valid: true}
}

func nullWallclockDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: wallclock.FormatDate(*value), Valid: true}
}

func nullableDayOfWeek(session persistence.ScheduledSession) sql.NullInt64 {
	if session.Recurrence != persistence.RecurrenceWeekly || session.RecurrenceDayOfWeek == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(session.RecurrenceDayOfWeek), Valid: true}
}

func uniqueTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}
