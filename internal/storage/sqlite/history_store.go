package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// ErrNotCached is returned when a row is not in the cache
var ErrNotCached = errors.New("exercise not cached")

// HistoryStore caches the user's history rows for offline listing.
type HistoryStore struct {
	db  *DB
	now func() time.Time
}

// NewHistoryStore creates a history cache on db
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db, now: time.Now}
}

// Replace stores rows as the full history of userID, dropping rows of that
// user the backend no longer returned.
func (s *HistoryStore) Replace(userID int64, rows []domain.DatabaseExercise) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM exercises WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	cachedAt := s.now().UTC()
	for i := range rows {
		row := rows[i]
		if row.UserID == 0 {
			row.UserID = userID
		}
		if err := upsert(tx, &row, cachedAt); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// Put inserts or updates a single row
func (s *HistoryStore) Put(row *domain.DatabaseExercise) error {
	return upsert(s.db, row, s.now().UTC())
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsert(db execer, row *domain.DatabaseExercise, cachedAt time.Time) error {
	if row.UUID == "" {
		return fmt.Errorf("%w: cached row needs a uuid", domain.ErrValidation)
	}
	_, err := db.Exec(`
		INSERT INTO exercises (uuid, remote_id, user_id, exercise_data, timestamp,
			is_completed, is_public, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			remote_id=excluded.remote_id, user_id=excluded.user_id,
			exercise_data=excluded.exercise_data, timestamp=excluded.timestamp,
			is_completed=excluded.is_completed, is_public=excluded.is_public,
			cached_at=excluded.cached_at`,
		row.UUID, row.ID, row.UserID, row.ExerciseData, row.Timestamp,
		row.IsCompleted, row.IsPublic, cachedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert exercise %s: %w", row.UUID, err)
	}
	return nil
}

// List returns the cached rows of userID, newest first
func (s *HistoryStore) List(userID int64) ([]domain.DatabaseExercise, error) {
	rows, err := s.db.Query(`
		SELECT uuid, remote_id, user_id, exercise_data, timestamp, is_completed, is_public
		FROM exercises WHERE user_id = ? ORDER BY timestamp DESC, uuid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.DatabaseExercise
	for rows.Next() {
		row, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

// Get returns a cached row by uuid
func (s *HistoryStore) Get(uuid string) (*domain.DatabaseExercise, error) {
	row := s.db.QueryRow(`
		SELECT uuid, remote_id, user_id, exercise_data, timestamp, is_completed, is_public
		FROM exercises WHERE uuid = ?`, uuid)
	ex, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	return ex, err
}

// SetPublic updates the cached visibility of a row
func (s *HistoryStore) SetPublic(uuid string, isPublic bool) error {
	result, err := s.db.Exec("UPDATE exercises SET is_public = ? WHERE uuid = ?", isPublic, uuid)
	if err != nil {
		return fmt.Errorf("update visibility: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotCached
	}
	return nil
}

// LastSync returns when rows of userID were last cached; zero when none are
func (s *HistoryStore) LastSync(userID int64) (time.Time, error) {
	var last sql.NullString
	if err := s.db.QueryRow("SELECT MAX(cached_at) FROM exercises WHERE user_id = ?", userID).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("query last sync: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return parseSQLiteTime(last.String)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(row scanner) (*domain.DatabaseExercise, error) {
	var ex domain.DatabaseExercise
	if err := row.Scan(&ex.UUID, &ex.ID, &ex.UserID, &ex.ExerciseData, &ex.Timestamp,
		&ex.IsCompleted, &ex.IsPublic); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}
	return &ex, nil
}

// parseSQLiteTime reads the text form go-sqlite3 returns for aggregates
// over DATETIME columns.
func parseSQLiteTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", s)
}
