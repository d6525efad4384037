// internal/session/store.go
//
// Durable game-session state.
// Responsibilities:
//   - Session rows: one per play attempt, created anonymous, finished when
//     every character is found, named at most once.
//   - Guess rows: one per first correct find of a character, keyed
//     (session_id, character_id) so a duplicate insert is a no-op.
//   - The atomic find-and-maybe-complete transaction (RecordFind).
//   - Reaping of unnamed sessions past their TTL.
//   - Leaderboard rows for named sessions.
//
// All state lives in SQLite; the server keeps nothing between requests, so
// any replica can serve any session.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound: the session id does not exist (typically reaped).
	ErrNotFound = errors.New("session: not found")
	// ErrNameAlreadySet: the session already carries a display name.
	ErrNameAlreadySet = errors.New("session: name already set")
)

// Session is one play attempt at one map. FinishedAt/ElapsedSeconds are set
// together, exactly once, when the last character is found; Name at most
// once after that.
type Session struct {
	ID             string
	MapID          string
	StartedAt      time.Time
	FinishedAt     *time.Time
	ElapsedSeconds *int64
	Name           *string
}

// Completed reports whether every character has been found. Completion is
// derived from the elapsed-time write, the single source of truth.
func (s *Session) Completed() bool { return s.ElapsedSeconds != nil }

// Named reports whether the session holds a leaderboard name.
func (s *Session) Named() bool { return s.Name != nil }

// FindOutcome is the result of RecordFind.
type FindOutcome int

const (
	// FindDuplicate: the character was already in the found-set.
	FindDuplicate FindOutcome = iota
	// FindRecorded: a new find, map not yet complete.
	FindRecorded
	// FindCompleted: this find was the last one; the session is finished.
	FindCompleted
)

// Store persists sessions and guess records in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Create inserts a fresh active session for mapID.
func (s *Store) Create(ctx context.Context, mapID string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		MapID:     mapID,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, map_id, started_at) VALUES (?,?,?)`,
		sess.ID, sess.MapID, sess.StartedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, map_id, started_at, finished_at, elapsed_seconds, name
		 FROM sessions WHERE id=?`, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var started string
	var finished sql.NullString
	var elapsed sql.NullInt64
	var name sql.NullString
	if err := row.Scan(&sess.ID, &sess.MapID, &started, &finished, &elapsed, &name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	sess.StartedAt, err = time.Parse(time.RFC3339, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	if finished.Valid {
		t, err := time.Parse(time.RFC3339, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finished.String, err)
		}
		sess.FinishedAt = &t
	}
	if elapsed.Valid {
		v := elapsed.Int64
		sess.ElapsedSeconds = &v
	}
	if name.Valid {
		v := name.String
		sess.Name = &v
	}
	return &sess, nil
}

// Found reports whether characterID is already in the session's found-set.
// Fast-path only; RecordFind re-checks inside its transaction.
func (s *Store) Found(ctx context.Context, sessionID, characterID string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM guesses WHERE session_id=? AND character_id=?`,
		sessionID, characterID).Scan(&cnt)
	return cnt > 0, err
}

// RecordFind adds a correct guess to the found-set and detects completion,
// all inside one write transaction:
//
//  1. Re-read the session's completion state. The caller's guard ran against
//     a snapshot that may predate a racing completion, and completion purges
//     the guess rows, so the insert alone cannot be trusted once the session
//     is finished. A completed session answers FindDuplicate here and never
//     re-enters the completion branch.
//  2. INSERT OR IGNORE the guess row. Zero rows affected means another
//     request (or an earlier one) already recorded this character; the
//     primary key on (session_id, character_id) is the serialization point,
//     so two racing requests cannot both pass this step.
//  3. Count the found-set. If it equals total, write finished_at and
//     elapsed_seconds from the session's started_at and purge the guess
//     rows, which are no longer needed once completion is durable.
//
// Transactions start with the write lock held (see db.Open's _txlock), so
// the completion read is consistent with the insert: exactly one racing
// request can observe the transition to complete; the rest see
// FindDuplicate.
func (s *Store) RecordFind(ctx context.Context, sessionID, characterID string, total int) (FindOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return FindDuplicate, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var started string
	var elapsed sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT started_at, elapsed_seconds FROM sessions WHERE id=?`,
		sessionID).Scan(&started, &elapsed)
	if err == sql.ErrNoRows {
		return FindDuplicate, ErrNotFound
	}
	if err != nil {
		return FindDuplicate, fmt.Errorf("read session: %w", err)
	}
	if elapsed.Valid {
		// Already completed by a racing request.
		return FindDuplicate, tx.Commit()
	}
	startedAt, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return FindDuplicate, fmt.Errorf("parse started_at %q: %w", started, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO guesses (session_id, character_id) VALUES (?,?)`,
		sessionID, characterID)
	if err != nil {
		return FindDuplicate, fmt.Errorf("insert guess: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return FindDuplicate, err
	}
	if inserted == 0 {
		return FindDuplicate, tx.Commit()
	}

	var found int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM guesses WHERE session_id=?`, sessionID).Scan(&found); err != nil {
		return FindDuplicate, fmt.Errorf("count guesses: %w", err)
	}
	if found < total {
		return FindRecorded, tx.Commit()
	}

	now := time.Now().UTC()
	secs := int64(now.Sub(startedAt) / time.Second)
	if secs < 0 {
		secs = 0
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET finished_at=?, elapsed_seconds=?
		 WHERE id=? AND elapsed_seconds IS NULL`,
		now.Format(time.RFC3339), secs, sessionID); err != nil {
		return FindDuplicate, fmt.Errorf("finish session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM guesses WHERE session_id=?`, sessionID); err != nil {
		return FindDuplicate, fmt.Errorf("clear guesses: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return FindDuplicate, fmt.Errorf("commit: %w", err)
	}
	return FindCompleted, nil
}

// ClaimName attaches a display name to a completed, still-unnamed session.
// The guarded UPDATE makes the transition race-safe: a concurrent claim that
// lost the race sees zero rows affected.
func (s *Store) ClaimName(ctx context.Context, sessionID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET name=?
		 WHERE id=? AND elapsed_seconds IS NOT NULL AND name IS NULL`,
		name, sessionID)
	if err != nil {
		return fmt.Errorf("claim name: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// The caller already verified the session exists and is completed,
		// so the only way to land here is a racing claim.
		return ErrNameAlreadySet
	}
	return nil
}

// Reap deletes every unnamed session older than ttl, guess rows cascading
// with them. Named sessions are permanent leaderboard entries and are never
// touched. Safe to run concurrently: a row deleted twice is a no-op.
func (s *Store) Reap(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE name IS NULL AND started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reap sessions: %w", err)
	}
	return res.RowsAffected()
}

// Entry is one ranked leaderboard line.
type Entry struct {
	Rank           int    `json:"rank"`
	Username       string `json:"username"`
	ElapsedSeconds int64  `json:"totalTimeInSeconds"`
}

// Leaderboard returns the named sessions of a map ranked ascending by
// elapsed time. Ties share a rank and consume ranking positions (standard
// competition ranking: two tied at 1 are followed by 3).
func (s *Store) Leaderboard(ctx context.Context, mapID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, elapsed_seconds
		 FROM sessions
		 WHERE map_id=? AND name IS NOT NULL
		 ORDER BY elapsed_seconds ASC, finished_at ASC`, mapID)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Username, &e.ElapsedSeconds); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if i > 0 && out[i].ElapsedSeconds == out[i-1].ElapsedSeconds {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}
