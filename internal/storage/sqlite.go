// Package storage provides SQLite-based persistence for match results and
// local high scores. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/multiplayer"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// ScoreEntry is one local or vs-AI result for the high-score table.
type ScoreEntry struct {
	ID        int64
	Mode      game.Mode
	Player    string
	Score     int
	CreatedAt time.Time
}

// OnlineMatchResult is the stored outcome of a relayed match.
type OnlineMatchResult struct {
	ID          int64
	MatchID     string
	Mode        game.Mode
	Player1Name string
	Player2Name string
	Score1      int
	Score2      int
	WinnerName  string // Empty if cancelled
	EndReason   string // "completed", "forfeit", "cancelled"
	Duration    time.Duration
	CreatedAt   time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
// The special path ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		// Expand ~ to home directory
		if dbPath != "" && dbPath[0] == '~' {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
			}
			dbPath = filepath.Join(home, dbPath[1:])
		}

		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT NOT NULL,
			player TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_scores_top ON scores(mode, score DESC);

		CREATE TABLE IF NOT EXISTS online_matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL,
			player1_name TEXT NOT NULL,
			player2_name TEXT NOT NULL,
			score1 INTEGER NOT NULL DEFAULT 0,
			score2 INTEGER NOT NULL DEFAULT 0,
			winner_name TEXT,
			end_reason TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_online_matches_created ON online_matches(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_online_matches_player1 ON online_matches(player1_name);
		CREATE INDEX IF NOT EXISTS idx_online_matches_player2 ON online_matches(player2_name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveScore records the left player's final score of a local match.
// Returns the ID of the inserted record.
func (s *Store) SaveScore(mode game.Mode, player string, score int) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO scores (mode, player, score) VALUES (?, ?, ?)",
		string(mode), player, score,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// TopScores retrieves the top N scores for a mode, best first.
func (s *Store) TopScores(mode game.Mode, limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, mode, player, score, created_at
		 FROM scores
		 WHERE mode = ?
		 ORDER BY score DESC, id ASC
		 LIMIT ?`,
		string(mode), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query scores: %w", err)
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		var mode string
		var createdAt any
		if err := rows.Scan(&e.ID, &mode, &e.Player, &e.Score, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.Mode = game.Mode(mode)
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// HighScore returns the highest score for a mode, or 0 if none exist.
func (s *Store) HighScore(mode game.Mode) (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow(
		"SELECT MAX(score) FROM scores WHERE mode = ?",
		string(mode),
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}
	if !score.Valid {
		return 0, nil
	}
	return int(score.Int64), nil
}

// SaveOnlineMatch records the result of a relayed match.
// Returns the ID of the inserted record.
func (s *Store) SaveOnlineMatch(result OnlineMatchResult) (int64, error) {
	var winner sql.NullString
	if result.WinnerName != "" {
		winner = sql.NullString{String: result.WinnerName, Valid: true}
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.Exec(
		`INSERT INTO online_matches
		 (match_id, mode, player1_name, player2_name, score1, score2, winner_name, end_reason, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.MatchID,
		string(result.Mode),
		result.Player1Name,
		result.Player2Name,
		result.Score1,
		result.Score2,
		winner,
		result.EndReason,
		result.Duration.Milliseconds(),
		createdAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save online match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

const matchColumns = `id, match_id, mode, player1_name, player2_name,
		score1, score2, winner_name, end_reason, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (OnlineMatchResult, error) {
	var result OnlineMatchResult
	var mode string
	var winner sql.NullString
	var durationMs int64
	var createdAt any

	err := row.Scan(
		&result.ID,
		&result.MatchID,
		&mode,
		&result.Player1Name,
		&result.Player2Name,
		&result.Score1,
		&result.Score2,
		&winner,
		&result.EndReason,
		&durationMs,
		&createdAt,
	)
	if err != nil {
		return result, err
	}

	result.Mode = game.Mode(mode)
	result.WinnerName = winner.String
	result.Duration = time.Duration(durationMs) * time.Millisecond
	result.CreatedAt = parseTime(createdAt)
	return result, nil
}

// OnlineMatchByID retrieves a match by its match ID, or nil if unknown.
func (s *Store) OnlineMatchByID(matchID string) (*OnlineMatchResult, error) {
	result, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+` FROM online_matches WHERE match_id = ?`,
		matchID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query online match: %w", err)
	}
	return &result, nil
}

// RecentOnlineMatches retrieves the most recent matches, newest first.
func (s *Store) RecentOnlineMatches(limit int) ([]OnlineMatchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryMatches(
		`SELECT `+matchColumns+` FROM online_matches
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
}

// PlayerMatchHistory retrieves the matches a player name took part in.
func (s *Store) PlayerMatchHistory(name string, limit int) ([]OnlineMatchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryMatches(
		`SELECT `+matchColumns+` FROM online_matches
		 WHERE player1_name = ? OR player2_name = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		name, name, limit,
	)
}

func (s *Store) queryMatches(query string, args ...any) ([]OnlineMatchResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query online matches: %w", err)
	}
	defer rows.Close()

	var results []OnlineMatchResult
	for rows.Next() {
		result, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return results, nil
}

// MatchStats contains aggregated counts of recorded matches.
type MatchStats struct {
	Total    int
	ByReason map[string]int
	ByMode   map[string]int
}

// GetMatchStats aggregates every recorded match.
func (s *Store) GetMatchStats() (*MatchStats, error) {
	rows, err := s.db.Query(
		`SELECT mode, end_reason, COUNT(*)
		 FROM online_matches
		 GROUP BY mode, end_reason`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get match stats: %w", err)
	}
	defer rows.Close()

	stats := &MatchStats{ByReason: map[string]int{}, ByMode: map[string]int{}}
	for rows.Next() {
		var mode, reason string
		var n int
		if err := rows.Scan(&mode, &reason, &n); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		stats.Total += n
		stats.ByReason[reason] += n
		stats.ByMode[mode] += n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return stats, nil
}

// SaveMatchResult implements multiplayer.MatchResultSaver.
// This adapter allows the coordinator to save match results without direct storage dependency.
func (s *Store) SaveMatchResult(data multiplayer.MatchResultData) error {
	_, err := s.SaveOnlineMatch(OnlineMatchResult{
		MatchID:     data.MatchID,
		Mode:        data.Mode,
		Player1Name: data.Player1Name,
		Player2Name: data.Player2Name,
		Score1:      data.Score1,
		Score2:      data.Score2,
		WinnerName:  data.WinnerName,
		EndReason:   data.EndReason,
		Duration:    data.Duration,
		CreatedAt:   data.EndedAt,
	})
	return err
}

// Ensure Store implements MatchResultSaver
var _ multiplayer.MatchResultSaver = (*Store)(nil)

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(sqliteTimeLayout, v); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
