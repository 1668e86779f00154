// apps/duel-server/db.go
//
// Database helpers for the duel server.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys).
//   - Recording finished duels and serving the recent-results endpoint.
//
// Live sessions are memory-only; the database sees a duel only once it has
// a winner.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordle/apps/duel-server/internal/duel"
)

// openDB opens (and creates if missing) a SQLite database file.
// Ensures the parent directory exists for relative DSNs (e.g. ./data/duels.db),
// configures busy timeout and WAL journaling, and enforces foreign keys.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// initSchema creates the duel_results table. The duel server owns a single
// table, so the schema lives inline rather than in a migrations directory.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS duel_results (
            game_id         TEXT PRIMARY KEY,
            winner_id       TEXT NOT NULL,
            loser_id        TEXT NOT NULL,
            words_to_remove INTEGER NOT NULL,
            guess_limit     INTEGER NOT NULL,
            turn_time_limit INTEGER NOT NULL,
            hard_mode       INTEGER NOT NULL,
            started_at      TEXT NOT NULL,
            finished_at     TEXT NOT NULL
        );`)
	return err
}

// insertDuelResult records one finished duel. Best effort: a failed insert
// is logged and the game result stands.
func insertDuelResult(db *sql.DB, r duel.Result) {
	_, err := db.Exec(`
        INSERT OR IGNORE INTO duel_results
            (game_id, winner_id, loser_id, words_to_remove, guess_limit,
             turn_time_limit, hard_mode, started_at, finished_at)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		r.GameID, r.WinnerID, r.LoserID,
		r.Settings.WordsToRemove, r.Settings.GuessLimit,
		r.Settings.TurnTimeLimitSeconds, boolToInt(r.Settings.HardMode),
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		log.Warn().Err(err).Str("gameId", r.GameID).Msg("insert duel result")
	}
}

// duelRow is the JSON shape of one recent result.
type duelRow struct {
	GameID     string        `json:"gameId"`
	WinnerID   string        `json:"winnerId"`
	Settings   duel.Settings `json:"settings"`
	StartedAt  string        `json:"startedAt"`
	FinishedAt string        `json:"finishedAt"`
}

// recentDuels fetches the latest finished duels, newest first.
func recentDuels(ctx context.Context, db *sql.DB, limit int) ([]duelRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
        SELECT game_id, winner_id, words_to_remove, guess_limit,
               turn_time_limit, hard_mode, started_at, finished_at
        FROM duel_results ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []duelRow{}
	for rows.Next() {
		var r duelRow
		var hard int
		if err := rows.Scan(&r.GameID, &r.WinnerID,
			&r.Settings.WordsToRemove, &r.Settings.GuessLimit,
			&r.Settings.TurnTimeLimitSeconds, &hard,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Settings.HardMode = hard != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// recentDuelsHandler serves GET /duels/recent.
func recentDuelsHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := recentDuels(r.Context(), db, 50)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
