// Package indexdb maintains a queryable archive index: one row per finished
// game. The record files are the source of truth; this index exists so the
// control plane can list and look up archived games without scanning the
// record directory.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"terrafront.io/internal/protocol"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// GameRow is one archived game in the index.
type GameRow struct {
	GameID      string
	GameType    string
	Difficulty  string
	MaxPlayers  int
	Bots        int
	Players     int
	Winner      string
	StartedAt   int64
	EndedAt     int64
	Turns       int
	HashSamples int
	RecordPath  string
	RecordedAt  string
}

type req struct {
	row  GameRow
	done chan struct{} // non-nil marks a flush request
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 256),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			game_id TEXT PRIMARY KEY,
			game_type TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			max_players INTEGER NOT NULL,
			bots INTEGER NOT NULL,
			players INTEGER NOT NULL,
			winner TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			turns INTEGER NOT NULL,
			hash_samples INTEGER NOT NULL,
			record_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_games_ended_at ON games(ended_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordGame enqueues a finished game for indexing. Writes happen on a
// single writer goroutine so the game loops never block on sqlite.
func (s *SQLiteIndex) RecordGame(rec protocol.GameRecord, recordPath string) {
	if s == nil || s.closed.Load() {
		return
	}
	samples := 0
	for _, t := range rec.Turns {
		if t.Hash != "" {
			samples++
		}
	}
	row := GameRow{
		GameID:      rec.Info.GameID,
		GameType:    rec.Info.Config.GameType,
		Difficulty:  rec.Info.Config.Difficulty,
		MaxPlayers:  rec.Info.Config.MaxPlayers,
		Bots:        rec.Info.Config.NumBots,
		Players:     len(rec.Info.Players),
		Winner:      rec.Info.Winner,
		StartedAt:   rec.Info.StartedAt,
		EndedAt:     rec.Info.EndedAt,
		Turns:       len(rec.Turns),
		HashSamples: samples,
		RecordPath:  recordPath,
		RecordedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{row: row}:
	default:
		// Drop if the indexer falls behind; record files remain the source
		// of truth.
	}
}

// Flush waits until every row enqueued before the call has been written.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{done: done}
	<-done
}

func (s *SQLiteIndex) loop() {
	insert, err := s.db.Prepare(`INSERT OR REPLACE INTO games
		(game_id,game_type,difficulty,max_players,bots,players,winner,started_at,ended_at,turns,hash_samples,record_path,recorded_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		for r := range s.ch {
			if r.done != nil {
				close(r.done)
			}
		}
		return
	}
	defer insert.Close()

	for r := range s.ch {
		if r.done != nil {
			close(r.done)
			continue
		}
		if _, err := insert.Exec(
			r.row.GameID, r.row.GameType, r.row.Difficulty,
			r.row.MaxPlayers, r.row.Bots, r.row.Players, r.row.Winner,
			r.row.StartedAt, r.row.EndedAt, r.row.Turns, r.row.HashSamples,
			r.row.RecordPath, r.row.RecordedAt,
		); err != nil {
			// Nothing sensible to do from the writer goroutine; the record
			// file still exists on disk.
			continue
		}
	}
}

// Game looks up one archived game.
func (s *SQLiteIndex) Game(gameID string) (GameRow, bool, error) {
	var row GameRow
	err := s.db.QueryRow(`SELECT game_id,game_type,difficulty,max_players,bots,players,winner,started_at,ended_at,turns,hash_samples,record_path,recorded_at
		FROM games WHERE game_id = ?`, gameID).Scan(
		&row.GameID, &row.GameType, &row.Difficulty, &row.MaxPlayers,
		&row.Bots, &row.Players, &row.Winner, &row.StartedAt, &row.EndedAt,
		&row.Turns, &row.HashSamples, &row.RecordPath, &row.RecordedAt,
	)
	if err == sql.ErrNoRows {
		return row, false, nil
	}
	if err != nil {
		return row, false, err
	}
	return row, true, nil
}

// RecentGames lists archived games newest first.
func (s *SQLiteIndex) RecentGames(limit int) ([]GameRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT game_id,game_type,difficulty,max_players,bots,players,winner,started_at,ended_at,turns,hash_samples,record_path,recorded_at
		FROM games ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameRow
	for rows.Next() {
		var row GameRow
		if err := rows.Scan(
			&row.GameID, &row.GameType, &row.Difficulty, &row.MaxPlayers,
			&row.Bots, &row.Players, &row.Winner, &row.StartedAt, &row.EndedAt,
			&row.Turns, &row.HashSamples, &row.RecordPath, &row.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
