package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/skypro1111/wordclip-service/internal/transcript"
)

// ErrNotFound is returned when no transcript is cached for a hash
var ErrNotFound = errors.New("transcript not found")

const schema = `
	PRAGMA busy_timeout       = 10000;
	PRAGMA journal_mode       = WAL;
	PRAGMA journal_size_limit = 200000000;
	PRAGMA synchronous        = NORMAL;
	PRAGMA foreign_keys       = ON;
	PRAGMA temp_store         = MEMORY;
	PRAGMA cache_size         = -16000;

	create table if not exists recordings (
		blake3_hash      text primary key not null,
		name             text not null,
		sample_rate      integer not null,
		channels         integer not null,
		duration_seconds real not null,
		created_at       integer not null
	);

	create table if not exists words (
		blake3_hash text not null references recordings(blake3_hash) on delete cascade,
		position    integer not null,
		text        text not null,
		start_time  real not null,
		end_time    real not null,
		primary key (blake3_hash, position)
	);`

// Recording describes an uploaded file whose transcript is cached
type Recording struct {
	Hash            string    `json:"hash"`
	Name            string    `json:"name"`
	SampleRate      int       `json:"sample_rate"`
	Channels        int       `json:"channels"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// SQLiteStore is the transcript cache
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory cache.
func Open(path string) (*SQLiteStore, error) {
	// Connection-scoped settings go in the DSN so every pooled connection has them
	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=10000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}

	if path == ":memory:" {
		// Every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetTranscript returns the cached recording and its words, in transcript
// order. ErrNotFound is returned for an unknown hash.
func (s *SQLiteStore) GetTranscript(ctx context.Context, hash string) (Recording, []transcript.Word, error) {
	rec := Recording{Hash: hash}
	var createdAt int64

	err := s.db.
		QueryRowContext(
			ctx,
			"select name, sample_rate, channels, duration_seconds, created_at from recordings where blake3_hash = $1",
			hash,
		).
		Scan(&rec.Name, &rec.SampleRate, &rec.Channels, &rec.DurationSeconds, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, nil, fmt.Errorf("get recording %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return rec, nil, fmt.Errorf("get recording %s: %w", hash, err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()

	rows, err := s.db.QueryContext(
		ctx,
		"select text, start_time, end_time from words where blake3_hash = $1 order by position",
		hash,
	)
	if err != nil {
		return rec, nil, fmt.Errorf("get words for %s: %w", hash, err)
	}
	defer rows.Close()

	words := make([]transcript.Word, 0)
	for rows.Next() {
		var w transcript.Word
		if err := rows.Scan(&w.Text, &w.StartTime, &w.EndTime); err != nil {
			return rec, nil, fmt.Errorf("scanning word: %w", err)
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return rec, nil, fmt.Errorf("reading words for %s: %w", hash, err)
	}

	return rec, words, nil
}

// SaveTranscript stores a recording and its words in one transaction,
// replacing anything cached under the same hash.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, rec Recording, words []transcript.Word) (err error) {
	if rec.Hash == "" {
		return errors.New("saving transcript: empty recording hash")
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving transcript: begin trx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "delete from words where blake3_hash = $1", rec.Hash); err != nil {
		return fmt.Errorf("clearing old words: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		insert into recordings (blake3_hash, name, sample_rate, channels, duration_seconds, created_at)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (blake3_hash) do update set
			name = excluded.name,
			sample_rate = excluded.sample_rate,
			channels = excluded.channels,
			duration_seconds = excluded.duration_seconds,
			created_at = excluded.created_at`,
		rec.Hash, rec.Name, rec.SampleRate, rec.Channels, rec.DurationSeconds, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("persisting recording: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"insert into words (blake3_hash, position, text, start_time, end_time) values ($1, $2, $3, $4, $5)")
	if err != nil {
		return fmt.Errorf("preparing word insert: %w", err)
	}
	defer stmt.Close()

	for i, w := range words {
		if _, err = stmt.ExecContext(ctx, rec.Hash, i, w.Text, w.StartTime, w.EndTime); err != nil {
			return fmt.Errorf("inserting word %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("saving transcript: committing: %w", err)
	}

	return nil
}

// DeleteTranscript drops a cached transcript, or returns ErrNotFound
func (s *SQLiteStore) DeleteTranscript(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, "delete from recordings where blake3_hash = $1", hash)
	if err != nil {
		return fmt.Errorf("deleting recording %s: %w", hash, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting recording %s: %w", hash, err)
	}
	if n == 0 {
		return fmt.Errorf("recording %s: %w", hash, ErrNotFound)
	}

	return nil
}

// Count returns the number of cached recordings
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "select count(*) from recordings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting recordings: %w", err)
	}

	return n, nil
}
