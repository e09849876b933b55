package devserver

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE files (
		id              INTEGER PRIMARY KEY,
		uid             TEXT NOT NULL,
		name            TEXT NOT NULL,
		sha1            TEXT NOT NULL,
		size            INTEGER NOT NULL,
		file_created_at TEXT NOT NULL
	)`,
	`CREATE INDEX files_uid ON files (uid)`,
}

// searchClause mirrors the admin listing search: exact uid or id, or a
// substring of the sha1 or the name.
const searchClause = ` WHERE (uid = ? OR CAST(id AS TEXT) = ? OR instr(sha1, ?) > 0 OR instr(name, ?) > 0)`

func searchArgs(query string) []any {
	return []any{query, query, query, query}
}

var (
	nameStems = []string{"invoice", "lesson", "report", "archive", "scan", "recording", "summary", "draft"}
	nameExts  = []string{"pdf", "mp3", "mp4", "docx", "zip", "txt"}
	seedEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
)

// store is the SQLite-backed file table.
type store struct {
	db *sql.DB
}

func openStore(ctx context.Context) (*store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("devserver: open db: %w", err)
	}
	// each connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("devserver: create schema: %w", err)
		}
	}
	return &store{db: db}, nil
}

// seed inserts n synthetic files with ids 1..n.
func (s *store) seed(ctx context.Context, n int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("devserver: seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (id, uid, name, sha1, size, file_created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("devserver: seed: %w", err)
	}
	defer stmt.Close()

	for i := 1; i <= n; i++ {
		name := SeedName(i)
		sum := sha1.Sum([]byte(name))
		created := seedEpoch.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
		if _, err := stmt.ExecContext(ctx, i, SeedUID(i), name, hex.EncodeToString(sum[:]), 1024*i, created); err != nil {
			return fmt.Errorf("devserver: seed file %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// SeedName returns the name of the i-th seeded file.
func SeedName(i int) string {
	stem := nameStems[i%len(nameStems)]
	ext := nameExts[i%len(nameExts)]
	return fmt.Sprintf("%s-%05d.%s", stem, i, ext)
}

// SeedUID returns the uid of the i-th seeded file: 8 lowercase hex digits.
func SeedUID(i int) string {
	h := xxhash.Sum64String("file:" + strconv.Itoa(i))
	return fmt.Sprintf("%08x", uint32(h))
}

func (s *store) count(ctx context.Context, query string) (int, error) {
	q := `SELECT COUNT(*) FROM files`
	var args []any
	if query != "" {
		q += searchClause
		args = searchArgs(query)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *store) list(ctx context.Context, query string, offset, limit int) ([]map[string]any, error) {
	q := `SELECT id, uid, name, sha1, size, file_created_at FROM files`
	var args []any
	if query != "" {
		q += searchClause
		args = searchArgs(query)
	}
	q += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := make([]map[string]any, 0, limit)
	for rows.Next() {
		var (
			id        int64
			uid       string
			name      string
			sum       string
			size      int64
			createdAt string
		)
		if err := rows.Scan(&id, &uid, &name, &sum, &size, &createdAt); err != nil {
			return nil, err
		}
		files = append(files, map[string]any{
			"id":              id,
			"uid":             uid,
			"name":            name,
			"sha1":            sum,
			"size":            size,
			"file_created_at": createdAt,
		})
	}
	return files, rows.Err()
}

func (s *store) close() error {
	return s.db.Close()
}
