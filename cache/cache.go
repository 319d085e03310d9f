// Package cache stores optimized programs keyed by the content hash of
// their unoptimized form: a bounded in-memory layer over a SQLite file.
package cache

import (
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/brio/ir"
)

var log = commonlog.GetLogger("brio.cache")

// DefaultMemEntries bounds the in-memory layer when the caller does not.
const DefaultMemEntries = 128

// Store is a two-tier program cache. Keys are 32-byte content hashes;
// values are CBOR images of the optimized program.
type Store struct {
	db  *sql.DB
	mem *lru.Cache[[32]byte, []byte]
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, memEntries int) (*Store, error) {
	if memEntries <= 0 {
		memEntries = DefaultMemEntries
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash BLOB PRIMARY KEY,
		image BLOB NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: creating schema: %w", err)
	}
	mem, err := lru.New[[32]byte, []byte](memEntries)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: lru: %w", err)
	}
	return &Store{db: db, mem: mem}, nil
}

// Get returns the cached optimized program for hash, or ok=false on a miss.
// Corrupt rows are deleted and reported as misses.
func (s *Store) Get(hash [32]byte) (*ir.Program, bool) {
	image, ok := s.mem.Get(hash)
	if !ok {
		row := s.db.QueryRow("SELECT image FROM programs WHERE hash = ?", hash[:])
		if err := row.Scan(&image); err != nil {
			return nil, false
		}
		s.mem.Add(hash, image)
	}
	prog, err := ir.DecodeImage(image)
	if err != nil {
		log.Warningf("dropping corrupt cache row %x: %v", hash[:8], err)
		s.mem.Remove(hash)
		s.db.Exec("DELETE FROM programs WHERE hash = ?", hash[:])
		return nil, false
	}
	return prog, true
}

// Put stores the optimized program under hash.
func (s *Store) Put(hash [32]byte, prog *ir.Program) error {
	image, err := ir.EncodeImage(prog)
	if err != nil {
		return fmt.Errorf("cache: encoding program: %w", err)
	}
	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, image) VALUES (?, ?)",
		hash[:], image); err != nil {
		return fmt.Errorf("cache: storing program: %w", err)
	}
	s.mem.Add(hash, image)
	log.Debugf("cached program %x (%d bytes)", hash[:8], len(image))
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
