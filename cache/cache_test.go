package cache

import (
	"path/filepath"
	"testing"

	"github.com/chazu/brio/compiler"
	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Program cache tests
// ---------------------------------------------------------------------------

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "brio-cache.db"), 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(t *testing.T) *ir.Program {
	t.Helper()
	p, err := compiler.ParseBrainfuck([]byte("++[>+<-]>."))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func TestPutGet(t *testing.T) {
	s := open(t)
	p := sample(t)
	key := p.Hash()

	if _, ok := s.Get(key); ok {
		t.Fatalf("Get hit on an empty store")
	}
	if err := s.Put(key, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get(key)
	if !ok {
		t.Fatalf("Get missed after Put")
	}
	if !p.Equal(got) {
		t.Errorf("cached program differs:\n%s\nvs\n%s", p, got)
	}
}

func TestGetSurvivesMemoryEviction(t *testing.T) {
	s := open(t)
	p := sample(t)
	key := p.Hash()
	if err := s.Put(key, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.mem.Purge()

	got, ok := s.Get(key)
	if !ok {
		t.Fatalf("Get missed after memory eviction")
	}
	if !p.Equal(got) {
		t.Errorf("disk row decoded to a different program")
	}
}

func TestCorruptRowIsAMiss(t *testing.T) {
	s := open(t)
	key := sample(t).Hash()
	if _, err := s.db.Exec(
		"INSERT INTO programs (hash, image) VALUES (?, ?)",
		key[:], []byte("not cbor")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, ok := s.Get(key); ok {
		t.Fatalf("Get returned a program from a corrupt row")
	}
	// The corrupt row is gone.
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("corrupt row survived: %d rows", n)
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brio-cache.db")
	p := sample(t)
	key := p.Hash()

	s, err := Open(path, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(key, p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s.Close()

	s2, err := Open(path, 4)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok := s2.Get(key); !ok {
		t.Errorf("program lost across reopen")
	}
}
