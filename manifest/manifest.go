// Package manifest handles brio.toml run configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a brio.toml configuration.
type Manifest struct {
	Optimize Optimize `toml:"optimize"`
	Run      Run      `toml:"run"`
	Dump     Dump     `toml:"dump"`
	Cache    Cache    `toml:"cache"`

	// Dir is the directory containing the brio.toml file (set at load time).
	Dir string `toml:"-"`
}

// Optimize configures the pass driver.
type Optimize struct {
	Level         string `toml:"level"`          // none | normal
	MaxIterations int    `toml:"max-iterations"` // 0 = default
}

// Run configures execution.
type Run struct {
	Backend string `toml:"backend"`  // paged | mapped
	JIT     bool   `toml:"jit"`      // use native code when supported
	EOFMode string `toml:"eof-mode"` // none | substitute
	EOFByte int    `toml:"eof-byte"` // stored on EOF in substitute mode
	Bang    bool   `toml:"bang"`     // split source at the first '!'
}

// Dump configures bytecode-text output.
type Dump struct {
	Indent       string `toml:"indent"`
	ShowInternal bool   `toml:"show-internal"`
}

// Cache configures the optimized-program cache.
type Cache struct {
	Path       string `toml:"path"` // empty disables the cache
	MemEntries int    `toml:"memory-entries"`
}

// Default returns the configuration used when no brio.toml exists.
func Default() *Manifest {
	return &Manifest{
		Optimize: Optimize{Level: "normal"},
		Run:      Run{Backend: "paged", EOFMode: "none"},
	}
}

// Load parses a brio.toml file from the given directory. A missing file
// yields the defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "brio.toml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m := Default()
		m.Dir = dir
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (m *Manifest) validate() error {
	switch m.Optimize.Level {
	case "", "none", "normal":
	default:
		return fmt.Errorf("unknown optimize level %q", m.Optimize.Level)
	}
	switch m.Run.Backend {
	case "", "paged", "mapped":
	default:
		return fmt.Errorf("unknown tape backend %q", m.Run.Backend)
	}
	switch m.Run.EOFMode {
	case "", "none", "substitute":
	default:
		return fmt.Errorf("unknown eof mode %q", m.Run.EOFMode)
	}
	if m.Run.EOFByte < 0 || m.Run.EOFByte > 255 {
		return fmt.Errorf("eof-byte %d out of range", m.Run.EOFByte)
	}
	return nil
}
