package optimize

import (
	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Fixed-point driver
// ---------------------------------------------------------------------------

// Level selects how hard the optimizer works.
type Level int

const (
	// LevelNone applies no passes.
	LevelNone Level = iota
	// LevelNormal iterates condense and loop recognition to a fixed point.
	LevelNormal
)

// ParseLevel maps a level name to its value.
func ParseLevel(name string) (Level, bool) {
	switch name {
	case "none":
		return LevelNone, true
	case "normal":
		return LevelNormal, true
	}
	return 0, false
}

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelNormal:
		return "normal"
	}
	return "unknown"
}

// DefaultMaxIterations bounds the pass cycle when the caller does not.
const DefaultMaxIterations = 16

// Config configures the driver.
type Config struct {
	Level         Level
	MaxIterations int // 0 means DefaultMaxIterations
}

// Optimize applies the configured passes until the content hash stops
// changing or the iteration cap is reached. The input is not modified; the
// result may alias it when no passes run.
func Optimize(p *ir.Program, cfg Config) *ir.Program {
	if cfg.Level == LevelNone {
		return p
	}
	max := cfg.MaxIterations
	if max <= 0 {
		max = DefaultMaxIterations
	}
	cur := p
	for i := 0; i < max; i++ {
		before := cur.Hash()
		cur = RecognizeLoops(Condense(cur))
		if cur.Hash() == before {
			break
		}
	}
	return cur
}
