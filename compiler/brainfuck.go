package compiler

import (
	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Brainfuck parser
// ---------------------------------------------------------------------------

// The eight canonical commands plus '#' (breakpoint) are significant; every
// other byte is commentary. Runs of +- and <> are fused into single add/move
// instructions as they are read.

// pendKind is the state of the parser's single pending operation.
type pendKind int

const (
	pendNone pendKind = iota
	pendAdd
	pendMove
)

type bfParser struct {
	prog  *ir.Program
	stack []int // indices of open loop_starts

	pend     pendKind
	pendAdd  byte
	pendMove uint32
}

// ParseBrainfuck translates Brainfuck source into IR. The returned program
// always ends in halt; unbalanced brackets yield a ParseError.
func ParseBrainfuck(source []byte) (*ir.Program, error) {
	prog, _, err := parseBrainfuck(source, false)
	return prog, err
}

// ParseBrainfuckBang is ParseBrainfuck with the '!' splitting policy enabled:
// the first '!' partitions the source into program text (before) and a static
// input stream (after).
func ParseBrainfuckBang(source []byte) (*ir.Program, []byte, error) {
	return parseBrainfuck(source, true)
}

func parseBrainfuck(source []byte, bang bool) (*ir.Program, []byte, error) {
	p := &bfParser{prog: ir.NewProgram(len(source)/2 + 1)}
	var input []byte
	for i := 0; i < len(source); i++ {
		switch c := source[i]; c {
		case '+':
			p.fuseAdd(1)
		case '-':
			p.fuseAdd(255)
		case '>':
			p.fuseMove(1)
		case '<':
			p.fuseMove(^uint32(0))
		case ',':
			p.flush()
			p.prog.Append(ir.Instruction{Op: ir.OpIn})
		case '.':
			p.flush()
			p.prog.Append(ir.Instruction{Op: ir.OpOut})
		case '#':
			p.flush()
			p.prog.Append(ir.Instruction{Op: ir.OpBreakpoint})
		case '[':
			p.flush()
			p.stack = append(p.stack, p.prog.Append(ir.Instruction{Op: ir.OpLoopStart}))
		case ']':
			p.flush()
			if len(p.stack) == 0 {
				return nil, nil, parseErrorAt(i, "unmatched ']'")
			}
			start := p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			end := p.prog.Append(ir.Instruction{Op: ir.OpLoopEnd})
			p.prog.LinkLoop(start, end)
		case '!':
			if bang {
				input = source[i+1:]
				i = len(source)
			}
		}
	}
	p.flush()
	if len(p.stack) != 0 {
		return nil, nil, parseErrorAt(len(source), "unmatched '['")
	}
	p.prog.Append(ir.Instruction{Op: ir.OpHalt})
	return p.prog, input, nil
}

// fuseAdd extends the pending add, flushing any pending move first.
func (p *bfParser) fuseAdd(v byte) {
	if p.pend != pendAdd {
		p.flush()
		p.pend = pendAdd
	}
	p.pendAdd += v
}

// fuseMove extends the pending move, flushing any pending add first.
func (p *bfParser) fuseMove(d uint32) {
	if p.pend != pendMove {
		p.flush()
		p.pend = pendMove
	}
	p.pendMove += d
}

// flush emits the pending operation, if any. An add that has wrapped to zero
// is dropped.
func (p *bfParser) flush() {
	switch p.pend {
	case pendAdd:
		if p.pendAdd != 0 {
			p.prog.Append(ir.Instruction{Op: ir.OpAdd, Value: p.pendAdd})
		}
	case pendMove:
		p.prog.Append(ir.Instruction{Op: ir.OpMove, Extra: p.pendMove})
	}
	p.pend = pendNone
	p.pendAdd = 0
	p.pendMove = 0
}
