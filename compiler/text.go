package compiler

import (
	"strconv"
	"strings"

	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Bytecode-text parser
// ---------------------------------------------------------------------------

// ParseText reads the bytecode-text IR format: one instruction per line,
//
//	<name> [value] [, extra] [@ offset]   # comment
//
// Whitespace is insignificant between tokens. Loop-arm extras are ignored in
// source and reconstructed by bracket linking. The returned program ends in
// halt (one is appended if the source lacks it).
func ParseText(source []byte) (*ir.Program, error) {
	prog := ir.NewProgram(64)
	var stack []int

	lines := strings.Split(string(source), "\n")
	for ln, raw := range lines {
		lineno := ln + 1
		line := raw
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name := line
		rest := ""
		if i := strings.IndexAny(line, " \t,@"); i >= 0 {
			name = line[:i]
			rest = line[i:]
		}
		op, ok := ir.OpcodeByName(name)
		if !ok {
			return nil, parseErrorLine(lineno, "unknown opcode %q", name)
		}

		inst, err := parseArgs(op, rest, lineno)
		if err != nil {
			return nil, err
		}

		switch op {
		case ir.OpLoopStart:
			stack = append(stack, prog.Append(inst))
		case ir.OpLoopEnd:
			if len(stack) == 0 {
				return nil, parseErrorLine(lineno, "unmatched loop_end")
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			end := prog.Append(inst)
			prog.LinkLoop(start, end)
		default:
			prog.Append(inst)
		}
	}
	if len(stack) != 0 {
		return nil, parseErrorLine(len(lines), "unmatched loop_start")
	}
	if prog.Len() == 0 || prog.Ops[prog.Len()-1] != ir.OpHalt {
		prog.Append(ir.Instruction{Op: ir.OpHalt})
	}
	return prog, nil
}

// parseArgs consumes the argument portion of a line in grammar order:
// optional value, optional ", extra", optional "@ offset".
func parseArgs(op ir.Opcode, rest string, lineno int) (ir.Instruction, error) {
	info := op.Info()
	inst := ir.Instruction{Op: op}
	s := newArgScanner(rest)

	if n, ok, err := s.tryInt(); err != nil {
		return inst, parseErrorLine(lineno, "%s: malformed integer", info.Name)
	} else if ok {
		if !info.HasValue {
			return inst, parseErrorLine(lineno, "%s takes no value", info.Name)
		}
		inst.Value = byte(n)
	}

	if s.tryByte(',') {
		n, ok, err := s.tryInt()
		if err != nil || !ok {
			return inst, parseErrorLine(lineno, "%s: malformed integer after ','", info.Name)
		}
		if !info.HasExtra {
			return inst, parseErrorLine(lineno, "%s takes no extra", info.Name)
		}
		if !info.Internal {
			inst.Extra = uint32(n)
		}
	}

	if s.tryByte('@') {
		n, ok, err := s.tryInt()
		if err != nil || !ok {
			return inst, parseErrorLine(lineno, "%s: malformed integer after '@'", info.Name)
		}
		if !info.HasOffset {
			return inst, parseErrorLine(lineno, "%s takes no offset", info.Name)
		}
		inst.Offset = uint32(n)
	}

	if !s.done() {
		return inst, parseErrorLine(lineno, "%s: trailing junk %q", info.Name, s.rest())
	}
	return inst, nil
}

// argScanner walks the argument portion of a line, skipping whitespace.
type argScanner struct {
	s   string
	pos int
}

func newArgScanner(s string) *argScanner {
	return &argScanner{s: s}
}

func (a *argScanner) skipSpace() {
	for a.pos < len(a.s) && (a.s[a.pos] == ' ' || a.s[a.pos] == '\t') {
		a.pos++
	}
}

func (a *argScanner) done() bool {
	a.skipSpace()
	return a.pos >= len(a.s)
}

func (a *argScanner) rest() string {
	return a.s[a.pos:]
}

// tryByte consumes c if it is next.
func (a *argScanner) tryByte(c byte) bool {
	a.skipSpace()
	if a.pos < len(a.s) && a.s[a.pos] == c {
		a.pos++
		return true
	}
	return false
}

// tryInt consumes a decimal integer, with wrapping conversion left to the
// caller. Returns ok=false if the next token is not an integer at all.
func (a *argScanner) tryInt() (int64, bool, error) {
	a.skipSpace()
	start := a.pos
	if a.pos < len(a.s) && (a.s[a.pos] == '-' || a.s[a.pos] == '+') {
		a.pos++
	}
	digits := 0
	for a.pos < len(a.s) && a.s[a.pos] >= '0' && a.s[a.pos] <= '9' {
		a.pos++
		digits++
	}
	if digits == 0 {
		a.pos = start
		return 0, false, nil
	}
	n, err := strconv.ParseInt(a.s[start:a.pos], 10, 64)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}
