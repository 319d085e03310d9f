package vm

import (
	"bufio"
	"io"

	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Interpreter: direct dispatch over IR
// ---------------------------------------------------------------------------

// Status is the result of a dispatch step.
type Status int

const (
	StatusRunning    Status = iota // more instructions to execute
	StatusHalted                   // program terminated successfully
	StatusBreakpoint               // yielded at a breakpoint; Advance to resume
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusHalted:
		return "halted"
	case StatusBreakpoint:
		return "breakpoint"
	}
	return "unknown"
}

// EOFMode selects what `in` does when the reader is exhausted.
type EOFMode int

const (
	// EOFNoChange leaves the target cell unchanged.
	EOFNoChange EOFMode = iota
	// EOFSubstitute stores a fixed byte.
	EOFSubstitute
)

// Options configures an interpreter.
type Options struct {
	EOFMode EOFMode
	EOFByte byte // stored on EOF when EOFMode is EOFSubstitute
}

// Interpreter executes a program against a tape. It holds the program's
// column arrays and the program counter; the tape, reader and writer are
// caller-provided (the reader and writer may block).
type Interpreter struct {
	ops     []ir.Opcode
	values  []byte
	offsets []uint32
	extras  []uint32

	pc   uint32
	tape Tape
	in   *bufio.Reader
	out  io.Writer
	opts Options
}

// New builds an interpreter over prog. The tape is owned by the caller and
// must be released by it.
func New(prog *ir.Program, tape Tape, in io.Reader, out io.Writer, opts Options) *Interpreter {
	return &Interpreter{
		ops:     prog.Ops,
		values:  prog.Values,
		offsets: prog.Offsets,
		extras:  prog.Extras,
		tape:    tape,
		in:      bufio.NewReader(in),
		out:     out,
		opts:    opts,
	}
}

// PC returns the current program counter.
func (it *Interpreter) PC() uint32 {
	return it.pc
}

// Advance moves past the current instruction without executing it. Hosts
// call this to resume after a breakpoint.
func (it *Interpreter) Advance() {
	it.pc++
}

// Step executes one instruction. Reader and writer errors are surfaced
// unchanged and abort execution.
func (it *Interpreter) Step() (Status, error) {
	pc := it.pc
	switch it.ops[pc] {
	case ir.OpHalt:
		return StatusHalted, nil

	case ir.OpBreakpoint:
		return StatusBreakpoint, nil

	case ir.OpSet:
		it.tape.Set(it.offsets[pc], it.values[pc])

	case ir.OpAdd:
		it.tape.Add(it.offsets[pc], it.values[pc])

	case ir.OpAddMul:
		src := it.tape.Get(it.offsets[pc] + it.extras[pc])
		it.tape.Add(it.offsets[pc], it.values[pc]*src)

	case ir.OpMove:
		it.tape.Move(it.extras[pc])

	case ir.OpSeek:
		it.tape.Seek(it.offsets[pc], it.values[pc], it.extras[pc])

	case ir.OpIn:
		b, err := it.in.ReadByte()
		switch {
		case err == io.EOF:
			if it.opts.EOFMode == EOFSubstitute {
				it.tape.Set(it.offsets[pc], it.opts.EOFByte)
			}
		case err != nil:
			return StatusRunning, err
		default:
			it.tape.Set(it.offsets[pc], b)
		}

	case ir.OpOut:
		if err := it.writeByte(it.tape.Get(it.offsets[pc])); err != nil {
			return StatusRunning, err
		}

	case ir.OpOutValue:
		if err := it.writeByte(it.values[pc]); err != nil {
			return StatusRunning, err
		}

	case ir.OpLoopStart:
		if it.tape.Get(0) == 0 {
			it.pc = pc + it.extras[pc] + 1
			return StatusRunning, nil
		}

	case ir.OpLoopEnd:
		// Combined back-edge test: a nonzero cell jumps straight to the loop
		// body, skipping the redundant re-check at loop_start.
		if it.tape.Get(0) != 0 {
			it.pc = pc + it.extras[pc] + 1
			return StatusRunning, nil
		}
	}
	it.pc = pc + 1
	return StatusRunning, nil
}

// Run steps until the program halts, hits a breakpoint, or fails.
func (it *Interpreter) Run() (Status, error) {
	for {
		st, err := it.Step()
		if err != nil {
			return st, err
		}
		if st != StatusRunning {
			return st, nil
		}
	}
}

func (it *Interpreter) writeByte(b byte) error {
	_, err := it.out.Write([]byte{b})
	return err
}
