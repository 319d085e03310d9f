package optimize

import (
	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Condense: data-flow pass over pending operations and known values
// ---------------------------------------------------------------------------

// opKind classifies a pending per-offset operation.
type opKind int

const (
	opKnown opKind = iota // cell content inferred; emits nothing when flushed
	opSet                 // pending set
	opAdd                 // pending add
)

type pendingOp struct {
	kind opKind
	val  byte
}

// opMap is an insertion-ordered offset -> pendingOp table. Flush order must
// be deterministic across implementations to preserve IR-hash equality.
type opMap struct {
	keys []uint32
	ops  map[uint32]pendingOp
}

func newOpMap() *opMap {
	return &opMap{ops: make(map[uint32]pendingOp)}
}

func (m *opMap) get(k uint32) (pendingOp, bool) {
	op, ok := m.ops[k]
	return op, ok
}

func (m *opMap) put(k uint32, op pendingOp) {
	if _, ok := m.ops[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.ops[k] = op
}

func (m *opMap) delete(k uint32) {
	if _, ok := m.ops[k]; !ok {
		return
	}
	delete(m.ops, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *opMap) clear() {
	m.keys = m.keys[:0]
	for k := range m.ops {
		delete(m.ops, k)
	}
}

// condenser holds the symbolic state of one pass.
type condenser struct {
	in  *ir.Program
	out *ir.Program

	pendingMove uint32
	ops         *opMap
	// clobbers is the set of offsets disturbed since program start; while
	// non-nil, an offset absent from it and from ops still holds the initial
	// 0. It becomes nil at the first flush.
	clobbers map[uint32]struct{}
	stack    []int // output indices of open loop_starts
}

// Condense walks the program once, folding adjacent operations on the same
// cell, deferring head movement, propagating known values, and deleting
// loops that provably never run. The input is not modified.
func Condense(p *ir.Program) *ir.Program {
	c := &condenser{
		in:       p,
		out:      ir.NewProgram(p.Len()),
		ops:      newOpMap(),
		clobbers: make(map[uint32]struct{}),
	}
	c.run()
	return c.out
}

func (c *condenser) run() {
	for i := 0; i < c.in.Len(); i++ {
		eff := c.pendingMove + c.in.Offsets[i]
		switch c.in.Ops[i] {
		case ir.OpHalt:
			// Pending state has no observable effect past termination.
			c.out.Append(ir.Instruction{Op: ir.OpHalt})
			return

		case ir.OpBreakpoint:
			c.flushOps()
			c.flushMove()
			c.out.Append(ir.Instruction{Op: ir.OpBreakpoint})

		case ir.OpSet:
			v := c.in.Values[i]
			if k, ok := c.knownValue(eff); ok && k == v {
				break
			}
			c.ops.put(eff, pendingOp{opSet, v})

		case ir.OpAdd:
			c.fold(eff, c.in.Values[i])

		case ir.OpAddMul:
			extra := c.in.Extras[i]
			v := c.in.Values[i]
			src := eff + extra
			if k, ok := c.knownValue(src); ok {
				c.fold(eff, v*k)
				break
			}
			c.flushOpAt(eff)
			c.flushOpAt(src)
			if c.clobbers != nil {
				// Both cells now hold values the pass cannot see.
				c.clobbers[eff] = struct{}{}
				c.clobbers[src] = struct{}{}
			}
			c.out.Append(ir.Instruction{Op: ir.OpAddMul, Value: v, Offset: eff, Extra: extra})

		case ir.OpMove:
			c.pendingMove += c.in.Extras[i]

		case ir.OpSeek:
			v := c.in.Values[i]
			step := c.in.Extras[i]
			if k, ok := c.knownValue(eff); ok && k == v {
				// The first check already matches: the seek reduces to its
				// pre-loop displacement, absorbed into the pending move.
				c.pendingMove = eff
				break
			}
			c.flushOps()
			c.out.Append(ir.Instruction{Op: ir.OpSeek, Value: v, Offset: eff, Extra: step})
			c.pendingMove = 0

		case ir.OpIn:
			c.ops.delete(eff)
			if c.clobbers != nil {
				c.clobbers[eff] = struct{}{}
			}
			c.out.Append(ir.Instruction{Op: ir.OpIn, Offset: eff})

		case ir.OpOut:
			if k, ok := c.constValue(eff); ok {
				c.out.Append(ir.Instruction{Op: ir.OpOutValue, Value: k})
				break
			}
			op, had := c.ops.get(eff)
			c.flushOpAt(eff)
			if had && op.kind == opSet {
				c.ops.put(eff, pendingOp{opKnown, op.val})
			}
			c.out.Append(ir.Instruction{Op: ir.OpOut, Offset: eff})

		case ir.OpOutValue:
			c.out.Append(ir.Instruction{Op: ir.OpOutValue, Value: c.in.Values[i]})

		case ir.OpLoopStart:
			if k, ok := c.knownValue(c.pendingMove); ok && k == 0 {
				// The loop never runs; skip to its matching loop_end.
				i += int(c.in.Extras[i])
				break
			}
			c.flushOps()
			c.flushMove()
			c.stack = append(c.stack, c.out.Append(ir.Instruction{Op: ir.OpLoopStart}))

		case ir.OpLoopEnd:
			c.flushOps()
			c.flushMove()
			start := c.stack[len(c.stack)-1]
			c.stack = c.stack[:len(c.stack)-1]
			end := c.out.Append(ir.Instruction{Op: ir.OpLoopEnd})
			c.out.LinkLoop(start, end)
			// Loops exit only when the head cell is 0.
			c.ops.put(0, pendingOp{opKnown, 0})
		}
	}
}

// fold applies an add of v at offset key, merging with any pending op.
func (c *condenser) fold(key uint32, v byte) {
	if op, ok := c.ops.get(key); ok {
		switch op.kind {
		case opKnown, opSet:
			c.ops.put(key, pendingOp{opSet, op.val + v})
		case opAdd:
			c.ops.put(key, pendingOp{opAdd, op.val + v})
		}
		return
	}
	if c.clobbers != nil {
		if _, dirty := c.clobbers[key]; !dirty {
			// The cell still holds its initial 0.
			c.ops.put(key, pendingOp{opSet, v})
			return
		}
	}
	c.ops.put(key, pendingOp{opAdd, v})
}

// knownValue reports the cell content at key when it can be inferred: from a
// known_value or pending set entry, or from an untouched cell while
// start-relative knowledge is still valid.
func (c *condenser) knownValue(key uint32) (byte, bool) {
	if op, ok := c.ops.get(key); ok {
		if op.kind == opKnown || op.kind == opSet {
			return op.val, true
		}
		return 0, false
	}
	return c.untouchedZero(key)
}

// constValue is the narrow form used by the out rule: pending sets do not
// qualify (they are flushed and re-recorded instead).
func (c *condenser) constValue(key uint32) (byte, bool) {
	if op, ok := c.ops.get(key); ok {
		if op.kind == opKnown {
			return op.val, true
		}
		return 0, false
	}
	return c.untouchedZero(key)
}

func (c *condenser) untouchedZero(key uint32) (byte, bool) {
	if c.clobbers == nil {
		return 0, false
	}
	if _, dirty := c.clobbers[key]; dirty {
		return 0, false
	}
	return 0, true
}

// flushOpAt emits the pending op at key, if any.
func (c *condenser) flushOpAt(key uint32) {
	op, ok := c.ops.get(key)
	if !ok {
		return
	}
	c.ops.delete(key)
	c.emitOp(key, op)
}

// flushOps emits all pending ops in insertion order and clears the table.
func (c *condenser) flushOps() {
	for _, key := range c.ops.keys {
		c.emitOp(key, c.ops.ops[key])
	}
	c.ops.clear()
	c.clobbers = nil
}

func (c *condenser) emitOp(key uint32, op pendingOp) {
	switch op.kind {
	case opSet:
		c.out.Append(ir.Instruction{Op: ir.OpSet, Value: op.val, Offset: key})
		c.clobbers = nil
	case opAdd:
		if op.val != 0 {
			c.out.Append(ir.Instruction{Op: ir.OpAdd, Value: op.val, Offset: key})
			c.clobbers = nil
		}
	}
}

// flushMove emits the pending head displacement.
func (c *condenser) flushMove() {
	if c.pendingMove != 0 {
		c.out.Append(ir.Instruction{Op: ir.OpMove, Extra: c.pendingMove})
		c.pendingMove = 0
		c.clobbers = nil
	}
}
