package jit

import (
	"errors"
	"fmt"

	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Code generator
// ---------------------------------------------------------------------------

// ErrUnsupported marks hosts or programs the JIT cannot serve.
var ErrUnsupported = errors.New("jit: unsupported")

// Register discipline (all caller-saved):
//
//	eax     tape cursor (mp + lazy offset); 32-bit writes zero-extend
//	rdi     tape base pointer (2^32 writable bytes)
//	rsi/rdx input callback and context
//	rcx/r8  output callback and context
//	r10/r11 scratch
//
// Effective addresses must wrap within the 32-bit cursor, so instruction
// offsets are folded into eax lazily: whenever the emitted offset changes,
// the difference is added to eax and the access uses [rdi+rax].
type compiler struct {
	asm   Assembler
	cur   uint32 // offset currently folded into eax
	loops []int  // positions of unresolved loop_start rel32 fields
	exits []int  // positions of rel32 fields jumping to the epilogue
}

// Compile translates a program into a System V AMD64 function. Programs
// containing breakpoint are rejected: generated code has no way to yield to
// the host and resume.
func Compile(p *ir.Program) ([]byte, error) {
	c := &compiler{}

	// Prologue.
	c.asm.Emit(0x55)             // push rbp
	c.asm.Emit(0x48, 0x89, 0xE5) // mov rbp, rsp
	c.asm.Emit(0x31, 0xC0)       // xor eax, eax

	for i := 0; i < p.Len(); i++ {
		switch p.Ops[i] {
		case ir.OpHalt:
			c.asm.Emit(0x31, 0xC0) // xor eax, eax
			c.jmpExit()

		case ir.OpBreakpoint:
			return nil, fmt.Errorf("%w: breakpoint at %d", ErrUnsupported, i)

		case ir.OpSet:
			c.align(p.Offsets[i])
			c.asm.Emit(0xC6, 0x04, 0x07, p.Values[i]) // mov byte [rdi+rax], v

		case ir.OpAdd:
			c.align(p.Offsets[i])
			c.asm.Emit(0x80, 0x04, 0x07, p.Values[i]) // add byte [rdi+rax], v

		case ir.OpAddMul:
			c.emitAddMul(p.Values[i], p.Offsets[i], p.Extras[i])

		case ir.OpMove:
			c.addEAX(p.Extras[i] - c.cur)
			c.cur = 0

		case ir.OpSeek:
			c.emitSeek(p.Values[i], p.Offsets[i], p.Extras[i])

		case ir.OpIn:
			c.emitIn(p.Offsets[i])

		case ir.OpOut:
			c.align(p.Offsets[i])
			c.emitOut(true, 0)

		case ir.OpOutValue:
			c.emitOut(false, p.Values[i])

		case ir.OpLoopStart:
			// Control can reach the arm from several predecessors, so the
			// lazy offset is flushed first.
			c.flushLazy()
			c.asm.Emit(0x80, 0x3C, 0x07, 0x00) // cmp byte [rdi+rax], 0
			c.asm.Emit(0x0F, 0x84)             // jz rel32 (patched at loop_end)
			c.loops = append(c.loops, c.asm.Len())
			c.asm.EmitU32(0)

		case ir.OpLoopEnd:
			if len(c.loops) == 0 {
				return nil, fmt.Errorf("jit: unmatched loop_end at %d", i)
			}
			start := c.loops[len(c.loops)-1]
			c.loops = c.loops[:len(c.loops)-1]
			c.flushLazy()
			c.asm.Emit(0x80, 0x3C, 0x07, 0x00) // cmp byte [rdi+rax], 0
			c.asm.Emit(0x0F, 0x85)             // jnz body (skips the loop_start re-check)
			pos := c.asm.Len()
			c.asm.EmitU32(0)
			c.asm.PatchRel32(pos, start+4)
			c.asm.PatchRel32(start, c.asm.Len())
		}
	}
	if len(c.loops) != 0 {
		return nil, fmt.Errorf("jit: unmatched loop_start")
	}

	// Unified exit. All halt and error jumps land here.
	exit := c.asm.Len()
	for _, pos := range c.exits {
		c.asm.PatchRel32(pos, exit)
	}
	c.asm.Emit(0x48, 0x89, 0xEC) // mov rsp, rbp
	c.asm.Emit(0x5D)             // pop rbp
	c.asm.Emit(0xC3)             // ret

	return c.asm.Bytes(), nil
}

// align folds offset into eax so the next [rdi+rax] access touches
// mp+offset.
func (c *compiler) align(offset uint32) {
	c.addEAX(offset - c.cur)
	c.cur = offset
}

// flushLazy restores eax to the bare cursor.
func (c *compiler) flushLazy() {
	c.addEAX(-c.cur)
	c.cur = 0
}

func (c *compiler) addEAX(delta uint32) {
	if delta == 0 {
		return
	}
	c.asm.Emit(0x05) // add eax, imm32
	c.asm.EmitU32(delta)
}

func (c *compiler) jmpExit() {
	c.asm.Emit(0xE9)
	c.exits = append(c.exits, c.asm.Len())
	c.asm.EmitU32(0)
}

// emitAddMul: tape[mp+offset] += value * tape[mp+offset+extra].
func (c *compiler) emitAddMul(value byte, offset, extra uint32) {
	c.align(offset)
	c.addEAX(extra)                          // shift cursor to the source
	c.asm.Emit(0x44, 0x0F, 0xB6, 0x14, 0x07) // movzx r10d, byte [rdi+rax]
	c.addEAX(-extra)                         // back to the destination
	c.asm.Emit(0x66, 0x45, 0x69, 0xD2)       // imul r10w, r10w, imm16
	c.asm.EmitU16(uint16(value))
	c.asm.Emit(0x44, 0x00, 0x14, 0x07) // add byte [rdi+rax], r10b
}

// emitSeek: displacement first, then check, then step.
func (c *compiler) emitSeek(value byte, offset, step uint32) {
	c.addEAX(offset - c.cur)
	c.cur = 0
	c.asm.Emit(0x4C, 0x8D, 0x14, 0x07) // lea r10, [rdi+rax]
	loop := c.asm.Len()
	c.asm.Emit(0x41, 0x80, 0x3A, value) // cmp byte [r10], value
	c.asm.Emit(0x74)                    // je done
	jePos := c.asm.Len()
	c.asm.Emit(0)
	c.asm.Emit(0x49, 0x81, 0xC2) // add r10, step
	c.asm.EmitU32(step)
	c.asm.Emit(0xEB) // jmp loop
	jmpPos := c.asm.Len()
	c.asm.Emit(0)
	c.asm.PatchRel8(jmpPos, loop)
	c.asm.PatchRel8(jePos, c.asm.Len())
	c.asm.Emit(0x49, 0x29, 0xFA) // sub r10, rdi
	c.asm.Emit(0x44, 0x89, 0xD0) // mov eax, r10d
}

var (
	pushCallerSaved = []byte{0x50, 0x57, 0x56, 0x52, 0x51, 0x41, 0x50} // rax rdi rsi rdx rcx r8
	popCallerSaved  = []byte{0x41, 0x58, 0x59, 0x5A, 0x5E, 0x5F, 0x58} // r8 rcx rdx rsi rdi rax
)

// emitIn calls the input callback and stores the result byte at the current
// cell. A negative return propagates to the unified exit.
func (c *compiler) emitIn(offset uint32) {
	c.align(offset)
	c.asm.Emit(pushCallerSaved...)
	c.asm.Emit(0x49, 0x89, 0xF2) // mov r10, rsi (callback)
	c.asm.Emit(0x48, 0x89, 0xD7) // mov rdi, rdx (context)
	c.asm.Emit(0x41, 0xFF, 0xD2) // call r10
	c.asm.Emit(0x85, 0xC0)       // test eax, eax
	c.asm.Emit(0x0F, 0x88)       // js err
	jsPos := c.asm.Len()
	c.asm.EmitU32(0)
	c.asm.Emit(0x41, 0x89, 0xC2) // mov r10d, eax
	c.asm.Emit(popCallerSaved...)
	c.asm.Emit(0x44, 0x88, 0x14, 0x07) // mov byte [rdi+rax], r10b
	c.asm.Emit(0xEB)                   // jmp done
	skipPos := c.asm.Len()
	c.asm.Emit(0)
	c.asm.PatchRel32(jsPos, c.asm.Len())
	c.asm.Emit(0x48, 0x83, 0xC4, 0x30) // add rsp, 48 (discard saved registers)
	c.jmpExit()                        // eax carries the negative host code
	c.asm.PatchRel8(skipPos, c.asm.Len())
}

// emitOut calls the output callback with either the current cell (fromCell)
// or an immediate byte.
func (c *compiler) emitOut(fromCell bool, value byte) {
	c.asm.Emit(pushCallerSaved...)
	if fromCell {
		c.asm.Emit(0x0F, 0xB6, 0x34, 0x07) // movzx esi, byte [rdi+rax]
	} else {
		c.asm.Emit(0xBE) // mov esi, imm32
		c.asm.EmitU32(uint32(value))
	}
	c.asm.Emit(0x49, 0x89, 0xCA) // mov r10, rcx (callback)
	c.asm.Emit(0x4C, 0x89, 0xC7) // mov rdi, r8 (context)
	c.asm.Emit(0x41, 0xFF, 0xD2) // call r10
	c.asm.Emit(0x85, 0xC0)       // test eax, eax
	c.asm.Emit(0x0F, 0x88)       // js err
	jsPos := c.asm.Len()
	c.asm.EmitU32(0)
	c.asm.Emit(popCallerSaved...)
	c.asm.Emit(0xEB) // jmp done
	skipPos := c.asm.Len()
	c.asm.Emit(0)
	c.asm.PatchRel32(jsPos, c.asm.Len())
	c.asm.Emit(0x48, 0x83, 0xC4, 0x30) // add rsp, 48
	c.jmpExit()
	c.asm.PatchRel8(skipPos, c.asm.Len())
}
