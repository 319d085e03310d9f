package jit

import "encoding/binary"

// ---------------------------------------------------------------------------
// Assembler: raw x86-64 byte emission
// ---------------------------------------------------------------------------

// Assembler accumulates machine code and patches jump displacements.
type Assembler struct {
	buf []byte
}

// Len returns the current code size.
func (a *Assembler) Len() int {
	return len(a.buf)
}

// Bytes returns the emitted code.
func (a *Assembler) Bytes() []byte {
	return a.buf
}

// Emit appends raw bytes.
func (a *Assembler) Emit(b ...byte) {
	a.buf = append(a.buf, b...)
}

// EmitU16 appends a little-endian 16-bit immediate.
func (a *Assembler) EmitU16(v uint16) {
	a.buf = append(a.buf, byte(v), byte(v>>8))
}

// EmitU32 appends a little-endian 32-bit immediate.
func (a *Assembler) EmitU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.buf = append(a.buf, b[:]...)
}

// Patch32 overwrites the 32-bit immediate at pos.
func (a *Assembler) Patch32(pos int, v uint32) {
	binary.LittleEndian.PutUint32(a.buf[pos:pos+4], v)
}

// PatchRel32 resolves the rel32 field at pos so the jump lands on target.
// The displacement is relative to the end of the field.
func (a *Assembler) PatchRel32(pos, target int) {
	a.Patch32(pos, uint32(target-(pos+4)))
}

// Patch8 overwrites the byte at pos.
func (a *Assembler) Patch8(pos int, v byte) {
	a.buf[pos] = v
}

// PatchRel8 resolves the rel8 field at pos so the jump lands on target.
func (a *Assembler) PatchRel8(pos, target int) {
	a.buf[pos] = byte(target - (pos + 1))
}
