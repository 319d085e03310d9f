package jit

import (
	"bytes"
	"testing"
)

// ---------------------------------------------------------------------------
// Assembler tests
// ---------------------------------------------------------------------------

func TestAssemblerEmission(t *testing.T) {
	var a Assembler
	a.Emit(0x90)
	a.EmitU16(0x0201)
	a.EmitU32(0x06050403)
	want := []byte{0x90, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if !bytes.Equal(a.Bytes(), want) {
		t.Errorf("bytes = %x, want %x", a.Bytes(), want)
	}
}

func TestPatchRel32(t *testing.T) {
	var a Assembler
	a.Emit(0xE9)
	pos := a.Len()
	a.EmitU32(0)
	a.Emit(0x90, 0x90, 0x90)
	a.PatchRel32(pos, a.Len())
	// Displacement is relative to the end of the field: 3 nops.
	want := []byte{0xE9, 0x03, 0x00, 0x00, 0x00, 0x90, 0x90, 0x90}
	if !bytes.Equal(a.Bytes(), want) {
		t.Errorf("bytes = %x, want %x", a.Bytes(), want)
	}
}

func TestPatchRel8Backward(t *testing.T) {
	var a Assembler
	target := a.Len()
	a.Emit(0x90, 0x90)
	a.Emit(0xEB)
	pos := a.Len()
	a.Emit(0)
	a.PatchRel8(pos, target)
	if got := a.Bytes()[pos]; got != 0xFC { // -4
		t.Errorf("rel8 = %#x, want 0xFC", got)
	}
}
