package ir

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Opcode metadata tests
// ---------------------------------------------------------------------------

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op        Opcode
		name      string
		hasValue  bool
		hasOffset bool
		hasExtra  bool
		internal  bool
	}{
		{OpHalt, "halt", false, false, false, false},
		{OpBreakpoint, "breakpoint", false, false, false, false},
		{OpSet, "set", true, true, false, false},
		{OpAdd, "add", true, true, false, false},
		{OpAddMul, "add_mul", true, true, true, false},
		{OpMove, "move", false, false, true, false},
		{OpSeek, "seek", true, true, true, false},
		{OpIn, "in", false, true, false, false},
		{OpOut, "out", false, true, false, false},
		{OpOutValue, "out_value", true, false, false, false},
		{OpLoopStart, "loop_start", false, false, true, true},
		{OpLoopEnd, "loop_end", false, false, true, true},
	}

	for _, tt := range tests {
		info := tt.op.Info()
		if info.Name != tt.name {
			t.Errorf("%d: Name = %q, want %q", tt.op, info.Name, tt.name)
		}
		if info.HasValue != tt.hasValue || info.HasOffset != tt.hasOffset ||
			info.HasExtra != tt.hasExtra || info.Internal != tt.internal {
			t.Errorf("%s: fields = %+v", tt.name, info)
		}
	}
}

func TestOpcodeByName(t *testing.T) {
	for op := Opcode(0); op < NumOpcodes; op++ {
		got, ok := OpcodeByName(op.Info().Name)
		if !ok || got != op {
			t.Errorf("OpcodeByName(%q) = %v, %v", op.Info().Name, got, ok)
		}
	}
	if _, ok := OpcodeByName("frobnicate"); ok {
		t.Errorf("OpcodeByName accepted an unknown name")
	}
}

// ---------------------------------------------------------------------------
// Program tests
// ---------------------------------------------------------------------------

func TestLinkLoop(t *testing.T) {
	p := NewProgram(4)
	start := p.Append(Instruction{Op: OpLoopStart})
	p.Append(Instruction{Op: OpAdd, Value: 255})
	end := p.Append(Instruction{Op: OpLoopEnd})
	p.Append(Instruction{Op: OpHalt})
	p.LinkLoop(start, end)

	if p.Extras[start] != 2 {
		t.Errorf("start extra = %d, want 2", p.Extras[start])
	}
	if p.Extras[end] != ^uint32(1) { // -2
		t.Errorf("end extra = %#x, want %#x", p.Extras[end], ^uint32(1))
	}
	if p.Extras[start]+p.Extras[end] != 0 {
		t.Errorf("loop extras do not cancel")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	noHalt := NewProgram(1)
	noHalt.Append(Instruction{Op: OpAdd, Value: 1})
	if err := noHalt.Validate(); err == nil {
		t.Errorf("Validate accepted a program without halt")
	}

	open := NewProgram(2)
	open.Append(Instruction{Op: OpLoopStart})
	open.Append(Instruction{Op: OpHalt})
	if err := open.Validate(); err == nil {
		t.Errorf("Validate accepted an unmatched loop_start")
	}

	bad := NewProgram(3)
	s := bad.Append(Instruction{Op: OpLoopStart})
	e := bad.Append(Instruction{Op: OpLoopEnd})
	bad.Append(Instruction{Op: OpHalt})
	bad.LinkLoop(s, e)
	bad.Extras[e] = 7
	if err := bad.Validate(); err == nil {
		t.Errorf("Validate accepted a mislinked loop_end")
	}
}

func TestProgramEqual(t *testing.T) {
	a := NewProgram(2)
	a.Append(Instruction{Op: OpAdd, Value: 3})
	a.Append(Instruction{Op: OpHalt})
	b := NewProgram(2)
	b.Append(Instruction{Op: OpAdd, Value: 3})
	b.Append(Instruction{Op: OpHalt})
	if !a.Equal(b) {
		t.Errorf("equal programs reported unequal")
	}
	b.Values[0] = 4
	if a.Equal(b) {
		t.Errorf("different programs reported equal")
	}
}
