package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Bytecode-text parser tests
// ---------------------------------------------------------------------------

func TestParseTextBasics(t *testing.T) {
	src := `
# a comment line
set 65          # store 'A'
add 3 @ 1
add_mul 2, -1 @ 1
move , 5
seek 0, -2 @ 3
in @ 2
out@2
out_value 10
halt
`
	p, err := ParseText([]byte(src))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	want := []ir.Instruction{
		{Op: ir.OpSet, Value: 65},
		{Op: ir.OpAdd, Value: 3, Offset: 1},
		{Op: ir.OpAddMul, Value: 2, Offset: 1, Extra: ^uint32(0)},
		{Op: ir.OpMove, Extra: 5},
		{Op: ir.OpSeek, Value: 0, Offset: 3, Extra: ^uint32(1)},
		{Op: ir.OpIn, Offset: 2},
		{Op: ir.OpOut, Offset: 2},
		{Op: ir.OpOutValue, Value: 10},
		{Op: ir.OpHalt},
	}
	if p.Len() != len(want) {
		t.Fatalf("length = %d, want %d:\n%s", p.Len(), len(want), p)
	}
	for i, w := range want {
		if g := p.At(i); g != w {
			t.Errorf("[%d] = %+v, want %+v", i, g, w)
		}
	}
}

func TestParseTextLoops(t *testing.T) {
	src := strings.Join([]string{
		"loop_start , 999  # extra in source is ignored",
		"  add 255",
		"loop_end",
		"halt",
	}, "\n")
	p, err := ParseText([]byte(src))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("reconstructed loop links invalid: %v", err)
	}
	if p.Extras[0] != 2 || p.Extras[2] != ^uint32(1) {
		t.Errorf("loop extras = %d, %d; want 2, -2", p.Extras[0], p.Extras[2])
	}
}

func TestParseTextAppendsHalt(t *testing.T) {
	p, err := ParseText([]byte("add 1\n"))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if p.Ops[p.Len()-1] != ir.OpHalt {
		t.Errorf("missing trailing halt:\n%s", p)
	}
}

func TestParseTextErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown opcode", "frob 3"},
		{"stray value", "halt 3"},
		{"stray offset", "move , 1 @ 2"},
		{"stray extra", "add 1, 2"},
		{"malformed integer", "add x"},
		{"malformed after comma", "add_mul 1, zz"},
		{"malformed after at", "add 1 @ !"},
		{"trailing junk", "add 1 junk"},
		{"unmatched loop_end", "loop_end"},
		{"unmatched loop_start", "loop_start\nhalt"},
	}
	for _, tt := range tests {
		_, err := ParseText([]byte(tt.src))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: ParseText(%q) = %v, want ParseError", tt.name, tt.src, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Round-trip law: dump then re-parse is identity
// ---------------------------------------------------------------------------

func TestRoundTrip(t *testing.T) {
	sources := []string{
		"+++",
		"++++++++[>++++++++<-]>+.",
		",>,<[->+<]>.",
		"+[->>+<<]>>[<<+>>-]",
		">+>+<<#[.>]",
	}
	for _, src := range sources {
		p := mustParse(t, src)
		for _, showInternal := range []bool{false, true} {
			var b strings.Builder
			if err := p.Dump(&b, ir.DumpOptions{ShowInternal: showInternal}); err != nil {
				t.Fatalf("Dump: %v", err)
			}
			back, err := ParseText([]byte(b.String()))
			if err != nil {
				t.Fatalf("%q: re-parse (showInternal=%v): %v\n%s", src, showInternal, err, b.String())
			}
			if !p.Equal(back) {
				t.Errorf("%q: round trip changed program:\n%s\nvs\n%s", src, p, back)
			}
		}
	}
}
