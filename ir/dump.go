package ir

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Bytecode-text dump writer
// ---------------------------------------------------------------------------

// DumpOptions configures the bytecode-text rendering.
type DumpOptions struct {
	// Indent is prepended once per loop-nesting level. Empty means two spaces.
	Indent string
	// ShowInternal renders internal-only fields (loop distances) as trailing
	// comments. They are ignored when parsed back.
	ShowInternal bool
}

// Dump writes the program in bytecode-text form, one instruction per line.
// Offsets and extras are printed as signed 32-bit values.
func (p *Program) Dump(w io.Writer, opts DumpOptions) error {
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}
	depth := 0
	for i := range p.Ops {
		op := p.Ops[i]
		info := op.Info()
		if op == OpLoopEnd && depth > 0 {
			depth--
		}
		var b strings.Builder
		for j := 0; j < depth; j++ {
			b.WriteString(indent)
		}
		b.WriteString(info.Name)
		if info.HasValue {
			fmt.Fprintf(&b, " %d", p.Values[i])
		}
		if info.HasExtra && !info.Internal {
			fmt.Fprintf(&b, " , %d", int32(p.Extras[i]))
		}
		if info.HasOffset && p.Offsets[i] != 0 {
			fmt.Fprintf(&b, " @ %d", int32(p.Offsets[i]))
		}
		if opts.ShowInternal && info.Internal {
			fmt.Fprintf(&b, "  # extra=%d", int32(p.Extras[i]))
		}
		b.WriteByte('\n')
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if op == OpLoopStart {
			depth++
		}
	}
	return nil
}

// String renders the program with default dump options.
func (p *Program) String() string {
	var b strings.Builder
	p.Dump(&b, DumpOptions{})
	return b.String()
}
