package optimize

import (
	"github.com/chazu/brio/ir"
)

// ---------------------------------------------------------------------------
// Loop recognizer
// ---------------------------------------------------------------------------

// RecognizeLoops rewrites loops with recognizable bodies into straight-line
// instructions: multiplication loops into add_mul chains, deterministic
// counters into set 0, and pure-move bodies into seek. The input is not
// modified.
func RecognizeLoops(p *ir.Program) *ir.Program {
	out := ir.NewProgram(p.Len())
	var stack []int
	for i := 0; i < p.Len(); i++ {
		switch p.Ops[i] {
		case ir.OpLoopStart:
			if repl, ok := recognizeLoop(p, i); ok {
				for _, inst := range repl {
					out.Append(inst)
				}
				i += int(p.Extras[i]) // skip past the matching loop_end
				continue
			}
			stack = append(stack, out.Append(ir.Instruction{Op: ir.OpLoopStart}))
		case ir.OpLoopEnd:
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			end := out.Append(ir.Instruction{Op: ir.OpLoopEnd})
			out.LinkLoop(start, end)
		default:
			out.Append(p.At(i))
		}
	}
	return out
}

// recognizeLoop inspects the body of the loop starting at i and returns its
// straight-line replacement, if any.
func recognizeLoop(p *ir.Program, i int) ([]ir.Instruction, bool) {
	end := i + int(p.Extras[i])
	allAdds, allMoves := true, true
	for j := i + 1; j < end; j++ {
		switch p.Ops[j] {
		case ir.OpAdd:
			allMoves = false
		case ir.OpMove:
			allAdds = false
		default:
			return nil, false
		}
	}
	switch {
	case allAdds:
		return recognizeCounter(p, i+1, end)
	case allMoves:
		var step uint32
		for j := i + 1; j < end; j++ {
			step += p.Extras[j]
		}
		return []ir.Instruction{{Op: ir.OpSeek, Value: 0, Offset: 0, Extra: step}}, true
	}
	return nil, false
}

// recognizeCounter handles bodies made only of adds. The net add at offset 0
// is the base step b; a base step of +-1 makes the iteration count
// deterministic, and an odd base step with no other offsets touched
// terminates by wrapping.
func recognizeCounter(p *ir.Program, from, to int) ([]ir.Instruction, bool) {
	var order []uint32
	sums := make(map[uint32]byte)
	for j := from; j < to; j++ {
		o := p.Offsets[j]
		if _, ok := sums[o]; !ok {
			order = append(order, o)
		}
		sums[o] += p.Values[j]
	}
	b := sums[0]

	switch {
	case b == 1 || b == 255:
		var repl []ir.Instruction
		for _, o := range order {
			if o == 0 {
				continue
			}
			a := sums[o]
			if a == 0 {
				continue
			}
			repl = append(repl, ir.Instruction{
				Op:     ir.OpAddMul,
				Value:  (0 - b) * a,
				Offset: o,
				Extra:  -o,
			})
		}
		repl = append(repl, ir.Instruction{Op: ir.OpSet, Value: 0, Offset: 0})
		return repl, true

	case b%2 == 1 && len(order) == 1:
		return []ir.Instruction{{Op: ir.OpSet, Value: 0, Offset: 0}}, true
	}
	return nil, false
}
