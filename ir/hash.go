package ir

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// Hash returns the content hash of the program: a BLAKE3 digest over the
// four fields of every instruction in order. Loop-arm extras are included
// even though they are recomputable; hashing is byte-for-byte.
func (p *Program) Hash() [32]byte {
	h := blake3.New(32, nil)
	var buf [10]byte
	for i := range p.Ops {
		buf[0] = byte(p.Ops[i])
		buf[1] = p.Values[i]
		binary.LittleEndian.PutUint32(buf[2:6], p.Offsets[i])
		binary.LittleEndian.PutUint32(buf[6:10], p.Extras[i])
		h.Write(buf[:])
	}
	var sum [32]byte
	h.Sum(sum[:0])
	return sum
}
