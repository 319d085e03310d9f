package ir

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// CBOR image serialization
// ---------------------------------------------------------------------------

// imageVersion is the current image format version.
const imageVersion = 1

// imageV1 is the serialized form of a program. Columns are stored directly;
// canonical encoding keeps images byte-identical for equal programs.
type imageV1 struct {
	Version int      `cbor:"v"`
	Ops     []byte   `cbor:"ops"`
	Values  []byte   `cbor:"values"`
	Offsets []uint32 `cbor:"offsets"`
	Extras  []uint32 `cbor:"extras"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncodeImage serializes a program to CBOR bytes.
func EncodeImage(p *Program) ([]byte, error) {
	img := imageV1{
		Version: imageVersion,
		Ops:     make([]byte, p.Len()),
		Values:  p.Values,
		Offsets: p.Offsets,
		Extras:  p.Extras,
	}
	for i, op := range p.Ops {
		img.Ops[i] = byte(op)
	}
	return cborEncMode.Marshal(&img)
}

// DecodeImage deserializes a program from CBOR bytes. Unknown versions and
// ragged columns are rejected.
func DecodeImage(data []byte) (*Program, error) {
	var img imageV1
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("ir: unmarshal image: %w", err)
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("ir: unsupported image version %d", img.Version)
	}
	n := len(img.Ops)
	if len(img.Values) != n || len(img.Offsets) != n || len(img.Extras) != n {
		return nil, fmt.Errorf("ir: ragged image columns")
	}
	p := &Program{
		Ops:     make([]Opcode, n),
		Values:  img.Values,
		Offsets: img.Offsets,
		Extras:  img.Extras,
	}
	for i, b := range img.Ops {
		p.Ops[i] = Opcode(b)
	}
	return p, nil
}
