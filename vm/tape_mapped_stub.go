//go:build !linux || !(amd64 || arm64)

package vm

// MappedSupported reports whether the mapped tape is available on this host.
const MappedSupported = false

// MappedTape is unavailable on this host.
type MappedTape struct {
	PagedTape
}

// NewMappedTape always fails on this host.
func NewMappedTape() (*MappedTape, error) {
	return nil, ErrMappedUnsupported
}

// SetHead positions the head directly.
func (t *MappedTape) SetHead(mp uint32) {
	t.mp = mp
}

// Base returns nil on this host.
func (t *MappedTape) Base() []byte {
	return nil
}
