//go:build linux && (amd64 || arm64)

package vm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ---------------------------------------------------------------------------
// Mapped backing
// ---------------------------------------------------------------------------

// MappedSupported reports whether the mapped tape is available on this host.
const MappedSupported = true

// MappedTape backs the full 2^32-byte tape with a single anonymous, private,
// non-reserving mapping; the kernel demand-pages it. Requires a 64-bit host.
type MappedTape struct {
	data []byte
	mp   uint32
}

// NewMappedTape reserves the 2^32-byte mapping.
func NewMappedTape() (*MappedTape, error) {
	data, err := unix.Mmap(-1, 0, 1<<32,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("vm: mmap tape: %w", err)
	}
	return &MappedTape{data: data}, nil
}

func (t *MappedTape) Get(offset uint32) byte {
	return t.data[t.mp+offset]
}

func (t *MappedTape) Set(offset uint32, v byte) {
	t.data[t.mp+offset] = v
}

func (t *MappedTape) Add(offset uint32, v byte) {
	t.data[t.mp+offset] += v
}

func (t *MappedTape) Move(delta uint32) {
	t.mp += delta
}

func (t *MappedTape) Seek(offset uint32, target byte, step uint32) {
	t.mp += offset
	for t.data[t.mp] != target {
		t.mp += step
	}
}

func (t *MappedTape) Head() uint32 {
	return t.mp
}

// SetHead positions the head directly.
func (t *MappedTape) SetHead(mp uint32) {
	t.mp = mp
}

// Base returns the backing slice. The JIT passes its address as the tape
// base pointer.
func (t *MappedTape) Base() []byte {
	return t.data
}

func (t *MappedTape) Release() {
	if t.data != nil {
		unix.Munmap(t.data)
		t.data = nil
	}
}
