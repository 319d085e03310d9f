package vm

import "errors"

// ErrMappedUnsupported is returned where the host cannot reserve a 2^32-byte
// non-committing mapping.
var ErrMappedUnsupported = errors.New("vm: mapped tape not supported on this host")

// ---------------------------------------------------------------------------
// Tape: the 2^32-byte logical memory
// ---------------------------------------------------------------------------

// Tape is a logical array of 2^32 bytes, all initially zero, with a
// persistent head position. Offsets are relative to the head; all index
// arithmetic wraps at 32 bits.
type Tape interface {
	// Get reads the cell at head+offset.
	Get(offset uint32) byte
	// Set writes the cell at head+offset.
	Set(offset uint32, v byte)
	// Add adds into the cell at head+offset, wrapping.
	Add(offset uint32, v byte)
	// Move displaces the head.
	Move(delta uint32)
	// Seek displaces the head by offset, then steps the head until the cell
	// under it equals target. The check at the post-displacement cell is the
	// first chance to exit.
	Seek(offset uint32, target byte, step uint32)
	// Head returns the current head position.
	Head() uint32
	// Release frees backing memory. The tape must not be used afterwards.
	Release()
}

// ---------------------------------------------------------------------------
// Paged backing
// ---------------------------------------------------------------------------

// PageSize is the allocation granularity of the paged tape.
const PageSize = 1 << 20

// PagedTape partitions the address space into 1 MiB pages, allocated lazily
// on first write and retained until Release. Reading an unallocated page
// returns 0 without allocating.
type PagedTape struct {
	pages map[uint32][]byte
	mp    uint32
}

// NewPagedTape returns an empty paged tape with the head at 0.
func NewPagedTape() *PagedTape {
	return &PagedTape{pages: make(map[uint32][]byte)}
}

func (t *PagedTape) Get(offset uint32) byte {
	abs := t.mp + offset
	page := t.pages[abs/PageSize]
	if page == nil {
		return 0
	}
	return page[abs%PageSize]
}

func (t *PagedTape) Set(offset uint32, v byte) {
	abs := t.mp + offset
	t.page(abs)[abs%PageSize] = v
}

func (t *PagedTape) Add(offset uint32, v byte) {
	abs := t.mp + offset
	t.page(abs)[abs%PageSize] += v
}

func (t *PagedTape) Move(delta uint32) {
	t.mp += delta
}

func (t *PagedTape) Seek(offset uint32, target byte, step uint32) {
	t.mp += offset
	for t.Get(0) != target {
		t.mp += step
	}
}

func (t *PagedTape) Head() uint32 {
	return t.mp
}

func (t *PagedTape) Release() {
	t.pages = nil
}

// page returns the page containing abs, allocating it if needed.
func (t *PagedTape) page(abs uint32) []byte {
	idx := abs / PageSize
	p := t.pages[idx]
	if p == nil {
		p = make([]byte, PageSize)
		t.pages[idx] = p
	}
	return p
}
