package vm

import "testing"

// ---------------------------------------------------------------------------
// Paged tape tests
// ---------------------------------------------------------------------------

func TestPagedTapeBasics(t *testing.T) {
	tape := NewPagedTape()
	defer tape.Release()

	if got := tape.Get(0); got != 0 {
		t.Errorf("fresh cell = %d, want 0", got)
	}
	tape.Set(5, 7)
	tape.Add(5, 250)
	if got := tape.Get(5); got != 1 { // 7 + 250 wraps
		t.Errorf("cell 5 = %d, want 1", got)
	}

	tape.Move(5)
	if got := tape.Get(0); got != 1 {
		t.Errorf("after move, head cell = %d, want 1", got)
	}
	if tape.Head() != 5 {
		t.Errorf("head = %d, want 5", tape.Head())
	}
}

func TestPagedTapeReadDoesNotAllocate(t *testing.T) {
	tape := NewPagedTape()
	defer tape.Release()

	for _, off := range []uint32{0, PageSize, 3 * PageSize, ^uint32(0)} {
		if got := tape.Get(off); got != 0 {
			t.Errorf("Get(%d) = %d, want 0", off, got)
		}
	}
	if n := len(tape.pages); n != 0 {
		t.Errorf("reads allocated %d pages", n)
	}
	tape.Set(2*PageSize, 1)
	if n := len(tape.pages); n != 1 {
		t.Errorf("one write allocated %d pages, want 1", n)
	}
}

func TestPagedTapeWraps(t *testing.T) {
	tape := NewPagedTape()
	defer tape.Release()

	tape.Set(^uint32(0), 9) // cell 2^32-1
	tape.Move(^uint32(0))   // head = -1
	if got := tape.Get(0); got != 9 {
		t.Errorf("wrapped head cell = %d, want 9", got)
	}
	// Offsets wrap the same way: from head -1, offset 1 is cell 0.
	tape.Set(1, 4)
	tape.Move(1)
	if got := tape.Get(0); got != 4 {
		t.Errorf("cell 0 after wrap = %d, want 4", got)
	}
}

func TestPagedTapeSeek(t *testing.T) {
	tape := NewPagedTape()
	defer tape.Release()

	tape.Set(1, 1)
	tape.Set(2, 1)
	tape.Set(3, 1)
	tape.Move(3)

	// Displacement first, then check, then step: starting on a nonzero cell
	// the head walks left to the first zero.
	tape.Seek(0, 0, ^uint32(0))
	if tape.Head() != 0 {
		t.Errorf("seek left: head = %d, want 0", tape.Head())
	}

	// A seek whose post-displacement cell already matches does not step.
	tape.Seek(2, 1, 1)
	if tape.Head() != 2 {
		t.Errorf("seek with matching start: head = %d, want 2", tape.Head())
	}
}

// ---------------------------------------------------------------------------
// Mapped tape tests
// ---------------------------------------------------------------------------

func TestMappedTape(t *testing.T) {
	if !MappedSupported {
		t.Skip("mapped tape not supported on this host")
	}
	tape, err := NewMappedTape()
	if err != nil {
		t.Fatalf("NewMappedTape: %v", err)
	}
	defer tape.Release()

	tape.Set(10, 42)
	tape.Move(10)
	if got := tape.Get(0); got != 42 {
		t.Errorf("cell = %d, want 42", got)
	}
	if len(tape.Base()) != 1<<32 {
		t.Errorf("base length = %d, want 2^32", len(tape.Base()))
	}

	tape.Set(3, 1)
	tape.Seek(3, 1, 1)
	if tape.Head() != 13 {
		t.Errorf("seek: head = %d, want 13", tape.Head())
	}
}
