//go:build linux && amd64

package jit

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/chazu/brio/ir"
	"github.com/chazu/brio/vm"
)

// Supported reports whether this host can execute generated code.
func Supported() bool {
	return true
}

// sysvCall5 enters native code with the five arguments in the System V
// AMD64 registers. Implemented in call_amd64.s.
func sysvCall5(fn, a1, a2, a3, a4, a5 uintptr) int32

// ---------------------------------------------------------------------------
// Executable memory
// ---------------------------------------------------------------------------

// Executable is a loaded program: generated code plus the native I/O stubs,
// in one executable mapping.
type Executable struct {
	mem     []byte
	entry   uintptr
	inStub  uintptr
	outStub uintptr
}

// Load places compiled code and the I/O stubs into a fresh mapping and
// flips it executable. Lifecycle: allocate RW, write, flip to X, invoke,
// flip back to RW, free.
func Load(code []byte) (*Executable, error) {
	a := Assembler{buf: append([]byte(nil), code...)}
	pad16(&a)
	inOff := a.Len()
	emitInStub(&a)
	pad16(&a)
	outOff := a.Len()
	emitOutStub(&a)

	mem, err := unix.Mmap(-1, 0, a.Len(),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap code: %w", err)
	}
	copy(mem, a.Bytes())
	if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("jit: mprotect: %w", err)
	}
	base := uintptr(unsafe.Pointer(&mem[0]))
	return &Executable{
		mem:     mem,
		entry:   base,
		inStub:  base + uintptr(inOff),
		outStub: base + uintptr(outOff),
	}, nil
}

// Close returns the mapping to RW and frees it.
func (e *Executable) Close() error {
	if e.mem == nil {
		return nil
	}
	if err := unix.Mprotect(e.mem, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("jit: mprotect rw: %w", err)
	}
	err := unix.Munmap(e.mem)
	e.mem = nil
	return err
}

// ioCtx is the context block the native stubs dereference.
type ioCtx struct {
	fd      int32
	eofByte int32
}

// Invoke calls the generated function over base with fd-backed callbacks.
func (e *Executable) Invoke(base *byte, inFd, outFd int32, eofByte byte) int32 {
	inCtx := &ioCtx{fd: inFd, eofByte: int32(eofByte)}
	outCtx := &ioCtx{fd: outFd}
	ret := sysvCall5(e.entry,
		uintptr(unsafe.Pointer(base)),
		e.inStub, uintptr(unsafe.Pointer(inCtx)),
		e.outStub, uintptr(unsafe.Pointer(outCtx)))
	runtime.KeepAlive(inCtx)
	runtime.KeepAlive(outCtx)
	runtime.KeepAlive(e)
	return ret
}

func pad16(a *Assembler) {
	for a.Len()%16 != 0 {
		a.Emit(0xCC) // int3
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Run compiles prog, maps a fresh tape, and executes the generated code
// with I/O over the given files. Only the substitute-byte EOF policy is
// expressible through the callback contract; EOFNoChange is rejected.
// Returns the generated function's return value: 0 on success, a negative
// host code (also wrapped in the error) on callback failure.
func Run(prog *ir.Program, in, out *os.File, eofMode vm.EOFMode, eofByte byte) (int32, error) {
	if eofMode != vm.EOFSubstitute {
		return 0, fmt.Errorf("%w: EOF policy", ErrUnsupported)
	}
	code, err := Compile(prog)
	if err != nil {
		return 0, err
	}
	exe, err := Load(code)
	if err != nil {
		return 0, err
	}
	defer exe.Close()

	tape, err := vm.NewMappedTape()
	if err != nil {
		return 0, err
	}
	defer tape.Release()

	ret := exe.Invoke(&tape.Base()[0], int32(in.Fd()), int32(out.Fd()), eofByte)
	if ret < 0 {
		return ret, fmt.Errorf("jit: host error %d", ret)
	}
	return ret, nil
}
