//go:build !(linux && amd64)

package jit

import (
	"fmt"
	"os"

	"github.com/chazu/brio/ir"
	"github.com/chazu/brio/vm"
)

// Supported reports whether this host can execute generated code.
func Supported() bool {
	return false
}

// Executable is unavailable on this host.
type Executable struct{}

// Load always fails on this host.
func Load(code []byte) (*Executable, error) {
	return nil, fmt.Errorf("%w: host", ErrUnsupported)
}

// Invoke is unreachable on this host.
func (e *Executable) Invoke(base *byte, inFd, outFd int32, eofByte byte) int32 {
	return -1
}

// Close is a no-op on this host.
func (e *Executable) Close() error {
	return nil
}

// Run always fails on this host.
func Run(prog *ir.Program, in, out *os.File, eofMode vm.EOFMode, eofByte byte) (int32, error) {
	return 0, fmt.Errorf("%w: host", ErrUnsupported)
}
