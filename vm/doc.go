// Package vm executes brio IR.
//
// This package contains:
//   - The 2^32-byte logical tape with paged and mapped backings
//   - The bytecode interpreter with pluggable I/O and EOF policy
package vm
