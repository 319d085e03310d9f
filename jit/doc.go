// Package jit translates brio IR to x86-64 machine code.
//
// This package contains:
//   - A byte-level assembler with jump back-patching
//   - The IR code generator (System V AMD64 ABI)
//   - fd-backed native input/output callback stubs
//   - Executable-page lifecycle and the call trampoline
//
// Generated code has the signature
//
//	fn(memory *u8, input fn(*void) i32, in_ctx *void,
//	   output fn(*void, u8) i32, out_ctx *void) i32
//
// and assumes memory points at exactly 2^32 writable bytes. Supported only
// on linux/amd64; Supported reports availability.
package jit
