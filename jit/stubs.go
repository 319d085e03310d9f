package jit

// ---------------------------------------------------------------------------
// Native I/O callback stubs
// ---------------------------------------------------------------------------

// The default runner backs the input/output callbacks with small native
// routines performing read/write syscalls over host file descriptors. Both
// follow the callback contract: a non-negative return carries a byte in the
// low 8 bits, a negative return aborts execution with that code.
//
// Context layout, shared by both stubs:
//
//	struct { fd int32; eofByte int32 }
//
// The input stub substitutes eofByte when the descriptor is exhausted.

// errShortWrite is returned when a write consumes nothing without an errno.
const errShortWrite = -5 // -EIO

// emitInStub generates: read one byte from ctx.fd; on EOF return
// ctx.eofByte; on error return the negative errno.
func emitInStub(a *Assembler) {
	a.Emit(0x55)                   // push rbp
	a.Emit(0x48, 0x89, 0xE5)       // mov rbp, rsp
	a.Emit(0x57)                   // push rdi (ctx)
	a.Emit(0x48, 0x83, 0xEC, 0x08) // sub rsp, 8 (1-byte buffer)
	a.Emit(0x8B, 0x3F)             // mov edi, [rdi] (fd)
	a.Emit(0x31, 0xC0)             // xor eax, eax (SYS_read)
	a.Emit(0x48, 0x89, 0xE6)       // mov rsi, rsp
	a.Emit(0xBA, 0x01, 0x00, 0x00, 0x00) // mov edx, 1
	a.Emit(0x0F, 0x05)             // syscall
	a.Emit(0x48, 0x85, 0xC0)       // test rax, rax
	a.Emit(0x78)                   // js ret (negative errno)
	jsPos := a.Len()
	a.Emit(0)
	a.Emit(0x74) // je eof
	jePos := a.Len()
	a.Emit(0)
	a.Emit(0x0F, 0xB6, 0x04, 0x24) // movzx eax, byte [rsp]
	a.Emit(0xEB)                   // jmp ret
	jmpPos := a.Len()
	a.Emit(0)
	a.PatchRel8(jePos, a.Len())
	a.Emit(0x48, 0x8B, 0x7C, 0x24, 0x08) // mov rdi, [rsp+8] (ctx)
	a.Emit(0x8B, 0x47, 0x04)             // mov eax, [rdi+4] (eofByte)
	a.PatchRel8(jsPos, a.Len())
	a.PatchRel8(jmpPos, a.Len())
	a.Emit(0x48, 0x89, 0xEC) // mov rsp, rbp
	a.Emit(0x5D)             // pop rbp
	a.Emit(0xC3)             // ret
}

// emitOutStub generates: write the byte in sil to ctx.fd; return 0 on
// success, the negative errno on failure, -EIO on a short write.
func emitOutStub(a *Assembler) {
	a.Emit(0x55)                   // push rbp
	a.Emit(0x48, 0x89, 0xE5)       // mov rbp, rsp
	a.Emit(0x48, 0x83, 0xEC, 0x08) // sub rsp, 8
	a.Emit(0x40, 0x88, 0x34, 0x24) // mov [rsp], sil
	a.Emit(0x8B, 0x3F)             // mov edi, [rdi] (fd)
	a.Emit(0xB8, 0x01, 0x00, 0x00, 0x00) // mov eax, 1 (SYS_write)
	a.Emit(0x48, 0x89, 0xE6)       // mov rsi, rsp
	a.Emit(0xBA, 0x01, 0x00, 0x00, 0x00) // mov edx, 1
	a.Emit(0x0F, 0x05)             // syscall
	a.Emit(0x48, 0x83, 0xF8, 0x01) // cmp rax, 1
	a.Emit(0x74)                   // je ok
	jePos := a.Len()
	a.Emit(0)
	a.Emit(0x48, 0x85, 0xC0) // test rax, rax
	a.Emit(0x78)             // js ret (negative errno)
	jsPos := a.Len()
	a.Emit(0)
	a.Emit(0xB8) // mov eax, errShortWrite
	errShortWriteI32 := int32(errShortWrite)
	a.EmitU32(uint32(errShortWriteI32))
	a.Emit(0xEB) // jmp ret
	jmpPos := a.Len()
	a.Emit(0)
	a.PatchRel8(jePos, a.Len())
	a.Emit(0x31, 0xC0) // xor eax, eax
	a.PatchRel8(jsPos, a.Len())
	a.PatchRel8(jmpPos, a.Len())
	a.Emit(0x48, 0x89, 0xEC) // mov rsp, rbp
	a.Emit(0x5D)             // pop rbp
	a.Emit(0xC3)             // ret
}
