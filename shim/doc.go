// Package shim implements the env functions that Emscripten guests import
// for a handful of POSIX operations.
//
//	putchar, printf          formatted output to the instance's stdout
//	chroot                   host chroot on the literal guest path
//	getpwuid                 host user lookup, returned as a guest passwd
//	emscripten_memcpy_big    memmove inside guest memory
//	__syscall_chdir          chdir through the path mapping table
//	__syscall_getcwd         current directory through the mapping table
//	__syscall_stat64         stat through the mapping table
//	__syscall_lstat64        lstat through the mapping table
//
// Each operation is a plain function over *guest.Context so it can be
// tested without a runtime. Funcs wraps them as wazero host functions that
// find the context in the call's context.Context.
//
// Host failures are returned to the guest as negated errno values, or NULL
// for getpwuid. Guest-side violations such as an out-of-range pointer or
// invalid UTF-8 in a path abort the guest call.
package shim
