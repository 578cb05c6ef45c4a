// Package layout writes host structs into guest memory using the fixed
// 32-bit C ABI that Emscripten's libc expects.
//
// The offsets are part of the guest ABI and must not change. Two fields of
// the stat layout are deliberately not host values: st_blksize is always
// 4096 and the inode is truncated to 32 bits.
package layout
