package layout

import (
	"github.com/wippyai/wasm-emscripten/guest"
	"github.com/wippyai/wasm-emscripten/host"
)

// Guest stat field offsets. The two padding words reproduce the holes a
// 64-bit dev_t leaves in the 32-bit C struct.
const (
	StatDev      = 0
	StatDevPad   = 4
	StatInoTrunc = 8
	StatMode     = 12
	StatNlink    = 16
	StatUID      = 20
	StatGID      = 24
	StatRdev     = 28
	StatRdevPad  = 32
	StatSize     = 36
	StatBlksize  = 40
	StatBlocks   = 44
	StatAtime    = 48
	StatMtime    = 56
	StatCtime    = 64
	StatIno      = 72

	StatStructSize = 80
)

// GuestBlksize is reported as every file's block size, whatever the host
// says.
const GuestBlksize = 4096

// WriteStat writes st into the caller-allocated stat struct at dest. Wide
// host values are truncated to the guest field widths.
func WriteStat(c *guest.Context, dest uint32, st *host.Stat) {
	mem := c.Mem()
	buf := mem.Slice(dest, StatStructSize)
	clear(buf)

	mem.WriteU32(dest+StatDev, uint32(st.Dev))
	mem.WriteU32(dest+StatInoTrunc, uint32(st.Ino))
	mem.WriteU32(dest+StatMode, st.Mode)
	mem.WriteU32(dest+StatNlink, uint32(st.Nlink))
	mem.WriteU32(dest+StatUID, st.UID)
	mem.WriteU32(dest+StatGID, st.GID)
	mem.WriteU32(dest+StatRdev, uint32(st.Rdev))
	mem.WriteU32(dest+StatSize, uint32(st.Size))
	mem.WriteU32(dest+StatBlksize, GuestBlksize)
	mem.WriteU32(dest+StatBlocks, uint32(st.Blocks))
	mem.WriteU64(dest+StatAtime, uint64(st.Atime))
	mem.WriteU64(dest+StatMtime, uint64(st.Mtime))
	mem.WriteU64(dest+StatCtime, uint64(st.Ctime))
	mem.WriteU32(dest+StatIno, uint32(st.Ino))
}

// ReadStat decodes a guest stat struct. The padding words are ignored and
// Ino comes from the trailing field.
func ReadStat(c *guest.Context, src uint32) *host.Stat {
	mem := c.Mem()
	return &host.Stat{
		Dev:     uint64(mem.ReadU32(src + StatDev)),
		Ino:     uint64(mem.ReadU32(src + StatIno)),
		Mode:    mem.ReadU32(src + StatMode),
		Nlink:   uint64(mem.ReadU32(src + StatNlink)),
		UID:     mem.ReadU32(src + StatUID),
		GID:     mem.ReadU32(src + StatGID),
		Rdev:    uint64(mem.ReadU32(src + StatRdev)),
		Size:    int64(mem.ReadU32(src + StatSize)),
		Blksize: int64(mem.ReadU32(src + StatBlksize)),
		Blocks:  int64(mem.ReadU32(src + StatBlocks)),
		Atime:   int64(mem.ReadU64(src + StatAtime)),
		Mtime:   int64(mem.ReadU64(src + StatMtime)),
		Ctime:   int64(mem.ReadU64(src + StatCtime)),
	}
}
