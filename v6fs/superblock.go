package v6fs

import "encoding/binary"

// BootblockMagicOffset and BootblockMagicValue identify a valid v6 image:
// a single marker byte at the start of the boot sector.
const (
	BootblockMagicOffset = 0
	BootblockMagicValue  = 0x42
)

// superblockSize is the portion of sector 1 the superblock codec uses.
const superblockSize = 18

// Superblock is the decoded form of sector 1 of a v6 image.
type Superblock struct {
	ISize      uint16 // sectors occupied by the inode table
	FSize      uint16 // total sectors in the filesystem
	FBMSize    uint16
	IBMSize    uint16
	InodeStart uint16 // first sector of the inode table
	BlockStart uint16 // first data sector
	FBMStart   uint16
	IBMStart   uint16
	FLock      uint8
	ILock      uint8
	FMod       uint8
	ROnly      uint8
	Time       [2]uint16
}

// Encode serializes the superblock into its on-disk byte layout.
func (s Superblock) Encode() [superblockSize]byte {
	var buf [superblockSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], s.ISize)
	binary.LittleEndian.PutUint16(buf[2:4], s.FSize)
	binary.LittleEndian.PutUint16(buf[4:6], s.FBMSize)
	binary.LittleEndian.PutUint16(buf[6:8], s.IBMSize)
	binary.LittleEndian.PutUint16(buf[8:10], s.InodeStart)
	binary.LittleEndian.PutUint16(buf[10:12], s.BlockStart)
	binary.LittleEndian.PutUint16(buf[12:14], s.FBMStart)
	binary.LittleEndian.PutUint16(buf[14:16], s.IBMStart)
	buf[16] = s.FLock
	buf[17] = s.ILock
	return buf
}

// DecodeSuperblock parses the on-disk layout of sector 1.
func DecodeSuperblock(buf [superblockSize]byte) Superblock {
	var s Superblock
	s.ISize = binary.LittleEndian.Uint16(buf[0:2])
	s.FSize = binary.LittleEndian.Uint16(buf[2:4])
	s.FBMSize = binary.LittleEndian.Uint16(buf[4:6])
	s.IBMSize = binary.LittleEndian.Uint16(buf[6:8])
	s.InodeStart = binary.LittleEndian.Uint16(buf[8:10])
	s.BlockStart = binary.LittleEndian.Uint16(buf[10:12])
	s.FBMStart = binary.LittleEndian.Uint16(buf[12:14])
	s.IBMStart = binary.LittleEndian.Uint16(buf[14:16])
	s.FLock = buf[16]
	s.ILock = buf[17]
	return s
}
