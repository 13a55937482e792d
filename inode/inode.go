// Package inode implements the on-disk inode record for the UNIX v6
// filesystem: its 32-byte codec, the direct/single-indirect address
// resolution scheme, size encoding, and allocation.
package inode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gofsd/v6fs/bitmap"
	"github.com/gofsd/v6fs/errors"
	"github.com/gofsd/v6fs/sector"
)

const (
	// Size is the on-disk size, in bytes, of one inode record.
	Size = 32
	// PerSector is the number of inode records packed into one sector.
	PerSector = sector.Size / Size
	// AddrLength is the number of direct/indirect address slots in an
	// inode record.
	AddrLength = 8
	// AddressesPerIndirectSector is the number of uint16 sector pointers
	// packed into one indirect sector.
	AddressesPerIndirectSector = sector.Size / 2
	// SmallFileCapacity is the largest size, in bytes, a direct-addressed
	// file can hold.
	SmallFileCapacity = AddrLength * sector.Size
	// IndirectCapacity is the largest size, in bytes, this core's
	// single-indirect addressing can hold. Only 7 of the 8 address slots
	// are reachable at this capacity; the 8th slot is never used.
	IndirectCapacity = 7 * AddressesPerIndirectSector * sector.Size
)

// Mode bits of interest. IALLOC marks a record in use; IFMT masks out the
// file-type bits; IFDIR marks a directory.
const (
	IALLOC uint16 = 0o100000
	IFMT   uint16 = 0o060000
	IFDIR  uint16 = 0o040000
)

// RawInode is the decoded form of one 32-byte on-disk inode record.
type RawInode struct {
	Mode  uint16
	NLink uint8
	UID   uint8
	GID   uint8
	Size0 uint8
	Size1 uint16
	Addr  [AddrLength]uint16
	Atime [2]uint16
	Mtime [2]uint16
}

// IsAllocated reports whether IALLOC is set.
func (r RawInode) IsAllocated() bool {
	return r.Mode&IALLOC != 0
}

// IsDir reports whether the record's file-type bits say directory.
func (r RawInode) IsDir() bool {
	return r.Mode&IFMT == IFDIR
}

// Encode serializes r into its 32-byte on-disk form. Fields are assembled
// byte by byte rather than via a struct overlay, so the layout does not
// depend on the host's endianness or struct padding.
func (r RawInode) Encode() [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint16(buf[0:2], r.Mode)
	buf[2] = r.NLink
	buf[3] = r.UID
	buf[4] = r.GID
	buf[5] = r.Size0
	binary.LittleEndian.PutUint16(buf[6:8], r.Size1)

	off := 8
	for _, a := range r.Addr {
		binary.LittleEndian.PutUint16(buf[off:off+2], a)
		off += 2
	}
	for _, a := range r.Atime {
		binary.LittleEndian.PutUint16(buf[off:off+2], a)
		off += 2
	}
	for _, m := range r.Mtime {
		binary.LittleEndian.PutUint16(buf[off:off+2], m)
		off += 2
	}
	return buf
}

// Decode parses the 32-byte on-disk form of an inode record.
func Decode(buf [Size]byte) RawInode {
	var r RawInode
	r.Mode = binary.LittleEndian.Uint16(buf[0:2])
	r.NLink = buf[2]
	r.UID = buf[3]
	r.GID = buf[4]
	r.Size0 = buf[5]
	r.Size1 = binary.LittleEndian.Uint16(buf[6:8])

	off := 8
	for i := range r.Addr {
		r.Addr[i] = binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
	}
	for i := range r.Atime {
		r.Atime[i] = binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
	}
	for i := range r.Mtime {
		r.Mtime[i] = binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
	}
	return r
}

// GetSize reassembles the inode's 24-bit file size from Size0/Size1.
func GetSize(r RawInode) int64 {
	return int64(r.Size0)<<16 | int64(r.Size1)
}

// SetSize splits newSize across Size0/Size1. It fails with ErrNoMem if
// newSize is negative.
func SetSize(r *RawInode, newSize int64) error {
	if newSize < 0 {
		return errors.ErrNoMem.WithMessage("negative file size")
	}
	r.Size0 = uint8(newSize >> 16)
	r.Size1 = uint16(newSize)
	return nil
}

// Table locates the inode table of a mounted filesystem: the sector range
// holding every inode record.
type Table struct {
	Image       io.ReadWriteSeeker
	StartSector uint32 // s_inode_start
	NumSectors  uint32 // s_isize
}

// MaxInumber returns the highest valid inode number in this table.
func (t Table) MaxInumber() uint16 {
	return uint16(t.NumSectors*PerSector - 1)
}

func (t Table) checkRange(inr uint16) error {
	if uint32(inr) > uint32(t.MaxInumber()) {
		return errors.ErrInodeOutOfRange.WithMessage(
			fmt.Sprintf("inode %d out of range [0, %d]", inr, t.MaxInumber()))
	}
	return nil
}

func (t Table) locate(inr uint16) (sectorIndex uint32, byteOffset int) {
	sectorIndex = t.StartSector + uint32(inr)/PerSector
	byteOffset = int(uint32(inr)%PerSector) * Size
	return
}

// Read decodes the inode record at inr. It fails with ErrInodeOutOfRange
// if inr is outside the table, or ErrUnallocatedInode if the record's
// IALLOC bit is clear.
func (t Table) Read(inr uint16) (RawInode, error) {
	if err := t.checkRange(inr); err != nil {
		return RawInode{}, err
	}

	secIdx, off := t.locate(inr)
	sec, err := sector.Read(t.Image, secIdx)
	if err != nil {
		return RawInode{}, err
	}

	var record [Size]byte
	copy(record[:], sec[off:off+Size])
	raw := Decode(record)
	if !raw.IsAllocated() {
		return RawInode{}, errors.ErrUnallocatedInode
	}
	return raw, nil
}

// Write re-serializes raw into its 32-byte slot and writes the owning
// sector back. It fails with ErrInodeOutOfRange if inr is outside the
// table.
func (t Table) Write(inr uint16, raw RawInode) error {
	if err := t.checkRange(inr); err != nil {
		return err
	}

	secIdx, off := t.locate(inr)
	sec, err := sector.Read(t.Image, secIdx)
	if err != nil {
		return err
	}

	record := raw.Encode()
	copy(sec[off:off+Size], record[:])
	return sector.Write(t.Image, secIdx, sec)
}

// FindSector returns the disk sector holding the fileSecOff-th 512-byte
// slice of the file described by raw.
func (t Table) FindSector(raw RawInode, fileSecOff int32) (uint32, error) {
	size := GetSize(raw)
	if int64(fileSecOff)*sector.Size >= size {
		return 0, errors.ErrOffsetOutOfRange
	}
	if !raw.IsAllocated() {
		return 0, errors.ErrUnallocatedInode
	}

	if size <= SmallFileCapacity {
		return uint32(raw.Addr[fileSecOff]), nil
	}
	if size > IndirectCapacity {
		return 0, errors.ErrFileTooLarge
	}

	indirectSector := uint32(raw.Addr[fileSecOff/AddressesPerIndirectSector])
	sec, err := sector.Read(t.Image, indirectSector)
	if err != nil {
		return 0, err
	}

	entry := int(fileSecOff % AddressesPerIndirectSector)
	return uint32(binary.LittleEndian.Uint16(sec[entry*2 : entry*2+2])), nil
}

// Alloc reserves the next free inode number from ibm and returns it. It
// fails with ErrNoMem if ibm is exhausted.
func (t Table) Alloc(ibm *bitmap.Bitmap) (uint16, error) {
	next, err := ibm.FindNext()
	if err != nil {
		return 0, errors.ErrNoMem.WrapError(err)
	}
	ibm.Set(next)
	return uint16(next), nil
}

// Print writes a one-line human-readable summary of a single decoded
// inode record.
func Print(w io.Writer, inr uint16, raw RawInode) {
	kind := "FIL"
	if raw.IsDir() {
		kind = "DIR"
	}
	fmt.Fprintf(w, "inode %5d (%s) len %d\n", inr, kind, GetSize(raw))
}

// ScanPrint walks every slot of the inode table and prints a line for
// each allocated record.
func (t Table) ScanPrint(w io.Writer) error {
	inr := uint16(0)
	for s := uint32(0); s < t.NumSectors; s++ {
		sec, err := sector.Read(t.Image, t.StartSector+s)
		if err != nil {
			return err
		}
		for off := 0; off < sector.Size; off += Size {
			var record [Size]byte
			copy(record[:], sec[off:off+Size])
			raw := Decode(record)
			if raw.IsAllocated() {
				Print(w, inr, raw)
			}
			inr++
		}
	}
	return nil
}
