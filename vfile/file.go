// Package vfile implements the stateful, per-open-file cursor over an
// inode's byte stream: sequential block reads, seeking within the file's
// bounds, and append-only writes that grow the inode's address table.
package vfile

import (
	"github.com/gofsd/v6fs/bitmap"
	"github.com/gofsd/v6fs/errors"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/sector"
)

// writeCeiling is the limit WriteBytes enforces. The true capacity of
// direct addressing is 8*512 = 4096 bytes; 4000 is kept as the literal,
// historical ceiling rather than relaxed to the full address-table size.
const writeCeiling = 4000

// Descriptor is an open file: a back-reference to the inode table, the
// inode number, a cached copy of the record, and a byte offset. Its
// lifetime must not exceed the filesystem handle that produced it.
type Descriptor struct {
	Table   inode.Table
	FBM     *bitmap.Bitmap
	INumber uint16
	Inode   inode.RawInode
	Offset  int64
}

// Open reads the inode for inr and returns a Descriptor positioned at the
// start of the file.
func Open(table inode.Table, fbm *bitmap.Bitmap, inr uint16) (*Descriptor, error) {
	raw, err := table.Read(inr)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Table:   table,
		FBM:     fbm,
		INumber: inr,
		Inode:   raw,
		Offset:  0,
	}, nil
}

// ReadBlock reads at most one sector's worth of data at the current
// offset into buf, which must be sector.Size bytes long. It returns the
// number of valid leading bytes in buf, 0 at end of file, or an error.
// The offset advances by exactly the returned count.
func (fd *Descriptor) ReadBlock(buf *[sector.Size]byte) (int, error) {
	size := inode.GetSize(fd.Inode)
	if fd.Offset > size {
		return 0, errors.ErrOffsetOutOfRange
	}
	if fd.Offset == size {
		return 0, nil
	}

	bytesRead := size - fd.Offset
	if bytesRead > sector.Size {
		bytesRead = sector.Size
	}

	secIdx, err := fd.Table.FindSector(fd.Inode, int32(fd.Offset/sector.Size))
	if err != nil {
		return 0, err
	}

	sec, err := sector.Read(fd.Table.Image, secIdx)
	if err != nil {
		return 0, err
	}
	*buf = sec

	fd.Offset += bytesRead
	return int(bytesRead), nil
}

// Lseek moves the file's cursor to newOffset. It fails with
// ErrOffsetOutOfRange if newOffset is negative or at-or-past the file's
// current size.
func (fd *Descriptor) Lseek(newOffset int64) error {
	size := inode.GetSize(fd.Inode)
	if newOffset < 0 || newOffset >= size {
		return errors.ErrOffsetOutOfRange
	}
	fd.Offset = newOffset
	return nil
}

// Create writes a freshly initialized inode record (zero except Mode) at
// fd.INumber and mirrors it into the cached copy.
func (fd *Descriptor) Create(mode uint16) error {
	raw := inode.RawInode{Mode: mode}
	if err := fd.Table.Write(fd.INumber, raw); err != nil {
		return err
	}
	fd.Inode = raw
	return nil
}

// WriteBytes appends len(buf) bytes to the end of the file, growing the
// inode's address table and size as needed, then persists the updated
// inode record. It fails with ErrFileTooLarge if the file would grow
// past the write ceiling.
func (fd *Descriptor) WriteBytes(buf []byte) error {
	size := inode.GetSize(fd.Inode)
	if size+int64(len(buf)) > writeCeiling {
		return errors.ErrFileTooLarge
	}

	remaining := buf
	for len(remaining) > 0 {
		written, err := fd.writeSector(remaining)
		if err != nil {
			return err
		}
		if written == 0 {
			break
		}
		remaining = remaining[written:]
	}

	return fd.Table.Write(fd.INumber, fd.Inode)
}

// writeSector is the append primitive: it writes as much of buf as fits
// in the file's current last sector (or a freshly allocated one), then
// grows the inode's size and address table accordingly.
func (fd *Descriptor) writeSector(buf []byte) (int, error) {
	size := inode.GetSize(fd.Inode)
	if size > inode.IndirectCapacity {
		return 0, errors.ErrFileTooLarge
	}

	if size%sector.Size == 0 {
		return fd.appendNewSector(buf, size)
	}
	return fd.fillPartialSector(buf, size)
}

func (fd *Descriptor) appendNewSector(buf []byte, size int64) (int, error) {
	numSector, err := fd.FBM.FindNext()
	if err != nil {
		return 0, errors.ErrNoMem.WrapError(err)
	}

	toWrite := len(buf)
	if toWrite > sector.Size {
		toWrite = sector.Size
	}
	if toWrite == 0 {
		return 0, nil
	}

	var sec [sector.Size]byte
	copy(sec[:], buf[:toWrite])
	if err := sector.Write(fd.Table.Image, uint32(numSector), sec); err != nil {
		return 0, err
	}
	fd.FBM.Set(numSector)

	addrIndex := size / sector.Size
	fd.Inode.Addr[addrIndex] = uint16(numSector)

	newSize := size + int64(toWrite)
	if err := inode.SetSize(&fd.Inode, newSize); err != nil {
		return 0, err
	}
	fd.Offset += int64(toWrite)
	return toWrite, nil
}

func (fd *Descriptor) fillPartialSector(buf []byte, size int64) (int, error) {
	filled := size % sector.Size
	room := int64(sector.Size) - filled

	toWrite := int64(len(buf))
	if toWrite > room {
		toWrite = room
	}
	if toWrite == 0 {
		return 0, nil
	}

	addrIndex := size / sector.Size
	secIdx := uint32(fd.Inode.Addr[addrIndex])

	sec, err := sector.Read(fd.Table.Image, secIdx)
	if err != nil {
		return 0, err
	}
	copy(sec[filled:], buf[:toWrite])
	if err := sector.Write(fd.Table.Image, secIdx, sec); err != nil {
		return 0, err
	}

	newSize := size + toWrite
	if err := inode.SetSize(&fd.Inode, newSize); err != nil {
		return 0, err
	}
	fd.Offset += toWrite
	return int(toWrite), nil
}

// ReadAll drains the file from the start, returning its full contents.
// It is a thin convenience built on ReadBlock for callers (hashing,
// tests) that want the whole stream rather than sector-at-a-time access.
func ReadAll(fd *Descriptor) ([]byte, error) {
	if err := fd.Lseek(0); err != nil {
		if inode.GetSize(fd.Inode) == 0 {
			return nil, nil
		}
		return nil, err
	}

	var out []byte
	var buf [sector.Size]byte
	for {
		n, err := fd.ReadBlock(&buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, buf[:n]...)
	}
}
