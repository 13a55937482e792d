// Package v6fs ties the sector, bitmap, inode, vfile, and dirent layers
// together into a mountable filesystem: superblock handling, free-space
// bitmap reconstruction, and image formatting.
package v6fs

import (
	"fmt"
	"io"

	"github.com/gofsd/v6fs/bitmap"
	"github.com/gofsd/v6fs/dirent"
	"github.com/gofsd/v6fs/errors"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/sector"
	"github.com/hashicorp/go-multierror"
)

const (
	bootblockSector   = 0
	superblockSector  = 1
	defaultInodeStart = 2
)

// FileSystem is a mounted v6 image: the backing image, its superblock,
// and the two reconstructed free-space bitmaps.
type FileSystem struct {
	Image  io.ReadWriteSeeker
	Super  Superblock
	Inodes inode.Table
	IBM    *bitmap.Bitmap
	FBM    *bitmap.Bitmap
}

// Mount opens an existing v6 image: it verifies the bootblock magic,
// reads the superblock, allocates the two bitmaps over their documented
// ranges, and reconstructs their contents by scanning the inode table.
func Mount(image io.ReadWriteSeeker) (*FileSystem, error) {
	boot, err := sector.Read(image, bootblockSector)
	if err != nil {
		return nil, err
	}
	if boot[BootblockMagicOffset] != BootblockMagicValue {
		return nil, errors.ErrBadBootSector
	}

	superSector, err := sector.Read(image, superblockSector)
	if err != nil {
		return nil, err
	}
	var raw [superblockSize]byte
	copy(raw[:], superSector[:superblockSize])
	super := DecodeSuperblock(raw)

	fbm, err := bitmap.New(int(super.BlockStart)+1, int(super.FSize)-1)
	if err != nil {
		return nil, errors.ErrNoMem.WrapError(err)
	}
	ibm, err := bitmap.New(int(super.InodeStart), int(super.ISize)*inode.PerSector-1)
	if err != nil {
		return nil, errors.ErrNoMem.WrapError(err)
	}

	table := inode.Table{Image: image, StartSector: uint32(super.InodeStart), NumSectors: uint32(super.ISize)}
	fs := &FileSystem{Image: image, Super: super, Inodes: table, IBM: ibm, FBM: fbm}

	if err := fs.fillIBM(); err != nil {
		return nil, err
	}
	if err := fs.fillFBM(); err != nil {
		return nil, err
	}
	return fs, nil
}

// fillIBM walks every inode slot and sets its bit in IBM when the
// record's IALLOC bit is set. Decode failures for individual sectors are
// collected rather than aborting the scan, so one corrupt sector does
// not prevent reconstructing the rest of the bitmap.
func (fs *FileSystem) fillIBM() error {
	var result *multierror.Error

	inr := uint16(0)
	for s := uint32(0); s < fs.Inodes.NumSectors; s++ {
		sec, err := sector.Read(fs.Image, fs.Inodes.StartSector+s)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("inode sector %d: %w", s, err))
			inr += inode.PerSector
			continue
		}
		for off := 0; off < sector.Size; off += inode.Size {
			var record [inode.Size]byte
			copy(record[:], sec[off:off+inode.Size])
			raw := inode.Decode(record)
			if raw.IsAllocated() {
				fs.IBM.Set(int(inr))
			}
			inr++
		}
	}
	return result.ErrorOrNil()
}

// fillFBM replays every allocated inode's address list (direct and, for
// larger files, single-indirect) and marks each referenced data sector,
// including the indirect sectors themselves.
func (fs *FileSystem) fillFBM() error {
	var result *multierror.Error

	// The root inode (number 1) sits below IBM.Min (= s_inode_start), so
	// the scan must start one inode earlier than IBM's own range to
	// reach it; it is always treated as allocated, per spec.
	start := fs.IBM.Min - 1
	if dirent.RootInumber < start {
		start = dirent.RootInumber
	}

	for i := start; i <= fs.IBM.Max; i++ {
		if i != dirent.RootInumber {
			allocated, err := fs.IBM.Get(i)
			if err != nil || allocated != 1 {
				continue
			}
		}

		raw, err := fs.Inodes.Read(uint16(i))
		if err != nil {
			continue
		}

		size := inode.GetSize(raw)
		if size > inode.SmallFileCapacity {
			for _, a := range raw.Addr {
				fs.FBM.Set(int(a))
			}
		}

		offset := int64(0)
		fileSecOff := int32(0)
		for offset < size {
			secIdx, err := fs.Inodes.FindSector(raw, fileSecOff)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("inode %d offset %d: %w", i, offset, err))
				break
			}
			fs.FBM.Set(int(secIdx))
			offset += sector.Size
			fileSecOff++
		}
	}
	return result.ErrorOrNil()
}

// Umount releases a mounted filesystem: the in-memory bitmaps are
// dropped and, if the backing image implements io.Closer (as an
// *os.File does), it is closed. It fails with ErrIO if the close fails.
// Images that do not implement io.Closer (e.g. an in-memory test
// fixture) are left as-is.
func (fs *FileSystem) Umount() error {
	fs.IBM = nil
	fs.FBM = nil

	if closer, ok := fs.Image.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return errors.ErrIO.WrapError(err)
		}
	}
	return nil
}

// PrintSuperblock writes a human-readable dump of every superblock
// field, in the style of the reference mount routine's diagnostic
// printer.
func PrintSuperblock(w io.Writer, s Superblock) {
	fmt.Fprintln(w, "**********FS SUPERBLOCK START**********")
	fmt.Fprintf(w, "s_isize             : %d\n", s.ISize)
	fmt.Fprintf(w, "s_fsize             : %d\n", s.FSize)
	fmt.Fprintf(w, "s_fbmsize           : %d\n", s.FBMSize)
	fmt.Fprintf(w, "s_ibmsize           : %d\n", s.IBMSize)
	fmt.Fprintf(w, "s_inode_start       : %d\n", s.InodeStart)
	fmt.Fprintf(w, "s_block_start       : %d\n", s.BlockStart)
	fmt.Fprintf(w, "s_fbm_start         : %d\n", s.FBMStart)
	fmt.Fprintf(w, "s_ibm_start         : %d\n", s.IBMStart)
	fmt.Fprintf(w, "s_flock             : %d\n", s.FLock)
	fmt.Fprintf(w, "s_ilock             : %d\n", s.ILock)
	fmt.Fprintf(w, "s_fmod              : %d\n", s.FMod)
	fmt.Fprintf(w, "s_ronly             : %d\n", s.ROnly)
	fmt.Fprintf(w, "s_time              : [0] %d\n", s.Time[0])
	fmt.Fprintln(w, "**********FS SUPERBLOCK END**********")
}
