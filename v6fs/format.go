package v6fs

import (
	"io"
	"math"

	"github.com/gofsd/v6fs/errors"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/sector"
	"github.com/noxer/bytewriter"
)

// Mkfs formats image as a fresh v6 filesystem of numBlocks sectors with
// room for numInodes inodes. It lays out the boot sector, the
// superblock, and a zeroed inode table with slot 1 initialized as an
// empty root directory, writing the whole image in one sequential pass.
func Mkfs(image io.ReadWriteSeeker, numBlocks, numInodes uint16) error {
	iSize := uint16(math.Ceil(float64(numInodes) / float64(inode.PerSector)))
	if numBlocks < iSize+numInodes {
		return errors.ErrNotEnoughBlocks
	}

	super := Superblock{
		ISize:      iSize,
		FSize:      numBlocks,
		InodeStart: defaultInodeStart,
		BlockStart: defaultInodeStart + iSize,
	}

	buf := make([]byte, int(numBlocks)*sector.Size)
	writer := bytewriter.New(buf)

	var boot [sector.Size]byte
	boot[BootblockMagicOffset] = BootblockMagicValue
	if _, err := writer.Write(boot[:]); err != nil {
		return errors.ErrIO.WrapError(err)
	}

	var superSector [sector.Size]byte
	encoded := super.Encode()
	copy(superSector[:], encoded[:])
	if _, err := writer.Write(superSector[:]); err != nil {
		return errors.ErrIO.WrapError(err)
	}

	root := inode.RawInode{Mode: inode.IFDIR | inode.IALLOC}
	for s := uint16(0); s < iSize; s++ {
		var sec [sector.Size]byte
		if s == 0 {
			record := root.Encode()
			copy(sec[inode.Size:inode.Size*2], record[:])
		}
		if _, err := writer.Write(sec[:]); err != nil {
			return errors.ErrIO.WrapError(err)
		}
	}

	if _, err := image.Seek(0, io.SeekStart); err != nil {
		return errors.ErrIO.WrapError(err)
	}
	if _, err := image.Write(buf); err != nil {
		return errors.ErrIO.WrapError(err)
	}
	return nil
}
