// Package sector implements fixed-size block access to a v6 filesystem's
// backing image. There is no caching: every Read/Write is a direct seek
// and transfer against the underlying stream.
package sector

import (
	"io"

	"github.com/gofsd/v6fs/errors"
)

// Size is the fixed size, in bytes, of every sector on a v6 image.
const Size = 512

// Read fetches the sector at the given index from image. It fails with
// ErrIO if the seek or the read comes up short.
func Read(image io.ReadWriteSeeker, index uint32) ([Size]byte, error) {
	var buf [Size]byte

	_, err := image.Seek(int64(index)*Size, io.SeekStart)
	if err != nil {
		return buf, errors.ErrIO.WrapError(err)
	}

	n, err := io.ReadFull(image, buf[:])
	if err != nil {
		return buf, errors.ErrIO.WrapError(err)
	}
	if n != Size {
		return buf, errors.ErrIO.WithMessage("short read")
	}
	return buf, nil
}

// Write stores data as the sector at the given index of image. It fails
// with ErrIO if the seek or the write comes up short.
func Write(image io.ReadWriteSeeker, index uint32, data [Size]byte) error {
	_, err := image.Seek(int64(index)*Size, io.SeekStart)
	if err != nil {
		return errors.ErrIO.WrapError(err)
	}

	n, err := image.Write(data[:])
	if err != nil {
		return errors.ErrIO.WrapError(err)
	}
	if n != Size {
		return errors.ErrIO.WithMessage("short write")
	}
	return nil
}
