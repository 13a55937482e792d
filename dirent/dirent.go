// Package dirent implements the directory layer: the 16-byte on-disk
// entry format, sequential directory reads, recursive path lookup, and
// entry creation.
package dirent

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofsd/v6fs/bitmap"
	"github.com/gofsd/v6fs/errors"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/sector"
	"github.com/gofsd/v6fs/vfile"
)

// MaxNameLength is the longest name, in bytes, that fits in one entry.
const MaxNameLength = 14

// entrySize is the on-disk size of one directory entry: a 14-byte name
// plus a 2-byte inode number.
const entrySize = MaxNameLength + 2

// entriesPerSector is the number of directory entries packed into one
// sector.
const entriesPerSector = sector.Size / entrySize

// RootInumber is the inode number of the filesystem root directory.
const RootInumber = 1

// Entry is one decoded directory entry.
type Entry struct {
	Name    string
	INumber uint16
}

func decodeEntry(buf []byte) Entry {
	name := string(buf[:MaxNameLength])
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Entry{
		Name:    name,
		INumber: uint16(buf[MaxNameLength]) | uint16(buf[MaxNameLength+1])<<8,
	}
}

func encodeEntry(e Entry) ([entrySize]byte, error) {
	var buf [entrySize]byte
	if len(e.Name) > MaxNameLength {
		return buf, errors.ErrFilenameTooLong
	}
	copy(buf[:MaxNameLength], e.Name)
	buf[MaxNameLength] = byte(e.INumber)
	buf[MaxNameLength+1] = byte(e.INumber >> 8)
	return buf, nil
}

// Reader walks the entries of one open directory sequentially, a sector
// at a time.
type Reader struct {
	file    *vfile.Descriptor
	entries []Entry
	cur     int
}

// OpenDir opens inr as a directory reader. It fails with
// ErrUnallocatedInode if the inode is not allocated, or
// ErrInvalidDirectoryInode if it is allocated but is not a directory.
func OpenDir(table inode.Table, fbm *bitmap.Bitmap, inr uint16) (*Reader, error) {
	fd, err := vfile.Open(table, fbm, inr)
	if err != nil {
		return nil, err
	}
	if !fd.Inode.IsDir() {
		return nil, errors.ErrInvalidDirectoryInode
	}
	return &Reader{file: fd}, nil
}

// ReadDir returns the next entry, or ok == false when the directory is
// exhausted.
func (r *Reader) ReadDir() (entry Entry, ok bool, err error) {
	if r.cur == len(r.entries) {
		var buf [sector.Size]byte
		n, err := r.file.ReadBlock(&buf)
		if err != nil {
			return Entry{}, false, err
		}
		if n == 0 {
			return Entry{}, false, nil
		}

		r.entries = r.entries[:0]
		for off := 0; off+entrySize <= n; off += entrySize {
			r.entries = append(r.entries, decodeEntry(buf[off:off+entrySize]))
		}
		r.cur = 0
	}

	e := r.entries[r.cur]
	r.cur++
	return e, true, nil
}

// Lookup resolves a slash-separated path starting at inr, walking one
// path component per directory level. Unlike the reference
// implementation this performs an exact name match rather than a
// strncmp-style prefix match at each level.
func Lookup(table inode.Table, fbm *bitmap.Bitmap, inr uint16, path string) (uint16, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return inr, nil
	}

	component, rest, hasMore := strings.Cut(path, "/")

	reader, err := OpenDir(table, fbm, inr)
	if err != nil {
		return 0, err
	}

	for {
		entry, ok, err := reader.ReadDir()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if entry.Name != component {
			continue
		}
		if !hasMore {
			return entry.INumber, nil
		}
		return Lookup(table, fbm, entry.INumber, rest)
	}

	return 0, errors.ErrInodeOutOfRange.WithMessage(
		fmt.Sprintf("no such entry %q", component))
}

// Create resolves the parent directory of path, allocates a new inode
// for the leaf with the given mode, and appends a directory entry
// pointing at it to the parent. It fails with ErrFilenameAlreadyExists
// if path already resolves to an inode.
func Create(table inode.Table, ibm, fbm *bitmap.Bitmap, path string, mode uint16) (uint16, error) {
	if _, err := Lookup(table, fbm, RootInumber, path); err == nil {
		return 0, errors.ErrFilenameAlreadyExists
	}

	trimmed := strings.TrimPrefix(path, "/")
	parentPath := ""
	leaf := trimmed
	if lastSlash := strings.LastIndex(trimmed, "/"); lastSlash >= 0 {
		parentPath = trimmed[:lastSlash]
		leaf = trimmed[lastSlash+1:]
	}

	if len(leaf) > MaxNameLength {
		return 0, errors.ErrFilenameTooLong
	}

	parentInr, err := Lookup(table, fbm, RootInumber, parentPath)
	if err != nil {
		return 0, errors.ErrBadParameter.WrapError(err)
	}

	next, err := table.Alloc(ibm)
	if err != nil {
		return 0, err
	}

	leafFd := &vfile.Descriptor{Table: table, FBM: fbm, INumber: next}
	if err := leafFd.Create(mode); err != nil {
		return 0, err
	}

	parentFd, err := vfile.Open(table, fbm, parentInr)
	if err != nil {
		return 0, err
	}

	raw, err := encodeEntry(Entry{Name: leaf, INumber: next})
	if err != nil {
		return 0, err
	}
	if err := parentFd.WriteBytes(raw[:]); err != nil {
		return 0, err
	}

	return next, nil
}

// PrintTree writes a recursive listing of the subtree rooted at inr,
// prefixing directories with "DIR" and files with "FIL".
func PrintTree(w io.Writer, table inode.Table, fbm *bitmap.Bitmap, inr uint16, prefix string) error {
	reader, err := OpenDir(table, fbm, inr)
	if err != nil {
		if err == errors.ErrInvalidDirectoryInode {
			fmt.Fprintf(w, "FIL %s\n", prefix)
			return nil
		}
		return err
	}
	fmt.Fprintf(w, "DIR %s/\n", prefix)

	for {
		entry, ok, err := reader.ReadDir()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		childPrefix := prefix + "/" + entry.Name
		if err := PrintTree(w, table, fbm, entry.INumber, childPrefix); err != nil {
			return err
		}
	}
	return nil
}
