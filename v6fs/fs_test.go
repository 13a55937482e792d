package v6fs_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/gofsd/v6fs/dirent"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/v6fs"
	"github.com/gofsd/v6fs/vfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newImage(t *testing.T, numBlocks, numInodes uint16) io.ReadWriteSeeker {
	t.Helper()
	image := bytesextra.NewReadWriteSeeker(make([]byte, int(numBlocks)*512))
	require.NoError(t, v6fs.Mkfs(image, numBlocks, numInodes))
	return image
}

func TestMkfsThenMount_RootDirectoryExists(t *testing.T) {
	image := newImage(t, 64, 16)

	fs, err := v6fs.Mount(image)
	require.NoError(t, err)

	raw, err := fs.Inodes.Read(dirent.RootInumber)
	require.NoError(t, err)
	assert.True(t, raw.IsDir())
	assert.True(t, raw.IsAllocated())
}

func TestMount_RejectsBadMagic(t *testing.T) {
	image := bytesextra.NewReadWriteSeeker(make([]byte, 512*8))
	_, err := v6fs.Mount(image)
	assert.Error(t, err)
}

func TestMkfs_NotEnoughBlocksFails(t *testing.T) {
	image := bytesextra.NewReadWriteSeeker(make([]byte, 512*8))
	err := v6fs.Mkfs(image, 4, 16)
	assert.Error(t, err)
}

func TestMkfsMountCreateAndReadBack(t *testing.T) {
	image := newImage(t, 64, 16)

	fs, err := v6fs.Mount(image)
	require.NoError(t, err)

	inr, err := dirent.Create(fs.Inodes, fs.IBM, fs.FBM, "hello.txt", inode.IALLOC)
	require.NoError(t, err)

	fd, err := vfile.Open(fs.Inodes, fs.FBM, inr)
	require.NoError(t, err)
	require.NoError(t, fd.WriteBytes([]byte("abc")))

	fd2, err := vfile.Open(fs.Inodes, fs.FBM, inr)
	require.NoError(t, err)
	got, err := vfile.ReadAll(fd2)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestPrintSuperblock_IncludesEveryField(t *testing.T) {
	image := newImage(t, 64, 16)
	fs, err := v6fs.Mount(image)
	require.NoError(t, err)

	var buf bytes.Buffer
	v6fs.PrintSuperblock(&buf, fs.Super)

	out := buf.String()
	assert.Contains(t, out, "s_isize")
	assert.Contains(t, out, "s_fsize")
	assert.Contains(t, out, "s_inode_start")
	assert.Contains(t, out, "s_block_start")
}

func TestUmount_ClearsBitmaps(t *testing.T) {
	image := newImage(t, 64, 16)
	fs, err := v6fs.Mount(image)
	require.NoError(t, err)

	require.NoError(t, fs.Umount())
	assert.Nil(t, fs.IBM)
	assert.Nil(t, fs.FBM)
}
