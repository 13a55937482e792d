package dirent_test

import (
	"bytes"
	"testing"

	"github.com/gofsd/v6fs/bitmap"
	"github.com/gofsd/v6fs/dirent"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/sector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

type fixture struct {
	table inode.Table
	ibm   *bitmap.Bitmap
	fbm   *bitmap.Bitmap
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	image := bytesextra.NewReadWriteSeeker(make([]byte, sector.Size*64))
	table := inode.Table{Image: image, StartSector: 0, NumSectors: 2}
	// Inode 0 is reserved, so the inode bitmap starts at 1.
	ibm, err := bitmap.New(1, int(table.MaxInumber()))
	require.NoError(t, err)
	fbm, err := bitmap.New(2, 63)
	require.NoError(t, err)

	root := inode.RawInode{Mode: inode.IALLOC | inode.IFDIR}
	require.NoError(t, table.Write(dirent.RootInumber, root))
	ibm.Set(dirent.RootInumber)

	return fixture{table: table, ibm: ibm, fbm: fbm}
}

func TestCreate_TopLevelFile(t *testing.T) {
	fx := newFixture(t)

	inr, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "hello.txt", inode.IALLOC)
	require.NoError(t, err)
	assert.NotZero(t, inr)

	got, err := dirent.Lookup(fx.table, fx.fbm, dirent.RootInumber, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, inr, got)
}

func TestCreate_DuplicateNameFails(t *testing.T) {
	fx := newFixture(t)

	_, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "a", inode.IALLOC)
	require.NoError(t, err)

	_, err = dirent.Create(fx.table, fx.ibm, fx.fbm, "a", inode.IALLOC)
	assert.Error(t, err)
}

func TestCreate_NestedPath(t *testing.T) {
	fx := newFixture(t)

	dirInr, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "sub", inode.IALLOC|inode.IFDIR)
	require.NoError(t, err)

	raw, err := fx.table.Read(dirInr)
	require.NoError(t, err)
	require.True(t, raw.IsDir())

	leafInr, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "sub/child.txt", inode.IALLOC)
	require.NoError(t, err)

	got, err := dirent.Lookup(fx.table, fx.fbm, dirent.RootInumber, "sub/child.txt")
	require.NoError(t, err)
	assert.Equal(t, leafInr, got)
}

func TestLookup_ExactMatchNotPrefix(t *testing.T) {
	fx := newFixture(t)

	// The longer name comes first, so a prefix match on "ab" would hit it.
	longInr, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "abcdef", inode.IALLOC)
	require.NoError(t, err)
	shortInr, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "ab", inode.IALLOC)
	require.NoError(t, err)
	require.NotEqual(t, shortInr, longInr)

	got, err := dirent.Lookup(fx.table, fx.fbm, dirent.RootInumber, "ab")
	require.NoError(t, err)
	assert.Equal(t, shortInr, got)
}

func TestLookup_MissingFails(t *testing.T) {
	fx := newFixture(t)
	_, err := dirent.Lookup(fx.table, fx.fbm, dirent.RootInumber, "nope")
	assert.Error(t, err)
}

func TestLookup_EmptyPathReturnsSelf(t *testing.T) {
	fx := newFixture(t)
	got, err := dirent.Lookup(fx.table, fx.fbm, dirent.RootInumber, "")
	require.NoError(t, err)
	assert.EqualValues(t, dirent.RootInumber, got)
}

func TestOpenDir_RejectsNonDirectory(t *testing.T) {
	fx := newFixture(t)

	fileInr, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "plain.txt", inode.IALLOC)
	require.NoError(t, err)

	_, err = dirent.OpenDir(fx.table, fx.fbm, fileInr)
	assert.Error(t, err)
}

func TestPrintTree_ListsDirAndFiles(t *testing.T) {
	fx := newFixture(t)

	_, err := dirent.Create(fx.table, fx.ibm, fx.fbm, "sub", inode.IALLOC|inode.IFDIR)
	require.NoError(t, err)
	_, err = dirent.Create(fx.table, fx.ibm, fx.fbm, "sub/leaf.txt", inode.IALLOC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, dirent.PrintTree(&buf, fx.table, fx.fbm, dirent.RootInumber, ""))

	out := buf.String()
	assert.Contains(t, out, "DIR")
	assert.Contains(t, out, "sub")
	assert.Contains(t, out, "leaf.txt")
}
