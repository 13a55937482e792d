package inode_test

import (
	"bytes"
	"testing"

	"github.com/gofsd/v6fs/bitmap"
	"github.com/gofsd/v6fs/inode"
	"github.com/gofsd/v6fs/sector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func TestEncodeDecode_RoundTrips(t *testing.T) {
	raw := inode.RawInode{
		Mode:  inode.IALLOC | 0o644,
		NLink: 1,
		UID:   7,
		GID:   3,
	}
	require.NoError(t, inode.SetSize(&raw, 1234567))
	for i := range raw.Addr {
		raw.Addr[i] = uint16(100 + i)
	}
	raw.Atime = [2]uint16{1, 2}
	raw.Mtime = [2]uint16{3, 4}

	got := inode.Decode(raw.Encode())
	assert.Equal(t, raw, got)
}

func TestGetSetSize(t *testing.T) {
	var raw inode.RawInode
	require.NoError(t, inode.SetSize(&raw, 0))
	assert.EqualValues(t, 0, inode.GetSize(raw))

	require.NoError(t, inode.SetSize(&raw, 1<<24-1))
	assert.EqualValues(t, 1<<24-1, inode.GetSize(raw))

	assert.Error(t, inode.SetSize(&raw, -1))
}

func newTable(t *testing.T, numSectors uint32) inode.Table {
	t.Helper()
	image := bytesextra.NewReadWriteSeeker(make([]byte, int(numSectors)*sector.Size*4))
	return inode.Table{Image: image, StartSector: 0, NumSectors: numSectors}
}

func TestWriteThenRead_RoundTrips(t *testing.T) {
	table := newTable(t, 1)

	raw := inode.RawInode{Mode: inode.IALLOC | inode.IFDIR}
	require.NoError(t, inode.SetSize(&raw, 16))

	require.NoError(t, table.Write(1, raw))

	got, err := table.Read(1)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestRead_UnallocatedFails(t *testing.T) {
	table := newTable(t, 1)
	_, err := table.Read(0)
	assert.Error(t, err)
}

func TestRead_OutOfRangeFails(t *testing.T) {
	table := newTable(t, 1)
	_, err := table.Read(table.MaxInumber() + 1)
	assert.Error(t, err)
}

func TestFindSector_Direct(t *testing.T) {
	table := newTable(t, 1)

	var raw inode.RawInode
	raw.Mode = inode.IALLOC
	raw.Addr[0] = 42
	require.NoError(t, inode.SetSize(&raw, 100))

	got, err := table.FindSector(raw, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
}

func TestFindSector_OffsetOutOfRange(t *testing.T) {
	table := newTable(t, 1)

	var raw inode.RawInode
	raw.Mode = inode.IALLOC
	require.NoError(t, inode.SetSize(&raw, 513))

	// Sector 2 would start at byte 1024, past the 513-byte file entirely.
	_, err := table.FindSector(raw, 2)
	assert.Error(t, err)
}

func TestFindSector_SizeBoundary(t *testing.T) {
	table := newTable(t, 1)

	var raw inode.RawInode
	raw.Mode = inode.IALLOC
	raw.Addr[0] = 10
	raw.Addr[1] = 11
	require.NoError(t, inode.SetSize(&raw, 513))

	// Sector 1 holds only the file's last byte (offset 512 of 513), but
	// it is still within bounds and must resolve successfully.
	_, err := table.FindSector(raw, 0)
	assert.NoError(t, err)
	_, err = table.FindSector(raw, 1)
	assert.NoError(t, err)
	_, err = table.FindSector(raw, 2)
	assert.Error(t, err)
}

func TestFindSector_Indirect(t *testing.T) {
	image := bytesextra.NewReadWriteSeeker(make([]byte, sector.Size*20))
	table := inode.Table{Image: image, StartSector: 0, NumSectors: 1}

	var indirect0, indirect1 [sector.Size]byte
	// entry 0 of indirect sector 5 points at data sector 200.
	indirect0[0] = 200
	// entry 0 of indirect sector 6 points at data sector 201.
	indirect1[0] = 201
	require.NoError(t, sector.Write(image, 5, indirect0))
	require.NoError(t, sector.Write(image, 6, indirect1))

	var raw inode.RawInode
	raw.Mode = inode.IALLOC
	raw.Addr[0] = 5
	raw.Addr[1] = 6
	// Large enough to reach slice 256, which falls in the second
	// indirect sector (addr[1]).
	require.NoError(t, inode.SetSize(&raw, 257*sector.Size))

	got, err := table.FindSector(raw, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 200, got)

	got, err = table.FindSector(raw, 256)
	require.NoError(t, err)
	assert.EqualValues(t, 201, got)
}

func TestFindSector_TooLarge(t *testing.T) {
	table := newTable(t, 1)

	var raw inode.RawInode
	raw.Mode = inode.IALLOC
	require.NoError(t, inode.SetSize(&raw, inode.IndirectCapacity+1))

	_, err := table.FindSector(raw, 0)
	assert.Error(t, err)
}

func TestAlloc(t *testing.T) {
	ibm, err := bitmap.New(0, 15)
	require.NoError(t, err)
	table := newTable(t, 1)

	first, err := table.Alloc(ibm)
	require.NoError(t, err)
	second, err := table.Alloc(ibm)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestScanPrint_ListsOnlyAllocated(t *testing.T) {
	table := newTable(t, 1)

	raw := inode.RawInode{Mode: inode.IALLOC | inode.IFDIR}
	require.NoError(t, table.Write(1, raw))

	var buf bytes.Buffer
	require.NoError(t, table.ScanPrint(&buf))
	assert.Contains(t, buf.String(), "(DIR)")
	assert.Contains(t, buf.String(), "inode")
}
