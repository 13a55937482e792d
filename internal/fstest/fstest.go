// Package fstest builds in-memory v6 filesystem fixtures for tests.
// Every image is formatted fresh via v6fs.Mkfs against a byte slice
// backed by bytesextra rather than loaded from a binary fixture file.
package fstest

import (
	"testing"

	"github.com/gofsd/v6fs/v6fs"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewMountedImage formats and mounts a fresh image of numBlocks sectors
// with room for numInodes inodes.
func NewMountedImage(t *testing.T, numBlocks, numInodes uint16) *v6fs.FileSystem {
	t.Helper()

	image := bytesextra.NewReadWriteSeeker(make([]byte, int(numBlocks)*512))
	require.NoError(t, v6fs.Mkfs(image, numBlocks, numInodes))

	fs, err := v6fs.Mount(image)
	require.NoError(t, err)
	return fs
}
