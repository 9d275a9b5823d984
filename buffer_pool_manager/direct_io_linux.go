//go:build linux
// +build linux

package buffer_pool_manager

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenFileDirectIO opens the database file with the O_DIRECT flag, so reads
// and writes bypass the kernel page cache. Buffers handed to the returned
// file must be block aligned, see directio.AlignedBlock.
func OpenFileDirectIO(filePath string, flags int, permissions os.FileMode) (*os.File, error) {

	fd, err := unix.Open(filePath, flags|unix.O_DIRECT, uint32(permissions))

	if err != nil {
		return nil, fmt.Errorf("failed to open %s in direct I/O mode: %w", filePath, err)
	}

	return os.NewFile(uintptr(fd), filePath), nil
}
