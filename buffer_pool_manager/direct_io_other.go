//go:build !linux
// +build !linux

package buffer_pool_manager

import (
	"os"

	"github.com/ncw/directio"
)

// OpenFileDirectIO opens the database file for direct I/O on platforms
// without O_DIRECT, falling back to the directio library's platform support.
func OpenFileDirectIO(filePath string, flags int, permissions os.FileMode) (*os.File, error) {

	return directio.OpenFile(filePath, flags, permissions)
}
