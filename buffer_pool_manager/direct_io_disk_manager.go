package buffer_pool_manager

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ncw/directio"

	codec "github.com/zhonghao-hub/Database/page_codec"
)

// DirectIODiskManager uses Direct I/O to read/write pages of data directly between user process memory and disk controller.

// Direct I/O bypasses the kernel page cache, this is useful because:
// 1. It prevents the file data from being cached twice, once in kernel page cache, and once in database process memory.
// 2. It gives the database complete control over when data is flushed to disk.

type DirectIODiskManager struct {
	file     *os.File
	metadata *codec.MetaData
	codec    codec.MetaDataCodec
	mutex    *sync.Mutex
}

func NewDirectIODiskManager(filePath string) (*DirectIODiskManager, error) {

	newFileCreated := false

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		slog.Info("database file does not exist, creating new file...", "filePath", filePath, "function", "NewDirectIODiskManager", "at", "DirectIODiskManager")
		newFileCreated = true
	}

	slog.Info("Opening file in DIRECT I/O mode", "function", "NewDirectIODiskManager", "at", "DirectIODiskManager")

	file, err := OpenFileDirectIO(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, err
	}

	disk := &DirectIODiskManager{
		file:  file,
		codec: codec.DefaultMetaDataCodec(),
		mutex: &sync.Mutex{},
	}

	// if a new file had to be created, create a metadata page, and write it to disk.
	if newFileCreated {

		disk.metadata = &codec.MetaData{
			MaxAllocatedPageId:    0,
			DeallocatedPageIdList: []uint64{},
		}

		if err = disk.writePage(METADATA_PAGE_ID, disk.codec.EncodeMetaDataPage(disk.metadata)); err != nil {

			slog.Error("Failed to write metadata page", "error", err.Error(), "function", "NewDirectIODiskManager", "at", "DirectIODiskManager")
			return nil, err
		}

	} else {

		metaDataPage := directio.AlignedBlock(PAGE_SIZE)

		if err = disk.readPage(METADATA_PAGE_ID, metaDataPage); err != nil {

			slog.Error("Failed to read metadata page", "error", err.Error(), "function", "NewDirectIODiskManager", "at", "DirectIODiskManager")
			return nil, err
		}

		disk.metadata = disk.codec.DecodeMetaDataPage(metaDataPage)
	}

	return disk, nil
}

// readPage reads one page worth of data into buf through an aligned block.
// The ReadAt function internally calls the pread system call that reads data at the offset in a thread safe manner.
func (disk *DirectIODiskManager) readPage(pageId PageID, buf []byte) error {

	block := directio.AlignedBlock(PAGE_SIZE)

	n, err := disk.file.ReadAt(block, int64(pageId)*PAGE_SIZE)

	if err != nil {
		slog.Error("Failed to read page", "pageId", pageId, "error", err.Error(), "function", "readPage", "at", "DirectIODiskManager")
		return err
	}

	if n != PAGE_SIZE {
		return fmt.Errorf("incomplete read")
	}

	copy(buf[:PAGE_SIZE], block)
	return nil
}

// writePage writes one page worth of data through an aligned block.
// The WriteAt function internally calls the pwrite system call that writes data to the offset in a thread safe manner.
func (disk *DirectIODiskManager) writePage(pageId PageID, data []byte) error {

	block := directio.AlignedBlock(PAGE_SIZE)
	copy(block, data[:PAGE_SIZE])

	n, err := disk.file.WriteAt(block, int64(pageId)*PAGE_SIZE)

	if err != nil {
		slog.Error("Failed to write page", "pageId", pageId, "error", err.Error(), "function", "writePage", "at", "DirectIODiskManager")
		return err
	}

	if n != PAGE_SIZE {
		return fmt.Errorf("incomplete write")
	}
	return nil
}

// allocatePage allocates a page in the file and returns a new page ID for use.
// It reuses a deallocated page ID if available, otherwise increments maxAllocatedPageId and returns a new page ID.
func (disk *DirectIODiskManager) allocatePage() (PageID, error) {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	// check if deallocated pages exist in the file.
	// A deallocated page is a page that was previously allocated, but is no longer useful, and can be reused.
	if len(disk.metadata.DeallocatedPageIdList) > 0 {

		pageId := disk.metadata.DeallocatedPageIdList[0]
		disk.metadata.DeallocatedPageIdList = disk.metadata.DeallocatedPageIdList[1:]
		return PageID(pageId), nil

	} else {

		// if all pages in the file are currently allocated, we check the file size.
		fileStats, err := disk.file.Stat()

		if err != nil {
			return 0, err
		}

		// if the number of pages in the file = max allocated page ID + 1 (plus one because page IDs start from 0),
		// then the file is full and doesnt have free pages, so we add 16 pages to the end of the file.
		if disk.metadata.MaxAllocatedPageId+1 == (uint64(fileStats.Size()) / PAGE_SIZE) {

			extension := directio.AlignedBlock(PAGE_SIZE * 16)

			n, err := disk.file.WriteAt(extension, int64(disk.metadata.MaxAllocatedPageId+1)*PAGE_SIZE)

			if err != nil || n != len(extension) {
				slog.Error("Failed to extend file", "error", err, "function", "allocatePage", "at", "DirectIODiskManager")
				return 0, fmt.Errorf("failed to extend file: %w", err)
			}
		}

		pageId := disk.metadata.MaxAllocatedPageId + 1
		disk.metadata.MaxAllocatedPageId++

		return PageID(pageId), nil
	}
}

// deallocatePage marks a page ID as free and adds it to the free list, making it available for future allocation.
func (disk *DirectIODiskManager) deallocatePage(pageId PageID) {

	disk.mutex.Lock()
	disk.metadata.DeallocatedPageIdList = append(disk.metadata.DeallocatedPageIdList, uint64(pageId))
	disk.mutex.Unlock()
}

// writes the serialized metadata page to file, then closes the file.
func (disk *DirectIODiskManager) close() error {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	slog.Info("Closing DirectIODiskManager...", "function", "close", "at", "DirectIODiskManager")

	if err := disk.writePage(METADATA_PAGE_ID, disk.codec.EncodeMetaDataPage(disk.metadata)); err != nil {

		slog.Error("Failed to write metadata page", "error", err.Error(), "function", "close", "at", "DirectIODiskManager")
		return err
	}

	if err := disk.file.Close(); err != nil {

		slog.Error("Failed to close file", "error", err.Error(), "function", "close", "at", "DirectIODiskManager")
		return err
	}

	return nil
}
