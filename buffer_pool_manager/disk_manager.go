package buffer_pool_manager

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	codec "github.com/zhonghao-hub/Database/page_codec"
)

// Disk Manager is responsible for reading, writing, allocating and deallocating pages on disk.
type DiskManager interface {

	// readPage reads one page worth of data into buf.
	readPage(pageId PageID, buf []byte) error

	// writePage writes one page worth of data to disk.
	writePage(pageId PageID, data []byte) error

	// allocatePage allocates a page in the file and returns a new page ID for use.
	// It reuses a deallocated page ID if available, otherwise increments maxAllocatedPageId and returns a new page ID.
	// The invalid page ID 0 is never returned, page 0 holds the disk manager's metadata.
	allocatePage() (PageID, error)

	// deallocatePage marks a page ID as free and adds it to the free list, making it available for future allocation.
	deallocatePage(pageId PageID)

	// writes the serialized metadata page to file, then closes the file.
	close() error
}

// OSBufferedDiskManager reads and writes pages through the kernel page cache.
type OSBufferedDiskManager struct {
	file     *os.File
	metadata *codec.MetaData
	codec    codec.MetaDataCodec
	mutex    *sync.Mutex
}

func NewOSBufferedDiskManager(filePath string) (*OSBufferedDiskManager, error) {

	newFileCreated := false

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		slog.Info("database file does not exist, creating new file...", "filePath", filePath, "function", "NewOSBufferedDiskManager", "at", "OSBufferedDiskManager")
		newFileCreated = true
	}

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)

	if err != nil {
		return nil, err
	}

	disk := &OSBufferedDiskManager{
		file:  file,
		codec: codec.DefaultMetaDataCodec(),
		mutex: &sync.Mutex{},
	}

	// if a new file had to be created, create a metadata page and write it to disk.
	if newFileCreated {

		disk.metadata = &codec.MetaData{
			MaxAllocatedPageId:    0,
			DeallocatedPageIdList: []uint64{},
		}

		if err = disk.writePage(METADATA_PAGE_ID, disk.codec.EncodeMetaDataPage(disk.metadata)); err != nil {
			return nil, err
		}

	} else {

		metaDataPage := make([]byte, PAGE_SIZE)

		if err = disk.readPage(METADATA_PAGE_ID, metaDataPage); err != nil {
			slog.Error("Failed to read metadata page", "error", err.Error(), "function", "NewOSBufferedDiskManager", "at", "OSBufferedDiskManager")
			return nil, err
		}

		disk.metadata = disk.codec.DecodeMetaDataPage(metaDataPage)
	}

	return disk, nil
}

// readPage reads one page worth of data starting at the page's offset in the file.
func (disk *OSBufferedDiskManager) readPage(pageId PageID, buf []byte) error {

	n, err := disk.file.ReadAt(buf[:PAGE_SIZE], int64(pageId)*PAGE_SIZE)

	if err != nil {
		return err
	}

	if n != PAGE_SIZE {
		return fmt.Errorf("incomplete read")
	}
	return nil
}

// writePage writes one page worth of data at the page's offset in the file.
func (disk *OSBufferedDiskManager) writePage(pageId PageID, data []byte) error {

	n, err := disk.file.WriteAt(data[:PAGE_SIZE], int64(pageId)*PAGE_SIZE)

	if err != nil {
		return err
	}

	if n != PAGE_SIZE {
		return fmt.Errorf("incomplete write")
	}
	return nil
}

// allocatePage allocates a page in the file and returns a new page ID for use.
// It reuses a deallocated page ID if available, otherwise increments and returns a new page ID.
func (disk *OSBufferedDiskManager) allocatePage() (PageID, error) {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	if len(disk.metadata.DeallocatedPageIdList) > 0 {

		pageId := disk.metadata.DeallocatedPageIdList[0]
		disk.metadata.DeallocatedPageIdList = disk.metadata.DeallocatedPageIdList[1:]
		return PageID(pageId), nil

	} else {

		pageId := disk.metadata.MaxAllocatedPageId + 1
		disk.metadata.MaxAllocatedPageId++
		return PageID(pageId), nil
	}
}

// deallocatePage marks a page ID as free and adds it to the free list,
// making it available for future allocation.
func (disk *OSBufferedDiskManager) deallocatePage(pageId PageID) {

	disk.mutex.Lock()
	disk.metadata.DeallocatedPageIdList = append(disk.metadata.DeallocatedPageIdList, uint64(pageId))
	disk.mutex.Unlock()
}

// writes the serialized metadata page to file, then closes the file.
func (disk *OSBufferedDiskManager) close() error {

	disk.mutex.Lock()
	defer disk.mutex.Unlock()

	metaDataPage := disk.codec.EncodeMetaDataPage(disk.metadata)

	if err := disk.writePage(METADATA_PAGE_ID, metaDataPage); err != nil {
		return err
	}

	if err := disk.file.Close(); err != nil {
		return err
	}

	return nil
}
