package buffer_pool_manager

import (
	"errors"
	"sync"
)

var (
	ErrInvalidPageId  = errors.New("invalid page id")
	ErrBufferPoolFull = errors.New("buffer pool full, all frames are pinned")
)

type BufferPoolManager interface {
	FetchPage(pageId PageID) (*Frame, error)
	UnpinPage(pageId PageID, isDirty bool) bool
	FlushPage(pageId PageID) (bool, error)
	NewPage() (*Frame, error)
	DeletePage(pageId PageID) (bool, error)
	FlushAllPages() error

	NewReadGuard(pageId PageID) (*ReadGuard, error)
	NewWriteGuard(pageId PageID) (*WriteGuard, error)
	NewPageWriteGuard() (*WriteGuard, error)

	Close() error
}

// SimpleBufferPoolManager caches a fixed number of disk pages in memory frames.
// A single mutex guards the page table, free list, replacer and all frame
// metadata, and is held for the full duration of every public operation,
// including the synchronous disk read or write.
type SimpleBufferPoolManager struct {
	mutex *sync.Mutex

	poolSize int
	frames   []*Frame

	// maps page IDs to the frames currently holding them.
	pageTable map[PageID]FrameID

	// FIFO list of empty frames, front for acquisition, back for returns.
	freeFrames []FrameID

	replacer Replacer
	disk     DiskManager
	log      *LogManager
}

func NewSimpleBufferPoolManager(poolSize int, replacer Replacer, disk DiskManager, log *LogManager) *SimpleBufferPoolManager {

	frames := make([]*Frame, poolSize)
	freeFrames := make([]FrameID, 0, poolSize)

	for i := 0; i < poolSize; i++ {
		frames[i] = newFrame()
		freeFrames = append(freeFrames, FrameID(i))
	}

	return &SimpleBufferPoolManager{
		mutex:      &sync.Mutex{},
		poolSize:   poolSize,
		frames:     frames,
		pageTable:  make(map[PageID]FrameID),
		freeFrames: freeFrames,
		replacer:   replacer,
		disk:       disk,
		log:        log,
	}
}

// acquireFrame obtains a frame to hold a new page, taking the head of the free
// list if non-empty, else evicting a victim chosen by the replacer. A dirty
// victim is written back to disk before its page table entry is removed.
// Must be called with the buffer pool mutex held.
func (bufferPool *SimpleBufferPoolManager) acquireFrame() (FrameID, *Frame, error) {

	if len(bufferPool.freeFrames) > 0 {

		frameId := bufferPool.freeFrames[0]
		bufferPool.freeFrames = bufferPool.freeFrames[1:]
		return frameId, bufferPool.frames[frameId], nil
	}

	frameId, found := bufferPool.replacer.victim()

	if !found {
		return 0, nil, ErrBufferPoolFull
	}

	frame := bufferPool.frames[frameId]

	// write-back strictly precedes the page table rekeying.
	if frame.dirty {

		if err := bufferPool.disk.writePage(frame.pageId, frame.data); err != nil {

			// the frame stays intact and evictable, the caller sees no state change.
			bufferPool.replacer.unpin(frameId)
			return 0, nil, err
		}
		frame.dirty = CLEAN
	}

	delete(bufferPool.pageTable, frame.pageId)
	frame.pageId = INVALID_PAGE_ID

	return frameId, frame, nil
}

// releaseFrame returns a frame acquired by acquireFrame to the free list,
// used to roll back a failed fetch or allocation.
// Must be called with the buffer pool mutex held.
func (bufferPool *SimpleBufferPoolManager) releaseFrame(frameId FrameID, frame *Frame) {

	frame.reset()
	bufferPool.freeFrames = append(bufferPool.freeFrames, frameId)
}

// FetchPage returns the frame holding the requested page, pinned.
// If the page is not resident it is read from disk into a free or victim frame.
// Fails if the page ID is invalid, or if every frame is pinned.
func (bufferPool *SimpleBufferPoolManager) FetchPage(pageId PageID) (*Frame, error) {

	if pageId == INVALID_PAGE_ID {
		return nil, ErrInvalidPageId
	}

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	if frameId, exists := bufferPool.pageTable[pageId]; exists {

		frame := bufferPool.frames[frameId]
		frame.pinCount++
		bufferPool.replacer.pin(frameId)
		return frame, nil
	}

	frameId, frame, err := bufferPool.acquireFrame()

	if err != nil {
		return nil, err
	}

	if err = bufferPool.disk.readPage(pageId, frame.data); err != nil {

		bufferPool.releaseFrame(frameId, frame)
		return nil, err
	}

	frame.pageId = pageId
	frame.pinCount = 1
	frame.dirty = CLEAN
	bufferPool.pageTable[pageId] = frameId

	return frame, nil
}

// UnpinPage decrements the pin count of a resident page. When the count reaches
// zero the frame becomes an eviction candidate. The dirty flag is OR-ed in:
// unpinning with false never clears a dirty flag set earlier.
// Returns false if the page is not resident or its pin count is already zero.
func (bufferPool *SimpleBufferPoolManager) UnpinPage(pageId PageID, isDirty bool) bool {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	frameId, exists := bufferPool.pageTable[pageId]

	if !exists {
		return false
	}

	frame := bufferPool.frames[frameId]

	if frame.pinCount < 1 {
		return false
	}

	frame.pinCount--

	if frame.pinCount == 0 {
		bufferPool.replacer.unpin(frameId)
	}

	if isDirty {
		frame.dirty = DIRTY
	}

	return true
}

// FlushPage writes a resident page's bytes to disk and clears its dirty flag.
// Flushing does not alter pin state. Returns false if the page ID is invalid
// or the page is not resident.
func (bufferPool *SimpleBufferPoolManager) FlushPage(pageId PageID) (bool, error) {

	if pageId == INVALID_PAGE_ID {
		return false, nil
	}

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	frameId, exists := bufferPool.pageTable[pageId]

	if !exists {
		return false, nil
	}

	frame := bufferPool.frames[frameId]

	if err := bufferPool.disk.writePage(pageId, frame.data); err != nil {
		return false, err
	}

	frame.dirty = CLEAN

	return true, nil
}

// NewPage allocates a fresh page on disk and installs it, zeroed and pinned,
// in a free or victim frame. The new frame starts dirty so the zeroed page
// reaches disk even if it is never written to.
// Fails if every frame is pinned.
func (bufferPool *SimpleBufferPoolManager) NewPage() (*Frame, error) {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	frameId, frame, err := bufferPool.acquireFrame()

	if err != nil {
		return nil, err
	}

	pageId, err := bufferPool.disk.allocatePage()

	if err != nil {

		bufferPool.releaseFrame(frameId, frame)
		return nil, err
	}

	frame.reset()
	frame.pageId = pageId
	frame.pinCount = 1
	frame.dirty = DIRTY
	bufferPool.pageTable[pageId] = frameId

	return frame, nil
}

// DeletePage removes a page from the buffer pool and deallocates it on disk.
// Deleting a non-resident page only deallocates it. Returns false if the page
// is still pinned.
func (bufferPool *SimpleBufferPoolManager) DeletePage(pageId PageID) (bool, error) {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	frameId, exists := bufferPool.pageTable[pageId]

	if !exists {
		bufferPool.disk.deallocatePage(pageId)
		return true, nil
	}

	frame := bufferPool.frames[frameId]

	if frame.pinCount > 0 {
		return false, nil
	}

	bufferPool.replacer.pin(frameId)
	delete(bufferPool.pageTable, pageId)
	frame.reset()
	bufferPool.freeFrames = append(bufferPool.freeFrames, frameId)

	bufferPool.disk.deallocatePage(pageId)

	return true, nil
}

// FlushAllPages writes every resident dirty page to disk and clears its dirty
// flag. No page is evicted.
func (bufferPool *SimpleBufferPoolManager) FlushAllPages() error {

	bufferPool.mutex.Lock()
	defer bufferPool.mutex.Unlock()

	for pageId, frameId := range bufferPool.pageTable {

		frame := bufferPool.frames[frameId]

		if !frame.dirty {
			continue
		}

		if err := bufferPool.disk.writePage(pageId, frame.data); err != nil {
			return err
		}

		frame.dirty = CLEAN
	}

	return nil
}

// Close flushes all resident pages and the log, then closes the disk manager.
func (bufferPool *SimpleBufferPoolManager) Close() error {

	if err := bufferPool.FlushAllPages(); err != nil {
		return err
	}

	if bufferPool.log != nil {

		if err := bufferPool.log.Close(); err != nil {
			return err
		}
	}

	return bufferPool.disk.close()
}
