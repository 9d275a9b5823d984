package buffer_pool_manager

import "sync"

type PageID uint64
type FrameID uint64

const (
	PAGE_SIZE = 4096

	// page 0 holds the disk manager's metadata, so 0 doubles as the invalid page ID.
	INVALID_PAGE_ID  = PageID(0)
	METADATA_PAGE_ID = PageID(0)

	DIRTY = true
	CLEAN = false
)

// Frame is an in-memory slot holding one page's bytes plus metadata.
// All metadata fields are guarded by the buffer pool manager's mutex,
// the page content latch is used by read/write guards.
type Frame struct {
	pageId   PageID
	pinCount int
	dirty    bool
	data     []byte

	// latch guarding the page content stored in this frame.
	// All guards corresponding to a page share this lock.
	mutex *sync.RWMutex
}

func newFrame() *Frame {

	return &Frame{
		pageId:   INVALID_PAGE_ID,
		pinCount: 0,
		dirty:    CLEAN,
		data:     make([]byte, PAGE_SIZE),
		mutex:    &sync.RWMutex{},
	}
}

// reset zeroes the page bytes and clears all metadata,
// returning the frame to its empty state.
func (frame *Frame) reset() {

	frame.pageId = INVALID_PAGE_ID
	frame.pinCount = 0
	frame.dirty = CLEAN

	for i := range frame.data {
		frame.data[i] = 0
	}
}
