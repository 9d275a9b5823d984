package buffer_pool_manager

// ReadGuard provides shared read access to a page stored in a frame in the buffer pool manager.
// The page stays pinned and its content latch is held in shared mode for the guard's lifetime,
// so byte views taken from Data remain valid until Done is called.
type ReadGuard struct {

	// active is used to prevent users from using a guard once its Done function has been called.
	active     bool
	page       *Frame
	bufferPool BufferPoolManager
}

// NewReadGuard returns an active read guard.
// All guards corresponding to a page share a RW lock.
func (bufferPool *SimpleBufferPoolManager) NewReadGuard(pageId PageID) (*ReadGuard, error) {

	page, err := bufferPool.FetchPage(pageId)

	if err != nil {
		return nil, err
	}

	page.mutex.RLock()

	return &ReadGuard{
		active:     true,
		page:       page,
		bufferPool: bufferPool,
	}, nil
}

// Data returns the page bytes, valid only while the guard is active.
func (guard *ReadGuard) Data() []byte {

	if !guard.active {
		return nil
	}

	return guard.page.data
}

// GetPageId returns the page ID of the page corresponding to the read guard.
func (guard *ReadGuard) GetPageId() PageID {

	if !guard.active {
		return INVALID_PAGE_ID
	}

	return guard.page.pageId
}

// Done is used to decrease the pin count of the page, and ensure the shared lock is released.
// A guard becomes inactive and cannot be reused if this function returns true.
func (guard *ReadGuard) Done() bool {

	if !guard.active {
		return false
	}

	pageId := guard.page.pageId
	guard.page.mutex.RUnlock()

	guard.bufferPool.UnpinPage(pageId, CLEAN)

	guard.page = nil
	guard.bufferPool = nil
	guard.active = false

	return true
}
