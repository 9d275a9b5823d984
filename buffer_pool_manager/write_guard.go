package buffer_pool_manager

// WriteGuard provides exclusive write access to a page stored in a frame in the buffer pool manager.
// The page stays pinned and its content latch is held in exclusive mode for the guard's lifetime.
// Mutations must be announced through SetDirtyFlag, Done carries the accumulated
// flag into UnpinPage.
type WriteGuard struct {

	// active is used to prevent users from using a guard once its Done/DeletePage function has been called.
	active     bool
	dirty      bool
	page       *Frame
	bufferPool BufferPoolManager
}

// NewWriteGuard returns an active write guard.
// All guards corresponding to a page share a RW lock.
func (bufferPool *SimpleBufferPoolManager) NewWriteGuard(pageId PageID) (*WriteGuard, error) {

	page, err := bufferPool.FetchPage(pageId)

	if err != nil {
		return nil, err
	}

	page.mutex.Lock()

	return &WriteGuard{
		active:     true,
		dirty:      CLEAN,
		page:       page,
		bufferPool: bufferPool,
	}, nil
}

// NewPageWriteGuard allocates a fresh zeroed page and returns an active write guard for it.
func (bufferPool *SimpleBufferPoolManager) NewPageWriteGuard() (*WriteGuard, error) {

	page, err := bufferPool.NewPage()

	if err != nil {
		return nil, err
	}

	page.mutex.Lock()

	return &WriteGuard{
		active:     true,
		dirty:      CLEAN,
		page:       page,
		bufferPool: bufferPool,
	}, nil
}

// Data returns the page bytes, valid only while the guard is active.
func (guard *WriteGuard) Data() []byte {

	if !guard.active {
		return nil
	}

	return guard.page.data
}

// GetPageId returns the page ID of the page corresponding to the write guard.
func (guard *WriteGuard) GetPageId() PageID {

	if !guard.active {
		return INVALID_PAGE_ID
	}

	return guard.page.pageId
}

// SetDirtyFlag records that the page bytes were modified through this guard.
func (guard *WriteGuard) SetDirtyFlag() bool {

	if !guard.active {
		return false
	}

	guard.dirty = DIRTY

	return true
}

// Done is used to decrease the pin count of the page, and ensure the exclusive lock is released.
// A guard becomes inactive and cannot be reused if this function returns true.
func (guard *WriteGuard) Done() bool {

	if !guard.active {
		return false
	}

	pageId := guard.page.pageId
	guard.page.mutex.Unlock()

	guard.bufferPool.UnpinPage(pageId, guard.dirty)

	guard.page = nil
	guard.bufferPool = nil
	guard.active = false

	return true
}

// DeletePage releases the guard, then deletes the page from the buffer pool
// and deallocates it on disk.
// A guard becomes inactive and cannot be reused if this function returns true.
func (guard *WriteGuard) DeletePage() (bool, error) {

	if !guard.active {
		return false, nil
	}

	pageId := guard.page.pageId
	bufferPool := guard.bufferPool

	guard.page.mutex.Unlock()
	bufferPool.UnpinPage(pageId, guard.dirty)

	guard.page = nil
	guard.bufferPool = nil
	guard.active = false

	return bufferPool.DeletePage(pageId)
}
