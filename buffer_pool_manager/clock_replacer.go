package buffer_pool_manager

import (
	"container/list"
	"sync"
)

// keeps track of unpinned frames that are candidates for eviction.
type Replacer interface {

	// victim selects a frame to evict based on the replacement policy.
	victim() (FrameID, bool)

	// pin removes a frame from the replacer, typically when its pin count becomes non-zero.
	pin(frameId FrameID)

	// unpin adds a frame to the replacer, marking it as a candidate for eviction.
	unpin(frameId FrameID)

	// size returns the current number of frames managed by the replacer.
	size() int
}

// ClockReplacer implements the clock page replacement policy.
// Frames are kept in a circular sequence, each with a reference bit.
// The clock hand sweeps the sequence, giving every referenced frame
// a second chance before it is evicted.
type ClockReplacer struct {

	// synchronizes access to the list, reference bits and clock hand.
	mutex *sync.Mutex

	// maximum number of frames the replacer can track, fixed at construction.
	capacity int

	// circular sequence of eviction candidates, made circular by wrapping at the back.
	list *list.List

	// used to check membership and remove frames from the middle of the list.
	frameMap map[FrameID]*list.Element

	// reference bit per tracked frame.
	refBit map[FrameID]bool

	// clock hand, points at the next frame to be inspected.
	hand *list.Element
}

func NewClockReplacer(poolSize int) *ClockReplacer {

	return &ClockReplacer{
		mutex:    &sync.Mutex{},
		capacity: poolSize,
		list:     list.New(),
		frameMap: make(map[FrameID]*list.Element),
		refBit:   make(map[FrameID]bool),
	}
}

// advance moves the clock hand one position forward, wrapping to the front of the list.
func (replacer *ClockReplacer) advance() {

	if replacer.hand == nil || replacer.hand.Next() == nil {
		replacer.hand = replacer.list.Front()
	} else {
		replacer.hand = replacer.hand.Next()
	}
}

// victim sweeps the clock once: every frame with its reference bit set is given
// a second chance (bit cleared, hand advances), the first frame found with a
// clear bit is removed from the replacer and returned.
// Returns false if no frame is currently evictable.
func (replacer *ClockReplacer) victim() (FrameID, bool) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	if replacer.list.Len() == 0 {
		return 0, false
	}

	if replacer.hand == nil {
		replacer.hand = replacer.list.Front()
	}

	for {

		frameId := replacer.hand.Value.(FrameID)

		if replacer.refBit[frameId] {
			replacer.refBit[frameId] = false
			replacer.advance()
			continue
		}

		victimElement := replacer.hand
		replacer.advance()

		if replacer.hand == victimElement {
			replacer.hand = nil
		}

		replacer.list.Remove(victimElement)
		delete(replacer.frameMap, frameId)
		delete(replacer.refBit, frameId)

		return frameId, true
	}
}

// pin removes a frame from the replacer once its pin count > 0.
// Pinned frames are never eviction candidates. No-op if the frame is not tracked.
func (replacer *ClockReplacer) pin(frameId FrameID) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	frameElement, exists := replacer.frameMap[frameId]

	if !exists {
		return
	}

	if replacer.hand == frameElement {
		replacer.advance()

		if replacer.hand == frameElement {
			replacer.hand = nil
		}
	}

	replacer.list.Remove(frameElement)
	delete(replacer.frameMap, frameId)
	delete(replacer.refBit, frameId)
}

// unpin adds a frame to the replacer with its reference bit set,
// marking it as a candidate for eviction.
// Unpinning an already tracked frame only sets its reference bit again.
func (replacer *ClockReplacer) unpin(frameId FrameID) {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	if _, exists := replacer.frameMap[frameId]; exists {
		replacer.refBit[frameId] = true
		return
	}

	if replacer.list.Len() >= replacer.capacity {
		return
	}

	frameElement := replacer.list.PushBack(frameId)
	replacer.frameMap[frameId] = frameElement
	replacer.refBit[frameId] = true

	if replacer.hand == nil {
		replacer.hand = frameElement
	}
}

// size returns the number of frames currently tracked by the replacer.
func (replacer *ClockReplacer) size() int {

	replacer.mutex.Lock()
	defer replacer.mutex.Unlock()

	return replacer.list.Len()
}
