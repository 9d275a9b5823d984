package hash_index

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	bpm "github.com/zhonghao-hub/Database/buffer_pool_manager"
	codec "github.com/zhonghao-hub/Database/page_codec"
)

var (
	ErrDuplicateEntry   = errors.New("key value pair already exists in hash table")
	ErrEntryNotFound    = errors.New("key value pair not found in hash table")
	ErrInvalidKeySize   = fmt.Errorf("key must be exactly %d bytes", codec.KEY_SIZE)
	ErrInvalidValueSize = fmt.Errorf("value must be exactly %d bytes", codec.VALUE_SIZE)
	ErrDirectoryFull    = errors.New("header page cannot hold any more block pages")
)

// DataStructureLayer is the surface the server speaks to.
type DataStructureLayer interface {
	Insert(txn *Transaction, key []byte, value []byte) error
	GetValue(txn *Transaction, key []byte) ([][]byte, error)
	Remove(txn *Transaction, key []byte, value []byte) error
	Close() error
}

// LinearProbeHashTable is a disk-backed hash table resolving collisions by
// linear probing. All of its state lives in pages fetched through the buffer
// pool: a header page holding the logical bucket count and the directory of
// block page IDs, and block pages holding the slots.
//
// A bucket address decomposes as (p / BLOCK_SLOT_COUNT, p % BLOCK_SLOT_COUNT)
// where p = hash(key) % size. Probes advance slot by slot, wrapping to the
// next block page at block boundaries and to the first block after the last.
type LinearProbeHashTable struct {

	// serializes Resize against all other operations, everything else runs on the read side.
	tableLatch *sync.RWMutex

	// current header page, replaced in memory on resize.
	headerPageId bpm.PageID

	// mirror of the header's bucket count, guarded by tableLatch.
	numBuckets uint64

	comparator KeyComparator
	hash       HashFunction
	bufferPool bpm.BufferPoolManager
}

// NewLinearProbeHashTable creates the header and block pages for a fresh table
// covering at least numBuckets buckets, rounded up to whole block pages.
func NewLinearProbeHashTable(bufferPool bpm.BufferPoolManager, comparator KeyComparator, hash HashFunction, numBuckets uint64) (*LinearProbeHashTable, error) {

	if numBuckets == 0 {
		numBuckets = 1
	}

	blockCount := int((numBuckets + codec.BLOCK_SLOT_COUNT - 1) / codec.BLOCK_SLOT_COUNT)

	if blockCount > codec.HEADER_BLOCK_CAPACITY {
		return nil, ErrDirectoryFull
	}

	size := uint64(blockCount) * codec.BLOCK_SLOT_COUNT

	headerGuard, err := bufferPool.NewPageWriteGuard()

	if err != nil {
		return nil, err
	}

	header := codec.HeaderPageView(headerGuard.Data())
	header.SetSize(size)
	headerGuard.SetDirtyFlag()

	for i := 0; i < blockCount; i++ {

		blockGuard, err := bufferPool.NewPageWriteGuard()

		if err != nil {
			headerGuard.Done()
			return nil, err
		}

		header.AddBlockPageId(uint64(blockGuard.GetPageId()))
		blockGuard.Done()
	}

	headerPageId := headerGuard.GetPageId()
	headerGuard.Done()

	slog.Info("created linear probe hash table", "headerPageId", headerPageId, "size", size, "blockCount", blockCount, "function", "NewLinearProbeHashTable", "at", "LinearProbeHashTable")

	return &LinearProbeHashTable{
		tableLatch:   &sync.RWMutex{},
		headerPageId: headerPageId,
		numBuckets:   size,
		comparator:   comparator,
		hash:         hash,
		bufferPool:   bufferPool,
	}, nil
}

// probePosition addresses one bucket as a (block page, slot) pair.
type probePosition struct {
	headerIndex int
	blockIndex  int
}

func startPosition(hash uint64, numBuckets uint64) probePosition {

	p := hash % numBuckets

	return probePosition{
		headerIndex: int(p / codec.BLOCK_SLOT_COUNT),
		blockIndex:  int(p % codec.BLOCK_SLOT_COUNT),
	}
}

// advance moves the position to the next bucket, wrapping to the next block
// page at block boundaries and to the first block after the last.
func (pos *probePosition) advance(numBlocks int) {

	pos.blockIndex++

	if pos.blockIndex == codec.BLOCK_SLOT_COUNT {
		pos.blockIndex = 0
		pos.headerIndex = (pos.headerIndex + 1) % numBlocks
	}
}

func validateEntry(key []byte, value []byte) error {

	if len(key) != codec.KEY_SIZE {
		return ErrInvalidKeySize
	}

	if len(value) != codec.VALUE_SIZE {
		return ErrInvalidValueSize
	}

	return nil
}

// GetValue collects every live value stored under key. Duplicate keys are
// permitted, so the probe keeps scanning past matches until it reaches an
// unoccupied slot or returns to its starting position.
func (table *LinearProbeHashTable) GetValue(txn *Transaction, key []byte) ([][]byte, error) {

	if len(key) != codec.KEY_SIZE {
		return nil, ErrInvalidKeySize
	}

	table.tableLatch.RLock()
	defer table.tableLatch.RUnlock()

	headerGuard, err := table.bufferPool.NewReadGuard(table.headerPageId)

	if err != nil {
		return nil, err
	}

	defer headerGuard.Done()

	header := codec.HeaderPageView(headerGuard.Data())
	numBuckets := header.GetSize()
	numBlocks := header.NumBlocks()

	pos := startPosition(table.hash.Hash(key), numBuckets)

	blockGuard, err := table.bufferPool.NewReadGuard(bpm.PageID(header.GetBlockPageId(pos.headerIndex)))

	if err != nil {
		return nil, err
	}

	block := codec.BlockPageView(blockGuard.Data())

	results := make([][]byte, 0)

	for probed := uint64(0); probed < numBuckets; probed++ {

		if !block.IsOccupied(pos.blockIndex) {
			break
		}

		if block.IsReadable(pos.blockIndex) && table.comparator.Compare(block.KeyAt(pos.blockIndex), key) == 0 {
			results = append(results, block.ValueAt(pos.blockIndex))
		}

		prevHeaderIndex := pos.headerIndex
		pos.advance(numBlocks)

		if pos.headerIndex != prevHeaderIndex {

			blockGuard.Done()
			blockGuard, err = table.bufferPool.NewReadGuard(bpm.PageID(header.GetBlockPageId(pos.headerIndex)))

			if err != nil {
				return nil, err
			}

			block = codec.BlockPageView(blockGuard.Data())
		}
	}

	blockGuard.Done()

	return results, nil
}

// Insert stores a key value pair in the first unoccupied slot of the probe
// sequence. Duplicate keys with distinct values are allowed, an exact
// duplicate pair fails with ErrDuplicateEntry. When a probe completes a full
// cycle without finding an empty slot the table is resized and the insert is
// retried.
func (table *LinearProbeHashTable) Insert(txn *Transaction, key []byte, value []byte) error {

	if err := validateEntry(key, value); err != nil {
		return err
	}

	for {

		inserted, observedSize, err := table.tryInsert(key, value)

		if err != nil {
			return err
		}

		if inserted {
			return nil
		}

		if err = table.Resize(observedSize); err != nil {
			return err
		}
	}
}

// tryInsert runs one probe cycle under the read side of the table latch.
// Returns inserted = false with a nil error when the cycle closed without
// finding an unoccupied slot, which means the table must grow.
func (table *LinearProbeHashTable) tryInsert(key []byte, value []byte) (inserted bool, observedSize uint64, err error) {

	table.tableLatch.RLock()
	defer table.tableLatch.RUnlock()

	headerGuard, err := table.bufferPool.NewReadGuard(table.headerPageId)

	if err != nil {
		return false, 0, err
	}

	defer headerGuard.Done()

	header := codec.HeaderPageView(headerGuard.Data())
	numBuckets := header.GetSize()
	numBlocks := header.NumBlocks()

	pos := startPosition(table.hash.Hash(key), numBuckets)

	blockGuard, err := table.bufferPool.NewWriteGuard(bpm.PageID(header.GetBlockPageId(pos.headerIndex)))

	if err != nil {
		return false, 0, err
	}

	block := codec.BlockPageView(blockGuard.Data())

	for probed := uint64(0); probed < numBuckets; probed++ {

		if !block.IsOccupied(pos.blockIndex) {

			block.Insert(pos.blockIndex, key, value)
			blockGuard.SetDirtyFlag()
			blockGuard.Done()
			return true, numBuckets, nil
		}

		if block.IsReadable(pos.blockIndex) &&
			table.comparator.Compare(block.KeyAt(pos.blockIndex), key) == 0 &&
			bytes.Equal(block.ValueAt(pos.blockIndex), value) {

			blockGuard.Done()
			return false, numBuckets, ErrDuplicateEntry
		}

		prevHeaderIndex := pos.headerIndex
		pos.advance(numBlocks)

		if pos.headerIndex != prevHeaderIndex {

			blockGuard.Done()
			blockGuard, err = table.bufferPool.NewWriteGuard(bpm.PageID(header.GetBlockPageId(pos.headerIndex)))

			if err != nil {
				return false, 0, err
			}

			block = codec.BlockPageView(blockGuard.Data())
		}
	}

	blockGuard.Done()

	return false, numBuckets, nil
}

// Remove deletes the live slot matching both key and value by clearing its
// readable bit. The occupied bit is preserved so later probes still walk past
// the tombstone. Fails with ErrEntryNotFound if no live slot matches.
func (table *LinearProbeHashTable) Remove(txn *Transaction, key []byte, value []byte) error {

	if err := validateEntry(key, value); err != nil {
		return err
	}

	table.tableLatch.RLock()
	defer table.tableLatch.RUnlock()

	headerGuard, err := table.bufferPool.NewReadGuard(table.headerPageId)

	if err != nil {
		return err
	}

	defer headerGuard.Done()

	header := codec.HeaderPageView(headerGuard.Data())
	numBuckets := header.GetSize()
	numBlocks := header.NumBlocks()

	pos := startPosition(table.hash.Hash(key), numBuckets)

	blockGuard, err := table.bufferPool.NewWriteGuard(bpm.PageID(header.GetBlockPageId(pos.headerIndex)))

	if err != nil {
		return err
	}

	block := codec.BlockPageView(blockGuard.Data())

	for probed := uint64(0); probed < numBuckets; probed++ {

		if !block.IsOccupied(pos.blockIndex) {
			break
		}

		if block.IsReadable(pos.blockIndex) &&
			table.comparator.Compare(block.KeyAt(pos.blockIndex), key) == 0 &&
			bytes.Equal(block.ValueAt(pos.blockIndex), value) {

			block.Remove(pos.blockIndex)
			blockGuard.SetDirtyFlag()
			blockGuard.Done()
			return nil
		}

		prevHeaderIndex := pos.headerIndex
		pos.advance(numBlocks)

		if pos.headerIndex != prevHeaderIndex {

			blockGuard.Done()
			blockGuard, err = table.bufferPool.NewWriteGuard(bpm.PageID(header.GetBlockPageId(pos.headerIndex)))

			if err != nil {
				return err
			}

			block = codec.BlockPageView(blockGuard.Data())
		}
	}

	blockGuard.Done()

	return ErrEntryNotFound
}

// Resize doubles the table: a new header page and twice as many block pages
// are allocated, every live entry is rehashed against the new bucket count,
// and the old pages are deallocated. The header page ID is replaced in memory
// only. Runs under the write side of the table latch, excluding all other
// operations.
func (table *LinearProbeHashTable) Resize(currentSize uint64) error {

	table.tableLatch.Lock()
	defer table.tableLatch.Unlock()

	// another writer resized while we waited for the latch.
	if table.numBuckets != currentSize {
		return nil
	}

	newSize := 2 * currentSize
	newBlockCount := int(newSize / codec.BLOCK_SLOT_COUNT)

	if newBlockCount > codec.HEADER_BLOCK_CAPACITY {
		return ErrDirectoryFull
	}

	slog.Info("resizing linear probe hash table", "currentSize", currentSize, "newSize", newSize, "function", "Resize", "at", "LinearProbeHashTable")

	oldHeaderGuard, err := table.bufferPool.NewReadGuard(table.headerPageId)

	if err != nil {
		return err
	}

	oldHeader := codec.HeaderPageView(oldHeaderGuard.Data())

	oldBlockIds := make([]uint64, oldHeader.NumBlocks())

	for i := range oldBlockIds {
		oldBlockIds[i] = oldHeader.GetBlockPageId(i)
	}

	oldHeaderGuard.Done()

	newHeaderGuard, err := table.bufferPool.NewPageWriteGuard()

	if err != nil {
		return err
	}

	newHeader := codec.HeaderPageView(newHeaderGuard.Data())
	newHeader.SetSize(newSize)
	newHeaderGuard.SetDirtyFlag()

	newBlockIds := make([]uint64, 0, newBlockCount)

	for i := 0; i < newBlockCount; i++ {

		blockGuard, err := table.bufferPool.NewPageWriteGuard()

		if err != nil {
			newHeaderGuard.Done()
			return err
		}

		newHeader.AddBlockPageId(uint64(blockGuard.GetPageId()))
		newBlockIds = append(newBlockIds, uint64(blockGuard.GetPageId()))
		blockGuard.Done()
	}

	// rehash every live entry from the old block pages into the new table,
	// retiring each old block once it has been drained.
	for _, oldBlockId := range oldBlockIds {

		oldBlockGuard, err := table.bufferPool.NewWriteGuard(bpm.PageID(oldBlockId))

		if err != nil {
			newHeaderGuard.Done()
			return err
		}

		oldBlock := codec.BlockPageView(oldBlockGuard.Data())

		for slot := 0; slot < codec.BLOCK_SLOT_COUNT; slot++ {

			if !oldBlock.IsReadable(slot) {
				continue
			}

			if err = table.migrateEntry(newBlockIds, newSize, oldBlock.KeyAt(slot), oldBlock.ValueAt(slot)); err != nil {

				oldBlockGuard.Done()
				newHeaderGuard.Done()
				return err
			}
		}

		if _, err = oldBlockGuard.DeletePage(); err != nil {
			newHeaderGuard.Done()
			return err
		}
	}

	newHeaderPageId := newHeaderGuard.GetPageId()
	newHeaderGuard.Done()

	oldHeaderPageId := table.headerPageId

	table.headerPageId = newHeaderPageId
	table.numBuckets = newSize

	if _, err = table.bufferPool.DeletePage(oldHeaderPageId); err != nil {
		return err
	}

	return nil
}

// migrateEntry inserts one live entry into the new block pages during a
// resize. The new table is at most half full and tombstone free, so the probe
// always finds an unoccupied slot.
func (table *LinearProbeHashTable) migrateEntry(newBlockIds []uint64, newSize uint64, key []byte, value []byte) error {

	pos := startPosition(table.hash.Hash(key), newSize)

	for {

		blockGuard, err := table.bufferPool.NewWriteGuard(bpm.PageID(newBlockIds[pos.headerIndex]))

		if err != nil {
			return err
		}

		block := codec.BlockPageView(blockGuard.Data())

		for pos.blockIndex < codec.BLOCK_SLOT_COUNT {

			if !block.IsOccupied(pos.blockIndex) {

				block.Insert(pos.blockIndex, key, value)
				blockGuard.SetDirtyFlag()
				blockGuard.Done()
				return nil
			}

			pos.blockIndex++
		}

		blockGuard.Done()

		pos.blockIndex = 0
		pos.headerIndex = (pos.headerIndex + 1) % len(newBlockIds)
	}
}

// GetSize reports the table's logical bucket count as stored in the header page.
func (table *LinearProbeHashTable) GetSize() (uint64, error) {

	table.tableLatch.RLock()
	defer table.tableLatch.RUnlock()

	headerGuard, err := table.bufferPool.NewReadGuard(table.headerPageId)

	if err != nil {
		return 0, err
	}

	defer headerGuard.Done()

	return codec.HeaderPageView(headerGuard.Data()).GetSize(), nil
}

// Close flushes every resident page of the buffer pool to disk.
func (table *LinearProbeHashTable) Close() error {

	return table.bufferPool.FlushAllPages()
}
