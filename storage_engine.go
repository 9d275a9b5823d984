package main

import (
	"sync"

	bpm "github.com/zhonghao-hub/Database/buffer_pool_manager"
	"github.com/zhonghao-hub/Database/hash_index"
	codec "github.com/zhonghao-hub/Database/page_codec"
)

const (
	poolSize = 64

	// four block pages worth of buckets before the first resize.
	initialBucketCount = 4 * codec.BLOCK_SLOT_COUNT
)

type StorageEngine struct {
	mutex *sync.Mutex

	bufferPoolManager bpm.BufferPoolManager
	index             *hash_index.LinearProbeHashTable
}

func NewStorageEngine(dataFilePath string, logFilePath string) (*StorageEngine, error) {

	disk, err := bpm.NewDirectIODiskManager(dataFilePath)

	if err != nil {
		return nil, err
	}

	logManager, err := bpm.NewLogManager(logFilePath)

	if err != nil {
		return nil, err
	}

	replacer := bpm.NewClockReplacer(poolSize)

	bufferPoolManager := bpm.NewSimpleBufferPoolManager(poolSize, replacer, disk, logManager)

	index, err := hash_index.NewLinearProbeHashTable(bufferPoolManager, hash_index.Uint64Comparator{}, hash_index.XXHashFunction{}, initialBucketCount)

	if err != nil {
		return nil, err
	}

	return &StorageEngine{
		mutex:             &sync.Mutex{},
		bufferPoolManager: bufferPoolManager,
		index:             index,
	}, nil
}

func (engine *StorageEngine) Index() *hash_index.LinearProbeHashTable {

	return engine.index
}

func (engine *StorageEngine) Close() error {

	engine.mutex.Lock()
	defer engine.mutex.Unlock()

	return engine.bufferPoolManager.Close()
}
