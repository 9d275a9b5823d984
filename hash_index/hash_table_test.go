package hash_index

import (
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	bpm "github.com/zhonghao-hub/Database/buffer_pool_manager"
	codec "github.com/zhonghao-hub/Database/page_codec"
)

const hashTestFileName = "hash_test_file.dat"

// hashes every key to the same bucket, used to force collisions.
type zeroHashFunction struct {
}

func (zeroHashFunction) Hash(key []byte) uint64 {
	return 0
}

type LinearProbeHashTableTestSuite struct {
	suite.Suite
	disk       *bpm.OSBufferedDiskManager
	bufferPool *bpm.SimpleBufferPoolManager
	table      *LinearProbeHashTable
}

func (ts *LinearProbeHashTableTestSuite) newHashTable(numBuckets uint64, hash HashFunction) {

	os.Remove(hashTestFileName)

	disk, err := bpm.NewOSBufferedDiskManager(hashTestFileName)

	ts.Suite.Require().NoError(err)

	poolSize := 32

	ts.disk = disk
	ts.bufferPool = bpm.NewSimpleBufferPoolManager(poolSize, bpm.NewClockReplacer(poolSize), disk, nil)

	table, err := NewLinearProbeHashTable(ts.bufferPool, Uint64Comparator{}, hash, numBuckets)

	ts.Suite.Require().NoError(err)

	ts.table = table
}

func (ts *LinearProbeHashTableTestSuite) TearDownTest() {

	os.Remove(hashTestFileName)
}

func (ts *LinearProbeHashTableTestSuite) txn() *Transaction {

	return NewTransaction(1)
}

func (ts *LinearProbeHashTableTestSuite) TestInsertAndGetValue() {

	ts.newHashTable(codec.BLOCK_SLOT_COUNT, XXHashFunction{})

	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(10), EncodeUint64(100)))

	values, err := ts.table.GetValue(ts.txn(), EncodeUint64(10))

	ts.Suite.Require().NoError(err)
	ts.Suite.Require().Len(values, 1)
	ts.Suite.Assert().Equal(uint64(100), DecodeUint64(values[0]))

	// a key that was never inserted yields no values.
	values, err = ts.table.GetValue(ts.txn(), EncodeUint64(11))

	ts.Suite.Require().NoError(err)
	ts.Suite.Assert().Empty(values)
}

func (ts *LinearProbeHashTableTestSuite) TestDuplicatePairRejected() {

	ts.newHashTable(codec.BLOCK_SLOT_COUNT, XXHashFunction{})

	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(1), EncodeUint64(5)))

	err := ts.table.Insert(ts.txn(), EncodeUint64(1), EncodeUint64(5))

	ts.Suite.Assert().ErrorIs(err, ErrDuplicateEntry)

	// the pair was not duplicated.
	values, err := ts.table.GetValue(ts.txn(), EncodeUint64(1))

	ts.Suite.Require().NoError(err)
	ts.Suite.Assert().Len(values, 1)
}

func (ts *LinearProbeHashTableTestSuite) TestDuplicateKeysWithDistinctValues() {

	ts.newHashTable(codec.BLOCK_SLOT_COUNT, XXHashFunction{})

	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(1), EncodeUint64(5)))
	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(1), EncodeUint64(6)))

	values, err := ts.table.GetValue(ts.txn(), EncodeUint64(1))

	ts.Suite.Require().NoError(err)
	ts.Suite.Require().Len(values, 2)

	decoded := []uint64{DecodeUint64(values[0]), DecodeUint64(values[1])}

	ts.Suite.Assert().ElementsMatch([]uint64{5, 6}, decoded)
}

func (ts *LinearProbeHashTableTestSuite) TestRemove() {

	ts.newHashTable(codec.BLOCK_SLOT_COUNT, XXHashFunction{})

	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(1), EncodeUint64(5)))

	ts.Suite.Require().NoError(ts.table.Remove(ts.txn(), EncodeUint64(1), EncodeUint64(5)))

	values, err := ts.table.GetValue(ts.txn(), EncodeUint64(1))

	ts.Suite.Require().NoError(err)
	ts.Suite.Assert().Empty(values)

	// removing an absent pair fails.
	err = ts.table.Remove(ts.txn(), EncodeUint64(1), EncodeUint64(5))

	ts.Suite.Assert().ErrorIs(err, ErrEntryNotFound)

	err = ts.table.Remove(ts.txn(), EncodeUint64(2), EncodeUint64(5))

	ts.Suite.Assert().ErrorIs(err, ErrEntryNotFound)
}

func (ts *LinearProbeHashTableTestSuite) TestCollisionProbing() {

	// every key lands on bucket 0, forcing a probe chain.
	ts.newHashTable(codec.BLOCK_SLOT_COUNT, zeroHashFunction{})

	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(1), EncodeUint64(1)))
	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(2), EncodeUint64(2)))
	ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(3), EncodeUint64(3)))

	values, err := ts.table.GetValue(ts.txn(), EncodeUint64(2))

	ts.Suite.Require().NoError(err)
	ts.Suite.Require().Len(values, 1)
	ts.Suite.Assert().Equal(uint64(2), DecodeUint64(values[0]))

	ts.Suite.Require().NoError(ts.table.Remove(ts.txn(), EncodeUint64(2), EncodeUint64(2)))

	values, err = ts.table.GetValue(ts.txn(), EncodeUint64(2))

	ts.Suite.Require().NoError(err)
	ts.Suite.Assert().Empty(values)

	// the tombstone left by the removal must not break the probe chain.
	values, err = ts.table.GetValue(ts.txn(), EncodeUint64(3))

	ts.Suite.Require().NoError(err)
	ts.Suite.Require().Len(values, 1)
	ts.Suite.Assert().Equal(uint64(3), DecodeUint64(values[0]))
}

func (ts *LinearProbeHashTableTestSuite) TestGetSize() {

	ts.newHashTable(1, XXHashFunction{})

	size, err := ts.table.GetSize()

	ts.Suite.Require().NoError(err)

	// the requested bucket count is rounded up to a whole block page.
	ts.Suite.Assert().Equal(uint64(codec.BLOCK_SLOT_COUNT), size)
}

func (ts *LinearProbeHashTableTestSuite) TestResizeOnFullTable() {

	ts.newHashTable(1, XXHashFunction{})

	entryCount := uint64(codec.BLOCK_SLOT_COUNT + 1)

	for k := uint64(0); k < entryCount; k++ {
		ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(k), EncodeUint64(k*10)))
	}

	size, err := ts.table.GetSize()

	ts.Suite.Require().NoError(err)
	ts.Suite.Assert().GreaterOrEqual(size, uint64(2*codec.BLOCK_SLOT_COUNT))

	// every entry inserted before the resize is still retrievable.
	for k := uint64(0); k < entryCount; k++ {

		values, err := ts.table.GetValue(ts.txn(), EncodeUint64(k))

		ts.Suite.Require().NoError(err)
		ts.Suite.Require().Len(values, 1)
		ts.Suite.Assert().Equal(k*10, DecodeUint64(values[0]))
	}
}

func (ts *LinearProbeHashTableTestSuite) TestResizeDropsTombstones() {

	ts.newHashTable(codec.BLOCK_SLOT_COUNT, XXHashFunction{})

	for k := uint64(0); k < 5; k++ {
		ts.Suite.Require().NoError(ts.table.Insert(ts.txn(), EncodeUint64(k), EncodeUint64(k)))
	}

	ts.Suite.Require().NoError(ts.table.Remove(ts.txn(), EncodeUint64(2), EncodeUint64(2)))

	size, err := ts.table.GetSize()

	ts.Suite.Require().NoError(err)
	ts.Suite.Require().NoError(ts.table.Resize(size))

	size, err = ts.table.GetSize()

	ts.Suite.Require().NoError(err)
	ts.Suite.Assert().Equal(uint64(2*codec.BLOCK_SLOT_COUNT), size)

	for k := uint64(0); k < 5; k++ {

		values, err := ts.table.GetValue(ts.txn(), EncodeUint64(k))

		ts.Suite.Require().NoError(err)

		if k == 2 {
			ts.Suite.Assert().Empty(values)
		} else {
			ts.Suite.Require().Len(values, 1)
			ts.Suite.Assert().Equal(k, DecodeUint64(values[0]))
		}
	}
}

func (ts *LinearProbeHashTableTestSuite) TestEntryValidation() {

	ts.newHashTable(codec.BLOCK_SLOT_COUNT, XXHashFunction{})

	err := ts.table.Insert(ts.txn(), []byte("abc"), EncodeUint64(1))

	ts.Suite.Assert().ErrorIs(err, ErrInvalidKeySize)

	err = ts.table.Insert(ts.txn(), EncodeUint64(1), []byte("abc"))

	ts.Suite.Assert().ErrorIs(err, ErrInvalidValueSize)

	_, err = ts.table.GetValue(ts.txn(), []byte("abc"))

	ts.Suite.Assert().ErrorIs(err, ErrInvalidKeySize)
}

func (ts *LinearProbeHashTableTestSuite) TestConcurrentInsertAndGet() {

	ts.newHashTable(1, XXHashFunction{})

	workers := 4
	keysPerWorker := uint64(150)

	group := errgroup.Group{}

	// concurrent inserts of disjoint key ranges, crossing several resizes.
	for worker := 0; worker < workers; worker++ {

		base := uint64(worker) * keysPerWorker

		group.Go(func() error {

			txn := NewTransaction(base)

			for k := base; k < base+keysPerWorker; k++ {

				if err := ts.table.Insert(txn, EncodeUint64(k), EncodeUint64(k+1)); err != nil {
					return err
				}
			}

			return nil
		})
	}

	ts.Suite.Require().NoError(group.Wait())

	total := uint64(workers) * keysPerWorker

	for k := uint64(0); k < total; k++ {

		values, err := ts.table.GetValue(ts.txn(), EncodeUint64(k))

		ts.Suite.Require().NoError(err)
		ts.Suite.Require().Len(values, 1)
		ts.Suite.Assert().Equal(k+1, DecodeUint64(values[0]))
	}

	// every dirty page left in the pool after the concurrent inserts can still be written back.
	ts.Suite.Require().NoError(ts.bufferPool.FlushAllPages())
}

func TestLinearProbeHashTable(t *testing.T) {

	suite.Run(t, new(LinearProbeHashTableTestSuite))
}
