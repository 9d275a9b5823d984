package server

import (
	"encoding/binary"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	bpm "github.com/zhonghao-hub/Database/buffer_pool_manager"
	"github.com/zhonghao-hub/Database/hash_index"
	codec "github.com/zhonghao-hub/Database/page_codec"
)

const serverTestFileName = "server_test.db"

type DatabaseServerTestSuite struct {
	suite.Suite
	disk   *bpm.OSBufferedDiskManager
	server *Server
	conn   net.Conn
}

func (test *DatabaseServerTestSuite) SetupTest() {

	os.Remove(serverTestFileName)

	disk, err := bpm.NewOSBufferedDiskManager(serverTestFileName)

	test.Suite.Require().NoError(err)

	test.disk = disk

	poolSize := 16

	bufferPoolManager := bpm.NewSimpleBufferPoolManager(poolSize, bpm.NewClockReplacer(poolSize), disk, nil)

	table, err := hash_index.NewLinearProbeHashTable(bufferPoolManager, hash_index.Uint64Comparator{}, hash_index.XXHashFunction{}, codec.BLOCK_SLOT_COUNT)

	test.Suite.Require().NoError(err)

	server, err := NewServer(":6381", table)

	test.Suite.Require().NoError(err)

	test.server = server

	go server.Run()

	conn, err := net.Dial("tcp", "localhost:6381")

	test.Suite.Require().NoError(err)

	test.conn = conn
}

func (test *DatabaseServerTestSuite) TearDownTest() {

	test.server.Shutdown()

	shutdownMessage := make([]byte, 1)

	n, err := test.conn.Read(shutdownMessage)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(1, n)
	test.Suite.Require().Equal(byte('S'), shutdownMessage[0])

	test.conn.Close()

	os.Remove(serverTestFileName)
}

func appendLengthPrefixedField(request []byte, field []byte) []byte {

	lengthBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBytes, uint32(len(field)))

	request = append(request, lengthBytes...)
	return append(request, field...)
}

func createInsertRequest(key uint64, value uint64) []byte {

	request := []byte{'I'}
	request = appendLengthPrefixedField(request, hash_index.EncodeUint64(key))
	return appendLengthPrefixedField(request, hash_index.EncodeUint64(value))
}

func createRemoveRequest(key uint64, value uint64) []byte {

	request := []byte{'R'}
	request = appendLengthPrefixedField(request, hash_index.EncodeUint64(key))
	return appendLengthPrefixedField(request, hash_index.EncodeUint64(value))
}

func createGetRequest(key uint64) []byte {

	return appendLengthPrefixedField([]byte{'G'}, hash_index.EncodeUint64(key))
}

func (test *DatabaseServerTestSuite) sendRequestExpectOK(request []byte) {

	n, err := test.conn.Write(request)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(len(request), n)

	responseOpCode, err := readNBytes(test.conn, 1)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(byte('O'), responseOpCode[0])
}

// sendGetRequest issues a GET and decodes the values from the response.
func (test *DatabaseServerTestSuite) sendGetRequest(key uint64) []uint64 {

	request := createGetRequest(key)

	n, err := test.conn.Write(request)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(len(request), n)

	responseOpCode, err := readNBytes(test.conn, 1)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(byte('O'), responseOpCode[0])

	responseKey, err := decodeLengthPrefixedField(test.conn)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(key, hash_index.DecodeUint64(responseKey))

	countBytes, err := readNBytes(test.conn, 4)

	test.Suite.Require().NoError(err)

	count := binary.LittleEndian.Uint32(countBytes)

	values := make([]uint64, 0, count)

	for i := uint32(0); i < count; i++ {

		value, err := decodeLengthPrefixedField(test.conn)

		test.Suite.Require().NoError(err)

		values = append(values, hash_index.DecodeUint64(value))
	}

	return values
}

func (test *DatabaseServerTestSuite) TestPing() {

	test.sendRequestExpectOK([]byte{'P'})
}

func (test *DatabaseServerTestSuite) TestInsertAndGet() {

	test.sendRequestExpectOK(createInsertRequest(5, 500))

	values := test.sendGetRequest(5)

	test.Suite.Require().Equal([]uint64{500}, values)

	// duplicate keys with distinct values are both returned.
	test.sendRequestExpectOK(createInsertRequest(5, 501))

	values = test.sendGetRequest(5)

	test.Suite.Require().ElementsMatch([]uint64{500, 501}, values)
}

func (test *DatabaseServerTestSuite) TestRemove() {

	test.sendRequestExpectOK(createInsertRequest(9, 900))
	test.sendRequestExpectOK(createRemoveRequest(9, 900))

	values := test.sendGetRequest(9)

	test.Suite.Require().Empty(values)
}

func (test *DatabaseServerTestSuite) TestInsertDuplicatePairReturnsError() {

	test.sendRequestExpectOK(createInsertRequest(3, 300))

	request := createInsertRequest(3, 300)

	n, err := test.conn.Write(request)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(len(request), n)

	responseOpCode, err := readNBytes(test.conn, 1)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(byte('E'), responseOpCode[0])

	message, err := decodeLengthPrefixedField(test.conn)

	test.Suite.Require().NoError(err)
	test.Suite.Require().Equal(hash_index.ErrDuplicateEntry.Error(), string(message))
}

func TestDatabaseServer(t *testing.T) {

	suite.Run(t, new(DatabaseServerTestSuite))
}
