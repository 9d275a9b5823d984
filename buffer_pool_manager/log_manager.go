package buffer_pool_manager

import (
	"os"
	"sync"
)

// LogManager accumulates write-ahead log records and flushes them to the log file.
// The storage core does not emit records yet, the manager exists so the buffer pool
// and its callers already carry the dependency.
type LogManager struct {
	file *os.File

	mutex   *sync.Mutex
	nextLsn uint64
	buffer  []byte
}

func NewLogManager(filePath string) (*LogManager, error) {

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)

	if err != nil {
		return nil, err
	}

	return &LogManager{
		file:    file,
		mutex:   &sync.Mutex{},
		nextLsn: 1,
		buffer:  make([]byte, 0, PAGE_SIZE),
	}, nil
}

// AppendRecord buffers a log record and returns its log sequence number.
func (log *LogManager) AppendRecord(record []byte) uint64 {

	log.mutex.Lock()
	defer log.mutex.Unlock()

	lsn := log.nextLsn
	log.nextLsn++

	log.buffer = append(log.buffer, record...)

	return lsn
}

// Flush writes all buffered records to the log file.
func (log *LogManager) Flush() error {

	log.mutex.Lock()
	defer log.mutex.Unlock()

	if len(log.buffer) == 0 {
		return nil
	}

	if _, err := log.file.Write(log.buffer); err != nil {
		return err
	}

	log.buffer = log.buffer[:0]

	return log.file.Sync()
}

// Close flushes any buffered records, then closes the log file.
func (log *LogManager) Close() error {

	if err := log.Flush(); err != nil {
		return err
	}

	return log.file.Close()
}
