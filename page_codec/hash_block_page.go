package page_codec

const (
	KEY_SIZE   = 8
	VALUE_SIZE = 8
	ENTRY_SIZE = KEY_SIZE + VALUE_SIZE

	// number of slots that fit in one page: each slot costs one occupied byte,
	// one readable byte, and ENTRY_SIZE entry bytes.
	BLOCK_SLOT_COUNT = PAGE_SIZE / (1 + 1 + ENTRY_SIZE)

	occupiedArrayOffset = 0
	readableArrayOffset = BLOCK_SLOT_COUNT
	entryArrayOffset    = 2 * BLOCK_SLOT_COUNT
)

// HashBlockPage is a typed view over the raw bytes of a hash table block page.
// The on-disk image is the concatenation of three fixed-size parallel arrays:
// occupied[BLOCK_SLOT_COUNT], readable[BLOCK_SLOT_COUNT], entries[BLOCK_SLOT_COUNT].
//
// occupied[i] = 1 means slot i has ever been written, and is used to terminate probes.
// readable[i] = 1 means slot i currently holds a live entry.
//
// The view is only valid while the underlying frame is pinned.
type HashBlockPage struct {
	data []byte
}

func BlockPageView(data []byte) HashBlockPage {
	return HashBlockPage{data: data}
}

// KeyAt returns a copy of the key stored in slot i.
// The result is undefined if the slot is not occupied.
func (block HashBlockPage) KeyAt(i int) []byte {

	key := make([]byte, KEY_SIZE)
	copy(key, block.data[entryArrayOffset+i*ENTRY_SIZE:])
	return key
}

// ValueAt returns a copy of the value stored in slot i.
// The result is undefined if the slot is not occupied.
func (block HashBlockPage) ValueAt(i int) []byte {

	value := make([]byte, VALUE_SIZE)
	copy(value, block.data[entryArrayOffset+i*ENTRY_SIZE+KEY_SIZE:])
	return value
}

// Insert stores an entry in slot i, marking it occupied and readable.
// Fails if the slot is already occupied. The caller is responsible for choosing i.
func (block HashBlockPage) Insert(i int, key []byte, value []byte) bool {

	if block.IsOccupied(i) {
		return false
	}

	block.data[occupiedArrayOffset+i] = 1
	block.data[readableArrayOffset+i] = 1

	copy(block.data[entryArrayOffset+i*ENTRY_SIZE:entryArrayOffset+i*ENTRY_SIZE+KEY_SIZE], key)
	copy(block.data[entryArrayOffset+i*ENTRY_SIZE+KEY_SIZE:entryArrayOffset+(i+1)*ENTRY_SIZE], value)

	return true
}

// Remove clears the readable bit of slot i, leaving a tombstone.
// The occupied bit must remain set so probes do not terminate prematurely.
func (block HashBlockPage) Remove(i int) {

	block.data[readableArrayOffset+i] = 0
}

func (block HashBlockPage) IsOccupied(i int) bool {

	return block.data[occupiedArrayOffset+i] == 1
}

func (block HashBlockPage) IsReadable(i int) bool {

	return block.data[readableArrayOffset+i] == 1
}
