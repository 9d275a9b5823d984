package page_codec

import "encoding/binary"

const (
	headerSizeOffset     = 0
	headerNumBlockOffset = 8
	headerBlockIdOffset  = 16

	// maximum number of block page IDs that fit in one header page.
	HEADER_BLOCK_CAPACITY = (PAGE_SIZE - headerBlockIdOffset) / 8
)

// HashHeaderPage is a typed view over the raw bytes of the hash table header page.
// The on-disk image is the logical bucket count, followed by the number of block
// pages, followed by the ordered list of block page IDs.
//
// The view is only valid while the underlying frame is pinned.
type HashHeaderPage struct {
	data []byte
}

func HeaderPageView(data []byte) HashHeaderPage {
	return HashHeaderPage{data: data}
}

// SetSize stores the total logical bucket count across all block pages.
func (header HashHeaderPage) SetSize(size uint64) {

	binary.LittleEndian.PutUint64(header.data[headerSizeOffset:headerSizeOffset+8], size)
}

// GetSize returns the total logical bucket count across all block pages.
func (header HashHeaderPage) GetSize() uint64 {

	return binary.LittleEndian.Uint64(header.data[headerSizeOffset : headerSizeOffset+8])
}

// AddBlockPageId appends a block page ID to the directory.
// Returns false if the directory is full.
func (header HashHeaderPage) AddBlockPageId(pageId uint64) bool {

	numBlocks := header.NumBlocks()

	if numBlocks >= HEADER_BLOCK_CAPACITY {
		return false
	}

	binary.LittleEndian.PutUint64(header.data[headerBlockIdOffset+numBlocks*8:headerBlockIdOffset+(numBlocks+1)*8], pageId)
	binary.LittleEndian.PutUint64(header.data[headerNumBlockOffset:headerNumBlockOffset+8], uint64(numBlocks+1))

	return true
}

// GetBlockPageId returns the i-th block page ID in append order.
func (header HashHeaderPage) GetBlockPageId(i int) uint64 {

	return binary.LittleEndian.Uint64(header.data[headerBlockIdOffset+i*8 : headerBlockIdOffset+(i+1)*8])
}

// NumBlocks returns the number of block pages registered in the directory.
func (header HashHeaderPage) NumBlocks() int {

	return int(binary.LittleEndian.Uint64(header.data[headerNumBlockOffset : headerNumBlockOffset+8]))
}
