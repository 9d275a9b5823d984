package page_codec

import "encoding/binary"

const PAGE_SIZE = 4096

type MetaData struct {
	MaxAllocatedPageId    uint64
	DeallocatedPageIdList []uint64
}

type MetaDataCodec struct {
}

func DefaultMetaDataCodec() MetaDataCodec {
	return MetaDataCodec{}
}

// EncodeMetaDataPage encodes the list of deallocated page IDs and max allocated page ID into a byte slice
// so it can be written to disk. This ensures persistence of the free list across restarts.
func (codec MetaDataCodec) EncodeMetaDataPage(metadata *MetaData) []byte {

	data := make([]byte, PAGE_SIZE)

	pointer := 0

	binary.LittleEndian.PutUint64(data[pointer:pointer+8], metadata.MaxAllocatedPageId)
	pointer += 8

	binary.LittleEndian.PutUint64(data[pointer:pointer+8], uint64(len(metadata.DeallocatedPageIdList)))
	pointer += 8

	for _, pageId := range metadata.DeallocatedPageIdList {
		binary.LittleEndian.PutUint64(data[pointer:pointer+8], pageId)
		pointer += 8
	}

	return data
}

// DecodeMetaDataPage decodes the byte slice from disk into the in-memory
// list of deallocated page IDs. This restores the free list after a database restart.
func (codec MetaDataCodec) DecodeMetaDataPage(data []byte) *MetaData {

	pointer := 0

	maxAllocatedPageId := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	deallocatedPageListSize := binary.LittleEndian.Uint64(data[pointer : pointer+8])
	pointer += 8

	deallocatedPageIdList := make([]uint64, deallocatedPageListSize)

	for i := 0; i < int(deallocatedPageListSize); i++ {
		deallocatedPageIdList[i] = binary.LittleEndian.Uint64(data[pointer : pointer+8])
		pointer += 8
	}

	return &MetaData{
		MaxAllocatedPageId:    maxAllocatedPageId,
		DeallocatedPageIdList: deallocatedPageIdList,
	}
}
