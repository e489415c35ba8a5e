package cr2w

// Magic is the magic number identifying valid CR2W files ("CR2W")
var Magic = [4]byte{'C', 'R', '2', 'W'}

// Supported file format versions, inclusive. Files outside this range
// are rejected before any table is read.
const (
	MinVersion = 163
	MaxVersion = 195
)

// FileHeader is the fixed 36-byte header that follows the magic bytes.
type FileHeader struct {
	Version      uint32
	Flags        uint32
	TimeStamp    uint64
	BuildVersion uint32
	ObjectsEnd   uint32 // end offset of the chunk data region
	BuffersEnd   uint32 // end offset of the appended buffer region
	CRC32        uint32
	NumChunks    uint32
}

// Table is one entry of the 10-entry table directory. It locates a
// fixed-layout table elsewhere in the file.
type Table struct {
	Offset    uint32
	ItemCount uint32
	CRC32     uint32
}

// Table directory indices. Tables 7-9 are reserved and unused in CR2W
// so far, but their directory entries must still be consumed to keep
// the reader aligned.
const (
	TableStrings = iota
	TableNames
	TableImports
	TableProperties
	TableExports
	TableBuffers
	TableEmbedded

	TableCount = 10
)

// NameInfo is one entry of the name table. Offset is a key into the
// string pool.
type NameInfo struct {
	Offset uint32
	Hash   uint32
}

// ImportInfo is one entry of the import table, referencing an external
// resource. Offset is the depot path's key into the string pool and
// ClassName is an ordinal into the name table.
type ImportInfo struct {
	Offset    uint32
	ClassName uint16
	Flags     uint16
}

// PropertyInfo is one entry of the property table: a reflected field
// descriptor. It is metadata only and plays no part in chunk decoding.
type PropertyInfo struct {
	ClassName     uint16
	ClassFlags    uint16
	PropertyName  uint16
	PropertyFlags uint16
	Hash          uint64
}

// ExportInfo is one entry of the export table, describing a top-level
// decodable chunk.
type ExportInfo struct {
	ClassName   uint16 // ordinal into the name table
	ObjectFlags uint16 // 0 means uncooked, 8192 is cooked
	ParentID    uint32
	DataSize    uint32
	DataOffset  uint32
	Template    uint32 // can be 0
	CRC32       uint32
}

// BufferInfo is one entry of the buffer table. Buffers are compressed
// and appended after the chunk data region.
type BufferInfo struct {
	Flags  uint32
	Index  uint32
	Offset uint32 // absolute offset of the compressed blob
	// DiskSize is the compressed size of the buffer; buffers are
	// stored compressed and appended to the file.
	DiskSize uint32
	// MemSize is the uncompressed size; buffers are uncompressed at
	// runtime in the game.
	MemSize uint32
	CRC32   uint32 // crc32 over the compressed buffer
}

// EmbeddedInfo is one entry of the embedded-resource table, tying an
// import to a chunk index.
type EmbeddedInfo struct {
	ImportIndex uint32
	ChunkIndex  uint32
	PathHash    uint64
}

// Byte sizes of the fixed-layout records above, as stored on disk.
const (
	FileHeaderSize   = 36
	TableSize        = 12
	NameInfoSize     = 8
	ImportInfoSize   = 8
	PropertyInfoSize = 16
	ExportInfoSize   = 24
	BufferInfoSize   = 24
	EmbeddedInfoSize = 16
)
