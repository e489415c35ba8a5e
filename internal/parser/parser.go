package parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"

	"github.com/samber/lo"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
)

// Reader reads information from CR2W files.
type Reader struct {
	file   io.ReadSeeker
	logger *slog.Logger
	info   *FileInfo
}

// NewReader creates a Reader over an open CR2W file.
func NewReader(file io.ReadSeeker, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{file: file, logger: logger}
}

// Import is a resolved entry of the import table.
type Import struct {
	DepotPath string
	ClassName string
	Flags     uint16
}

// FileInfo is the aggregate read-only view of a parsed CR2W file:
// header, table directory, string pool, the six fixed tables, and the
// resolved name and import lists. It is not mutated after
// ReadFileInfo returns and is safe to share across concurrent chunk
// decodes.
type FileInfo struct {
	Header cr2w.FileHeader
	Tables [cr2w.TableCount]cr2w.Table

	Strings      *cr2w.StringPool
	NameInfo     []cr2w.NameInfo
	ImportInfo   []cr2w.ImportInfo
	PropertyInfo []cr2w.PropertyInfo
	ExportInfo   []cr2w.ExportInfo
	BufferInfo   []cr2w.BufferInfo
	EmbeddedInfo []cr2w.EmbeddedInfo

	// Names is the name table resolved through the string pool, in
	// table order. Ordinals in chunk data index into this list.
	Names []string

	// Imports is the import table with class names and depot paths
	// resolved.
	Imports []Import
}

// GetImports returns the import depot paths in table order.
func (fi *FileInfo) GetImports() []string {
	return lo.Map(fi.Imports, func(imp Import, _ int) string {
		return imp.DepotPath
	})
}

// ReadHeader reads the magic bytes and the fixed file header.
// The version is checked against the supported range before anything
// else is read; files outside it are rejected outright.
func (r *Reader) ReadHeader() (*cr2w.FileHeader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r.file, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != cr2w.Magic {
		return nil, fmt.Errorf("expected %q, got %q: %w", cr2w.Magic, magic, cr2w.ErrInvalidMagic)
	}

	h := &cr2w.FileHeader{}
	if err := binary.Read(r.file, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}

	if h.Version < cr2w.MinVersion || h.Version > cr2w.MaxVersion {
		return nil, fmt.Errorf("version %d: %w", h.Version, cr2w.ErrUnsupportedVersion)
	}

	r.logger.Info("header is valid",
		"version", h.Version,
		"build_version", h.BuildVersion,
		"objects_end", h.ObjectsEnd,
		"buffers_end", h.BuffersEnd,
		"num_chunks", h.NumChunks,
	)

	return h, nil
}

// pos returns the reader's current byte position.
func (r *Reader) pos() (uint32, error) {
	p, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to get current position: %w", err)
	}
	return uint32(p), nil
}

// checkPosition enforces the format's strict sequential layout: the
// reader must already be at the declared offset before a table is
// read. There is no resynchronization mechanism, so a mismatch is
// fatal for the whole file.
func (r *Reader) checkPosition(what string, offset uint32) error {
	p, err := r.pos()
	if err != nil {
		return err
	}
	if p != offset {
		return fmt.Errorf("%s declared at %d but reader is at %d: %w", what, offset, p, cr2w.ErrLayout)
	}
	return nil
}

// readFixedTable reads hdr.ItemCount records of type T as one block,
// verifies the block's crc32 against the directory entry, then
// unpacks the records.
func readFixedTable[T any](r *Reader, what string, hdr cr2w.Table, recordSize int) ([]T, error) {
	if err := r.checkPosition(what, hdr.Offset); err != nil {
		return nil, err
	}

	block := make([]byte, recordSize*int(hdr.ItemCount))
	if _, err := io.ReadFull(r.file, block); err != nil {
		return nil, fmt.Errorf("failed to read %s table: %w", what, err)
	}

	if sum := crc32.ChecksumIEEE(block); sum != hdr.CRC32 {
		return nil, fmt.Errorf("%s table: computed %08x, declared %08x: %w", what, sum, hdr.CRC32, cr2w.ErrTableChecksum)
	}

	records := make([]T, hdr.ItemCount)
	br := bytes.NewReader(block)
	for i := range records {
		if err := binary.Read(br, binary.LittleEndian, &records[i]); err != nil {
			return nil, fmt.Errorf("failed to unpack %s record %d: %w", what, i, err)
		}
	}

	r.logger.Debug("read table",
		"table", what,
		"item_count", hdr.ItemCount,
		"offset", hdr.Offset,
	)

	return records, nil
}

// ReadFileInfo reads the header, the 10-entry table directory, the
// string pool, and the six fixed tables, and resolves the name and
// import lists. The reader must be positioned at the start of the
// file.
func (r *Reader) ReadFileInfo() (*FileInfo, error) {
	header, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}

	info := &FileInfo{Header: *header}

	// Tables 7-9 are reserved and unused so far, but must still be
	// consumed to keep the reader aligned.
	for i := range info.Tables {
		if err := binary.Read(r.file, binary.LittleEndian, &info.Tables[i]); err != nil {
			return nil, fmt.Errorf("failed to read table directory entry %d: %w", i, err)
		}
	}

	// The string region is variable-length and null-terminated rather
	// than a fixed-record table; its ItemCount is a byte length.
	stringsHdr := info.Tables[cr2w.TableStrings]
	if err := r.checkPosition("strings", stringsHdr.Offset); err != nil {
		return nil, err
	}
	info.Strings, err = cr2w.ReadStringPool(r.file, stringsHdr.ItemCount)
	if err != nil {
		return nil, err
	}

	if info.NameInfo, err = readFixedTable[cr2w.NameInfo](r, "names", info.Tables[cr2w.TableNames], cr2w.NameInfoSize); err != nil {
		return nil, err
	}
	if info.ImportInfo, err = readFixedTable[cr2w.ImportInfo](r, "imports", info.Tables[cr2w.TableImports], cr2w.ImportInfoSize); err != nil {
		return nil, err
	}
	if info.PropertyInfo, err = readFixedTable[cr2w.PropertyInfo](r, "properties", info.Tables[cr2w.TableProperties], cr2w.PropertyInfoSize); err != nil {
		return nil, err
	}
	if info.ExportInfo, err = readFixedTable[cr2w.ExportInfo](r, "exports", info.Tables[cr2w.TableExports], cr2w.ExportInfoSize); err != nil {
		return nil, err
	}
	if info.BufferInfo, err = readFixedTable[cr2w.BufferInfo](r, "buffers", info.Tables[cr2w.TableBuffers], cr2w.BufferInfoSize); err != nil {
		return nil, err
	}
	if info.EmbeddedInfo, err = readFixedTable[cr2w.EmbeddedInfo](r, "embedded", info.Tables[cr2w.TableEmbedded], cr2w.EmbeddedInfoSize); err != nil {
		return nil, err
	}

	info.Names = make([]string, 0, len(info.NameInfo))
	for i, ni := range info.NameInfo {
		name, err := info.Strings.At(ni.Offset)
		if err != nil {
			return nil, fmt.Errorf("name %d: %w", i, err)
		}
		info.Names = append(info.Names, name)
	}

	info.Imports = make([]Import, 0, len(info.ImportInfo))
	for i, ii := range info.ImportInfo {
		depotPath, err := info.Strings.At(ii.Offset)
		if err != nil {
			return nil, fmt.Errorf("import %d: %w", i, err)
		}
		if int(ii.ClassName) >= len(info.Names) {
			return nil, fmt.Errorf("import %d class name ordinal %d: %w", i, ii.ClassName, cr2w.ErrIndexOutOfRange)
		}
		info.Imports = append(info.Imports, Import{
			DepotPath: depotPath,
			ClassName: info.Names[ii.ClassName],
			Flags:     ii.Flags,
		})
	}

	r.logger.Info("read file info",
		"names", len(info.Names),
		"imports", len(info.Imports),
		"exports", len(info.ExportInfo),
		"buffers", len(info.BufferInfo),
	)

	r.info = info
	return info, nil
}

// ReadChunk reads one export's raw chunk bytes. Chunks are laid out
// in export-table order and each must begin exactly at its declared
// data offset. A short read is downgraded to a warning plus a
// corrective seek to the declared end, matching the irregularity seen
// in real files, rather than failing the whole parse.
func (r *Reader) ReadChunk(index int) (data []byte, className string, err error) {
	if r.info == nil {
		return nil, "", fmt.Errorf("file info has not been read")
	}
	if index < 0 || index >= len(r.info.ExportInfo) {
		return nil, "", fmt.Errorf("chunk %d with %d exports: %w", index, len(r.info.ExportInfo), cr2w.ErrIndexOutOfRange)
	}

	export := r.info.ExportInfo[index]
	if int(export.ClassName) >= len(r.info.Names) {
		return nil, "", fmt.Errorf("chunk %d class name ordinal %d: %w", index, export.ClassName, cr2w.ErrIndexOutOfRange)
	}
	className = r.info.Names[export.ClassName]

	if err := r.checkPosition(fmt.Sprintf("chunk %d", index), export.DataOffset); err != nil {
		return nil, "", err
	}

	data = make([]byte, export.DataSize)
	n, err := io.ReadFull(r.file, data)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		r.logger.Warn("chunk size mismatch, could lead to problems",
			"chunk", index,
			"class_name", className,
			"declared", export.DataSize,
			"read", n,
		)
		data = data[:n]
		if _, err := r.file.Seek(int64(export.DataOffset)+int64(export.DataSize), io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("failed to seek past chunk %d: %w", index, err)
		}
	default:
		return nil, "", fmt.Errorf("failed to read chunk %d: %w", index, err)
	}

	return data, className, nil
}

// ReadAllChunks reads every export's raw bytes in table order.
func (r *Reader) ReadAllChunks() ([]RawChunk, error) {
	if r.info == nil {
		return nil, fmt.Errorf("file info has not been read")
	}

	chunks := make([]RawChunk, 0, len(r.info.ExportInfo))
	for i := range r.info.ExportInfo {
		data, className, err := r.ReadChunk(i)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, RawChunk{ClassName: className, Data: data})
	}
	return chunks, nil
}

// RawChunk is one export's undecoded bytes together with its class
// name.
type RawChunk struct {
	ClassName string
	Data      []byte
}

// ReadBuffer reads one buffer's compressed bytes from the appended
// buffer region. Decompression is a caller concern.
func (r *Reader) ReadBuffer(index int) ([]byte, error) {
	if r.info == nil {
		return nil, fmt.Errorf("file info has not been read")
	}
	if index < 0 || index >= len(r.info.BufferInfo) {
		return nil, fmt.Errorf("buffer %d with %d buffers: %w", index, len(r.info.BufferInfo), cr2w.ErrIndexOutOfRange)
	}

	info := r.info.BufferInfo[index]
	if _, err := r.file.Seek(int64(info.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to buffer %d at offset %d: %w", index, info.Offset, err)
	}

	data := make([]byte, info.DiskSize)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("failed to read buffer %d: %w", index, err)
	}
	return data, nil
}

// ReadAllBuffers reads every buffer's compressed bytes in table order.
func (r *Reader) ReadAllBuffers() ([][]byte, error) {
	if r.info == nil {
		return nil, fmt.Errorf("file info has not been read")
	}

	buffers := make([][]byte, 0, len(r.info.BufferInfo))
	for i := range r.info.BufferInfo {
		data, err := r.ReadBuffer(i)
		if err != nil {
			return nil, err
		}
		buffers = append(buffers, data)
	}
	return buffers, nil
}
