package parser_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
	"github.com/domdfcoding/cp2077-extractor/internal/parser"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type importSpec struct {
	path  string
	class string
	flags uint16
}

type exportSpec struct {
	class string
	data  []byte
}

type bufferSpec struct {
	flags uint32
	data  []byte
}

type containerSpec struct {
	version uint32
	pool    []string // pool strings in order; "" becomes the None slot
	names   []string // name table entries, each referencing a pool string
	imports []importSpec
	exports []exportSpec
	buffers []bufferSpec
}

// buildContainer assembles a well-formed CR2W byte stream: magic,
// header, 10-entry directory, string pool, the six fixed tables with
// correct checksums, chunk data in export order, then buffer data.
func buildContainer(t *testing.T, spec containerSpec) []byte {
	t.Helper()

	// String pool
	pool := new(bytes.Buffer)
	offsets := make(map[string]uint32)
	for _, s := range spec.pool {
		if _, seen := offsets[s]; seen {
			t.Fatalf("duplicate pool string %q", s)
		}
		offsets[s] = uint32(pool.Len())
		pool.WriteString(s)
		pool.WriteByte(0)
	}

	nameIdx := make(map[string]uint16)
	for i, n := range spec.names {
		nameIdx[n] = uint16(i)
	}

	poolOffset := func(s string) uint32 {
		off, ok := offsets[s]
		if !ok {
			t.Fatalf("string %q not in pool", s)
		}
		return off
	}

	namesBlock := new(bytes.Buffer)
	for _, n := range spec.names {
		binary.Write(namesBlock, binary.LittleEndian, cr2w.NameInfo{Offset: poolOffset(n)})
	}

	importsBlock := new(bytes.Buffer)
	for _, imp := range spec.imports {
		idx, ok := nameIdx[imp.class]
		if !ok {
			t.Fatalf("class %q not in names", imp.class)
		}
		binary.Write(importsBlock, binary.LittleEndian, cr2w.ImportInfo{
			Offset:    poolOffset(imp.path),
			ClassName: idx,
			Flags:     imp.flags,
		})
	}

	// Layout: magic(4) + header(36) + directory(120) = 160, then the
	// pool, the table blocks, the chunk region, the buffer region.
	const directoryEnd = 160
	exportsBlockSize := cr2w.ExportInfoSize * len(spec.exports)
	buffersBlockSize := cr2w.BufferInfoSize * len(spec.buffers)
	chunkBase := directoryEnd + pool.Len() + namesBlock.Len() + importsBlock.Len() +
		exportsBlockSize + buffersBlockSize

	exportsBlock := new(bytes.Buffer)
	chunkOffset := uint32(chunkBase)
	for _, exp := range spec.exports {
		idx, ok := nameIdx[exp.class]
		if !ok {
			t.Fatalf("class %q not in names", exp.class)
		}
		binary.Write(exportsBlock, binary.LittleEndian, cr2w.ExportInfo{
			ClassName:  idx,
			DataSize:   uint32(len(exp.data)),
			DataOffset: chunkOffset,
			CRC32:      crc32.ChecksumIEEE(exp.data),
		})
		chunkOffset += uint32(len(exp.data))
	}
	objectsEnd := chunkOffset

	buffersBlock := new(bytes.Buffer)
	bufferOffset := objectsEnd
	for _, buf := range spec.buffers {
		binary.Write(buffersBlock, binary.LittleEndian, cr2w.BufferInfo{
			Flags:    buf.flags,
			Offset:   bufferOffset,
			DiskSize: uint32(len(buf.data)),
			MemSize:  uint32(len(buf.data)),
			CRC32:    crc32.ChecksumIEEE(buf.data),
		})
		bufferOffset += uint32(len(buf.data))
	}

	// Table directory, offsets running in file order
	var directory [cr2w.TableCount]cr2w.Table
	pos := uint32(directoryEnd)
	addTable := func(index int, block []byte, itemCount uint32) {
		directory[index] = cr2w.Table{
			Offset:    pos,
			ItemCount: itemCount,
			CRC32:     crc32.ChecksumIEEE(block),
		}
		pos += uint32(len(block))
	}
	directory[cr2w.TableStrings] = cr2w.Table{Offset: pos, ItemCount: uint32(pool.Len())}
	pos += uint32(pool.Len())
	addTable(cr2w.TableNames, namesBlock.Bytes(), uint32(len(spec.names)))
	addTable(cr2w.TableImports, importsBlock.Bytes(), uint32(len(spec.imports)))
	addTable(cr2w.TableProperties, nil, 0)
	addTable(cr2w.TableExports, exportsBlock.Bytes(), uint32(len(spec.exports)))
	addTable(cr2w.TableBuffers, buffersBlock.Bytes(), uint32(len(spec.buffers)))
	addTable(cr2w.TableEmbedded, nil, 0)

	out := new(bytes.Buffer)
	out.Write(cr2w.Magic[:])
	binary.Write(out, binary.LittleEndian, cr2w.FileHeader{
		Version:    spec.version,
		ObjectsEnd: objectsEnd,
		BuffersEnd: bufferOffset,
		NumChunks:  uint32(len(spec.exports)),
	})
	for _, table := range directory {
		binary.Write(out, binary.LittleEndian, table)
	}
	out.Write(pool.Bytes())
	out.Write(namesBlock.Bytes())
	out.Write(importsBlock.Bytes())
	out.Write(exportsBlock.Bytes())
	out.Write(buffersBlock.Bytes())
	for _, exp := range spec.exports {
		out.Write(exp.data)
	}
	for _, buf := range spec.buffers {
		out.Write(buf.data)
	}

	return out.Bytes()
}

func poolLen(spec containerSpec) int {
	n := 0
	for _, s := range spec.pool {
		n += len(s) + 1
	}
	return n
}

func TestReader_ReadHeader(t *testing.T) {
	valid := buildContainer(t, containerSpec{version: 180})

	tests := []struct {
		name    string
		input   []byte
		wantErr error
		version uint32
	}{
		{
			name:    "valid header",
			input:   valid,
			version: 180,
		},
		{
			name:    "invalid magic",
			input:   append([]byte("W2RC"), valid[4:]...),
			wantErr: cr2w.ErrInvalidMagic,
		},
		{
			name:    "version below supported range",
			input:   buildContainer(t, containerSpec{version: 162}),
			wantErr: cr2w.ErrUnsupportedVersion,
		},
		{
			name:    "version above supported range",
			input:   buildContainer(t, containerSpec{version: 196}),
			wantErr: cr2w.ErrUnsupportedVersion,
		},
		{
			name:    "lowest supported version",
			input:   buildContainer(t, containerSpec{version: 163}),
			version: 163,
		},
		{
			name:    "highest supported version",
			input:   buildContainer(t, containerSpec{version: 195}),
			version: 195,
		},
		{
			name:    "EOF while reading magic",
			input:   []byte("CR"),
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "EOF while reading header",
			input:   valid[:20],
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := parser.NewReader(bytes.NewReader(tt.input), discardLogger())
			got, err := r.ReadHeader()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadHeader() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadHeader() failed: %v", err)
			}
			if got.Version != tt.version {
				t.Errorf("Version = %d, want %d", got.Version, tt.version)
			}
		})
	}
}

func TestReader_ReadFileInfo_EmptyContainer(t *testing.T) {
	data := buildContainer(t, containerSpec{version: 180})

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	info, err := r.ReadFileInfo()
	if err != nil {
		t.Fatalf("ReadFileInfo() failed: %v", err)
	}

	if len(info.Names) != 0 {
		t.Errorf("Names = %v, want empty", info.Names)
	}
	if len(info.Imports) != 0 {
		t.Errorf("Imports = %v, want empty", info.Imports)
	}
	if len(info.ExportInfo) != 0 {
		t.Errorf("ExportInfo = %v, want empty", info.ExportInfo)
	}
	if info.Strings.Len() != 0 {
		t.Errorf("Strings.Len() = %d, want 0", info.Strings.Len())
	}
}

func TestReader_ReadFileInfo_ResolvesNamesAndImports(t *testing.T) {
	spec := containerSpec{
		version: 180,
		pool:    []string{"", "CBitmapTexture", "width", `base\environment\decor.xbm`},
		names:   []string{"", "CBitmapTexture", "width"},
		imports: []importSpec{
			{path: `base\environment\decor.xbm`, class: "CBitmapTexture", flags: 2},
		},
	}
	data := buildContainer(t, spec)

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	info, err := r.ReadFileInfo()
	if err != nil {
		t.Fatalf("ReadFileInfo() failed: %v", err)
	}

	wantNames := []string{"None", "CBitmapTexture", "width"}
	if !reflect.DeepEqual(info.Names, wantNames) {
		t.Errorf("Names = %v, want %v", info.Names, wantNames)
	}

	wantImport := parser.Import{
		DepotPath: `base\environment\decor.xbm`,
		ClassName: "CBitmapTexture",
		Flags:     2,
	}
	if len(info.Imports) != 1 || info.Imports[0] != wantImport {
		t.Errorf("Imports = %+v, want [%+v]", info.Imports, wantImport)
	}

	wantPaths := []string{`base\environment\decor.xbm`}
	if got := info.GetImports(); !reflect.DeepEqual(got, wantPaths) {
		t.Errorf("GetImports() = %v, want %v", got, wantPaths)
	}
}

func TestReader_ReadFileInfo_TableChecksum(t *testing.T) {
	spec := containerSpec{
		version: 180,
		pool:    []string{"", "CBitmapTexture"},
		names:   []string{"", "CBitmapTexture"},
	}
	data := buildContainer(t, spec)

	// Flip one byte inside the names table block
	data[160+poolLen(spec)] ^= 0xFF

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	if _, err := r.ReadFileInfo(); !errors.Is(err, cr2w.ErrTableChecksum) {
		t.Errorf("ReadFileInfo() error = %v, want ErrTableChecksum", err)
	}
}

func TestReader_ReadFileInfo_LayoutError(t *testing.T) {
	spec := containerSpec{
		version: 180,
		pool:    []string{"", "CBitmapTexture"},
		names:   []string{"", "CBitmapTexture"},
	}
	data := buildContainer(t, spec)

	// Corrupt the names table's declared offset. The directory
	// starts at byte 40; entry 1's offset field is at 40+12.
	data[52]++

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	if _, err := r.ReadFileInfo(); !errors.Is(err, cr2w.ErrLayout) {
		t.Errorf("ReadFileInfo() error = %v, want ErrLayout", err)
	}
}

func TestReader_ReadChunks(t *testing.T) {
	chunkA := []byte{0x00, 0xAA, 0xBB}
	chunkB := []byte{0x00, 0x01}
	spec := containerSpec{
		version: 170,
		pool:    []string{"", "CBitmapTexture", "rendRenderTextureBlobPC"},
		names:   []string{"", "CBitmapTexture", "rendRenderTextureBlobPC"},
		exports: []exportSpec{
			{class: "CBitmapTexture", data: chunkA},
			{class: "rendRenderTextureBlobPC", data: chunkB},
		},
	}
	data := buildContainer(t, spec)

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	if _, err := r.ReadFileInfo(); err != nil {
		t.Fatalf("ReadFileInfo() failed: %v", err)
	}

	chunks, err := r.ReadAllChunks()
	if err != nil {
		t.Fatalf("ReadAllChunks() failed: %v", err)
	}

	want := []parser.RawChunk{
		{ClassName: "CBitmapTexture", Data: chunkA},
		{ClassName: "rendRenderTextureBlobPC", Data: chunkB},
	}
	if !reflect.DeepEqual(chunks, want) {
		t.Errorf("ReadAllChunks() = %+v, want %+v", chunks, want)
	}
}

func TestReader_ReadChunk_ShortReadIsNotFatal(t *testing.T) {
	chunk := []byte{0x00, 0xAA, 0xBB, 0xCC}
	spec := containerSpec{
		version: 170,
		pool:    []string{"", "CBitmapTexture"},
		names:   []string{"", "CBitmapTexture"},
		exports: []exportSpec{{class: "CBitmapTexture", data: chunk}},
	}
	data := buildContainer(t, spec)

	// Drop the last two bytes so the declared chunk size overruns
	// the file. Size mismatch is a warning plus a corrective seek,
	// never a hard failure.
	data = data[:len(data)-2]

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	if _, err := r.ReadFileInfo(); err != nil {
		t.Fatalf("ReadFileInfo() failed: %v", err)
	}

	got, className, err := r.ReadChunk(0)
	if err != nil {
		t.Fatalf("ReadChunk() failed: %v", err)
	}
	if className != "CBitmapTexture" {
		t.Errorf("className = %q, want %q", className, "CBitmapTexture")
	}
	if !bytes.Equal(got, chunk[:2]) {
		t.Errorf("data = %v, want %v", got, chunk[:2])
	}
}

func TestReader_ReadBuffers(t *testing.T) {
	blobA := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	blobB := []byte{0x01, 0x02}
	spec := containerSpec{
		version: 170,
		buffers: []bufferSpec{
			{flags: 1, data: blobA},
			{flags: 0, data: blobB},
		},
	}
	data := buildContainer(t, spec)

	r := parser.NewReader(bytes.NewReader(data), discardLogger())
	info, err := r.ReadFileInfo()
	if err != nil {
		t.Fatalf("ReadFileInfo() failed: %v", err)
	}
	if len(info.BufferInfo) != 2 {
		t.Fatalf("BufferInfo length = %d, want 2", len(info.BufferInfo))
	}

	buffers, err := r.ReadAllBuffers()
	if err != nil {
		t.Fatalf("ReadAllBuffers() failed: %v", err)
	}
	if !reflect.DeepEqual(buffers, [][]byte{blobA, blobB}) {
		t.Errorf("ReadAllBuffers() = %v, want %v", buffers, [][]byte{blobA, blobB})
	}
}
