package red

import (
	"fmt"
	"log/slog"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
	"github.com/domdfcoding/cp2077-extractor/internal/parser"
)

// Session decodes the chunks of one parsed file into Value trees. It
// holds only read-only shared state plus a per-session memo, so
// distinct sessions over the same FileInfo are independent.
//
// Decode results are memoized per export index, which turns handle
// resolution into a directed-graph walk with at-most-once decode per
// node; an export re-entered while still in progress reports a
// cyclic reference instead of diverging.
type Session struct {
	registry *Registry
	names    []string
	chunks   []parser.RawChunk
	buffers  [][]byte
	bufInfo  []cr2w.BufferInfo
	logger   *slog.Logger

	decoded    map[int]Value
	inProgress map[int]bool
}

// NewSession creates a decode session over a parsed file's raw chunks
// and buffers.
func NewSession(registry *Registry, info *parser.FileInfo, chunks []parser.RawChunk, buffers [][]byte, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		registry:   registry,
		names:      info.Names,
		chunks:     chunks,
		buffers:    buffers,
		bufInfo:    info.BufferInfo,
		logger:     logger,
		decoded:    make(map[int]Value),
		inProgress: make(map[int]bool),
	}
}

// DecodeChunk decodes one export into a Value tree. Results are
// memoized for the lifetime of the session.
func (s *Session) DecodeChunk(index int) (Value, error) {
	if v, ok := s.decoded[index]; ok {
		return v, nil
	}
	if s.inProgress[index] {
		return nil, fmt.Errorf("chunk %d is part of a handle cycle: %w", index, cr2w.ErrCyclicReference)
	}
	if index < 0 || index >= len(s.chunks) {
		return nil, fmt.Errorf("chunk %d with %d chunks: %w", index, len(s.chunks), cr2w.ErrIndexOutOfRange)
	}

	s.inProgress[index] = true
	defer delete(s.inProgress, index)

	chunk := s.chunks[index]
	v, err := s.Instantiate(chunk.ClassName, chunk.Data)
	if err != nil {
		return nil, err
	}

	s.decoded[index] = v
	return v, nil
}

// ChunkResult is the outcome of decoding one export. Err is set when
// that chunk failed; sibling chunks are unaffected.
type ChunkResult struct {
	Index     int
	ClassName string
	Value     Value
	Err       error
}

// DecodeAll decodes every export, isolating failures to their chunk
// so a caller extracting many assets can still recover everything
// decodable.
func (s *Session) DecodeAll() []ChunkResult {
	results := make([]ChunkResult, 0, len(s.chunks))
	for i, chunk := range s.chunks {
		v, err := s.DecodeChunk(i)
		if err != nil {
			s.logger.Warn("failed to decode chunk",
				"chunk", i,
				"class_name", chunk.ClassName,
				"error", err,
			)
		}
		results = append(results, ChunkResult{Index: i, ClassName: chunk.ClassName, Value: v, Err: err})
	}
	return results
}

// Instantiate decodes one property's value bytes according to the
// strategy registered for its wire type name.
func (s *Session) Instantiate(typeName string, raw []byte) (Value, error) {
	strategy, err := s.registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}

	switch strategy.Kind {
	case StrategyUint:
		return &Uint{Value: leUint(raw)}, nil

	case StrategyBool:
		return &Bool{Value: len(raw) > 0 && raw[0] != 0}, nil

	case StrategyEnum:
		ordinal := leUint(raw)
		if ordinal >= uint64(len(s.names)) {
			return nil, fmt.Errorf("enum ordinal %d with %d names: %w", ordinal, len(s.names), cr2w.ErrIndexOutOfRange)
		}
		return strategy.Enum.Parse(s.names[ordinal])

	case StrategySchema:
		return s.decodeStruct(strategy.Schema, raw)

	case StrategyHandle:
		return s.ResolveHandle(raw)

	case StrategyBuffer:
		return s.ResolveBuffer(raw)

	default:
		return &Opaque{TypeName: typeName, Data: raw}, nil
	}
}

// decodeStruct recursively decodes a nested chunk's property stream
// and binds the result to the schema's declared fields.
func (s *Session) decodeStruct(schema *Schema, raw []byte) (Value, error) {
	props, err := DecodeProperties(raw, s.names)
	if err != nil {
		return nil, err
	}

	values := make(map[string]Value, len(props))
	for _, p := range props {
		v, err := s.Instantiate(p.Type, p.Raw)
		if err != nil {
			return nil, fmt.Errorf("property %s (%s): %w", p.Name, p.Type, err)
		}
		values[ToSnakeCase(p.Name)] = v
	}

	return schema.Bind(values)
}

// ResolveHandle interprets raw as a little-endian 1-based export
// index. Index 0 is the distinct "unset" case and is never looked
// up; anything past the export table is invalid. The target chunk is
// decoded through the session memo.
func (s *Session) ResolveHandle(raw []byte) (Value, error) {
	wire := leUint(raw)
	if wire == 0 {
		return &Handle{Unset: true, Index: -1}, nil
	}

	index := int(wire) - 1
	if index >= len(s.chunks) {
		return nil, fmt.Errorf("handle %d with %d exports: %w", wire, len(s.chunks), cr2w.ErrInvalidHandle)
	}

	target, err := s.DecodeChunk(index)
	if err != nil {
		return nil, err
	}
	return &Handle{Index: index, Target: target}, nil
}

// ResolveBuffer resolves a deferred-buffer property. Which of several
// buffers the value bytes select is not decoded yet; entry 0 is used
// unconditionally.
// TODO: decode the buffer index out of the value bytes once files
// with more than one buffer entry show up.
func (s *Session) ResolveBuffer(raw []byte) (Value, error) {
	_ = raw

	if len(s.buffers) == 0 {
		return nil, fmt.Errorf("deferred buffer with empty buffer table: %w", cr2w.ErrIndexOutOfRange)
	}
	return &Buffer{Index: 0, Flags: s.bufInfo[0].Flags, Data: s.buffers[0]}, nil
}

// leUint reads raw as a little-endian unsigned integer of up to 8
// bytes; longer inputs use the low 8 bytes.
func leUint(raw []byte) uint64 {
	if len(raw) > 8 {
		raw = raw[:8]
	}
	var v uint64
	for i := len(raw) - 1; i >= 0; i-- {
		v = v<<8 | uint64(raw[i])
	}
	return v
}
