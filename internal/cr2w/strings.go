package cr2w

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// NoneName is the sentinel stored in place of an empty string.
// Position 0 of the string pool is conventionally the "no name" slot
// and must resolve to something non-empty.
const NoneName = "None"

// StringPool holds the deduplicated null-terminated strings of a CR2W
// file, keyed by their byte offset relative to the string region.
type StringPool struct {
	byOffset map[uint32]string
	count    int
}

// ReadStringPool reads regionLen bytes of null-terminated strings
// from r. Each string is recorded under its start offset relative to
// the region; empty strings are stored as the NoneName sentinel.
func ReadStringPool(r io.Reader, regionLen uint32) (*StringPool, error) {
	region := make([]byte, regionLen)
	if _, err := io.ReadFull(r, region); err != nil {
		return nil, fmt.Errorf("failed to read string region: %w", ErrTruncated)
	}

	pool := &StringPool{byOffset: make(map[uint32]string)}
	for pos := 0; pos < len(region); {
		end := bytes.IndexByte(region[pos:], 0)
		if end < 0 {
			return nil, fmt.Errorf("string at offset %d is not null-terminated: %w", pos, ErrTruncated)
		}

		s := string(region[pos : pos+end])
		if s == "" {
			s = NoneName
		}

		pool.byOffset[uint32(pos)] = s
		pool.count++
		pos += end + 1
	}

	return pool, nil
}

// At returns the string recorded at the given region-relative offset.
func (p *StringPool) At(offset uint32) (string, error) {
	s, ok := p.byOffset[offset]
	if !ok {
		return "", fmt.Errorf("offset %d: %w", offset, ErrUnknownOffset)
	}
	return s, nil
}

// Len returns the number of strings recorded in the pool.
func (p *StringPool) Len() int {
	return p.count
}

// ReadName reads a 2-byte name ordinal from r and resolves it through
// names. A resolved name that is empty or the literal "None" is never
// valid in this format and signals corruption upstream.
func ReadName(r io.Reader, names []string) (string, error) {
	var ordinal uint16
	if err := binary.Read(r, binary.LittleEndian, &ordinal); err != nil {
		return "", fmt.Errorf("failed to read name ordinal: %w", ErrTruncated)
	}

	if int(ordinal) >= len(names) {
		return "", fmt.Errorf("ordinal %d with %d names: %w", ordinal, len(names), ErrIndexOutOfRange)
	}

	name := names[ordinal]
	if name == "" || name == NoneName {
		return "", fmt.Errorf("ordinal %d resolved to %q: %w", ordinal, name, ErrInvalidName)
	}

	return name, nil
}
