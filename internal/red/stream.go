package red

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
)

// Property is one undecoded (name, type, value) triple split out of a
// chunk's property stream.
type Property struct {
	Name string
	Type string
	Raw  []byte
}

// DecodeProperties splits a chunk's raw bytes into property triples.
//
// Byte 0 of every chunk must be the 0x00 structural marker. Each
// property is a 2-byte name ordinal, a 2-byte type ordinal, and a
// 4-byte length that includes itself, followed by length-4 value
// bytes. Real files carry irregular trailing padding, so a truncated
// or garbage trailing property stops the loop and the triples
// accumulated so far are returned; only the leading marker check is
// fatal.
func DecodeProperties(raw []byte, names []string) ([]Property, error) {
	if len(raw) == 0 || raw[0] != 0 {
		return nil, fmt.Errorf("chunk does not start with zero byte: %w", cr2w.ErrMalformedChunk)
	}

	r := bytes.NewReader(raw[1:])
	var props []Property

	for int(r.Size())-r.Len()+1 < len(raw)-1 {
		name, err := cr2w.ReadName(r, names)
		if err != nil {
			break
		}
		typeName, err := cr2w.ReadName(r, names)
		if err != nil {
			break
		}

		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			break
		}
		if length < 4 {
			break
		}

		value := make([]byte, length-4)
		if _, err := io.ReadFull(r, value); err != nil {
			break
		}

		props = append(props, Property{Name: name, Type: typeName, Raw: value})
	}

	return props, nil
}
