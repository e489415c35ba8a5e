package cr2w_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
)

func TestReadStringPool(t *testing.T) {
	region := []byte("\x00CBitmapTexture\x00width\x00")

	pool, err := cr2w.ReadStringPool(bytes.NewReader(region), uint32(len(region)))
	if err != nil {
		t.Fatalf("ReadStringPool() failed: %v", err)
	}

	if pool.Len() != 3 {
		t.Errorf("Len() = %d, want 3", pool.Len())
	}

	tests := []struct {
		offset uint32
		want   string
	}{
		{0, "None"}, // empty string replaced by the sentinel
		{1, "CBitmapTexture"},
		{17, "width"},
	}
	for _, tt := range tests {
		got, err := pool.At(tt.offset)
		if err != nil {
			t.Errorf("At(%d) failed: %v", tt.offset, err)
			continue
		}
		if got != tt.want {
			t.Errorf("At(%d) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}

func TestReadStringPool_UnknownOffset(t *testing.T) {
	pool, err := cr2w.ReadStringPool(bytes.NewReader([]byte("abc\x00")), 4)
	if err != nil {
		t.Fatalf("ReadStringPool() failed: %v", err)
	}

	// offset 2 is inside "abc", not a string start
	if _, err := pool.At(2); !errors.Is(err, cr2w.ErrUnknownOffset) {
		t.Errorf("At(2) error = %v, want ErrUnknownOffset", err)
	}
}

func TestReadStringPool_Unterminated(t *testing.T) {
	if _, err := cr2w.ReadStringPool(bytes.NewReader([]byte("abc")), 3); !errors.Is(err, cr2w.ErrTruncated) {
		t.Errorf("ReadStringPool() error = %v, want ErrTruncated", err)
	}
}

func TestReadName(t *testing.T) {
	names := []string{"None", "width", "Uint32", ""}

	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr error
	}{
		{
			name:  "valid ordinal",
			input: []byte{0x01, 0x00},
			want:  "width",
		},
		{
			name:    "ordinal out of range",
			input:   []byte{0x04, 0x00},
			wantErr: cr2w.ErrIndexOutOfRange,
		},
		{
			name:    "None sentinel is never a valid name",
			input:   []byte{0x00, 0x00},
			wantErr: cr2w.ErrInvalidName,
		},
		{
			name:    "empty name",
			input:   []byte{0x03, 0x00},
			wantErr: cr2w.ErrInvalidName,
		},
		{
			name:    "truncated ordinal",
			input:   []byte{0x01},
			wantErr: cr2w.ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cr2w.ReadName(bytes.NewReader(tt.input), names)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadName() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadName() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessagesNameOffender(t *testing.T) {
	_, err := cr2w.ReadName(bytes.NewReader([]byte{0x09, 0x00}), []string{"None"})
	if err == nil || !strings.Contains(err.Error(), "9") {
		t.Errorf("error should name the offending ordinal, got %v", err)
	}
}
