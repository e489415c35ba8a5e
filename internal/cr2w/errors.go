package cr2w

import "errors"

// Header- and table-level errors abort the whole file; chunk- and
// property-level errors are caught at the chunk boundary so sibling
// exports can still be decoded.
var (
	// ErrInvalidMagic means the file does not start with "CR2W".
	ErrInvalidMagic = errors.New("invalid CR2W magic")

	// ErrUnsupportedVersion means the header version is outside
	// [MinVersion, MaxVersion].
	ErrUnsupportedVersion = errors.New("unsupported CR2W version")

	// ErrLayout means the reader's position did not match an offset
	// declared in the table directory. The format has no
	// resynchronization mechanism, so this is fatal.
	ErrLayout = errors.New("table offset does not match file position")

	// ErrTableChecksum means a fixed table's raw bytes did not match
	// the crc32 declared in its directory entry.
	ErrTableChecksum = errors.New("table checksum mismatch")

	// ErrUnknownOffset means a string pool lookup used an offset that
	// was never recorded while reading the pool.
	ErrUnknownOffset = errors.New("unknown string pool offset")

	// ErrIndexOutOfRange means a name ordinal exceeded the name list.
	ErrIndexOutOfRange = errors.New("name ordinal out of range")

	// ErrInvalidName means a name ordinal resolved to an empty string
	// or the literal "None" sentinel, which is never a valid name and
	// signals corruption upstream.
	ErrInvalidName = errors.New("invalid name")

	// ErrMalformedChunk means a chunk's property stream did not start
	// with the 0x00 structural marker.
	ErrMalformedChunk = errors.New("malformed chunk")

	// ErrTruncated means fewer bytes remained than a fixed-size read
	// required.
	ErrTruncated = errors.New("truncated input")

	// ErrUnknownType means a wire type name had no registered decode
	// strategy. Expected during incremental schema coverage; the
	// offending type name is included for triage.
	ErrUnknownType = errors.New("unknown wire type")

	// ErrUnknownEnumVariant means an enum value resolved to a name
	// not present among the enum's known variants.
	ErrUnknownEnumVariant = errors.New("unknown enum variant")

	// ErrInvalidHandle means a handle's 1-based export index was out
	// of range for the export table.
	ErrInvalidHandle = errors.New("invalid handle index")

	// ErrCyclicReference means handle resolution re-entered an export
	// that is still being decoded.
	ErrCyclicReference = errors.New("cyclic handle reference")

	// ErrMissingField means a schema field had no decoded property
	// and no default.
	ErrMissingField = errors.New("missing required field")
)
