package red

// Kind identifies the variant of a decoded Value.
type Kind int

const (
	KindNull Kind = iota
	KindUint
	KindBool
	KindEnum
	KindStruct
	KindHandle
	KindBuffer
	KindOpaque
	KindVector3
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindUint:
		return "Uint"
	case KindBool:
		return "Bool"
	case KindEnum:
		return "Enum"
	case KindStruct:
		return "Struct"
	case KindHandle:
		return "Handle"
	case KindBuffer:
		return "Buffer"
	case KindOpaque:
		return "Opaque"
	case KindVector3:
		return "Vector3"
	default:
		return "Unknown"
	}
}

// Value is one node of a decoded chunk tree.
type Value interface {
	Kind() Kind
}

// Uint is a little-endian unsigned integer (Uint8/Uint16/Uint32).
type Uint struct {
	Value uint64 `json:"value"`
}

func (*Uint) Kind() Kind { return KindUint }

// Bool is a single-byte boolean.
type Bool struct {
	Value bool `json:"value"`
}

func (*Bool) Kind() Kind { return KindBool }

// Enum is a resolved enum variant.
type Enum struct {
	Enum    string `json:"enum"`
	Variant string `json:"variant"`
}

func (*Enum) Kind() Kind { return KindEnum }

// StructField is one named field of a Struct, in declaration order.
type StructField struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Struct is a schema-bound record of named fields.
type Struct struct {
	TypeName string        `json:"type"`
	Fields   []StructField `json:"fields"`
}

func (*Struct) Kind() Kind { return KindStruct }

// Get returns the field with the given name.
func (s *Struct) Get(name string) (Value, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Handle is a resolved cross-reference to another export. Index is
// zero-based; a wire value of 0 produces Unset with no lookup. The
// target is a back-reference into the decode session, never a copy.
type Handle struct {
	Unset  bool  `json:"unset,omitempty"`
	Index  int   `json:"index"`
	Target Value `json:"target,omitempty"`
}

func (*Handle) Kind() Kind { return KindHandle }

// Buffer is a resolved deferred-buffer reference. Data holds the raw
// compressed bytes from the buffer region; decompression is a caller
// concern.
type Buffer struct {
	Index int    `json:"index"`
	Flags uint32 `json:"flags"`
	Data  []byte `json:"data"`
}

func (*Buffer) Kind() Kind { return KindBuffer }

// Opaque is a value whose wire type has no element decoding yet, kept
// as raw bytes tagged with the wire type name. A known capability
// gap, preserved so future schema coverage does not change the shape
// of the tree.
type Opaque struct {
	TypeName string `json:"type"`
	Data     []byte `json:"data"`
}

func (*Opaque) Kind() Kind { return KindOpaque }

// Vector3 is a three-component float vector, used for schema
// defaults such as the histogram bias coefficients.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (*Vector3) Kind() Kind { return KindVector3 }
