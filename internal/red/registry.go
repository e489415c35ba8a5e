package red

import (
	"fmt"
	"strings"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
)

// StrategyKind selects how a property's value bytes are decoded.
type StrategyKind int

const (
	StrategyUint StrategyKind = iota
	StrategyBool
	StrategyEnum
	StrategySchema
	StrategyHandle
	StrategyBuffer
	StrategyOpaque
)

// Strategy is the decode strategy resolved for one wire type name.
// Enum and Schema are set for their respective kinds only.
type Strategy struct {
	Kind   StrategyKind
	Enum   *EnumType
	Schema *Schema
}

// Registry maps wire type names to decode strategies. Lookup is a
// plain map access plus prefix fallbacks; registration is additive
// and happens before decoding starts, so a populated Registry can be
// shared across sessions.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds a registry pre-populated with the primitive
// types, the engine enums, and the texture schemas.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Strategy)}

	for _, name := range []string{"Uint8", "Uint16", "Uint32"} {
		r.byName[name] = Strategy{Kind: StrategyUint}
	}
	r.byName["Bool"] = Strategy{Kind: StrategyBool}
	r.byName["serializationDeferredDataBuffer"] = Strategy{Kind: StrategyBuffer}

	for _, e := range builtinEnums {
		r.RegisterEnum(e)
	}
	for _, s := range builtinSchemas() {
		r.RegisterSchema(s)
	}

	return r
}

// RegisterEnum adds an enum type under its name.
func (r *Registry) RegisterEnum(e *EnumType) {
	r.byName[e.Name] = Strategy{Kind: StrategyEnum, Enum: e}
}

// RegisterSchema adds a concrete chunk schema under its name.
func (r *Registry) RegisterSchema(s *Schema) {
	r.byName[s.Name] = Strategy{Kind: StrategySchema, Schema: s}
}

// Lookup resolves a wire type name to its strategy. Exact matches
// win; otherwise handle: types resolve against the export table and
// array: types with no registered element schema stay opaque.
func (r *Registry) Lookup(typeName string) (Strategy, error) {
	if s, ok := r.byName[typeName]; ok {
		return s, nil
	}
	if strings.HasPrefix(typeName, "handle:") {
		return Strategy{Kind: StrategyHandle}, nil
	}
	if strings.HasPrefix(typeName, "array:") {
		return Strategy{Kind: StrategyOpaque}, nil
	}
	return Strategy{}, fmt.Errorf("%q: %w", typeName, cr2w.ErrUnknownType)
}
