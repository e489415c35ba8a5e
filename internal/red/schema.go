package red

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
)

// Field is one declared field of a Schema. Name is the snake_case
// identifier matched against normalized wire property names; Type is
// the expected wire type name. A nil Default makes the field
// required.
type Field struct {
	Name    string
	Type    string
	Default Value
}

// Schema is a named, ordered field list describing one concrete
// chunk type.
type Schema struct {
	Name   string
	Fields []Field
}

// Bind constructs a Struct from decoded properties keyed by
// normalized name: each declared field takes the decoded property if
// present, else its default, else binding fails.
func (sc *Schema) Bind(props map[string]Value) (*Struct, error) {
	out := &Struct{TypeName: sc.Name, Fields: make([]StructField, 0, len(sc.Fields))}

	for _, field := range sc.Fields {
		value, ok := props[field.Name]
		if !ok {
			if field.Default == nil {
				return nil, fmt.Errorf("%s.%s: %w", sc.Name, field.Name, cr2w.ErrMissingField)
			}
			value = field.Default
		}
		out.Fields = append(out.Fields, StructField{Name: field.Name, Value: value})
	}

	return out, nil
}

var (
	caseBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	upperRunRe     = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// ToSnakeCase normalizes a camelCase wire identifier to snake_case:
// splits at lowercase-to-uppercase and uppercase-run-to-word
// transitions, then lowers.
func ToSnakeCase(s string) string {
	s = caseBoundaryRe.ReplaceAllString(s, "${1}_${2}")
	s = upperRunRe.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// defaultTextureGroupSetup carries the documented STextureGroupSetup
// defaults for the fields that have them. compression and is_gamma
// have no defaults and are absent.
func defaultTextureGroupSetup() *Struct {
	return &Struct{
		TypeName: "STextureGroupSetup",
		Fields: []StructField{
			{Name: "platform_mip_bias_pc", Value: &Uint{Value: 0}},
			{Name: "platform_mip_bias_console", Value: &Uint{Value: 0}},
			{Name: "is_streamable", Value: &Bool{Value: true}},
			{Name: "has_mipchain", Value: &Bool{Value: true}},
			{Name: "allow_texture_downgrade", Value: &Bool{Value: true}},
			{Name: "group", Value: &Enum{Enum: "GpuWrapApieTextureGroup", Variant: "TEXG_Generic_Color"}},
			{Name: "raw_format", Value: &Enum{Enum: "ETextureRawFormat", Variant: "TRF_TrueColor"}},
		},
	}
}

// builtinSchemas are the texture chunk types registered into every
// default registry.
func builtinSchemas() []*Schema {
	return []*Schema{
		{
			Name: "rendRenderTextureBlobTextureInfo",
			Fields: []Field{
				{Name: "texture_data_size", Type: "Uint32"},
				{Name: "slice_size", Type: "Uint32"},
				{Name: "data_alignment", Type: "Uint32"},
				{Name: "slice_count", Type: "Uint16"},
				{Name: "mip_count", Type: "Uint8"},
				{Name: "type", Type: "GpuWrapApieTextureType",
					Default: &Enum{Enum: "GpuWrapApieTextureType", Variant: "TEXTYPE_2D"}},
			},
		},
		{
			Name: "rendRenderTextureBlobSizeInfo",
			Fields: []Field{
				{Name: "width", Type: "Uint32"},
				{Name: "height", Type: "Uint32"},
				{Name: "depth", Type: "Uint32", Default: &Uint{Value: 1}},
			},
		},
		{
			Name: "rendRenderTextureBlobHeader",
			Fields: []Field{
				{Name: "version", Type: "Uint32"},
				{Name: "size_info", Type: "rendRenderTextureBlobSizeInfo"},
				{Name: "texture_info", Type: "rendRenderTextureBlobTextureInfo"},
				{Name: "flags", Type: "Uint32"},
				{Name: "mip_map_info", Type: "array:rendRenderTextureBlobMipMapInfo",
					Default: &Opaque{TypeName: "array:rendRenderTextureBlobMipMapInfo"}},
				{Name: "histogram_data", Type: "array:rendRenderTextureBlobHistogramData",
					Default: &Opaque{TypeName: "array:rendRenderTextureBlobHistogramData"}},
			},
		},
		{
			Name: "rendRenderTextureBlobPC",
			Fields: []Field{
				{Name: "header", Type: "rendRenderTextureBlobHeader"},
				{Name: "texture_data", Type: "serializationDeferredDataBuffer"},
			},
		},
		{
			Name: "STextureGroupSetup",
			Fields: []Field{
				{Name: "compression", Type: "ETextureCompression"},
				{Name: "is_gamma", Type: "Bool"},
				{Name: "platform_mip_bias_pc", Type: "Uint8", Default: &Uint{Value: 0}},
				{Name: "platform_mip_bias_console", Type: "Uint8", Default: &Uint{Value: 0}},
				{Name: "is_streamable", Type: "Bool", Default: &Bool{Value: true}},
				{Name: "has_mipchain", Type: "Bool", Default: &Bool{Value: true}},
				{Name: "allow_texture_downgrade", Type: "Bool", Default: &Bool{Value: true}},
				{Name: "group", Type: "GpuWrapApieTextureGroup",
					Default: &Enum{Enum: "GpuWrapApieTextureGroup", Variant: "TEXG_Generic_Color"}},
				{Name: "raw_format", Type: "ETextureRawFormat",
					Default: &Enum{Enum: "ETextureRawFormat", Variant: "TRF_TrueColor"}},
			},
		},
		{
			Name: "rendRenderTextureResource",
			Fields: []Field{
				{Name: "render_resource_blob_pc", Type: "handle:IRenderResourceBlob"},
			},
		},
		{
			Name: "CBitmapTexture",
			Fields: []Field{
				{Name: "cooking_platform", Type: "ECookingPlatform"},
				{Name: "width", Type: "Uint32"},
				{Name: "height", Type: "Uint32"},
				{Name: "render_texture_resource", Type: "rendRenderTextureResource"},
				{Name: "setup", Type: "STextureGroupSetup", Default: defaultTextureGroupSetup()},
				{Name: "depth", Type: "Uint32", Default: &Uint{Value: 1}},
				{Name: "hist_bias_mul_coef", Type: "Vector3", Default: &Vector3{X: 1, Y: 1, Z: 1}},
				{Name: "hist_bias_add_coef", Type: "Vector3", Default: &Vector3{X: 0, Y: 0, Z: 0}},
			},
		},
	}
}
