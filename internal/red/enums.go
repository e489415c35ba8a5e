package red

import (
	"fmt"

	"github.com/domdfcoding/cp2077-extractor/internal/cr2w"
)

// EnumType is a named set of variants, keyed by the variant name
// strings as they appear in the file's name table.
type EnumType struct {
	Name     string
	variants map[string]struct{}
}

// NewEnumType creates an enum type from its variant names.
func NewEnumType(name string, variants ...string) *EnumType {
	set := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		set[v] = struct{}{}
	}
	return &EnumType{Name: name, variants: set}
}

// Parse matches a resolved name string against the enum's variants.
// Matching is case-sensitive and exact; there is no silent default.
func (e *EnumType) Parse(variant string) (*Enum, error) {
	if _, ok := e.variants[variant]; !ok {
		return nil, fmt.Errorf("%s has no variant %q: %w", e.Name, variant, cr2w.ErrUnknownEnumVariant)
	}
	return &Enum{Enum: e.Name, Variant: variant}, nil
}

// Engine enums referenced by the texture schemas.
var (
	ECookingPlatform = NewEnumType("ECookingPlatform",
		"PLATFORM_None",
		"PLATFORM_PC",
		"PLATFORM_XboxOne",
		"PLATFORM_PS4",
		"PLATFORM_PS5",
		"PLATFORM_WindowsServer",
		"PLATFORM_LinuxServer",
	)

	GpuWrapApieTextureType = NewEnumType("GpuWrapApieTextureType",
		"TEXTYPE_2D",
		"TEXTYPE_CUBE",
		"TEXTYPE_ARRAY",
		"TEXTYPE_3D",
	)

	GpuWrapApieTextureGroup = NewEnumType("GpuWrapApieTextureGroup",
		"TEXG_Generic_Grayscale",
		"TEXG_Generic_Color",
		"TEXG_Generic_Data",
		"TEXG_Generic_Normal",
		"TEXG_Generic_UI",
		"TEXG_Generic_Font",
		"TEXG_Generic_LUT",
		"TEXG_Generic_MorphBlend",
		"TEXG_Multilayer_Color",
		"TEXG_Multilayer_Grayscale",
		"TEXG_Shadow",
	)

	ETextureCompression = NewEnumType("ETextureCompression",
		"TCM_None",
		"TCM_DXTNoAlpha",
		"TCM_DXTAlpha",
		"TCM_Normalmap",
		"TCM_NormalsHigh",
		"TCM_NormalsGloss",
		"TCM_TileMap",
		"TCM_QualityR",
		"TCM_QualityRG",
		"TCM_QualityColor",
	)

	ETextureRawFormat = NewEnumType("ETextureRawFormat",
		"TRF_TrueColor",
		"TRF_DeepColor",
		"TRF_Grayscale",
		"TRF_HDRFloat",
		"TRF_R16F",
		"TRF_RG16F",
		"TRF_AlphaGrayscale",
		"TRF_HDRHalf",
		"TRF_HDRFloatGrayscale",
	)
)

// builtinEnums are registered into every default registry.
var builtinEnums = []*EnumType{
	ECookingPlatform,
	GpuWrapApieTextureType,
	GpuWrapApieTextureGroup,
	ETextureCompression,
	ETextureRawFormat,
}
