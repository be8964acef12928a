package handlers

import (
	"github.com/mahirjain10/image-handlers/internal/types"
	"github.com/mahirjain10/image-handlers/internal/utils"
)

var presets = []types.ScalePreset{
	{Divisor: 2, Suffix: "large"},
	{Divisor: 4, Suffix: "medium"},
	{Divisor: 8, Suffix: "small"},
	{Divisor: 12, Suffix: "thumbnail"},
}

// Presets returns the derived sizes the resize handler produces, largest
// first. The slice is a copy.
func Presets() []types.ScalePreset {
	return append([]types.ScalePreset(nil), presets...)
}

// TargetDimensions divides the source size by the preset divisor, rounding
// down. Either value can reach 0 for small sources.
func TargetDimensions(width, height int, preset types.ScalePreset) (int, int) {
	return width / preset.Divisor, height / preset.Divisor
}

// OutputKey is the key a preset variant is written under:
// OutputKey("pic.png", large) == "pic_large.png".
func OutputKey(key string, preset types.ScalePreset) string {
	return utils.InsertSuffix(key, "_"+preset.Suffix)
}
