package handlers

import (
	"strings"

	"github.com/mahirjain10/image-handlers/internal/utils"
)

// Allowed extensions to convert
var allowedExtensions = []string{".jpg", ".gif", ".png"}

// AllowedExtensions returns a copy of the lower-case extensions both
// handlers accept.
func AllowedExtensions() []string {
	return append([]string(nil), allowedExtensions...)
}

// Keys holding these substrings are archived originals. `_orginal` is the
// name the optimize handler archives under, so copies are never optimized
// (and archived) again.
var archiveMarkers = []string{"_original", ArchiveSuffix}

func supportedExtension(key string) bool {
	ext := strings.ToLower(utils.Extension(key))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// OptimizeEligible decides from the decoded key alone whether the optimize
// handler should touch the object. The reason is empty when eligible.
func OptimizeEligible(key string) (bool, string) {
	if !supportedExtension(key) {
		return false, "file type is not supported for conversion"
	}
	for _, marker := range archiveMarkers {
		if strings.Contains(key, marker) {
			return false, "object is an archived original"
		}
	}
	return true, ""
}

// ResizeEligible rejects unsupported types and any key that already names a
// variant. The suffix match is a plain substring test anywhere in the key.
func ResizeEligible(key string) (bool, string) {
	if !supportedExtension(key) {
		return false, "file type is not supported for conversion"
	}
	for _, preset := range presets {
		if strings.Contains(key, preset.Suffix) {
			return false, "object is a resized variant"
		}
	}
	return true, ""
}
