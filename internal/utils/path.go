package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// DecodeKey turns a notification object key into the stored key. Spaces
// arrive as `+`, so they are restored before percent-unescaping; a literal
// plus sign arrives as %2B and survives.
func DecodeKey(raw string) (string, error) {
	key, err := url.PathUnescape(strings.ReplaceAll(raw, "+", " "))
	if err != nil {
		return "", fmt.Errorf("failed to decode object key %q: %w", raw, err)
	}
	return key, nil
}

// Extension returns the key from its last `.` on, e.g. ".JPG". Keys
// without a dot have no extension.
func Extension(key string) string {
	i := strings.LastIndex(key, ".")
	if i == -1 {
		return ""
	}
	return key[i:]
}

// BaseName returns the key without its extension.
func BaseName(key string) string {
	return strings.TrimSuffix(key, Extension(key))
}

// InsertSuffix places suffix right before the extension:
// InsertSuffix("pic.png", "_large") == "pic_large.png".
func InsertSuffix(key string, suffix string) string {
	ext := Extension(key)
	return BaseName(key) + suffix + ext
}
