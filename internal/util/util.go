// Package util provides some basic utility functions.
package util

import (
	"strings"
)

// Ext returns the extension of name: the substring starting at its last '.'.
// It returns "" if name has no '.', or if the last one belongs to a directory.
func Ext(name string) string {
	i := strings.LastIndexAny(name, "./\\")
	if i < 0 || name[i] != '.' {
		return ""
	}
	return name[i:]
}

// HasExt reports whether name ends in one of exts, ignoring case.
func HasExt(name string, exts ...string) bool {
	ext := strings.ToLower(Ext(name))
	if len(ext) <= 1 {
		return false
	}
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Abs returns the absolute value of v, widened so that math.MinInt32 is representable.
func Abs(v int32) int64 {
	if v < 0 {
		return -int64(v)
	}
	return int64(v)
}
