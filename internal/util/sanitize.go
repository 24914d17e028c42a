// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
)

// Matches any character not safe for a library folder name.
var unsafeFolderCharRe = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// SanitizeFolderName converts an uploaded title or filename into a
// filesystem-safe folder name. Unsafe characters become underscores;
// case and existing dots, dashes, and underscores are preserved so the
// folder stays recognizable next to the original title.
//
// Examples:
//
//	"One Piece Vol. 1"  → "One_Piece_Vol._1"
//	"ghost/../../etc"   → "ghost_.._.._etc"
//	"  trimmed  "       → "trimmed"
func SanitizeFolderName(input string) string {
	s := strings.TrimSpace(input)
	s = unsafeFolderCharRe.ReplaceAllString(s, "_")
	// A name of only dots could still walk the tree.
	if s == "." || s == ".." || s == "" {
		return "_"
	}
	return s
}

// StemOf returns the filename without its extension, used as a fallback
// title when an audio file carries no usable tag.
func StemOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
