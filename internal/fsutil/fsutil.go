// Package fsutil normalises user-supplied destination paths.
package fsutil

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b", "..\\x" and
// returns a slash-based relative path with no leading slash ("" means root).
// ".." segments are resolved against a virtual root, so the result never
// climbs above it.
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// ObjectKey joins a destination and a file name into a storage key.
func ObjectKey(destination, name string) string {
	return CleanRelPath(path.Join(CleanRelPath(destination), CleanRelPath(name)))
}

// JoinWithinRoot returns an absolute filesystem path under root for a
// relative key. It rejects NUL bytes and escapes.
func JoinWithinRoot(rootAbs string, rel string) (string, error) {
	rel = CleanRelPath(rel)
	if rel == "" {
		return rootAbs, nil
	}
	if strings.Contains(rel, "\x00") {
		return "", domain.ErrPathEscape
	}
	abs := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(rel)))
	root := filepath.Clean(rootAbs)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", domain.ErrPathEscape
	}
	return abs, nil
}
