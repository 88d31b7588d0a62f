// Package fileid derives stable document IDs from file paths, so re-ingesting a file
// replaces its previous version and deleting the file can delete the document.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// Prefix marks document IDs derived from a path.
const Prefix = "file:"

// hashBytes is how much of the SHA-256 digest ends up in the ID.
const hashBytes = 16

// ForPath returns the document ID for path after resolving it to a clean absolute path.
func ForPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return FromAbs(abs), nil
}

// FromAbs returns the document ID for an absolute path. The same cleaned path always
// yields the same ID.
func FromAbs(absolutePath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return Prefix + hex.EncodeToString(sum[:hashBytes])
}

// IsFileID reports whether id was produced by this package.
func IsFileID(id string) bool {
	rest, ok := strings.CutPrefix(id, Prefix)
	if !ok || len(rest) != 2*hashBytes {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}

// Title returns a display title for the file: its base name without extension.
func Title(path string) string {
	base := filepath.Base(path)
	if title := strings.TrimSuffix(base, filepath.Ext(base)); title != "" {
		return title
	}
	return base
}
