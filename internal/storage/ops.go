// Package storage holds small filesystem helpers shared by the download
// pipeline.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmarceau/streamgate/internal/constants"
)

// Sanitize strips characters that are invalid in filesystem paths.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

// ASCIIFilename reduces a possibly non-ASCII media title to a safe ASCII
// filename for the plain Content-Disposition parameter. Falls back to the
// provided name when nothing printable survives.
func ASCIIFilename(title, fallback string) string {
	var b strings.Builder
	for _, r := range Sanitize(title) {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = fallback
	}
	return name
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// CleanupDir removes a directory tree. Idempotent: a missing directory is
// not an error, and calling it twice leaves nothing behind either time.
func CleanupDir(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FindOutputFile locates the produced media file in a job's temp directory
// when the tool never announced a destination. Partial-download droppings
// are skipped; among the rest the largest file wins.
func FindOutputFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var best string
	var bestSize int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") || strings.HasSuffix(name, ".temp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.Size() > bestSize {
			best = filepath.Join(dir, name)
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", fmt.Errorf("no output file found in %s", dir)
	}
	return best, nil
}
