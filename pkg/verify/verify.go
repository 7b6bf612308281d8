// Package verify implements integrity verification: artifact checksums
// before staging and per-file hash cross-checks of staged or installed
// trees. Nothing from an artifact may touch the install root before it has
// passed through here.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/model"
)

// Verifier checks artifacts and file trees against expected hashes.
type Verifier struct{}

// NewVerifier creates a new Verifier instance.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Checksum verifies the SHA256 digest of the file at path against the
// expected hex string. A mismatch discards any trust in the artifact: the
// caller must not stage or extract it.
func (v *Verifier) Checksum(path, expectedHex string) error {
	got, err := HashFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to hash %s", path)
	}
	if got != normalizeHex(expectedHex) {
		return errors.Wrapf(errors.ErrChecksumMismatch, "%s: expected %s, got %s", filepath.Base(path), expectedHex, got)
	}
	return nil
}

// Files verifies that every entry exists under root with matching contents.
// Entries are checked in the order given; the first failure is returned.
func (v *Verifier) Files(root string, entries []model.FileEntry) error {
	for _, entry := range entries {
		full := filepath.Join(root, filepath.FromSlash(entry.Path))
		got, err := HashFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.Wrapf(errors.ErrChecksumMismatch, "missing file %s", entry.Path)
			}
			return errors.Wrapf(err, "failed to hash %s", entry.Path)
		}
		if got != normalizeHex(entry.Hash) {
			return errors.Wrapf(errors.ErrChecksumMismatch, "%s: expected %s, got %s", entry.Path, entry.Hash, got)
		}
	}
	return nil
}

// HashFile returns the hex-encoded SHA256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
