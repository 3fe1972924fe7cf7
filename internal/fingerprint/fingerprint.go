// Package fingerprint computes content digests of game executables.
//
// A fingerprint is the lowercase hex MD5 of the full file content. MD5 is
// what the published vanilla build hashes use, so the registry in
// internal/vanilla can be matched directly.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the read size used when streaming a file through the digest.
const ChunkSize = 8192

// Len is the number of hex characters in a fingerprint.
const Len = md5.Size * 2

// File returns the fingerprint of the file at path. The file is streamed in
// ChunkSize blocks so memory use does not depend on the executable size.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close()

	fp, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fp, nil
}

// Reader returns the fingerprint of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Valid reports whether s has the shape of a fingerprint: Len lowercase hex
// characters.
func Valid(s string) bool {
	if len(s) != Len {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
