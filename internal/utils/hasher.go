package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Hash generates a SHA-256 hash of the input bytes
func Hash(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// HashReader returns the SHA-256 of everything read from r
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashFile returns the SHA-256 of the file at path
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := HashReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return sum, nil
}
