package impl

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Hash format is "salt:hash", both hex encoded, PBKDF2-SHA512.
const (
	pbkdf2Iterations = 10000
	pbkdf2KeyLen     = 64
	saltLen          = 32
)

func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to read salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), []byte(hex.EncodeToString(salt)), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)

	return fmt.Sprintf("%s:%s", hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

func verifyPassword(password, hash string) bool {
	parts := strings.SplitN(hash, ":", 2)
	if len(parts) != 2 {
		return false
	}

	expected, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}

	key := pbkdf2.Key([]byte(password), []byte(parts[0]), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)

	return subtle.ConstantTimeCompare(key, expected) == 1
}
