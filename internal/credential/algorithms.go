package credential

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

const (
	// AlgorithmSHA256 hashes the hex encoded salt followed by the password.
	AlgorithmSHA256 = "sha256"
	// AlgorithmArgon2ID stretches the password with Argon2id.
	AlgorithmArgon2ID = "argon2id"

	// DefaultAlgorithm is used when no algorithm is configured.
	DefaultAlgorithm = AlgorithmSHA256
)

const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
	argon2KeyLen  = 32
)

type deriveFunc func(salt []byte, plaintext string) []byte

var algorithms = map[string]deriveFunc{
	AlgorithmSHA256:   deriveSHA256,
	AlgorithmArgon2ID: deriveArgon2ID,
}

// deriveSHA256 keeps the salt in its hex text form when hashing, which is
// how rows of the first blog version were written.
func deriveSHA256(salt []byte, plaintext string) []byte {
	sum := sha256.Sum256([]byte(hex.EncodeToString(salt) + plaintext))
	return sum[:]
}

func deriveArgon2ID(salt []byte, plaintext string) []byte {
	return argon2.IDKey([]byte(plaintext), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// Algorithms lists the registered tags.
func Algorithms() []string {
	return []string{AlgorithmSHA256, AlgorithmArgon2ID}
}
