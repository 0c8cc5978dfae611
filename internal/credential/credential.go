// Package credential turns plaintext passwords into salted, tagged digests
// and verifies login attempts against them.
//
// A stored credential is a single string of the form
//
//	<algorithm>$<salt-hex>$<digest-hex>
//
// The algorithm tag selects how the digest is derived, so rows written with
// an older algorithm keep verifying after the default changes.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SaltSize is the number of random bytes mixed into every digest.
const SaltSize = 16

const separator = "$"

var (
	// ErrMalformed is returned by Parse for strings that are not a credential.
	ErrMalformed = errors.New("credential: malformed")
	// ErrUnknownAlgorithm is returned for tags without a registered digest function.
	ErrUnknownAlgorithm = errors.New("credential: unknown algorithm")
)

// Credential is the parsed form of a stored password hash.
type Credential struct {
	Algorithm string
	Salt      []byte
	Digest    []byte
}

// String serializes the credential for storage.
func (c Credential) String() string {
	return strings.Join([]string{
		c.Algorithm,
		hex.EncodeToString(c.Salt),
		hex.EncodeToString(c.Digest),
	}, separator)
}

// Matches reports whether attempt derives the same digest. The comparison
// runs in constant time with respect to the digest contents.
func (c Credential) Matches(attempt string) bool {
	derive, ok := algorithms[c.Algorithm]
	if !ok || len(c.Salt) == 0 || len(c.Digest) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(derive(c.Salt, attempt), c.Digest) == 1
}

// Parse decodes a stored credential string.
func Parse(stored string) (Credential, error) {
	parts := strings.Split(stored, separator)
	if len(parts) != 3 {
		return Credential{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformed, len(parts))
	}
	if _, ok := algorithms[parts[0]]; !ok {
		return Credential{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, parts[0])
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return Credential{}, fmt.Errorf("%w: bad salt", ErrMalformed)
	}
	digest, err := hex.DecodeString(parts[2])
	if err != nil || len(digest) == 0 {
		return Credential{}, fmt.Errorf("%w: bad digest", ErrMalformed)
	}
	return Credential{Algorithm: parts[0], Salt: salt, Digest: digest}, nil
}

// Verify checks attempt against a stored credential string. Malformed
// strings and unknown algorithms verify as false, exactly like a wrong
// password.
func Verify(stored, attempt string) bool {
	cred, err := Parse(stored)
	if err != nil {
		return false
	}
	return cred.Matches(attempt)
}

// Hasher produces new credentials with a single algorithm.
type Hasher struct {
	algorithm string
	random    io.Reader
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithRandom replaces crypto/rand as the salt source.
func WithRandom(r io.Reader) Option {
	return func(h *Hasher) {
		h.random = r
	}
}

// NewHasher returns a Hasher for the given algorithm tag. An empty tag
// selects DefaultAlgorithm.
func NewHasher(algorithm string, opts ...Option) (*Hasher, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	if _, ok := algorithms[algorithm]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	h := &Hasher{algorithm: algorithm, random: rand.Reader}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Algorithm returns the tag this hasher writes.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash derives a credential from plaintext under a fresh random salt.
func (h *Hasher) Hash(plaintext string) (Credential, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(h.random, salt); err != nil {
		return Credential{}, fmt.Errorf("credential: read salt: %w", err)
	}
	return Credential{
		Algorithm: h.algorithm,
		Salt:      salt,
		Digest:    algorithms[h.algorithm](salt, plaintext),
	}, nil
}

// NeedsRehash reports whether stored was written with a different
// algorithm than this hasher uses. Unparsable input needs a rehash too.
func (h *Hasher) NeedsRehash(stored string) bool {
	cred, err := Parse(stored)
	if err != nil {
		return true
	}
	return cred.Algorithm != h.algorithm
}
