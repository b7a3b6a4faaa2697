package export

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/crypto/argon2"
)

var ErrUnsupportedHashType = errors.New("unsupported hash type")

// HashType represents the different hashing algorithms available.
type HashType string

const (
	// HashTypeArgon2id uses the Argon2id algorithm for hashing.
	HashTypeArgon2id HashType = "argon2id"
	// HashTypeSHA256 uses the SHA256 algorithm for hashing.
	HashTypeSHA256 HashType = "sha256"
)

// ParseHashType validates a configured hash type.
func ParseHashType(s string) (HashType, error) {
	switch HashType(s) {
	case HashTypeArgon2id, HashTypeSHA256:
		return HashType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedHashType, s)
	}
}

// HashID converts a single ID to a hash using the specified algorithm with the provided salt.
func HashID(id uint64, salt string, hashType HashType, iterations, memory uint32) string {
	// Convert ID to bytes in little-endian format
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, id)

	var hash []byte

	switch hashType {
	case HashTypeArgon2id:
		hash = argon2.IDKey(idBytes, []byte(salt), iterations, memory*1024, 1, 32)
	case HashTypeSHA256:
		// Iterative SHA256 hashing with salt
		hash = []byte(salt)

		h := sha256.New()
		for range iterations {
			h.Reset()
			h.Write(idBytes)
			h.Write(hash)
			hash = h.Sum(nil)
		}
	}

	return hex.EncodeToString(hash)
}

// Pseudonymizer replaces member ids with salted hashes. Each distinct id
// is hashed once per export.
type Pseudonymizer struct {
	salt        string
	hashType    HashType
	iterations  uint32
	memory      uint32
	concurrency int
}

// NewPseudonymizer creates a Pseudonymizer.
func NewPseudonymizer(salt string, hashType HashType, iterations, memory uint32, concurrency int) *Pseudonymizer {
	return &Pseudonymizer{
		salt:        salt,
		hashType:    hashType,
		iterations:  iterations,
		memory:      memory,
		concurrency: max(concurrency, 1),
	}
}

// HashAll returns the pseudonym of every distinct id.
func (p *Pseudonymizer) HashAll(ids []uint64) map[uint64]string {
	var (
		workers = pool.New().WithMaxGoroutines(p.concurrency)
		mu      sync.Mutex
		hashes  = make(map[uint64]string, len(ids))
	)

	seen := make(map[uint64]struct{}, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}

		workers.Go(func() {
			hash := HashID(id, p.salt, p.hashType, p.iterations, p.memory)

			mu.Lock()
			hashes[id] = hash
			mu.Unlock()
		})
	}

	workers.Wait()

	return hashes
}
