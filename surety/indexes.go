package surety

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
)

// IndexSource draws the matching indexes used to pair oracles with requests.
type IndexSource interface {
	// Draw returns a value in [0, limit) for subject.
	Draw(subject string, limit uint8) (uint8, error)
}

// EntropySource provides the ledger randomness mixed into every draw.
type EntropySource interface {
	Entropy() ([]byte, error)
}

// EntropyFunc adapts a function to EntropySource.
type EntropyFunc func() ([]byte, error)

func (f EntropyFunc) Entropy() ([]byte, error) { return f() }

// StaticEntropy always returns seed. Draws still vary through the nonce.
func StaticEntropy(seed []byte) EntropySource {
	return EntropyFunc(func() ([]byte, error) { return seed, nil })
}

// RandomEntropy returns a source seeded once from crypto/rand.
func RandomEntropy() (EntropySource, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read random seed: %w", err)
	}
	return StaticEntropy(seed), nil
}

// HashIndexSource hashes entropy, subject and a running nonce with SHA-256.
// It is not a cryptographic commitment; it only keeps an oracle from picking
// its own indexes.
type HashIndexSource struct {
	entropy EntropySource

	mu    sync.Mutex
	nonce uint64
}

func NewHashIndexSource(entropy EntropySource) *HashIndexSource {
	return &HashIndexSource{entropy: entropy}
}

func (h *HashIndexSource) Draw(subject string, limit uint8) (uint8, error) {
	if limit == 0 {
		return 0, fmt.Errorf("%w: index limit must be positive", ErrInvalidArgument)
	}
	seed, err := h.entropy.Entropy()
	if err != nil {
		return 0, fmt.Errorf("failed to read entropy: %w", err)
	}
	h.mu.Lock()
	nonce := h.nonce
	h.nonce++
	h.mu.Unlock()

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	d := sha256.New()
	d.Write(seed)
	d.Write([]byte(subject))
	d.Write(n[:])
	sum := d.Sum(nil)
	return uint8(binary.BigEndian.Uint64(sum[:8]) % uint64(limit)), nil
}

// maxDistinctDraws bounds redraws before falling back to the next free index.
const maxDistinctDraws = 16

// drawTriple assigns the three indexes of an oracle.
func drawTriple(src IndexSource, subject string, limit uint8, distinct bool) ([3]uint8, error) {
	var out [3]uint8
	for i := range out {
		v, err := src.Draw(fmt.Sprintf("%s/%d", subject, i), limit)
		if err != nil {
			return out, err
		}
		if distinct {
			for attempt := 0; attempt < maxDistinctDraws && containsIndex(out[:i], v); attempt++ {
				if v, err = src.Draw(fmt.Sprintf("%s/%d/%d", subject, i, attempt), limit); err != nil {
					return out, err
				}
			}
			for containsIndex(out[:i], v) {
				v = (v + 1) % limit
			}
		}
		out[i] = v
	}
	return out, nil
}

func containsIndex(set []uint8, v uint8) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
