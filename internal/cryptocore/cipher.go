// Package cryptocore defines the cipher capability interface, the opaque
// key type, and the algorithm registry. Filename codecs and the key-wrap
// path both build on it.
package cryptocore

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/veilfs/veilfs/internal/iface"
)

// Failure classes shared by all cipher operations. Callers match with
// errors.Is and map to an I/O-style error; retrying a deterministic
// cryptographic failure does not change the outcome.
var (
	// ErrLengthMismatch - block-mode buffer length is not a positive
	// multiple of the cipher block size. The buffer is left unmodified.
	ErrLengthMismatch = errors.New("buffer length is not a positive multiple of the block size")
	// ErrIntegrity - a checksum or MAC did not match on decode or key
	// unwrap. Wrong password, wrong chain value, or tampering.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrUnsupported - no registered algorithm (or mode) matches the
	// request. Fatal at initialization time.
	ErrUnsupported = errors.New("unsupported algorithm")
)

// Range describes the supported values for a size parameter, in Inc steps
// from Min to Max. Inc = 0 means only Min is valid.
type Range struct {
	Min, Max, Inc int
}

// Allowed reports whether v falls on the range.
func (r Range) Allowed(v int) bool {
	if v < r.Min || v > r.Max {
		return false
	}
	if r.Inc <= 0 {
		return v == r.Min
	}
	return (v-r.Min)%r.Inc == 0
}

// CipherKey is opaque symmetric key material. Only the Cipher that created
// a key may use it; the owner tag is checked on every operation and a
// mismatch panics, because key material of foreign provenance must never be
// used silently.
type CipherKey struct {
	owner string
	raw   []byte // master material, KeySize bytes
	enc   []byte // transform subkey
	mac   []byte // authentication subkey
}

// Zero wipes the key material. Best-effort: Go may have made copies.
func (k *CipherKey) Zero() {
	for _, b := range [][]byte{k.raw, k.enc, k.mac} {
		for i := range b {
			b[i] = 0
		}
	}
}

// checkOwner panics when key k was not produced by the cipher identified by
// owner. This is a contract violation, not a runtime error.
func checkOwner(k *CipherKey, owner string) {
	if k == nil {
		log.Panicf("cryptocore: nil key passed to cipher %q", owner)
	}
	if k.owner != owner {
		log.Panicf("cryptocore: key of provenance %q used with cipher %q", k.owner, owner)
	}
}

// Cipher is the capability interface of one instantiated algorithm.
// All operations are safe for concurrent use: keys and cipher instances are
// immutable after construction, and per-call state lives in the arguments.
type Cipher interface {
	Iface() iface.Iface
	// KeySize is the raw key length in bytes.
	KeySize() int
	// EncodedKeySize is the length of the wrapped (WriteKey) form.
	EncodedKeySize() int
	// BlockSize is the block-mode granularity in bytes.
	BlockSize() int
	HasStreamMode() bool

	// DeriveKey derives a key from a password. If *iterations is 0, the
	// cipher calibrates the strongest count achievable within
	// desiredDuration and writes it back; the caller must persist it so
	// that any machine can reproduce the identical key. Deterministic for
	// identical (password, salt, *iterations).
	DeriveKey(password, salt []byte, iterations *int, desiredDuration time.Duration) (*CipherKey, error)
	// RandomKey produces a fresh key from the platform's strong RNG.
	RandomKey() (*CipherKey, error)
	// ReadKey unwraps a stored data key with a password-derived encoding
	// key. With checkIntegrity set, a checksum mismatch returns
	// ErrIntegrity instead of garbage key material.
	ReadKey(wrapped []byte, encodingKey *CipherKey, checkIntegrity bool) (*CipherKey, error)
	// WriteKey wraps a data key for storage in the volume header.
	WriteKey(key, encodingKey *CipherKey) ([]byte, error)
	// CompareKey reports whether two keys hold the same material.
	CompareKey(a, b *CipherKey) bool

	// MAC64 authenticates data under the key. When chainedIV is non-nil
	// its value is mixed into the computation and replaced by the result,
	// so repeated calls form a cryptographic chain.
	MAC64(data []byte, key *CipherKey, chainedIV *uint64) uint64

	// StreamEncode/StreamDecode transform buf in place; any length.
	StreamEncode(buf []byte, iv64 uint64, key *CipherKey) error
	StreamDecode(buf []byte, iv64 uint64, key *CipherKey) error
	// BlockEncode/BlockDecode transform buf in place; the length must be
	// a positive multiple of BlockSize or ErrLengthMismatch is returned
	// with the buffer untouched.
	BlockEncode(buf []byte, iv64 uint64, key *CipherKey) error
	BlockDecode(buf []byte, iv64 uint64, key *CipherKey) error

	// Randomize fills buf with random bytes. strong selects the
	// high-quality entropy path for security-sensitive use.
	Randomize(buf []byte, strong bool) error
}

// MAC32 reduces MAC64 by XOR-folding the halves. Folding keeps every input
// bit influential in the shorter code, which truncation would not.
func MAC32(c Cipher, data []byte, key *CipherKey, chainedIV *uint64) uint32 {
	m := c.MAC64(data, key, chainedIV)
	return uint32(m>>32) ^ uint32(m)
}

// MAC16 folds MAC32 once more.
func MAC16(c Cipher, data []byte, key *CipherKey, chainedIV *uint64) uint16 {
	m := MAC32(c, data, key, chainedIV)
	return uint16(m>>16) ^ uint16(m)
}

func compareRaw(a, b *CipherKey) bool {
	return subtle.ConstantTimeCompare(a.raw, b.raw) == 1
}

func keyLengthError(name string, bits int) error {
	return fmt.Errorf("%w: %s does not support %d-bit keys", ErrUnsupported, name, bits)
}
