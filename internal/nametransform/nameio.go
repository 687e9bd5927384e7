// Package nametransform encrypts and decrypts filenames, one path
// component at a time.
//
// A 64-bit chain value threads through the calls: the caller passes the
// parent directory's value in, and on success receives the value to use
// for this component's children. Encoding the same name under two chain
// values yields unrelated ciphertext, so equal names in different
// directories reveal nothing about each other.
package nametransform

import (
	"errors"
	"fmt"
	"log"

	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/iface"
)

const (
	// NameMax is the longest plaintext name we accept, like ext4.
	NameMax = 255
	// checksumLen is the folded-MAC prefix on encrypted names.
	checksumLen = 2
)

// ErrInvalidName - the input is not a name this codec can have produced:
// empty, too long, or text outside the encoded alphabet/framing.
var ErrInvalidName = errors.New("invalid name")

// NameIO encodes and decodes single path components.
//
// Implementations keep no per-call state; the chain value lives entirely
// in the caller's pointer. Concurrent calls with separate chain-value
// storage are safe, two calls sharing one pointer must be serialized by
// the caller. A failed call never modifies *iv.
type NameIO interface {
	Iface() iface.Iface
	// MaxEncodedNameLen bounds the encoded text length for a plaintext
	// of plainLen bytes.
	MaxEncodedNameLen(plainLen int) int
	// MaxDecodedNameLen bounds the plaintext length for encoded text of
	// encodedLen bytes.
	MaxDecodedNameLen(encodedLen int) int
	// EncodeName encrypts one component and advances *iv to the chain
	// value for its children.
	EncodeName(plain string, iv *uint64) (string, error)
	// DecodeName is the inverse. A checksum mismatch (tampering, or a
	// stale chain value after a parent rename) returns
	// cryptocore.ErrIntegrity.
	DecodeName(encoded string, iv *uint64) (string, error)
}

// Codec describes one registered name codec.
type Codec struct {
	Name        string
	Description string
	Iface       iface.Iface
	// NeedsStreamMode restricts the codec to ciphers with a stream mode.
	NeedsStreamMode bool
	Hidden          bool
}

// Constructor builds a codec bound to a cipher and key. The null codec
// accepts a nil cipher.
type Constructor func(ifc iface.Iface, c cryptocore.Cipher, key *cryptocore.CipherKey) (NameIO, error)

type registryEntry struct {
	codec Codec
	ctor  Constructor
}

// Registry maps codec names to descriptors and constructors. Like the
// cipher registry it is populated at startup and read-only afterwards.
type Registry struct {
	entries map[string]registryEntry
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds a codec under its unique name.
func (r *Registry) Register(c Codec, ctor Constructor) error {
	if c.Name == "" || ctor == nil {
		return fmt.Errorf("nametransform: incomplete registration for %q", c.Name)
	}
	if _, ok := r.entries[c.Name]; ok {
		return fmt.Errorf("nametransform: codec %q already registered", c.Name)
	}
	r.entries[c.Name] = registryEntry{codec: c, ctor: ctor}
	r.order = append(r.order, c.Name)
	return nil
}

func (r *Registry) mustRegister(c Codec, ctor Constructor) {
	if err := r.Register(c, ctor); err != nil {
		log.Panic(err)
	}
}

// List returns the registered codecs in registration order.
func (r *Registry) List(includeHidden bool) []Codec {
	var out []Codec
	for _, name := range r.order {
		e := r.entries[name]
		if e.codec.Hidden && !includeHidden {
			continue
		}
		out = append(out, e.codec)
	}
	return out
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Codec, bool) {
	e, ok := r.entries[name]
	return e.codec, ok
}

// New instantiates the codec registered under name.
func (r *Registry) New(name string, c cryptocore.Cipher, key *cryptocore.CipherKey) (NameIO, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: no name codec named %q", cryptocore.ErrUnsupported, name)
	}
	if e.codec.NeedsStreamMode && c != nil && !c.HasStreamMode() {
		return nil, fmt.Errorf("%w: codec %q needs a stream-mode cipher, %s has none",
			cryptocore.ErrUnsupported, name, c.Iface().Name)
	}
	return e.ctor(e.codec.Iface, c, key)
}

// NewFromIface instantiates the first codec implementing the requested
// interface. This is how the volume header's recorded codec revision is
// resolved, so older on-disk formats stay decodable.
func (r *Registry) NewFromIface(req iface.Iface, c cryptocore.Cipher, key *cryptocore.CipherKey) (NameIO, error) {
	for _, name := range r.order {
		e := r.entries[name]
		if !e.codec.Iface.Implements(req) {
			continue
		}
		if e.codec.NeedsStreamMode && c != nil && !c.HasStreamMode() {
			continue
		}
		return e.ctor(req, c, key)
	}
	return nil, fmt.Errorf("%w: no name codec implements %v", cryptocore.ErrUnsupported, req)
}

// StandardRegistry builds a registry with all built-in codecs. The null
// codec goes through the same mechanism as the encrypting ones, so callers
// never special-case unencrypted names.
func StandardRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(Codec{
		Name:        "block",
		Description: "Block encoding with IV chaining",
		Iface:       iface.New("nameio/block", 4, 0, 2),
	}, newBlockNameIO)
	r.mustRegister(Codec{
		Name:        "block32",
		Description: "Block encoding using base32 for case-insensitive filesystems",
		Iface:       iface.New("nameio/block32", 4, 0, 2),
	}, newBlock32NameIO)
	r.mustRegister(Codec{
		Name:            "stream",
		Description:     "Stream encoding, preserves the name length",
		Iface:           iface.New("nameio/stream", 2, 1, 2),
		NeedsStreamMode: true,
	}, newStreamNameIO)
	r.mustRegister(Codec{
		Name:        "null",
		Description: "No encryption of filenames",
		Iface:       iface.New("nameio/null", 1, 0, 0),
	}, newNullNameIO)
	return r
}

// validateDecoded rejects plaintext we must never hand back to a caller,
// even from a corrupted or fuzzed filesystem: path separators, NUL, and
// the reserved dot names.
func validateDecoded(plain []byte) error {
	if len(plain) == 0 {
		return fmt.Errorf("%w: empty decoded name", ErrInvalidName)
	}
	for _, b := range plain {
		if b == '/' || b == 0 {
			return fmt.Errorf("%w: forbidden byte in decoded name", ErrInvalidName)
		}
	}
	if string(plain) == "." || string(plain) == ".." {
		return fmt.Errorf("%w: decoded name is a dot name", ErrInvalidName)
	}
	return nil
}
