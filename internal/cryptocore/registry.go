package cryptocore

import (
	"fmt"
	"log"

	"github.com/veilfs/veilfs/internal/iface"
)

// Algorithm describes one registered cipher. Immutable once registered.
type Algorithm struct {
	Name        string
	Description string
	Iface       iface.Iface
	// KeyLength is in bits, BlockSize in bytes.
	KeyLength Range
	BlockSize Range
	// HasStreamMode is true when instances support arbitrary-length
	// stream transforms.
	HasStreamMode bool
	// Hidden entries exist to decode old volumes. They are skipped by
	// List(false) and therefore never offered for new encodes.
	Hidden bool
}

// Constructor builds a ready cipher instance for the requested interface
// revision and key length. keyLenBits <= 0 selects the algorithm's default.
type Constructor func(ifc iface.Iface, keyLenBits int) (Cipher, error)

type registryEntry struct {
	algo Algorithm
	ctor Constructor
}

// Registry maps algorithm names to descriptors and constructors.
//
// Populate it during process startup and treat it as read-only afterwards;
// concurrent lookups then need no synchronization. There is deliberately no
// package-level instance: the registry is passed explicitly to whoever
// needs algorithm lookup, so there are no load-order dependencies.
type Registry struct {
	entries map[string]registryEntry
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds an algorithm. Names are unique; a duplicate is an error so
// that one algorithm can never silently shadow another.
func (r *Registry) Register(a Algorithm, ctor Constructor) error {
	if a.Name == "" || ctor == nil {
		return fmt.Errorf("cryptocore: incomplete registration for %q", a.Name)
	}
	if _, ok := r.entries[a.Name]; ok {
		return fmt.Errorf("cryptocore: algorithm %q already registered", a.Name)
	}
	r.entries[a.Name] = registryEntry{algo: a, ctor: ctor}
	r.order = append(r.order, a.Name)
	return nil
}

func (r *Registry) mustRegister(a Algorithm, ctor Constructor) {
	if err := r.Register(a, ctor); err != nil {
		log.Panic(err)
	}
}

// List returns the registered algorithms in registration order.
func (r *Registry) List(includeHidden bool) []Algorithm {
	var out []Algorithm
	for _, name := range r.order {
		e := r.entries[name]
		if e.algo.Hidden && !includeHidden {
			continue
		}
		out = append(out, e.algo)
	}
	return out
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Algorithm, bool) {
	e, ok := r.entries[name]
	return e.algo, ok
}

// New instantiates the algorithm registered under name.
func (r *Registry) New(name string, keyLenBits int) (Cipher, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: no cipher named %q", ErrUnsupported, name)
	}
	if keyLenBits > 0 && !e.algo.KeyLength.Allowed(keyLenBits) {
		return nil, keyLengthError(name, keyLenBits)
	}
	return e.ctor(e.algo.Iface, keyLenBits)
}

// NewFromIface instantiates the first registered algorithm whose declared
// interface implements the requested one. Hidden entries match too: this
// is the decode path for volumes written by older revisions.
func (r *Registry) NewFromIface(req iface.Iface, keyLenBits int) (Cipher, error) {
	for _, name := range r.order {
		e := r.entries[name]
		if !e.algo.Iface.Implements(req) {
			continue
		}
		if keyLenBits > 0 && !e.algo.KeyLength.Allowed(keyLenBits) {
			continue
		}
		return e.ctor(req, keyLenBits)
	}
	return nil, fmt.Errorf("%w: no cipher implements %v", ErrUnsupported, req)
}

// StandardRegistry builds a registry holding all built-in algorithms.
// Construct it once at startup and hand it to the components that need
// cipher lookup.
func StandardRegistry() *Registry {
	r := NewRegistry()
	registerAES(r)
	registerChaCha(r)
	return r
}
