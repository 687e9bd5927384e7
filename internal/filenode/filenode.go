// Package filenode coordinates the identity of one logical file: its
// plaintext name, its ciphertext name, and the chain value its descendants
// and content encryption derive from.
//
// The node's mutex is the single mutual-exclusion point for that triple.
// Operations on different nodes proceed independently; no call blocks on
// anything but the content store itself while holding the lock.
package filenode

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/veilfs/veilfs/internal/nametransform"
)

// ErrUnbound - the node has no identity yet, or Close was already called.
var ErrUnbound = errors.New("file node is not bound")

// zeroChunk bounds how much we write per call when zero-extending a file.
const zeroChunk = 4096

// ContentIO is the ciphertext content store for one file. The node calls
// it with the lock held; implementations need no locking of their own as
// long as each instance serves a single node.
type ContentIO interface {
	// SetIV hands the store the chain value that content encryption for
	// this file derives from.
	SetIV(iv uint64) error
	// Rename points the store at a new ciphertext name.
	Rename(cipherName string) error
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Size() (int64, error)
	Sync() error
	Close() error
}

// Directory supplies the chain value and the plaintext/ciphertext paths
// of the directory a node lives in. Nodes keep it as a non-owning
// back-reference, for lookup only.
type Directory interface {
	ChainValue() uint64
	CipherPath() string
	PlainPath() string
}

// Dir is a plain Directory value.
type Dir struct {
	Chain uint64
	Path  string
	Plain string
}

func (d Dir) ChainValue() uint64 { return d.Chain }
func (d Dir) CipherPath() string { return d.Path }
func (d Dir) PlainPath() string  { return d.Plain }

// FileNode is created when a file is opened or created, renamed via
// SetName, and destroyed by Close.
type FileNode struct {
	mu      sync.Mutex
	nameio  nametransform.NameIO
	parent  Directory
	content ContentIO

	bound      bool
	plainName  string
	cipherName string
	// chain is this component's output chain value, fed to the content
	// store and to descendant name encoding.
	chain uint64
}

// New returns an unbound node. Call Bind to give it an identity.
func New(nameio nametransform.NameIO, parent Directory, content ContentIO) *FileNode {
	return &FileNode{nameio: nameio, parent: parent, content: content}
}

// Bind encodes plain under the parent's chain value and commits the
// resulting identity to the node and the content store.
func (n *FileNode) Bind(plain string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bound {
		return fmt.Errorf("node already bound to %q", n.plainName)
	}
	iv := n.parent.ChainValue()
	enc, err := n.nameio.EncodeName(plain, &iv)
	if err != nil {
		return err
	}
	if err := n.content.SetIV(iv); err != nil {
		return err
	}
	n.plainName = plain
	n.cipherName = enc
	n.chain = iv
	n.bound = true
	return nil
}

// PlaintextName returns the current plaintext name.
func (n *FileNode) PlaintextName() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.plainName
}

// CipherName returns the current ciphertext name.
func (n *FileNode) CipherName() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cipherName
}

// PlaintextParent returns the plaintext path of the directory the node
// lives in, the directory portion of the full plaintext path.
func (n *FileNode) PlaintextParent() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent.PlainPath()
}

// CipherPath returns the full ciphertext path of the node on the
// underlying store: the parent's ciphertext path joined with the node's
// ciphertext name.
func (n *FileNode) CipherPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return ""
	}
	return path.Join(n.parent.CipherPath(), n.cipherName)
}

// ChainValue returns the chain value descendants of this node encode
// under.
func (n *FileNode) ChainValue() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chain
}

// SetName renames the node. With ivFirst set (the default for renames) the
// new chain value is committed to the content store before the new
// ciphertext name becomes visible, so no observer can see a name on the
// store whose encoding does not match the chain value that decodes it.
// The reverse order exists for migration of volumes written before chained
// IVs and must be requested explicitly.
func (n *FileNode) SetName(newPlain string, ivFirst bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return ErrUnbound
	}
	iv := n.parent.ChainValue()
	enc, err := n.nameio.EncodeName(newPlain, &iv)
	if err != nil {
		return err
	}
	if ivFirst {
		if err := n.content.SetIV(iv); err != nil {
			return err
		}
		if err := n.content.Rename(enc); err != nil {
			return err
		}
	} else {
		if err := n.content.Rename(enc); err != nil {
			return err
		}
		if err := n.content.SetIV(iv); err != nil {
			return err
		}
	}
	n.plainName = newPlain
	n.cipherName = enc
	n.chain = iv
	return nil
}

// GetSize returns the content size.
func (n *FileNode) GetSize() (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return 0, ErrUnbound
	}
	return n.content.Size()
}

func (n *FileNode) ReadAt(p []byte, off int64) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return 0, ErrUnbound
	}
	return n.content.ReadAt(p, off)
}

func (n *FileNode) WriteAt(p []byte, off int64) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return 0, ErrUnbound
	}
	return n.content.WriteAt(p, off)
}

// Truncate resizes the content. Growing zero-extends explicitly, which
// takes several store calls; the lock is held across all of them so a
// concurrent reader never observes the intermediate sizes.
func (n *FileNode) Truncate(size int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return ErrUnbound
	}
	if size < 0 {
		return fmt.Errorf("negative size %d", size)
	}
	cur, err := n.content.Size()
	if err != nil {
		return err
	}
	if size <= cur {
		return n.content.Truncate(size)
	}
	zeros := make([]byte, zeroChunk)
	for off := cur; off < size; {
		chunk := size - off
		if chunk > zeroChunk {
			chunk = zeroChunk
		}
		written, err := n.content.WriteAt(zeros[:chunk], off)
		if err != nil {
			return err
		}
		if written == 0 {
			// A store that accepts the write but makes no progress would
			// loop here forever with the lock held.
			return fmt.Errorf("zero-extension stalled at offset %d: %w", off, io.ErrNoProgress)
		}
		off += int64(written)
	}
	return nil
}

func (n *FileNode) Sync() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return ErrUnbound
	}
	return n.content.Sync()
}

// Close releases the identity. The node cannot be reused afterwards.
func (n *FileNode) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.bound {
		return ErrUnbound
	}
	n.bound = false
	n.plainName = ""
	n.cipherName = ""
	n.chain = 0
	return n.content.Close()
}
