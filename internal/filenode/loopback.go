package filenode

import (
	"os"
	"path"

	"github.com/absfs/absfs"
)

// LoopbackContent stores one file's ciphertext on an absfs filesystem.
// It satisfies ContentIO; the owning FileNode serializes all calls.
type LoopbackContent struct {
	fs   absfs.FileSystem
	dir  string
	name string
	file absfs.File
	// iv is what content encryption would derive from. Content encryption
	// itself lives above this store; we only keep the value current.
	iv uint64
}

// NewLoopbackContent opens (creating if necessary) the ciphertext file
// cipherName inside dir on fs.
func NewLoopbackContent(fs absfs.FileSystem, dir, cipherName string) (*LoopbackContent, error) {
	c := &LoopbackContent{fs: fs, dir: dir, name: cipherName}
	f, err := fs.OpenFile(path.Join(dir, cipherName), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	c.file = f
	return c, nil
}

func (c *LoopbackContent) SetIV(iv uint64) error {
	c.iv = iv
	return nil
}

// IV returns the last committed chain value.
func (c *LoopbackContent) IV() uint64 {
	return c.iv
}

// Rename moves the ciphertext file within its directory. The open handle
// is cycled because absfs files are bound to a path.
func (c *LoopbackContent) Rename(cipherName string) error {
	if err := c.file.Close(); err != nil {
		return err
	}
	oldPath := path.Join(c.dir, c.name)
	newPath := path.Join(c.dir, cipherName)
	if err := c.fs.Rename(oldPath, newPath); err != nil {
		// Get back to a usable state on the old name.
		c.file, _ = c.fs.OpenFile(oldPath, os.O_RDWR, 0600)
		return err
	}
	f, err := c.fs.OpenFile(newPath, os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	c.file = f
	c.name = cipherName
	return nil
}

func (c *LoopbackContent) ReadAt(p []byte, off int64) (int, error) {
	return c.file.ReadAt(p, off)
}

func (c *LoopbackContent) WriteAt(p []byte, off int64) (int, error) {
	return c.file.WriteAt(p, off)
}

func (c *LoopbackContent) Truncate(size int64) error {
	return c.file.Truncate(size)
}

func (c *LoopbackContent) Size() (int64, error) {
	fi, err := c.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (c *LoopbackContent) Sync() error {
	return c.file.Sync()
}

func (c *LoopbackContent) Close() error {
	return c.file.Close()
}
