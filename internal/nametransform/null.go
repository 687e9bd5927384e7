package nametransform

import (
	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/iface"
)

// nullNameIO passes names through unchanged, for volumes that opt out of
// name encryption. It is selected through the registry like any other
// codec, so nothing above this layer special-cases it.
type nullNameIO struct {
	ifc iface.Iface
}

func newNullNameIO(ifc iface.Iface, _ cryptocore.Cipher, _ *cryptocore.CipherKey) (NameIO, error) {
	return &nullNameIO{ifc: ifc}, nil
}

func (n *nullNameIO) Iface() iface.Iface { return n.ifc }

func (n *nullNameIO) MaxEncodedNameLen(plainLen int) int { return plainLen }

func (n *nullNameIO) MaxDecodedNameLen(encodedLen int) int { return encodedLen }

func (n *nullNameIO) EncodeName(plain string, iv *uint64) (string, error) {
	return plain, nil
}

func (n *nullNameIO) DecodeName(encoded string, iv *uint64) (string, error) {
	return encoded, nil
}
