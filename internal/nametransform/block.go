package nametransform

import (
	"encoding/binary"
	"fmt"

	"github.com/veilfs/veilfs/internal/baseconv"
	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/iface"
)

// blockNameIO encrypts names in the cipher's block mode.
//
// Encoded layout, before text framing:
//
//	[2-byte folded MAC of the padded plaintext][block ciphertext]
//
// The MAC computation threads the caller's chain value through, and the
// transform IV is chain ^ checksum. The chained MAC64 becomes the chain
// value for children, binding every name to its full path prefix.
type blockNameIO struct {
	ifc    iface.Iface
	cipher cryptocore.Cipher
	key    *cryptocore.CipherKey
	base32 bool
}

func newBlockNameIO(ifc iface.Iface, c cryptocore.Cipher, key *cryptocore.CipherKey) (NameIO, error) {
	if c == nil || key == nil {
		return nil, fmt.Errorf("%w: block codec needs a cipher and key", cryptocore.ErrUnsupported)
	}
	return &blockNameIO{ifc: ifc, cipher: c, key: key}, nil
}

func newBlock32NameIO(ifc iface.Iface, c cryptocore.Cipher, key *cryptocore.CipherKey) (NameIO, error) {
	n, err := newBlockNameIO(ifc, c, key)
	if err != nil {
		return nil, err
	}
	n.(*blockNameIO).base32 = true
	return n, nil
}

func (n *blockNameIO) Iface() iface.Iface { return n.ifc }

// textPow is the bit width of one text unit: 6 for the 64-symbol
// alphabet, 5 for base32.
func (n *blockNameIO) textPow() int {
	if n.base32 {
		return 5
	}
	return 6
}

func (n *blockNameIO) MaxEncodedNameLen(plainLen int) int {
	bs := n.cipher.BlockSize()
	paddedLen := (plainLen/bs + 1) * bs
	return baseconv.ChangedLen(checksumLen+paddedLen, 8, n.textPow(), true)
}

func (n *blockNameIO) MaxDecodedNameLen(encodedLen int) int {
	raw := baseconv.ChangedLen(encodedLen, n.textPow(), 8, false) - checksumLen
	if raw < 0 {
		return 0
	}
	return raw
}

func (n *blockNameIO) EncodeName(plain string, iv *uint64) (string, error) {
	if len(plain) == 0 || len(plain) > NameMax {
		return "", fmt.Errorf("%w: plaintext length %d", ErrInvalidName, len(plain))
	}
	var tmpIV uint64
	if iv != nil {
		tmpIV = *iv
	}
	padded := padBlock([]byte(plain), n.cipher.BlockSize())

	chain := tmpIV
	mac := cryptocore.MAC16(n.cipher, padded, n.key, &chain)

	buf := make([]byte, checksumLen+len(padded),
		baseconv.ChangedLen(checksumLen+len(padded), 8, n.textPow(), true))
	binary.BigEndian.PutUint16(buf[:checksumLen], mac)
	copy(buf[checksumLen:], padded)
	if err := n.cipher.BlockEncode(buf[checksumLen:], tmpIV^uint64(mac), n.key); err != nil {
		return "", err
	}

	units := baseconv.ChangeBase2Inline(buf, 8, n.textPow(), true)
	if n.base32 {
		baseconv.B32ToASCII(units)
	} else {
		baseconv.B64ToASCII(units)
	}
	if iv != nil {
		*iv = chain
	}
	return string(units), nil
}

func (n *blockNameIO) DecodeName(encoded string, iv *uint64) (string, error) {
	var tmpIV uint64
	if iv != nil {
		tmpIV = *iv
	}
	units := []byte(encoded)
	var err error
	if n.base32 {
		err = baseconv.ASCIIToB32(units)
	} else {
		err = baseconv.ASCIIToB64(units)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	raw := baseconv.ChangeBase2(units, n.textPow(), 8, false)
	bs := n.cipher.BlockSize()
	if len(raw) < checksumLen+bs || (len(raw)-checksumLen)%bs != 0 {
		return "", fmt.Errorf("%w: undecodable length %d", ErrInvalidName, len(encoded))
	}
	mac := binary.BigEndian.Uint16(raw[:checksumLen])
	if err := n.cipher.BlockDecode(raw[checksumLen:], tmpIV^uint64(mac), n.key); err != nil {
		return "", err
	}
	padded := raw[checksumLen:]

	chain := tmpIV
	if cryptocore.MAC16(n.cipher, padded, n.key, &chain) != mac {
		return "", fmt.Errorf("%w: name checksum mismatch", cryptocore.ErrIntegrity)
	}
	plain, err := unpadBlock(padded, bs)
	if err != nil {
		// Checksum matched but padding did not: corrupt data. Collapse
		// the detail to kill any padding oracle.
		return "", fmt.Errorf("%w: bad name padding", cryptocore.ErrIntegrity)
	}
	if err := validateDecoded(plain); err != nil {
		return "", err
	}
	if iv != nil {
		*iv = chain
	}
	return string(plain), nil
}
