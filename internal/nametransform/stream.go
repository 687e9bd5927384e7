package nametransform

import (
	"encoding/binary"
	"fmt"

	"github.com/veilfs/veilfs/internal/baseconv"
	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/iface"
)

// streamNameIO is the length-preserving variant of the block codec: no
// padding, ciphertext as long as the plaintext. Same checksum prefix and
// chain-update formula.
type streamNameIO struct {
	ifc    iface.Iface
	cipher cryptocore.Cipher
	key    *cryptocore.CipherKey
}

func newStreamNameIO(ifc iface.Iface, c cryptocore.Cipher, key *cryptocore.CipherKey) (NameIO, error) {
	if c == nil || key == nil {
		return nil, fmt.Errorf("%w: stream codec needs a cipher and key", cryptocore.ErrUnsupported)
	}
	if !c.HasStreamMode() {
		return nil, fmt.Errorf("%w: cipher %s has no stream mode", cryptocore.ErrUnsupported, c.Iface().Name)
	}
	return &streamNameIO{ifc: ifc, cipher: c, key: key}, nil
}

func (n *streamNameIO) Iface() iface.Iface { return n.ifc }

func (n *streamNameIO) MaxEncodedNameLen(plainLen int) int {
	return baseconv.ChangedLen(checksumLen+plainLen, 8, 6, true)
}

func (n *streamNameIO) MaxDecodedNameLen(encodedLen int) int {
	raw := baseconv.ChangedLen(encodedLen, 6, 8, false) - checksumLen
	if raw < 0 {
		return 0
	}
	return raw
}

func (n *streamNameIO) EncodeName(plain string, iv *uint64) (string, error) {
	if len(plain) == 0 || len(plain) > NameMax {
		return "", fmt.Errorf("%w: plaintext length %d", ErrInvalidName, len(plain))
	}
	var tmpIV uint64
	if iv != nil {
		tmpIV = *iv
	}
	chain := tmpIV
	mac := cryptocore.MAC16(n.cipher, []byte(plain), n.key, &chain)

	buf := make([]byte, checksumLen+len(plain),
		baseconv.ChangedLen(checksumLen+len(plain), 8, 6, true))
	binary.BigEndian.PutUint16(buf[:checksumLen], mac)
	copy(buf[checksumLen:], plain)
	if err := n.cipher.StreamEncode(buf[checksumLen:], tmpIV^uint64(mac), n.key); err != nil {
		return "", err
	}

	units := baseconv.ChangeBase2Inline(buf, 8, 6, true)
	baseconv.B64ToASCII(units)
	if iv != nil {
		*iv = chain
	}
	return string(units), nil
}

func (n *streamNameIO) DecodeName(encoded string, iv *uint64) (string, error) {
	var tmpIV uint64
	if iv != nil {
		tmpIV = *iv
	}
	units := []byte(encoded)
	if err := baseconv.ASCIIToB64(units); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	raw := baseconv.ChangeBase2(units, 6, 8, false)
	if len(raw) <= checksumLen {
		return "", fmt.Errorf("%w: undecodable length %d", ErrInvalidName, len(encoded))
	}
	mac := binary.BigEndian.Uint16(raw[:checksumLen])
	if err := n.cipher.StreamDecode(raw[checksumLen:], tmpIV^uint64(mac), n.key); err != nil {
		return "", err
	}
	plain := raw[checksumLen:]

	chain := tmpIV
	if cryptocore.MAC16(n.cipher, plain, n.key, &chain) != mac {
		return "", fmt.Errorf("%w: name checksum mismatch", cryptocore.ErrIntegrity)
	}
	if err := validateDecoded(plain); err != nil {
		return "", err
	}
	if iv != nil {
		*iv = chain
	}
	return string(plain), nil
}
