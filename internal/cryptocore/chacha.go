package cryptocore

import (
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"

	"github.com/veilfs/veilfs/internal/iface"
)

const (
	chachaKeyLen = chacha20.KeySize
	// chachaBlockLen is the keystream granularity; block mode aligns to it.
	chachaBlockLen = 64

	// Argon2id parameters other than time cost are fixed; only the time
	// cost is calibrated and persisted.
	argonMemoryKiB = 64 * 1024
	argonThreads   = 4
)

func registerChaCha(r *Registry) {
	r.mustRegister(Algorithm{
		Name:          "chacha20",
		Description:   "ChaCha20 stream cipher with BLAKE2b authentication",
		Iface:         iface.New("go/chacha20", 1, 0, 0),
		KeyLength:     Range{Min: 256, Max: 256},
		BlockSize:     Range{Min: chachaBlockLen, Max: chachaBlockLen},
		HasStreamMode: true,
	}, newChaChaCipher)
}

type chachaCipher struct {
	ifc iface.Iface
}

func newChaChaCipher(ifc iface.Iface, keyLenBits int) (Cipher, error) {
	if keyLenBits > 0 && keyLenBits != chachaKeyLen*8 {
		return nil, keyLengthError("chacha20", keyLenBits)
	}
	return &chachaCipher{ifc: ifc}, nil
}

const chachaOwner = "chacha20-256"

func (c *chachaCipher) newKeyFromRaw(raw []byte) *CipherKey {
	if len(raw) != chachaKeyLen {
		log.Panicf("cryptocore: chacha raw key is %d bytes, want %d", len(raw), chachaKeyLen)
	}
	return &CipherKey{
		owner: chachaOwner,
		raw:   raw,
		enc:   hkdfDerive(raw, hkdfInfoEncrypt, chachaKeyLen),
		mac:   hkdfDerive(raw, hkdfInfoMAC, 32),
	}
}

func (c *chachaCipher) Iface() iface.Iface  { return c.ifc }
func (c *chachaCipher) KeySize() int        { return chachaKeyLen }
func (c *chachaCipher) EncodedKeySize() int { return chachaKeyLen + keyChecksumLen }
func (c *chachaCipher) BlockSize() int      { return chachaBlockLen }
func (c *chachaCipher) HasStreamMode() bool { return true }

func (c *chachaCipher) DeriveKey(password, salt []byte, iterations *int, desiredDuration time.Duration) (*CipherKey, error) {
	if iterations == nil {
		return nil, fmt.Errorf("cryptocore: iterations pointer is nil")
	}
	if *iterations == 0 {
		*iterations = calibrate(desiredDuration, 1, func(n int) {
			argon2.IDKey(password, salt, uint32(n), argonMemoryKiB, argonThreads, chachaKeyLen)
		})
	}
	raw := argon2.IDKey(password, salt, uint32(*iterations), argonMemoryKiB, argonThreads, chachaKeyLen)
	return c.newKeyFromRaw(raw), nil
}

func (c *chachaCipher) RandomKey() (*CipherKey, error) {
	return c.newKeyFromRaw(RandBytes(chachaKeyLen)), nil
}

// Key wrap uses the same checksum-seeded layout as the AES ciphers.
func (c *chachaCipher) WriteKey(key, encodingKey *CipherKey) ([]byte, error) {
	checkOwner(key, chachaOwner)
	checkOwner(encodingKey, chachaOwner)
	checksum := MAC32(c, key.raw, encodingKey, nil)
	out := make([]byte, c.EncodedKeySize())
	binary.BigEndian.PutUint32(out[:keyChecksumLen], checksum)
	copy(out[keyChecksumLen:], key.raw)
	if err := c.StreamEncode(out[keyChecksumLen:], uint64(checksum), encodingKey); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chachaCipher) ReadKey(wrapped []byte, encodingKey *CipherKey, checkIntegrity bool) (*CipherKey, error) {
	checkOwner(encodingKey, chachaOwner)
	if len(wrapped) != c.EncodedKeySize() {
		return nil, fmt.Errorf("%w: wrapped key is %d bytes, want %d",
			ErrLengthMismatch, len(wrapped), c.EncodedKeySize())
	}
	checksum := binary.BigEndian.Uint32(wrapped[:keyChecksumLen])
	raw := make([]byte, chachaKeyLen)
	copy(raw, wrapped[keyChecksumLen:])
	if err := c.StreamDecode(raw, uint64(checksum), encodingKey); err != nil {
		return nil, err
	}
	if checkIntegrity && MAC32(c, raw, encodingKey, nil) != checksum {
		return nil, fmt.Errorf("%w: wrapped key checksum mismatch (wrong password or corrupt header)", ErrIntegrity)
	}
	return c.newKeyFromRaw(raw), nil
}

func (c *chachaCipher) CompareKey(a, b *CipherKey) bool {
	checkOwner(a, chachaOwner)
	checkOwner(b, chachaOwner)
	return compareRaw(a, b)
}

func (c *chachaCipher) MAC64(data []byte, key *CipherKey, chainedIV *uint64) uint64 {
	checkOwner(key, chachaOwner)
	h, err := blake2b.New(8, key.mac)
	if err != nil {
		log.Panicf("cryptocore: blake2b.New: %v", err)
	}
	h.Write(data)
	if chainedIV != nil {
		var ivBuf [8]byte
		binary.LittleEndian.PutUint64(ivBuf[:], *chainedIV)
		h.Write(ivBuf[:])
	}
	value := binary.BigEndian.Uint64(h.Sum(nil))
	if chainedIV != nil {
		*chainedIV = value
	}
	return value
}

func (c *chachaCipher) StreamEncode(buf []byte, iv64 uint64, key *CipherKey) error {
	return c.xorStream(buf, iv64, key)
}

func (c *chachaCipher) StreamDecode(buf []byte, iv64 uint64, key *CipherKey) error {
	return c.xorStream(buf, iv64, key)
}

func (c *chachaCipher) xorStream(buf []byte, iv64 uint64, key *CipherKey) error {
	checkOwner(key, chachaOwner)
	var nonce [chacha20.NonceSize]byte
	binary.BigEndian.PutUint64(nonce[4:], iv64)
	s, err := chacha20.NewUnauthenticatedCipher(key.enc, nonce[:])
	if err != nil {
		return err
	}
	s.XORKeyStream(buf, buf)
	return nil
}

func (c *chachaCipher) BlockEncode(buf []byte, iv64 uint64, key *CipherKey) error {
	return c.blockTransform(buf, iv64, key)
}

func (c *chachaCipher) BlockDecode(buf []byte, iv64 uint64, key *CipherKey) error {
	return c.blockTransform(buf, iv64, key)
}

// Block mode is the stream transform with an alignment requirement, so
// block-mode callers get the same length contract as with AES.
func (c *chachaCipher) blockTransform(buf []byte, iv64 uint64, key *CipherKey) error {
	checkOwner(key, chachaOwner)
	if len(buf) == 0 || len(buf)%chachaBlockLen != 0 {
		return fmt.Errorf("%w: got %d bytes, block size is %d",
			ErrLengthMismatch, len(buf), chachaBlockLen)
	}
	return c.xorStream(buf, iv64, key)
}

func (c *chachaCipher) Randomize(buf []byte, strong bool) error {
	return fillRandom(buf, strong)
}
