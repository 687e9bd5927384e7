package cryptocore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/jacobsa/crypto/cmac"
	"github.com/rfjakob/eme"
	"golang.org/x/crypto/pbkdf2"

	"github.com/veilfs/veilfs/internal/iface"
)

const (
	// keyChecksumLen is the folded-MAC checksum prefixed to a wrapped key.
	keyChecksumLen = 4
	// emeMaxLen is the widest block EME can transform (128 AES blocks).
	emeMaxLen = 2048
	// cmacKeyLen is the AES key length of the CMAC subkey.
	cmacKeyLen = 16
)

func registerAES(r *Registry) {
	keyRange := Range{Min: 128, Max: 256, Inc: 64}
	r.mustRegister(Algorithm{
		Name:          "aes",
		Description:   "AES: CBC block mode, CFB stream mode",
		Iface:         iface.New("go/aes", 3, 0, 2),
		KeyLength:     keyRange,
		BlockSize:     Range{Min: aes.BlockSize, Max: aes.BlockSize},
		HasStreamMode: true,
	}, func(ifc iface.Iface, keyLenBits int) (Cipher, error) {
		return newAESCipher(ifc, keyLenBits, false)
	})
	r.mustRegister(Algorithm{
		Name:          "aes-eme",
		Description:   "AES with EME wide-block mode (whole buffer is one block)",
		Iface:         iface.New("go/aes-eme", 1, 0, 0),
		KeyLength:     keyRange,
		BlockSize:     Range{Min: aes.BlockSize, Max: emeMaxLen, Inc: aes.BlockSize},
		HasStreamMode: false,
	}, func(ifc iface.Iface, keyLenBits int) (Cipher, error) {
		return newAESCipher(ifc, keyLenBits, true)
	})
	// Decode-only alias: volumes written under the pre-3.x interface name
	// still open, but the entry is never offered for new volumes.
	r.mustRegister(Algorithm{
		Name:          "aes-cfb-legacy",
		Description:   "AES under the legacy interface name",
		Iface:         iface.New("go/aes-cfb", 1, 0, 0),
		KeyLength:     keyRange,
		BlockSize:     Range{Min: aes.BlockSize, Max: aes.BlockSize},
		HasStreamMode: true,
		Hidden:        true,
	}, func(ifc iface.Iface, keyLenBits int) (Cipher, error) {
		return newAESCipher(ifc, keyLenBits, false)
	})
}

type aesCipher struct {
	ifc    iface.Iface
	keyLen int // bytes
	wide   bool
	owner  string
}

func newAESCipher(ifc iface.Iface, keyLenBits int, wide bool) (Cipher, error) {
	if keyLenBits <= 0 {
		keyLenBits = 256
	}
	if keyLenBits%8 != 0 || !(Range{Min: 128, Max: 256, Inc: 64}).Allowed(keyLenBits) {
		return nil, keyLengthError("aes", keyLenBits)
	}
	owner := fmt.Sprintf("aes-%d", keyLenBits)
	if wide {
		owner = fmt.Sprintf("aes-eme-%d", keyLenBits)
	}
	return &aesCipher{ifc: ifc, keyLen: keyLenBits / 8, wide: wide, owner: owner}, nil
}

// newKeyFromRaw wraps raw master material into a CipherKey with derived
// subkeys. raw is owned by the key afterwards.
func (c *aesCipher) newKeyFromRaw(raw []byte) *CipherKey {
	if len(raw) != c.keyLen {
		log.Panicf("cryptocore: aes raw key is %d bytes, want %d", len(raw), c.keyLen)
	}
	return &CipherKey{
		owner: c.owner,
		raw:   raw,
		enc:   hkdfDerive(raw, hkdfInfoEncrypt, c.keyLen),
		mac:   hkdfDerive(raw, hkdfInfoMAC, cmacKeyLen),
	}
}

func (c *aesCipher) Iface() iface.Iface { return c.ifc }
func (c *aesCipher) KeySize() int       { return c.keyLen }
func (c *aesCipher) EncodedKeySize() int {
	return c.keyLen + keyChecksumLen
}
func (c *aesCipher) BlockSize() int      { return aes.BlockSize }
func (c *aesCipher) HasStreamMode() bool { return !c.wide }

func (c *aesCipher) DeriveKey(password, salt []byte, iterations *int, desiredDuration time.Duration) (*CipherKey, error) {
	if iterations == nil {
		return nil, fmt.Errorf("cryptocore: iterations pointer is nil")
	}
	if *iterations == 0 {
		*iterations = calibrate(desiredDuration, 1000, func(n int) {
			pbkdf2.Key(password, salt, n, c.keyLen, sha256.New)
		})
	}
	raw := pbkdf2.Key(password, salt, *iterations, c.keyLen, sha256.New)
	return c.newKeyFromRaw(raw), nil
}

func (c *aesCipher) RandomKey() (*CipherKey, error) {
	return c.newKeyFromRaw(RandBytes(c.keyLen)), nil
}

// Wrapped key layout: 4-byte big-endian folded-MAC checksum of the raw key
// under the encoding key, then the raw key stream-encrypted with the
// checksum as IV seed. The checksum binds ciphertext to key material, so a
// wrong password fails the integrity check instead of yielding garbage.
func (c *aesCipher) WriteKey(key, encodingKey *CipherKey) ([]byte, error) {
	checkOwner(key, c.owner)
	checkOwner(encodingKey, c.owner)
	checksum := MAC32(c, key.raw, encodingKey, nil)
	out := make([]byte, c.EncodedKeySize())
	binary.BigEndian.PutUint32(out[:keyChecksumLen], checksum)
	copy(out[keyChecksumLen:], key.raw)
	if err := c.cfbTransform(out[keyChecksumLen:], uint64(checksum), encodingKey, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *aesCipher) ReadKey(wrapped []byte, encodingKey *CipherKey, checkIntegrity bool) (*CipherKey, error) {
	checkOwner(encodingKey, c.owner)
	if len(wrapped) != c.EncodedKeySize() {
		return nil, fmt.Errorf("%w: wrapped key is %d bytes, want %d",
			ErrLengthMismatch, len(wrapped), c.EncodedKeySize())
	}
	checksum := binary.BigEndian.Uint32(wrapped[:keyChecksumLen])
	raw := make([]byte, c.keyLen)
	copy(raw, wrapped[keyChecksumLen:])
	if err := c.cfbTransform(raw, uint64(checksum), encodingKey, false); err != nil {
		return nil, err
	}
	if checkIntegrity && MAC32(c, raw, encodingKey, nil) != checksum {
		return nil, fmt.Errorf("%w: wrapped key checksum mismatch (wrong password or corrupt header)", ErrIntegrity)
	}
	return c.newKeyFromRaw(raw), nil
}

func (c *aesCipher) CompareKey(a, b *CipherKey) bool {
	checkOwner(a, c.owner)
	checkOwner(b, c.owner)
	return compareRaw(a, b)
}

func (c *aesCipher) MAC64(data []byte, key *CipherKey, chainedIV *uint64) uint64 {
	checkOwner(key, c.owner)
	h, err := cmac.New(key.mac)
	if err != nil {
		// The MAC subkey length is fixed at construction.
		log.Panicf("cryptocore: cmac.New: %v", err)
	}
	h.Write(data)
	if chainedIV != nil {
		var ivBuf [8]byte
		binary.LittleEndian.PutUint64(ivBuf[:], *chainedIV)
		h.Write(ivBuf[:])
	}
	sum := h.Sum(nil)
	value := binary.BigEndian.Uint64(sum[:8]) ^ binary.BigEndian.Uint64(sum[8:])
	if chainedIV != nil {
		*chainedIV = value
	}
	return value
}

func (c *aesCipher) StreamEncode(buf []byte, iv64 uint64, key *CipherKey) error {
	if c.wide {
		return fmt.Errorf("%w: %s has no stream mode", ErrUnsupported, c.ifc.Name)
	}
	return c.cfbTransform(buf, iv64, key, true)
}

func (c *aesCipher) StreamDecode(buf []byte, iv64 uint64, key *CipherKey) error {
	if c.wide {
		return fmt.Errorf("%w: %s has no stream mode", ErrUnsupported, c.ifc.Name)
	}
	return c.cfbTransform(buf, iv64, key, false)
}

// cfbTransform is the stream transform. Key wrapping uses it directly even
// for the wide-block variant, whose public stream mode is disabled.
func (c *aesCipher) cfbTransform(buf []byte, iv64 uint64, key *CipherKey, encode bool) error {
	checkOwner(key, c.owner)
	block, err := aes.NewCipher(key.enc)
	if err != nil {
		return err
	}
	var s cipher.Stream
	if encode {
		s = cipher.NewCFBEncrypter(block, ivecFromSeed(block, iv64))
	} else {
		s = cipher.NewCFBDecrypter(block, ivecFromSeed(block, iv64))
	}
	s.XORKeyStream(buf, buf)
	return nil
}

func (c *aesCipher) BlockEncode(buf []byte, iv64 uint64, key *CipherKey) error {
	return c.blockTransform(buf, iv64, key, true)
}

func (c *aesCipher) BlockDecode(buf []byte, iv64 uint64, key *CipherKey) error {
	return c.blockTransform(buf, iv64, key, false)
}

func (c *aesCipher) blockTransform(buf []byte, iv64 uint64, key *CipherKey, encode bool) error {
	checkOwner(key, c.owner)
	if len(buf) == 0 || len(buf)%aes.BlockSize != 0 {
		return fmt.Errorf("%w: got %d bytes, block size is %d",
			ErrLengthMismatch, len(buf), aes.BlockSize)
	}
	if c.wide && len(buf) > emeMaxLen {
		return fmt.Errorf("%w: wide-block mode caps at %d bytes, got %d",
			ErrLengthMismatch, emeMaxLen, len(buf))
	}
	block, err := aes.NewCipher(key.enc)
	if err != nil {
		return err
	}
	iv := ivecFromSeed(block, iv64)
	if c.wide {
		// The whole buffer is one EME block: flipping any ciphertext bit
		// scrambles the complete name, not just one CBC block.
		e := eme.New(block)
		if encode {
			copy(buf, e.Encrypt(iv, buf))
		} else {
			copy(buf, e.Decrypt(iv, buf))
		}
		return nil
	}
	if encode {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf, buf)
	}
	return nil
}

func (c *aesCipher) Randomize(buf []byte, strong bool) error {
	return fillRandom(buf, strong)
}

// ivecFromSeed widens the 64-bit IV seed to a full block by encrypting it
// under the transform key, so the effective IV depends on both.
func ivecFromSeed(block cipher.Block, iv64 uint64) []byte {
	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(iv[:8], iv64)
	binary.BigEndian.PutUint64(iv[8:], iv64)
	block.Encrypt(iv, iv)
	return iv
}

// calibrate finds the largest work factor whose run time stays within the
// budget, starting from "start" and probing with "run". The growth per
// probe is capped so one noisy measurement cannot blow up the result.
func calibrate(budget time.Duration, start int, run func(n int)) int {
	if budget <= 0 {
		return start
	}
	n := start
	for {
		begin := time.Now()
		run(n)
		elapsed := time.Since(begin)
		if elapsed >= budget {
			return n
		}
		factor := float64(budget) / float64(elapsed+1)
		if factor > 8 {
			factor = 8
		}
		next := int(float64(n) * factor)
		if next <= n {
			return n
		}
		n = next
	}
}
