package nametransform

import (
	"errors"
	"strings"
	"testing"

	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/iface"
)

// testCodec builds the named codec over the named cipher with a fixed key.
func testCodec(t *testing.T, codecName, cipherName string) NameIO {
	t.Helper()
	c, err := cryptocore.StandardRegistry().New(cipherName, 0)
	if err != nil {
		t.Fatal(err)
	}
	iter := 1
	if cipherName != "chacha20" {
		iter = 1500
	}
	key, err := c.DeriveKey([]byte("test password"), []byte("test salt"), &iter, 0)
	if err != nil {
		t.Fatal(err)
	}
	n, err := StandardRegistry().New(codecName, c, key)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// Codec/cipher pairs exercised by the generic tests.
var testPairs = []struct{ codec, cipher string }{
	{"block", "aes"},
	{"block", "aes-eme"},
	{"block32", "aes"},
	{"stream", "aes"},
	{"stream", "chacha20"},
}

func TestNullIdentity(t *testing.T) {
	n, err := StandardRegistry().New("null", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	iv := uint64(0)
	enc, err := n.EncodeName("notes.txt", &iv)
	if err != nil {
		t.Fatal(err)
	}
	if enc != "notes.txt" {
		t.Errorf("null codec changed the name: %q", enc)
	}
	if iv != 0 {
		t.Errorf("null codec changed the chain value: %d", iv)
	}
	dec, err := n.DecodeName(enc, &iv)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "notes.txt" || iv != 0 {
		t.Errorf("null decode: name %q iv %d", dec, iv)
	}
	if n.MaxEncodedNameLen(9) != 9 || n.MaxDecodedNameLen(9) != 9 {
		t.Error("null codec length bounds are not identity")
	}
}

func TestRoundTrip(t *testing.T) {
	names := []string{
		"notes.txt",
		"a",
		"file with spaces and ümläuts",
		strings.Repeat("x", NameMax),
	}
	for _, p := range testPairs {
		n := testCodec(t, p.codec, p.cipher)
		for _, name := range names {
			encIV := uint64(0)
			enc, err := n.EncodeName(name, &encIV)
			if err != nil {
				t.Fatalf("%s/%s: encode %q: %v", p.codec, p.cipher, name, err)
			}
			if enc == name {
				t.Errorf("%s/%s: ciphertext equals plaintext for %q", p.codec, p.cipher, name)
			}
			if len(enc) > n.MaxEncodedNameLen(len(name)) {
				t.Errorf("%s/%s: encoded length %d exceeds bound %d",
					p.codec, p.cipher, len(enc), n.MaxEncodedNameLen(len(name)))
			}
			if len(name) > n.MaxDecodedNameLen(len(enc)) {
				t.Errorf("%s/%s: decoded bound %d below plaintext length %d",
					p.codec, p.cipher, n.MaxDecodedNameLen(len(enc)), len(name))
			}
			decIV := uint64(0)
			dec, err := n.DecodeName(enc, &decIV)
			if err != nil {
				t.Fatalf("%s/%s: decode %q: %v", p.codec, p.cipher, enc, err)
			}
			if dec != name {
				t.Errorf("%s/%s: round trip %q -> %q", p.codec, p.cipher, name, dec)
			}
			if decIV != encIV {
				t.Errorf("%s/%s: chain value diverged: enc %x dec %x", p.codec, p.cipher, encIV, decIV)
			}
			if encIV == 0 {
				t.Errorf("%s/%s: chain value not advanced", p.codec, p.cipher)
			}
		}
	}
}

func TestEncodedNamesAreFilesystemLegal(t *testing.T) {
	for _, p := range testPairs {
		n := testCodec(t, p.codec, p.cipher)
		iv := uint64(0)
		enc, err := n.EncodeName("notes.txt", &iv)
		if err != nil {
			t.Fatal(err)
		}
		if strings.ContainsAny(enc, "/.") {
			t.Errorf("%s/%s: encoded name %q contains reserved characters", p.codec, p.cipher, enc)
		}
	}
}

// Two components with identical plaintext under different parents must
// encode differently.
func TestChainingSensitivity(t *testing.T) {
	for _, p := range testPairs {
		n := testCodec(t, p.codec, p.cipher)

		iv0 := uint64(0)
		enc0, err := n.EncodeName("notes.txt", &iv0)
		if err != nil {
			t.Fatal(err)
		}
		iv1 := uint64(1)
		enc1, err := n.EncodeName("notes.txt", &iv1)
		if err != nil {
			t.Fatal(err)
		}
		if enc0 == enc1 {
			t.Errorf("%s/%s: chain value does not influence ciphertext", p.codec, p.cipher)
		}
		if iv0 == iv1 {
			t.Errorf("%s/%s: chained outputs collide", p.codec, p.cipher)
		}
	}
}

func TestDecodeWrongChainValue(t *testing.T) {
	for _, p := range testPairs {
		n := testCodec(t, p.codec, p.cipher)

		iv := uint64(0)
		enc, err := n.EncodeName("notes.txt", &iv)
		if err != nil {
			t.Fatal(err)
		}
		wrongIV := uint64(0xdeadbeef)
		savedIV := wrongIV
		_, err = n.DecodeName(enc, &wrongIV)
		if !errors.Is(err, cryptocore.ErrIntegrity) {
			t.Errorf("%s/%s: want ErrIntegrity, got %v", p.codec, p.cipher, err)
		}
		// The failed decode must not touch the caller's chain value.
		if wrongIV != savedIV {
			t.Errorf("%s/%s: failed decode mutated the chain value", p.codec, p.cipher)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	for _, p := range testPairs {
		n := testCodec(t, p.codec, p.cipher)
		for _, garbage := range []string{"", "A", "zz", strings.Repeat("?", 40), "abc/def", "name.ext"} {
			iv := uint64(0)
			// Wrong length or out-of-alphabet bytes are both invalid
			// input, not an integrity failure.
			if _, err := n.DecodeName(garbage, &iv); !errors.Is(err, ErrInvalidName) {
				t.Errorf("%s/%s: garbage %q: want ErrInvalidName, got %v", p.codec, p.cipher, garbage, err)
			}
			if iv != 0 {
				t.Errorf("%s/%s: garbage decode mutated the chain value", p.codec, p.cipher)
			}
		}
	}
}

// Deeper components bind to the full path prefix: decode only succeeds
// when the parent chain is replayed in order.
func TestPathChaining(t *testing.T) {
	n := testCodec(t, "block", "aes")

	iv := uint64(0)
	encDir, err := n.EncodeName("docs", &iv)
	if err != nil {
		t.Fatal(err)
	}
	dirChain := iv
	encFile, err := n.EncodeName("notes.txt", &iv)
	if err != nil {
		t.Fatal(err)
	}

	// Replay: decode the directory first, then the file.
	replay := uint64(0)
	if _, err := n.DecodeName(encDir, &replay); err != nil {
		t.Fatal(err)
	}
	if replay != dirChain {
		t.Fatalf("replayed chain %x, want %x", replay, dirChain)
	}
	dec, err := n.DecodeName(encFile, &replay)
	if err != nil {
		t.Fatal(err)
	}
	if dec != "notes.txt" {
		t.Errorf("got %q", dec)
	}
	// Skipping the parent leaves the wrong chain and must fail.
	skip := uint64(0)
	if _, err := n.DecodeName(encFile, &skip); !errors.Is(err, cryptocore.ErrIntegrity) {
		t.Errorf("want ErrIntegrity, got %v", err)
	}
}

func TestBlock32CaseInsensitive(t *testing.T) {
	n := testCodec(t, "block32", "aes")
	iv := uint64(0)
	enc, err := n.EncodeName("notes.txt", &iv)
	if err != nil {
		t.Fatal(err)
	}
	iv = 0
	dec, err := n.DecodeName(strings.ToLower(enc), &iv)
	if err != nil {
		t.Fatalf("lowercased name did not decode: %v", err)
	}
	if dec != "notes.txt" {
		t.Errorf("got %q", dec)
	}
}

func TestEncodeRejectsBadNames(t *testing.T) {
	n := testCodec(t, "block", "aes")
	for _, bad := range []string{"", strings.Repeat("x", NameMax+1)} {
		if _, err := n.EncodeName(bad, nil); !errors.Is(err, ErrInvalidName) {
			t.Errorf("EncodeName(%d bytes): want ErrInvalidName, got %v", len(bad), err)
		}
	}
}

func TestStreamCodecNeedsStreamMode(t *testing.T) {
	c, err := cryptocore.StandardRegistry().New("aes-eme", 0)
	if err != nil {
		t.Fatal(err)
	}
	iter := 1500
	key, err := c.DeriveKey([]byte("pw"), []byte("salt"), &iter, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = StandardRegistry().New("stream", c, key)
	if !errors.Is(err, cryptocore.ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestRegistryIfaceCompat(t *testing.T) {
	c, err := cryptocore.StandardRegistry().New("aes", 0)
	if err != nil {
		t.Fatal(err)
	}
	iter := 1500
	key, err := c.DeriveKey([]byte("pw"), []byte("salt"), &iter, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Current revision is 4, age 2: a header recorded at revision 2 on an
	// old volume still resolves.
	n, err := StandardRegistry().NewFromIface(iface.New("nameio/block", 2, 0, 0), c, key)
	if err != nil {
		t.Fatal(err)
	}
	if n.Iface().Current != 2 {
		t.Errorf("instance reports revision %d", n.Iface().Current)
	}
	_, err = StandardRegistry().NewFromIface(iface.New("nameio/unknown", 1, 0, 0), c, key)
	if !errors.Is(err, cryptocore.ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestPadBlock(t *testing.T) {
	for _, bs := range []int{16, 64} {
		for _, n := range []int{1, 5, bs - 1, bs, bs + 1, 3 * bs} {
			orig := make([]byte, n)
			for i := range orig {
				orig[i] = byte(i + 1)
			}
			padded := padBlock(orig, bs)
			if len(padded) <= len(orig) || len(padded)%bs != 0 {
				t.Errorf("bs=%d len=%d: bad padded length %d", bs, n, len(padded))
			}
			unpadded, err := unpadBlock(padded, bs)
			if err != nil {
				t.Errorf("bs=%d len=%d: %v", bs, n, err)
				continue
			}
			if string(unpadded) != string(orig) {
				t.Errorf("bs=%d len=%d: content mismatch", bs, n)
			}
		}
	}
}

// unpadBlock should never crash on corrupt input.
func TestUnpadBlockGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		make([]byte, 1),
		make([]byte, 16), // pad byte 0
		make([]byte, 17),
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 17}, // pad > bs
		{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2},        // inconsistent
	}
	for i, c := range cases {
		if _, err := unpadBlock(c, 16); err == nil {
			t.Errorf("case %d: no error", i)
		}
	}
}
