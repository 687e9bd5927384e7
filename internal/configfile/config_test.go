package configfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/nametransform"
)

func testCreate(t *testing.T, cipher, codec string) (*ConfFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfDefaultName)
	cf, err := Create(cryptocore.StandardRegistry(), nametransform.StandardRegistry(), CreateArgs{
		Filename:    path,
		Password:    []byte("test password"),
		Cipher:      cipher,
		NameCodec:   codec,
		Creator:     "veilfs-test",
		KDFDuration: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	return cf, path
}

func TestCreateLoadUnlock(t *testing.T) {
	if testing.Short() {
		t.Skip("KDF calibration")
	}
	for _, tc := range []struct{ cipher, codec string }{
		{"aes", "block"},
		{"aes-eme", "block"},
		{"chacha20", "stream"},
		{"aes", "null"},
	} {
		_, path := testCreate(t, tc.cipher, tc.codec)

		cf, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, uint16(CurrentVersion), cf.Version)
		require.NotEmpty(t, cf.VolumeID)
		require.Greater(t, cf.KDFIterations, 0)

		c, key, err := cf.UnlockKey(cryptocore.StandardRegistry(), []byte("test password"))
		require.NoError(t, err)
		require.Equal(t, tc.cipher, map[string]string{
			"go/aes":      "aes",
			"go/aes-eme":  "aes-eme",
			"go/chacha20": "chacha20",
		}[c.Iface().Name])

		n, err := cf.NameIO(nametransform.StandardRegistry(), c, key)
		require.NoError(t, err)
		iv := uint64(0)
		enc, err := n.EncodeName("notes.txt", &iv)
		require.NoError(t, err)
		iv = 0
		dec, err := n.DecodeName(enc, &iv)
		require.NoError(t, err)
		require.Equal(t, "notes.txt", dec)
	}
}

func TestWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("KDF calibration")
	}
	_, path := testCreate(t, "aes", "block")
	cf, err := Load(path)
	require.NoError(t, err)
	_, _, err = cf.UnlockKey(cryptocore.StandardRegistry(), []byte("wrong password"))
	require.ErrorIs(t, err, cryptocore.ErrIntegrity)
}

// The persisted iteration count is what makes the password key
// reproducible, so two unlocks must agree.
func TestUnlockDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("KDF calibration")
	}
	_, path := testCreate(t, "aes", "block")
	cf, err := Load(path)
	require.NoError(t, err)
	c, k1, err := cf.UnlockKey(cryptocore.StandardRegistry(), []byte("test password"))
	require.NoError(t, err)
	_, k2, err := cf.UnlockKey(cryptocore.StandardRegistry(), []byte("test password"))
	require.NoError(t, err)
	require.True(t, c.CompareKey(k1, k2))
}

func TestLoadRejects(t *testing.T) {
	if testing.Short() {
		t.Skip("KDF calibration")
	}
	_, path := testCreate(t, "aes", "block")
	cf, err := Load(path)
	require.NoError(t, err)

	mutate := func(f func(*ConfFile)) error {
		tmp := *cf
		tmp.filename = filepath.Join(t.TempDir(), ConfDefaultName)
		f(&tmp)
		require.NoError(t, tmp.WriteFile())
		_, err := Load(tmp.filename)
		return err
	}

	if err := mutate(func(c *ConfFile) { c.Version = 99 }); err == nil {
		t.Error("bad version accepted")
	}
	if err := mutate(func(c *ConfFile) {
		c.FeatureFlags = append([]string{"FancyFutureFeature"}, c.FeatureFlags...)
	}); err == nil {
		t.Error("unknown feature flag accepted")
	}
	if err := mutate(func(c *ConfFile) { c.FeatureFlags = nil }); err == nil {
		t.Error("missing required flags accepted")
	}
	if err := mutate(func(c *ConfFile) { c.KDFIterations = 0 }); err == nil {
		t.Error("zero KDF iterations accepted")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	if testing.Short() {
		t.Skip("KDF calibration")
	}
	_, path := testCreate(t, "aes", "block")
	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0400), fi.Mode().Perm())
	// No leftover tmp file.
	_, err = os.Stat(path + ".tmp")
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCreateRejectsStreamCodecOnWideCipher(t *testing.T) {
	_, err := Create(cryptocore.StandardRegistry(), nametransform.StandardRegistry(), CreateArgs{
		Filename:  filepath.Join(t.TempDir(), ConfDefaultName),
		Password:  []byte("pw"),
		Cipher:    "aes-eme",
		NameCodec: "stream",
	})
	require.ErrorIs(t, err, cryptocore.ErrUnsupported)
}
