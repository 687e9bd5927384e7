// Package configfile reads and writes veilfs.conf and does the key
// wrapping.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/veilfs/veilfs/internal/cryptocore"
	"github.com/veilfs/veilfs/internal/iface"
	"github.com/veilfs/veilfs/internal/nametransform"
	"github.com/veilfs/veilfs/internal/tlog"
)

const (
	// ConfDefaultName is the default configuration file name.
	// The dot "." is never emitted by our name encodings, hence
	// we can never clash with an encrypted file.
	ConfDefaultName = "veilfs.conf"
	// CurrentVersion is the on-disk header version this package writes.
	CurrentVersion = 1

	// DefaultKDFDuration is targeted when calibrating the key derivation
	// iteration count for a new volume.
	DefaultKDFDuration = 500 * time.Millisecond

	kdfSaltLen = 32
)

// ConfFile is the content of a config file.
type ConfFile struct {
	// Creator is the veilfs version string.
	// This only documents the config file for humans who look at it. The
	// actual technical info is contained in the ifaces and FeatureFlags.
	Creator string
	// Version is the on-disk header version this volume uses
	Version uint16
	// VolumeID is a random identifier, unique per volume. It lets tooling
	// tell volumes apart without decrypting anything.
	VolumeID string
	// Cipher records which cipher implementation revision wrote this
	// volume. At load time the registry resolves any implementation whose
	// age covers the recorded revision.
	Cipher iface.Iface
	// KeySize is the cipher key length in bits.
	KeySize int
	// NameCodec records the filename codec revision, resolved the same
	// way as Cipher.
	NameCodec iface.Iface
	// KDFSalt feeds the password key derivation together with the
	// persisted iteration count.
	KDFSalt []byte
	// KDFIterations is the calibrated iteration count. Persisting it is
	// what makes the derived key reproducible on a different machine.
	KDFIterations int
	// EncryptedKey holds the wrapped volume key, unlocked with a
	// password-derived key.
	EncryptedKey []byte
	// FeatureFlags is a list of feature flags this volume has enabled.
	// If veilfs encounters a feature flag it does not support, it will
	// refuse the volume. This mechanism is analogous to the ext4 feature
	// flags that are stored in the superblock.
	FeatureFlags []string
	// Filename is the name of the config file. Not exported to JSON.
	filename string
}

// CreateArgs collects the parameters for Create.
type CreateArgs struct {
	Filename  string
	Password  []byte
	Cipher    string
	KeyBits   int
	NameCodec string
	Creator   string
	// KDFDuration is the calibration budget; zero means
	// DefaultKDFDuration.
	KDFDuration time.Duration
}

// Create makes a new volume header with a random volume key wrapped under
// args.Password and writes it to args.Filename. The cipher and name codec
// are resolved through the given registries.
func Create(creg *cryptocore.Registry, nreg *nametransform.Registry, args CreateArgs) (*ConfFile, error) {
	c, err := creg.New(args.Cipher, args.KeyBits)
	if err != nil {
		return nil, err
	}
	codec, ok := nreg.Lookup(args.NameCodec)
	if !ok {
		return nil, fmt.Errorf("%w: no name codec named %q", cryptocore.ErrUnsupported, args.NameCodec)
	}
	if codec.NeedsStreamMode && !c.HasStreamMode() {
		return nil, fmt.Errorf("%w: name codec %q needs a stream-mode cipher",
			cryptocore.ErrUnsupported, args.NameCodec)
	}

	cf := &ConfFile{
		Creator:   args.Creator,
		Version:   CurrentVersion,
		VolumeID:  uuid.New().String(),
		Cipher:    c.Iface(),
		KeySize:   c.KeySize() * 8,
		NameCodec: codec.Iface,
		filename:  args.Filename,
	}
	cf.FeatureFlags = append(cf.FeatureFlags, knownFlags[FlagHKDF])
	if args.NameCodec == "null" {
		cf.FeatureFlags = append(cf.FeatureFlags, knownFlags[FlagPlaintextNames])
	} else {
		cf.FeatureFlags = append(cf.FeatureFlags, knownFlags[FlagChainedNameIV])
		if args.NameCodec == "block32" {
			cf.FeatureFlags = append(cf.FeatureFlags, knownFlags[FlagCaseInsensitiveNames])
		}
	}

	duration := args.KDFDuration
	if duration == 0 {
		duration = DefaultKDFDuration
	}
	cf.KDFSalt = cryptocore.RandBytes(kdfSaltLen)
	// Iteration count 0 asks DeriveKey to calibrate; the count it settles
	// on is persisted in the header.
	iterations := 0
	encodingKey, err := c.DeriveKey(args.Password, cf.KDFSalt, &iterations, duration)
	if err != nil {
		return nil, err
	}
	defer encodingKey.Zero()
	cf.KDFIterations = iterations

	volumeKey, err := c.RandomKey()
	if err != nil {
		return nil, err
	}
	defer volumeKey.Zero()
	cf.EncryptedKey, err = c.WriteKey(volumeKey, encodingKey)
	if err != nil {
		return nil, err
	}

	if err := cf.WriteFile(); err != nil {
		return nil, err
	}
	return cf, nil
}

// Load reads and validates a volume header from disk. The wrapped key stays
// locked; call UnlockKey with the password to get the volume key.
func Load(filename string) (*ConfFile, error) {
	cf := &ConfFile{filename: filename}

	js, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(js, cf); err != nil {
		tlog.Warn.Printf("Failed to unmarshal config file")
		return nil, err
	}
	if cf.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported on-disk format %d", cf.Version)
	}

	// Check that all set feature flags are known
	for _, flag := range cf.FeatureFlags {
		if !cf.isFeatureFlagKnown(flag) {
			return nil, fmt.Errorf("unsupported feature flag %q", flag)
		}
	}
	// Check that all required feature flags are set
	var requiredFlags []flagIota
	if cf.IsFeatureFlagSet(FlagPlaintextNames) {
		requiredFlags = requiredFlagsPlaintextNames
	} else {
		requiredFlags = requiredFlagsNormal
	}
	for _, i := range requiredFlags {
		if !cf.IsFeatureFlagSet(i) {
			return nil, fmt.Errorf("required feature flag %q is missing", knownFlags[i])
		}
	}
	if cf.KDFIterations <= 0 {
		return nil, fmt.Errorf("invalid KDF iteration count %d", cf.KDFIterations)
	}
	if len(cf.EncryptedKey) == 0 {
		return nil, fmt.Errorf("header carries no wrapped key")
	}
	return cf, nil
}

// UnlockKey re-derives the encoding key from the password and unwraps the
// volume key. A wrong password surfaces as cryptocore.ErrIntegrity.
func (cf *ConfFile) UnlockKey(creg *cryptocore.Registry, password []byte) (cryptocore.Cipher, *cryptocore.CipherKey, error) {
	c, err := creg.NewFromIface(cf.Cipher, cf.KeySize)
	if err != nil {
		return nil, nil, err
	}
	iterations := cf.KDFIterations
	encodingKey, err := c.DeriveKey(password, cf.KDFSalt, &iterations, 0)
	if err != nil {
		return nil, nil, err
	}
	defer encodingKey.Zero()
	key, err := c.ReadKey(cf.EncryptedKey, encodingKey, true)
	if err != nil {
		return nil, nil, err
	}
	return c, key, nil
}

// NameIO instantiates the filename codec recorded in the header, bound to
// the unlocked volume key.
func (cf *ConfFile) NameIO(nreg *nametransform.Registry, c cryptocore.Cipher, key *cryptocore.CipherKey) (nametransform.NameIO, error) {
	return nreg.NewFromIface(cf.NameCodec, c, key)
}

// WriteFile - write out config in JSON format to file "filename.tmp"
// then rename over "filename".
// This way a password change atomically replaces the file.
func (cf *ConfFile) WriteFile() error {
	tmp := cf.filename + ".tmp"
	// 0400 permissions: veilfs.conf should be kept secret and never be written to.
	fd, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0400)
	if err != nil {
		return err
	}
	js, err := json.MarshalIndent(cf, "", "\t")
	if err != nil {
		fd.Close()
		return err
	}
	// For convenience for the user, add a newline at the end.
	js = append(js, '\n')
	if _, err = fd.Write(js); err != nil {
		fd.Close()
		return err
	}
	if err = fd.Sync(); err != nil {
		fd.Close()
		return err
	}
	if err = fd.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, cf.filename)
}
