package configfile

type flagIota int

const (
	// FlagPlaintextNames indicates that filenames are unencrypted.
	FlagPlaintextNames flagIota = iota
	// FlagChainedNameIV indicates that filename encryption chains the IV
	// through the path components.
	FlagChainedNameIV
	// FlagHKDF enables HKDF-derived per-purpose subkeys instead of using
	// the volume key directly.
	FlagHKDF
	// FlagCaseInsensitiveNames means the encoded names use the base32
	// alphabet and survive case-folding filesystems.
	FlagCaseInsensitiveNames
)

// knownFlags stores the known feature flags and their string representation
var knownFlags = map[flagIota]string{
	FlagPlaintextNames:       "PlaintextNames",
	FlagChainedNameIV:        "ChainedNameIV",
	FlagHKDF:                 "HKDF",
	FlagCaseInsensitiveNames: "CaseInsensitiveNames",
}

// Volumes that do not have these feature flags set are deprecated.
var requiredFlagsNormal = []flagIota{
	FlagChainedNameIV,
	FlagHKDF,
}

// Volumes without filename encryption obviously don't have or need the
// filename related feature flags.
var requiredFlagsPlaintextNames = []flagIota{
	FlagHKDF,
}

// isFeatureFlagKnown verifies that we understand a feature flag.
func (cf *ConfFile) isFeatureFlagKnown(flag string) bool {
	for _, knownFlag := range knownFlags {
		if knownFlag == flag {
			return true
		}
	}
	return false
}

// IsFeatureFlagSet returns true if the feature flag "flagWant" is enabled.
func (cf *ConfFile) IsFeatureFlagSet(flagWant flagIota) bool {
	flagString := knownFlags[flagWant]
	for _, flag := range cf.FeatureFlags {
		if flag == flagString {
			return true
		}
	}
	return false
}
