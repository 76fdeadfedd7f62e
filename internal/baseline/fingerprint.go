package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const fingerprintHashLen = 10

// Fingerprint is a one-way digest of a configuration value. Raw values are
// never stored or logged; comparisons and audit output use only the digest,
// the length, and the presence bit.
type Fingerprint struct {
	Hash    string `json:"hash"`
	Len     int    `json:"len"`
	Present bool   `json:"present"`
}

// NewFingerprint digests a value. The empty string fingerprints
// deterministically with Present=false so a removed key is distinguishable
// from a changed one.
func NewFingerprint(value string) Fingerprint {
	sum := sha256.Sum256([]byte(value))
	return Fingerprint{
		Hash:    hex.EncodeToString(sum[:])[:fingerprintHashLen],
		Len:     len(value),
		Present: value != "",
	}
}

// Equal compares digests only; Len is informational.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Hash == other.Hash
}

func (f Fingerprint) String() string {
	if !f.Present {
		return "absent"
	}
	return fmt.Sprintf("sha256:%s... (len=%d)", f.Hash, f.Len)
}
