package roster

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// PharmacyKey derives the stable identity key of a pharmacy from its
// normalized city and name only. Address and phone fields deliberately do
// not participate: they drift between editions while the pharmacy stays
// the same.
func PharmacyKey(cityNorm, nameNorm string) string {
	return sha1Hex(cityNorm + "|" + nameNorm)
}

// DutyKey derives the idempotency key of one duty-period assertion.
// Re-ingesting the same document regenerates the identical key.
func DutyKey(pharmacyKey string, start, end time.Time, source Source) string {
	material := pharmacyKey + "|" + start.Format(time.DateOnly) + "|" +
		end.Format(time.DateOnly) + "|" + string(source)
	return sha1Hex(material)
}

func sha1Hex(material string) string {
	sum := sha1.Sum([]byte(material))
	return hex.EncodeToString(sum[:])
}
