package calendar

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainEvent separates event fingerprints from any other hash. The
// version suffix leaves room for changing the canonical form.
const DomainEvent = "slotguard/event/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of every field of e. Two events with
// equal fields, including the same ID, have equal fingerprints, which lets
// journal readers tell a replace that changed nothing from one that did.
func Fingerprint(e Event) string {
	// canonicalMap holds only strings, ints and bools, so marshaling
	// cannot fail.
	data, err := MarshalCanonical(e)
	if err != nil {
		panic("calendar: fingerprint: " + err.Error())
	}
	return hashWithDomain(DomainEvent, data)
}
