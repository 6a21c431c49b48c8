package gpdo

import (
	"bytes"

	"ace/errs"
	"ace/tlv"
)

const tagHashRef = 0xC1

// HashRef identifies the device-application side of a REF-DO: either a
// specific 20-byte SHA-1 certificate hash, or the AllDeviceApplications
// wildcard (empty value).
type HashRef struct {
	hash []byte // nil/empty means AllDeviceApplications
}

// NewSpecificHash builds a HashRef over a 20-byte SHA-1 hash.
func NewSpecificHash(hash []byte) (HashRef, error) {
	if len(hash) != 20 {
		return HashRef{}, errs.InvalidArgument("hash length must be 20, got %d", len(hash))
	}
	cp := make([]byte, 20)
	copy(cp, hash)
	return HashRef{hash: cp}, nil
}

// AllDeviceApplications is the wildcard Hash-REF-DO.
func AllDeviceApplications() HashRef { return HashRef{} }

// IsAll reports whether this is the AllDeviceApplications wildcard. Per
// §3, an absent hash and an explicitly empty hash are equivalent.
func (h HashRef) IsAll() bool { return len(h.hash) == 0 }

// Hash returns the 20-byte SHA-1 hash, or nil for the wildcard.
func (h HashRef) Hash() []byte { return h.hash }

// InterpretHashRef parses a Hash-REF-DO value region.
func InterpretHashRef(tag uint16, value []byte) (HashRef, error) {
	if tag != tagHashRef {
		return HashRef{}, errs.Parse("unexpected tag 0x%02X for Hash-REF-DO", tag)
	}
	if len(value) != 0 && len(value) != 20 {
		return HashRef{}, errs.Parse("Hash-REF-DO length must be 0 or 20, got %d", len(value))
	}
	if len(value) == 0 {
		return AllDeviceApplications(), nil
	}
	return NewSpecificHash(value)
}

// Build appends the canonical TLV bytes for this Hash-REF-DO. Build itself
// checks no length: NewSpecificHash, AllDeviceApplications and
// InterpretHashRef only ever produce a hash of length 0 or 20.
func (h HashRef) Build(out []byte) []byte {
	return tlv.Build(out, tagHashRef, h.hash)
}

// Equal compares two Hash-REF-DOs by 20-byte content; wildcard vs wildcard
// compares equal.
func (h HashRef) Equal(o HashRef) bool {
	if h.IsAll() && o.IsAll() {
		return true
	}
	return bytes.Equal(h.hash, o.hash)
}
