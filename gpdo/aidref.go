// Package gpdo implements the GlobalPlatform access-control data-object
// family: typed wrappers over tlv.BerTlv with parse (interpret), build, and
// canonical-bytes equality.
package gpdo

import (
	"bytes"

	"ace/errs"
	"ace/tlv"
)

const (
	tagAidSpecific = 0x4F
	tagAidDefault  = 0xC0
)

// AidRef identifies the SE application side of a REF-DO: either a specific
// AID, the AllSEApplications wildcard, or the DefaultApplication sentinel.
type AidRef struct {
	kind aidKind
	aid  []byte // only set when kind == aidSpecific
}

type aidKind int

const (
	aidSpecific aidKind = iota
	aidAllSE
	aidDefault
)

// NewSpecificAID builds an AidRef naming a concrete SE application.
func NewSpecificAID(aid []byte) (AidRef, error) {
	if len(aid) < 5 || len(aid) > 16 {
		return AidRef{}, errs.InvalidArgument("AID length %d out of range [5,16]", len(aid))
	}
	cp := make([]byte, len(aid))
	copy(cp, aid)
	return AidRef{kind: aidSpecific, aid: cp}, nil
}

// AllSEApplications is the wildcard AID-REF-DO (tag 0x4F, empty value).
func AllSEApplications() AidRef { return AidRef{kind: aidAllSE} }

// DefaultApplication is the sentinel AID-REF-DO (tag 0xC0, no value),
// meaning the device's default SE application.
func DefaultApplication() AidRef { return AidRef{kind: aidDefault} }

// NormalizeAID maps a nil caller AID, or one of exactly five zero bytes, to
// DefaultApplication, per §4.4.3.
func NormalizeAID(aid []byte) (AidRef, error) {
	if aid == nil || isAllZero(aid) {
		return DefaultApplication(), nil
	}
	return NewSpecificAID(aid)
}

func isAllZero(b []byte) bool {
	if len(b) != 5 {
		return false
	}
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

func (a AidRef) IsSpecific() bool { return a.kind == aidSpecific }
func (a AidRef) IsAllSE() bool    { return a.kind == aidAllSE }
func (a AidRef) IsDefault() bool  { return a.kind == aidDefault }

// AID returns the specific AID bytes, or nil if this is not a specific
// AidRef.
func (a AidRef) AID() []byte {
	if a.kind != aidSpecific {
		return nil
	}
	return a.aid
}

// InterpretAidRef parses an AID-REF-DO value region given its outer tag.
func InterpretAidRef(tag uint16, value []byte) (AidRef, error) {
	switch tag {
	case tagAidDefault:
		if len(value) != 0 {
			return AidRef{}, errs.Parse("DefaultApplication AID-REF-DO must have length 0, got %d", len(value))
		}
		return DefaultApplication(), nil
	case tagAidSpecific:
		if len(value) == 0 {
			return AllSEApplications(), nil
		}
		if len(value) < 5 || len(value) > 16 {
			return AidRef{}, errs.Parse("AID-REF-DO length %d out of range [5,16]", len(value))
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		return AidRef{kind: aidSpecific, aid: cp}, nil
	default:
		return AidRef{}, errs.Parse("unexpected tag 0x%02X for AID-REF-DO", tag)
	}
}

// Build appends the canonical TLV bytes for this AID-REF-DO.
func (a AidRef) Build(out []byte) []byte {
	switch a.kind {
	case aidDefault:
		return tlv.Build(out, tagAidDefault, nil)
	case aidAllSE:
		return tlv.Build(out, tagAidSpecific, nil)
	default:
		return tlv.Build(out, tagAidSpecific, a.aid)
	}
}

// Equal compares two AID-REF-DOs by canonical TLV bytes.
func (a AidRef) Equal(o AidRef) bool {
	return bytes.Equal(a.Build(nil), o.Build(nil))
}
