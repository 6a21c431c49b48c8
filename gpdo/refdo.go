package gpdo

import (
	"ace/errs"
	"ace/tlv"
)

const TagRefDo = 0xE1

// RefDo is (AID-REF-DO, Hash-REF-DO): the cache key identifying one
// (SE application, device application) pair.
type RefDo struct {
	Aid  AidRef
	Hash HashRef
}

// NewRefDo builds a REF-DO from its two constituents.
func NewRefDo(aid AidRef, hash HashRef) RefDo { return RefDo{Aid: aid, Hash: hash} }

// InterpretRefDo parses a REF-DO value region: it must contain exactly one
// AID-REF-DO and exactly one Hash-REF-DO, both mandatory after parse.
func InterpretRefDo(tag uint16, value []byte) (RefDo, error) {
	if tag != TagRefDo {
		return RefDo{}, errs.Parse("unexpected tag 0x%04X for REF-DO", tag)
	}
	var aid *AidRef
	var hash *HashRef
	elems, err := tlv.DecodeAll(value)
	if err != nil {
		return RefDo{}, err
	}
	for _, e := range elems {
		switch e.Tag {
		case tagAidSpecific, tagAidDefault:
			a, err := InterpretAidRef(e.Tag, e.Value)
			if err != nil {
				return RefDo{}, err
			}
			aid = &a
		case tagHashRef:
			h, err := InterpretHashRef(e.Tag, e.Value)
			if err != nil {
				return RefDo{}, err
			}
			hash = &h
		default:
			// unknown sub-TLV: skip leniently
		}
	}
	if aid == nil {
		return RefDo{}, errs.Parse("REF-DO missing mandatory AID-REF-DO")
	}
	if hash == nil {
		return RefDo{}, errs.Parse("REF-DO missing mandatory Hash-REF-DO")
	}
	return RefDo{Aid: *aid, Hash: *hash}, nil
}

// Build appends the canonical TLV bytes for this REF-DO.
func (r RefDo) Build(out []byte) []byte {
	var inner []byte
	inner = r.Aid.Build(inner)
	inner = r.Hash.Build(inner)
	return tlv.Build(out, TagRefDo, inner)
}

// Key returns the string used to key the access-rule cache: the canonical
// TLV bytes, so that equal REF-DOs collide and unequal ones never do.
func (r RefDo) Key() string { return string(r.Build(nil)) }

// Equal compares two REF-DOs by canonical TLV bytes.
func (r RefDo) Equal(o RefDo) bool { return r.Key() == o.Key() }
