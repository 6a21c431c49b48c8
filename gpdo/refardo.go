package gpdo

import (
	"ace/errs"
	"ace/tlv"
)

const TagRefArDo = 0xE2

// RefArDo is the logical rule: (REF-DO, AR-DO).
type RefArDo struct {
	Ref RefDo
	Ar  ArDo
}

// NewRefArDo builds a REF-AR-DO.
func NewRefArDo(ref RefDo, ar ArDo) RefArDo { return RefArDo{Ref: ref, Ar: ar} }

// InterpretRefArDo parses a REF-AR-DO value: it must contain exactly one
// REF-DO and exactly one AR-DO.
func InterpretRefArDo(tag uint16, value []byte) (RefArDo, error) {
	if tag != TagRefArDo {
		return RefArDo{}, errs.Parse("unexpected tag 0x%04X for REF-AR-DO", tag)
	}
	var ref *RefDo
	var ar *ArDo
	elems, err := tlv.DecodeAll(value)
	if err != nil {
		return RefArDo{}, err
	}
	for _, e := range elems {
		switch e.Tag {
		case TagRefDo:
			v, err := InterpretRefDo(e.Tag, e.Value)
			if err != nil {
				return RefArDo{}, err
			}
			ref = &v
		case TagArDo:
			v, err := InterpretArDo(e.Tag, e.Value)
			if err != nil {
				return RefArDo{}, err
			}
			ar = &v
		default:
			// unknown sub-TLV: skip leniently
		}
	}
	if ref == nil {
		return RefArDo{}, errs.Parse("REF-AR-DO missing mandatory REF-DO")
	}
	if ar == nil {
		return RefArDo{}, errs.Parse("REF-AR-DO missing mandatory AR-DO")
	}
	return RefArDo{Ref: *ref, Ar: *ar}, nil
}

// Build appends the canonical TLV bytes for this REF-AR-DO.
func (r RefArDo) Build(out []byte) []byte {
	var inner []byte
	inner = r.Ref.Build(inner)
	inner = r.Ar.Build(inner)
	return tlv.Build(out, TagRefArDo, inner)
}
