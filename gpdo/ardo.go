package gpdo

import (
	"ace/errs"
	"ace/tlv"
)

const TagArDo = 0xE3

// ArDo is the rule body: an optional APDU-AR-DO and/or NFC-AR-DO. At least
// one must be present.
type ArDo struct {
	Apdu    *ApduArDo
	Nfc     *NfcArDo
	hasApdu bool
	hasNfc  bool
}

// NewArDo builds an AR-DO. Pass nil for whichever sub-rule is absent; at
// least one must be non-nil.
func NewArDo(apdu *ApduArDo, nfc *NfcArDo) (ArDo, error) {
	if apdu == nil && nfc == nil {
		return ArDo{}, errs.InvalidArgument("AR-DO needs at least one of APDU-AR-DO/NFC-AR-DO")
	}
	return ArDo{Apdu: apdu, Nfc: nfc, hasApdu: apdu != nil, hasNfc: nfc != nil}, nil
}

func (a ArDo) HasApdu() bool { return a.hasApdu }
func (a ArDo) HasNfc() bool  { return a.hasNfc }

// InterpretArDo parses an AR-DO value region.
func InterpretArDo(tag uint16, value []byte) (ArDo, error) {
	if tag != TagArDo {
		return ArDo{}, errs.Parse("unexpected tag 0x%04X for AR-DO", tag)
	}
	var apdu *ApduArDo
	var nfc *NfcArDo
	elems, err := tlv.DecodeAll(value)
	if err != nil {
		return ArDo{}, err
	}
	for _, e := range elems {
		switch e.Tag {
		case TagApduArDo:
			v, err := InterpretApduArDo(e.Tag, e.Value)
			if err != nil {
				return ArDo{}, err
			}
			apdu = &v
		case TagNfcArDo:
			v, err := InterpretNfcArDo(e.Tag, e.Value)
			if err != nil {
				return ArDo{}, err
			}
			nfc = &v
		default:
			// unknown sub-TLV: skip leniently
		}
	}
	return NewArDo(apdu, nfc)
}

// Build appends the canonical TLV bytes for this AR-DO.
func (a ArDo) Build(out []byte) []byte {
	var inner []byte
	if a.hasApdu {
		inner = a.Apdu.Build(inner)
	}
	if a.hasNfc {
		inner = a.Nfc.Build(inner)
	}
	return tlv.Build(out, TagArDo, inner)
}
