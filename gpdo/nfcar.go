package gpdo

import (
	"ace/errs"
	"ace/tlv"
)

const TagNfcArDo = 0xD1

// NfcArDo is the NFC HCI transaction-event access rule: a single-byte
// ALWAYS/NEVER policy.
type NfcArDo struct {
	Policy Policy
}

// NewNfcArDo builds an NFC-AR-DO.
func NewNfcArDo(p Policy) NfcArDo { return NfcArDo{Policy: p} }

// InterpretNfcArDo parses an NFC-AR-DO value, which must be exactly 1 byte.
func InterpretNfcArDo(tag uint16, value []byte) (NfcArDo, error) {
	if tag != TagNfcArDo {
		return NfcArDo{}, errs.Parse("unexpected tag 0x%02X for NFC-AR-DO", tag)
	}
	if len(value) != 1 {
		return NfcArDo{}, errs.Parse("NFC-AR-DO length must be exactly 1, got %d", len(value))
	}
	return NewNfcArDo(Policy(value[0])), nil
}

// Build appends the canonical TLV bytes for this NFC-AR-DO.
func (n NfcArDo) Build(out []byte) []byte {
	return tlv.Build(out, TagNfcArDo, []byte{byte(n.Policy)})
}

// Equal compares two NFC-AR-DOs by policy.
func (n NfcArDo) Equal(o NfcArDo) bool { return n.Policy == o.Policy }
