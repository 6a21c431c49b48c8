// Package tlv implements the BER-TLV encoding GlobalPlatform access-control
// data objects use, and the DER subset PKCS#15 access-rule files use,
// following GP's one/two-byte tag rule and its strict minimum-encoding
// length rule.
package tlv

import "ace/errs"

// BerTlv is a single decoded BER-TLV element: a one- or two-byte tag, its
// declared length, and its value bytes.
type BerTlv struct {
	Tag      uint16 // one-byte tags fit in the low byte
	TagLen   int    // 1 or 2
	Length   int
	Value    []byte
	consumed int // total bytes consumed from the input, including value
}

// Consumed returns how many input bytes this element occupied.
func (t BerTlv) Consumed() int { return t.consumed }

// isTwoByteTagLead reports whether b is a lead byte of a two-byte GP tag.
func isTwoByteTagLead(b byte) bool { return b == 0xDF || b == 0xFF }

// DecodeOne parses a single BER-TLV element starting at the beginning of
// raw. If containsAllData is true, it also verifies the declared length
// does not exceed the available input.
func DecodeOne(raw []byte, containsAllData bool) (BerTlv, error) {
	if len(raw) < 2 {
		return BerTlv{}, errs.Parse("TLV truncated: need at least 2 bytes, got %d", len(raw))
	}

	var tag uint16
	var tagLen int
	if isTwoByteTagLead(raw[0]) {
		if len(raw) < 2 {
			return BerTlv{}, errs.Parse("TLV truncated: two-byte tag needs a second byte")
		}
		tag = uint16(raw[0])<<8 | uint16(raw[1])
		tagLen = 2
	} else {
		tag = uint16(raw[0])
		tagLen = 1
	}

	if len(raw) < tagLen+1 {
		return BerTlv{}, errs.Parse("TLV truncated: no length byte")
	}
	lengthByte := raw[tagLen]
	length, lenLen, err := decodeLength(raw[tagLen:])
	if err != nil {
		return BerTlv{}, err
	}
	_ = lengthByte

	valueIndex := tagLen + lenLen
	total := valueIndex + length
	if containsAllData && total > len(raw) {
		return BerTlv{}, errs.Parse("TLV declares length %d but only %d bytes available", length, len(raw)-valueIndex)
	}
	end := total
	if end > len(raw) {
		end = len(raw)
	}
	value := raw[valueIndex:end]

	return BerTlv{Tag: tag, TagLen: tagLen, Length: length, Value: value, consumed: valueIndex + len(value)}, nil
}

// decodeLength decodes a BER length field at the start of raw (raw[0] is
// the first length byte) and returns (length, bytes consumed for the
// length field, error). Rejects indefinite length (0x80) and any encoding
// that is not the minimal form for its magnitude.
func decodeLength(raw []byte) (int, int, error) {
	if len(raw) == 0 {
		return 0, 0, errs.Parse("length field missing")
	}
	b0 := raw[0]
	switch {
	case b0 == 0x80:
		return 0, 0, errs.Parse("indefinite length (0x80) is not supported")
	case b0 <= 0x7F:
		return int(b0), 1, nil
	case b0 == 0x81:
		if len(raw) < 2 {
			return 0, 0, errs.Parse("length truncated: need 1 byte after 0x81")
		}
		l := int(raw[1])
		if l < 128 {
			return 0, 0, errs.Parse("non-minimal length encoding: 0x81 %02X", raw[1])
		}
		return l, 2, nil
	case b0 == 0x82:
		if len(raw) < 3 {
			return 0, 0, errs.Parse("length truncated: need 2 bytes after 0x82")
		}
		l := int(raw[1])<<8 | int(raw[2])
		if l < 256 {
			return 0, 0, errs.Parse("non-minimal length encoding: 0x82 with value %d", l)
		}
		return l, 3, nil
	case b0 == 0x83:
		if len(raw) < 4 {
			return 0, 0, errs.Parse("length truncated: need 3 bytes after 0x83")
		}
		l := int(raw[1])<<16 | int(raw[2])<<8 | int(raw[3])
		if l < 65536 {
			return 0, 0, errs.Parse("non-minimal length encoding: 0x83 with value %d", l)
		}
		return l, 4, nil
	default:
		return 0, 0, errs.Parse("unsupported length byte 0x%02X", b0)
	}
}

// EncodeLength builds the BER-TLV length field for n bytes.
func EncodeLength(n int) []byte {
	switch {
	case n <= 0x7F:
		return []byte{byte(n)}
	case n <= 0xFF:
		return []byte{0x81, byte(n)}
	case n <= 0xFFFF:
		return []byte{0x82, byte(n >> 8), byte(n)}
	default:
		return []byte{0x83, byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

// Build appends the canonical TLV bytes for (tag, value) to out. tag may be
// one or two bytes depending on its magnitude, matching GP's DF/FF-prefixed
// two-byte tag convention.
func Build(out []byte, tag uint16, value []byte) []byte {
	if tag > 0xFF {
		out = append(out, byte(tag>>8), byte(tag))
	} else {
		out = append(out, byte(tag))
	}
	out = append(out, EncodeLength(len(value))...)
	return append(out, value...)
}

// DecodeAll walks raw decoding consecutive top-level BER-TLV elements until
// the input is exhausted. Used for container values like
// Response-ALL-AR-DO that concatenate REF-AR-DOs.
func DecodeAll(raw []byte) ([]BerTlv, error) {
	var out []BerTlv
	for len(raw) > 0 {
		elem, err := DecodeOne(raw, true)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
		raw = raw[elem.Consumed():]
	}
	return out, nil
}
