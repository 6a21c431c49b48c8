package gpdo

import (
	"bytes"

	"ace/errs"
	"ace/tlv"
)

const TagApduArDo = 0xD0

// Policy is the flag-form APDU-AR-DO / NFC-AR-DO value.
type Policy byte

const (
	PolicyNever  Policy = 0x00
	PolicyAlways Policy = 0x01
)

// Filter is one (header, mask) pair from a filter-form APDU-AR-DO. A
// command matches when (command[0:4] & Mask) == Header.
type Filter struct {
	Header [4]byte
	Mask   [4]byte
}

// Matches reports whether the first 4 bytes of command satisfy this filter.
func (f Filter) Matches(command []byte) bool {
	if len(command) < 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if command[i]&f.Mask[i] != f.Header[i] {
			return false
		}
	}
	return true
}

// ApduArDo is the APDU access rule: either a single-byte policy, or a list
// of header/mask filters.
type ApduArDo struct {
	isFlag  bool
	flag    Policy
	filters []Filter
}

// NewApduPolicy builds a flag-form APDU-AR-DO.
func NewApduPolicy(p Policy) ApduArDo { return ApduArDo{isFlag: true, flag: p} }

// NewApduFilters builds a filter-form APDU-AR-DO.
func NewApduFilters(filters []Filter) ApduArDo {
	return ApduArDo{isFlag: false, filters: append([]Filter{}, filters...)}
}

func (a ApduArDo) IsFlag() bool      { return a.isFlag }
func (a ApduArDo) Flag() Policy      { return a.flag }
func (a ApduArDo) Filters() []Filter { return a.filters }

// InterpretApduArDo parses an APDU-AR-DO value: length 1 means a flag,
// length a positive multiple of 8 means filters; any other length,
// including 0, is a parse error per §9's correction of the source's
// implicit allowance of length 0.
func InterpretApduArDo(tag uint16, value []byte) (ApduArDo, error) {
	if tag != TagApduArDo {
		return ApduArDo{}, errs.Parse("unexpected tag 0x%02X for APDU-AR-DO", tag)
	}
	switch {
	case len(value) == 1:
		return NewApduPolicy(Policy(value[0])), nil
	case len(value) > 0 && len(value)%8 == 0:
		n := len(value) / 8
		filters := make([]Filter, n)
		for i := 0; i < n; i++ {
			off := i * 8
			copy(filters[i].Header[:], value[off:off+4])
			copy(filters[i].Mask[:], value[off+4:off+8])
		}
		return NewApduFilters(filters), nil
	default:
		return ApduArDo{}, errs.Parse("APDU-AR-DO length %d must be 1 or a positive multiple of 8", len(value))
	}
}

// Build appends the canonical TLV bytes for this APDU-AR-DO.
func (a ApduArDo) Build(out []byte) []byte {
	if a.isFlag {
		return tlv.Build(out, TagApduArDo, []byte{byte(a.flag)})
	}
	value := make([]byte, 0, len(a.filters)*8)
	for _, f := range a.filters {
		value = append(value, f.Header[:]...)
		value = append(value, f.Mask[:]...)
	}
	return tlv.Build(out, TagApduArDo, value)
}

// Equal compares two APDU-AR-DOs by canonical TLV bytes.
func (a ApduArDo) Equal(o ApduArDo) bool { return bytes.Equal(a.Build(nil), o.Build(nil)) }
