package gpdo

import (
	"ace/errs"
	"ace/tlv"
)

const (
	TagResponseAllArDo      = 0xFF40
	TagResponseArDo         = 0xFF50
	TagResponseRefreshTagDo = 0xDF20
)

// ResponseAllArDo is the ARA-M reply to GET DATA [All]: zero or more
// REF-AR-DOs concatenated. An empty value means "no rules".
type ResponseAllArDo struct {
	Rules []RefArDo
}

func InterpretResponseAllArDo(tag uint16, value []byte) (ResponseAllArDo, error) {
	if tag != TagResponseAllArDo {
		return ResponseAllArDo{}, errs.Parse("unexpected tag 0x%04X for Response-ALL-AR-DO", tag)
	}
	elems, err := tlv.DecodeAll(value)
	if err != nil {
		return ResponseAllArDo{}, err
	}
	rules := make([]RefArDo, 0, len(elems))
	for _, e := range elems {
		if e.Tag != TagRefArDo {
			continue // unknown sub-TLV: skip leniently
		}
		r, err := InterpretRefArDo(e.Tag, e.Value)
		if err != nil {
			return ResponseAllArDo{}, err
		}
		rules = append(rules, r)
	}
	return ResponseAllArDo{Rules: rules}, nil
}

func (r ResponseAllArDo) Build(out []byte) []byte {
	var inner []byte
	for _, rule := range r.Rules {
		inner = rule.Build(inner)
	}
	return tlv.Build(out, TagResponseAllArDo, inner)
}

// ResponseArDo is the ARA-M reply to GET DATA [Specific]: zero or one
// AR-DO.
type ResponseArDo struct {
	Ar *ArDo
}

func InterpretResponseArDo(tag uint16, value []byte) (ResponseArDo, error) {
	if tag != TagResponseArDo {
		return ResponseArDo{}, errs.Parse("unexpected tag 0x%04X for Response-AR-DO", tag)
	}
	if len(value) == 0 {
		return ResponseArDo{}, nil
	}
	elem, err := tlv.DecodeOne(value, true)
	if err != nil {
		return ResponseArDo{}, err
	}
	if elem.Tag != TagArDo {
		return ResponseArDo{}, nil
	}
	ar, err := InterpretArDo(elem.Tag, elem.Value)
	if err != nil {
		return ResponseArDo{}, err
	}
	return ResponseArDo{Ar: &ar}, nil
}

func (r ResponseArDo) Build(out []byte) []byte {
	var inner []byte
	if r.Ar != nil {
		inner = r.Ar.Build(inner)
	}
	return tlv.Build(out, TagResponseArDo, inner)
}

// ResponseRefreshTagDo carries the 8-byte refresh tag ARA-M bumps whenever
// its rules change.
type ResponseRefreshTagDo struct {
	Tag8 [8]byte
}

func InterpretResponseRefreshTagDo(tag uint16, value []byte) (ResponseRefreshTagDo, error) {
	if tag != TagResponseRefreshTagDo {
		return ResponseRefreshTagDo{}, errs.Parse("unexpected tag 0x%04X for Response-RefreshTag-DO", tag)
	}
	if len(value) != 8 {
		return ResponseRefreshTagDo{}, errs.Parse("Response-RefreshTag-DO length must be 8, got %d", len(value))
	}
	var r ResponseRefreshTagDo
	copy(r.Tag8[:], value)
	return r, nil
}

func (r ResponseRefreshTagDo) Build(out []byte) []byte {
	return tlv.Build(out, TagResponseRefreshTagDo, r.Tag8[:])
}
