package gpdo

import "ace/tlv"

// Any is whatever ResponseDoFactory dispatches to: one of the typed
// Response-* containers, or the raw element when the tag is unrecognised.
type Any struct {
	ResponseAllArDo *ResponseAllArDo
	ResponseArDo    *ResponseArDo
	RefreshTagDo    *ResponseRefreshTagDo
	Raw             *tlv.BerTlv
}

// ResponseDoFactory decodes raw as a single top-level TLV element and
// dispatches on its tag to the matching typed Response-* variant.
// Unrecognised tags come back as Raw.
func ResponseDoFactory(raw []byte) (Any, error) {
	elem, err := tlv.DecodeOne(raw, true)
	if err != nil {
		return Any{}, err
	}
	switch elem.Tag {
	case TagResponseAllArDo:
		v, err := InterpretResponseAllArDo(elem.Tag, elem.Value)
		if err != nil {
			return Any{}, err
		}
		return Any{ResponseAllArDo: &v}, nil
	case TagResponseArDo:
		v, err := InterpretResponseArDo(elem.Tag, elem.Value)
		if err != nil {
			return Any{}, err
		}
		return Any{ResponseArDo: &v}, nil
	case TagResponseRefreshTagDo:
		v, err := InterpretResponseRefreshTagDo(elem.Tag, elem.Value)
		if err != nil {
			return Any{}, err
		}
		return Any{RefreshTagDo: &v}, nil
	default:
		return Any{Raw: &elem}, nil
	}
}
