package cache

import (
	"ace/gpdo"
	"ace/tlv"
)

// keyToRefDo reparses a cache key (canonical REF-DO TLV bytes, as produced
// by RefDo.Key) back into its structured form, for the conflict-resolution
// search's "is there a cached key with this AID but a different hash"
// scans.
func keyToRefDo(key string) (gpdo.RefDo, error) {
	raw := []byte(key)
	elem, err := tlv.DecodeOne(raw, true)
	if err != nil {
		return gpdo.RefDo{}, err
	}
	return gpdo.InterpretRefDo(elem.Tag, elem.Value)
}
