package arf

import (
	"ace/errs"
	"ace/tlv"
)

// Tags used when walking EF(DIR)/ODF/DODF. These are ordinary ISO
// 7816-4/PKCS#15 BER-TLV tags, decodable with the same tlv.DecodeOne the GP
// data-object family uses.
const (
	tagApplicationTemplate = 0x61 // EF(DIR) entry
	tagAID                 = 0x4F
	tagPath                = 0x51
	tagOID                 = 0x06

	tagODFDataObjects = 0xA7 // PKCS#15 ODF "dataObjects" class (context [7])
	tagDODFEntry      = 0xA0 // one DODF "oidDO"-shaped record

	tagACMFRefreshTag = 0xDF20
	tagACRFEntry      = 0xA1
	tagHashRefDo      = 0xC1 // same wire tag as gpdo's Hash-REF-DO
)

// pkcs15OID identifies the PKCS#15 application within EF(DIR).
const pkcs15OID = "2.23.143.1.1"

// acmfOID identifies the Access-Control-Main data object within a DODF.
const acmfOID = "1.2.840.114283.200.1.1"

// pathToFIDs splits a PATH-DO's value into its constituent 2-byte file
// identifiers.
func pathToFIDs(value []byte) ([]uint16, error) {
	if len(value)%2 != 0 || len(value) == 0 {
		return nil, errs.Parse("PATH-DO length %d is not a positive multiple of 2", len(value))
	}
	out := make([]uint16, len(value)/2)
	for i := range out {
		out[i] = uint16(value[2*i])<<8 | uint16(value[2*i+1])
	}
	return out, nil
}

// findSubTag scans a decoded BER-TLV container for the first element with
// the given tag.
func findSubTag(elems []tlv.BerTlv, tag uint16) (tlv.BerTlv, bool) {
	for _, e := range elems {
		if e.Tag == tag {
			return e, true
		}
	}
	return tlv.BerTlv{}, false
}

// readByPath selects every FID in path but the last as a directory hop,
// then reads the last as a transparent EF.
func (fa *FileAccess) readByPath(path []uint16) ([]byte, error) {
	if len(path) == 0 {
		return nil, errs.Parse("empty file path")
	}
	if err := fa.SelectPath(path[:len(path)-1]); err != nil {
		return nil, err
	}
	return fa.ReadFile(path[len(path)-1])
}

// discoverPKCS15Path walks EF(DIR) looking for the APPLICATION-TEMPLATE
// whose embedded OID is the PKCS#15 OID, returning the PATH to the PKCS#15
// DF. If EF(DIR) doesn't carry a usable entry, it falls back to selecting
// the well-known PKCS#15 AID directly.
func (fa *FileAccess) discoverPKCS15Path() (path []uint16, viaAID bool, err error) {
	raw, err := fa.ReadFile(fidDIR)
	if err == nil {
		entries, derr := tlv.DecodeAll(raw)
		if derr == nil {
			for _, entry := range entries {
				if entry.Tag != tagApplicationTemplate {
					continue
				}
				subs, serr := tlv.DecodeAll(entry.Value)
				if serr != nil {
					continue
				}
				oidElem, ok := findSubTag(subs, tagOID)
				if !ok {
					continue
				}
				oid, oerr := tlv.DecodeOID(oidElem.Value)
				if oerr != nil || oid != pkcs15OID {
					continue
				}
				pathElem, ok := findSubTag(subs, tagPath)
				if !ok {
					continue
				}
				fids, perr := pathToFIDs(pathElem.Value)
				if perr != nil {
					continue
				}
				return fids, false, nil
			}
		}
	}
	if serr := fa.SelectAID(PKCS15Aid); serr != nil {
		return nil, false, serr
	}
	return nil, true, nil
}

// RuleRecord is one ACRF entry's AID plus the ACCF path that authorises it,
// with the ACCF's Hash-REF-DOs already resolved.
type RuleRecord struct {
	AIDBytes []byte
	Hashes   [][]byte
}

// LoadResult is the outcome of a full PKCS#15 walk: the refresh tag found
// on the ACMF and the rules discovered under its ACRF/ACCF chain.
type LoadResult struct {
	RefreshTag [8]byte
	Rules      []RuleRecord
}

// Walk performs the full §4.6 traversal: EF(DIR) -> ODF -> DODF -> ACMF ->
// ACRF -> ACCF, returning every rule found. It does not touch the cache
// directly so callers can compare the refresh tag before committing a
// reload, matching the ARA-M driver's LoadAll contract.
func (fa *FileAccess) Walk() (LoadResult, error) {
	path, viaAID, err := fa.discoverPKCS15Path()
	if err != nil {
		return LoadResult{}, err
	}
	if !viaAID {
		if err := fa.SelectPath(path); err != nil {
			return LoadResult{}, err
		}
	}

	odfRaw, err := fa.ReadFile(fidODF)
	if err != nil {
		return LoadResult{}, err
	}
	odfEntries, err := tlv.DecodeAll(odfRaw)
	if err != nil {
		return LoadResult{}, err
	}
	dodfEntry, ok := findSubTag(odfEntries, tagODFDataObjects)
	if !ok {
		return LoadResult{}, errs.NoSuchElement("ODF has no DataObjects (DODF) entry")
	}
	dodfSubs, err := tlv.DecodeAll(dodfEntry.Value)
	if err != nil {
		return LoadResult{}, err
	}
	dodfPathElem, ok := findSubTag(dodfSubs, tagPath)
	if !ok {
		return LoadResult{}, errs.NoSuchElement("ODF DataObjects entry has no PATH")
	}
	dodfPath, err := pathToFIDs(dodfPathElem.Value)
	if err != nil {
		return LoadResult{}, err
	}

	dodfRaw, err := fa.readByPath(dodfPath)
	if err != nil {
		return LoadResult{}, err
	}
	dodfEntries, err := tlv.DecodeAll(dodfRaw)
	if err != nil {
		return LoadResult{}, err
	}

	var acmfPath []uint16
	for _, entry := range dodfEntries {
		if entry.Tag != tagDODFEntry {
			continue
		}
		subs, serr := tlv.DecodeAll(entry.Value)
		if serr != nil {
			continue
		}
		oidElem, ok := findSubTag(subs, tagOID)
		if !ok {
			continue
		}
		oid, oerr := tlv.DecodeOID(oidElem.Value)
		if oerr != nil || oid != acmfOID {
			continue
		}
		pathElem, ok := findSubTag(subs, tagPath)
		if !ok {
			continue
		}
		fids, perr := pathToFIDs(pathElem.Value)
		if perr != nil {
			continue
		}
		acmfPath = fids
		break
	}
	if acmfPath == nil {
		return LoadResult{}, errs.NoSuchElement("DODF has no Access-Control-Main entry")
	}

	acmfRaw, err := fa.readByPath(acmfPath)
	if err != nil {
		return LoadResult{}, err
	}
	acmfEntries, err := tlv.DecodeAll(acmfRaw)
	if err != nil {
		return LoadResult{}, err
	}
	tagElem, ok := findSubTag(acmfEntries, tagACMFRefreshTag)
	if !ok || len(tagElem.Value) != 8 {
		return LoadResult{}, errs.Parse("ACMF missing valid 8-byte refresh tag")
	}
	var refreshTag [8]byte
	copy(refreshTag[:], tagElem.Value)

	acrfPathElem, ok := findSubTag(acmfEntries, tagPath)
	if !ok {
		return LoadResult{}, errs.NoSuchElement("ACMF has no path to ACRF")
	}
	acrfPath, err := pathToFIDs(acrfPathElem.Value)
	if err != nil {
		return LoadResult{}, err
	}

	acrfRaw, err := fa.readByPath(acrfPath)
	if err != nil {
		return LoadResult{}, err
	}
	acrfEntries, err := tlv.DecodeAll(acrfRaw)
	if err != nil {
		return LoadResult{}, err
	}

	var rules []RuleRecord
	for _, entry := range acrfEntries {
		if entry.Tag != tagACRFEntry {
			continue
		}
		subs, serr := tlv.DecodeAll(entry.Value)
		if serr != nil {
			return LoadResult{}, serr
		}
		aidElem, ok := findSubTag(subs, tagAID)
		if !ok {
			return LoadResult{}, errs.Parse("ACRF entry missing AID-REF-DO")
		}
		accfPathElem, ok := findSubTag(subs, tagPath)
		if !ok {
			return LoadResult{}, errs.Parse("ACRF entry missing path to ACCF")
		}
		accfPath, err := pathToFIDs(accfPathElem.Value)
		if err != nil {
			return LoadResult{}, err
		}

		accfRaw, err := fa.readByPath(accfPath)
		if err != nil {
			return LoadResult{}, err
		}
		accfEntries, err := tlv.DecodeAll(accfRaw)
		if err != nil {
			return LoadResult{}, err
		}
		var hashes [][]byte
		for _, h := range accfEntries {
			if h.Tag != tagHashRefDo {
				continue // unknown sub-TLV: skip leniently, matching §9's forward-compatibility rule
			}
			hashes = append(hashes, append([]byte{}, h.Value...))
		}
		rules = append(rules, RuleRecord{AIDBytes: append([]byte{}, aidElem.Value...), Hashes: hashes})
	}

	return LoadResult{RefreshTag: refreshTag, Rules: rules}, nil
}
