package arf

import (
	"ace/cache"
	"ace/gpdo"
)

// Load runs a full PKCS#15 walk and, if the discovered refresh tag differs
// from c's, clears and repopulates c with the rules found. Every
// (AID, Hash) pair in an ACCF is treated as Allowed on both axes per §4.6:
// "populate the cache with rules whose APDU policy is Allowed (ARF
// predates fine-grained filters; NFC inherits)".
func (fa *FileAccess) Load(c *cache.Cache) error {
	result, err := fa.Walk()
	if err != nil {
		return err
	}
	if c.IsRefreshTagEqual(result.RefreshTag) {
		return nil
	}

	c.ClearCache()
	for _, rule := range result.Rules {
		aid, err := aidFromBytes(rule.AIDBytes)
		if err != nil {
			continue // lenient: skip a malformed ACRF entry rather than fail the whole load
		}
		for _, h := range rule.Hashes {
			hash, err := gpdo.NewSpecificHash(h)
			if err != nil {
				continue
			}
			ref := gpdo.NewRefDo(aid, hash)
			c.PutAccessWithMerge(ref, cache.ChannelAccess{
				Access:     cache.Allowed,
				ApduAccess: cache.Allowed,
				NfcAccess:  cache.Allowed,
			})
		}
	}
	c.SetRefreshTag(result.RefreshTag)
	return nil
}

func aidFromBytes(b []byte) (gpdo.AidRef, error) {
	if len(b) == 0 {
		return gpdo.AllSEApplications(), nil
	}
	return gpdo.NewSpecificAID(b)
}
