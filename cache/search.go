package cache

import "ace/gpdo"

// FindAccessRule runs the GP conflict-resolution search (§4.4.3, Rules
// A-D) for the given caller AID (nil means the default application) and
// its ordered certificate-chain hashes (end-entity through root). It
// returns (ca, true) on a hit, or (ChannelAccess{}, false) when no rule
// applies at all.
func (c *Cache) FindAccessRule(aid []byte, certHashes [][]byte) (ChannelAccess, bool) {
	aidRef, err := gpdo.NormalizeAID(aid)
	if err != nil {
		return ChannelAccess{}, false
	}
	hashes := make([]gpdo.HashRef, 0, len(certHashes))
	for _, h := range certHashes {
		hr, err := gpdo.NewSpecificHash(h)
		if err != nil {
			continue
		}
		hashes = append(hashes, hr)
	}

	// Rule A: specific AID, specific hash, tried for each cert in the chain.
	for _, h := range hashes {
		if ca, ok := c.lookup(gpdo.NewRefDo(aidRef, h)); ok {
			return ca, true
		}
	}

	// Step 2: specific AID present under a different hash -> synthetic deny.
	if c.anyKeyWithAidAndSpecificHash(aidRef) {
		return denied("specific AID with different hash"), true
	}

	// Rule B: specific AID, any device application.
	if ca, ok := c.lookup(gpdo.NewRefDo(aidRef, gpdo.AllDeviceApplications())); ok {
		return ca, true
	}

	// Rule C: any SE application, specific hash.
	for _, h := range hashes {
		if ca, ok := c.lookup(gpdo.NewRefDo(gpdo.AllSEApplications(), h)); ok {
			return ca, true
		}
	}

	// Step 5: generic-AID rule present under a different hash -> synthetic deny.
	if c.anyAllSEWithSpecificHash() {
		return denied("generic-AID rule with different hash"), true
	}

	// Rule D: any SE application, any device application.
	if ca, ok := c.lookup(gpdo.NewRefDo(gpdo.AllSEApplications(), gpdo.AllDeviceApplications())); ok {
		return ca, true
	}

	return ChannelAccess{}, false
}
