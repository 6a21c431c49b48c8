package cache

import "ace/gpdo"

// Cache is the REF-DO -> ChannelAccess rule store plus its 8-byte refresh
// tag. Cache is not itself safe for concurrent use: callers must serialize
// all cache access under a single lock so refresh-tag comparison and rule
// reload form one atomic critical section.
type Cache struct {
	rules      map[string]ChannelAccess
	refreshTag [8]byte
	hasTag     bool
}

// New returns an empty cache with no refresh tag set.
func New() *Cache {
	return &Cache{rules: make(map[string]ChannelAccess)}
}

// Put maps an AR-DO to a ChannelAccess via the §4.4.1 translation and
// writes it under ref's canonical key, overwriting any existing entry.
func (c *Cache) Put(ref gpdo.RefDo, ar gpdo.ArDo) ChannelAccess {
	ca := fromArDo(ar)
	c.rules[ref.Key()] = ca
	return ca
}

// PutWithMerge writes ar under ref, merging with any existing entry for the
// same key per §4.4.2. If ref is absent, this behaves like Put.
func (c *Cache) PutWithMerge(ref gpdo.RefDo, ar gpdo.ArDo) ChannelAccess {
	incoming := fromArDo(ar)
	key := ref.Key()
	existing, ok := c.rules[key]
	if !ok {
		c.rules[key] = incoming
		return incoming
	}
	merged := Merge(existing, incoming)
	c.rules[key] = merged
	return merged
}

// PutAccessWithMerge merges an already-materialised ChannelAccess into the
// entry for ref, for callers (the ARF reader) that build ChannelAccess
// values directly rather than through an AR-DO.
func (c *Cache) PutAccessWithMerge(ref gpdo.RefDo, ca ChannelAccess) ChannelAccess {
	key := ref.Key()
	existing, ok := c.rules[key]
	if !ok {
		c.rules[key] = ca
		return ca
	}
	merged := Merge(existing, ca)
	c.rules[key] = merged
	return merged
}

// lookup returns the stored ChannelAccess for ref, if any.
func (c *Cache) lookup(ref gpdo.RefDo) (ChannelAccess, bool) {
	ca, ok := c.rules[ref.Key()]
	return ca, ok
}

// anyKeyWithAidAndSpecificHash reports whether any cached key has the given
// AID-REF with a specific (non-wildcard) hash. Used by the
// conflict-resolution search's "specific AID, different hash" step, which
// runs only after Rule A has already failed to match any of the caller's
// hashes against this AID — so any specific-hash entry found here is by
// construction a hash the caller doesn't present.
func (c *Cache) anyKeyWithAidAndSpecificHash(aid gpdo.AidRef) bool {
	for key := range c.rules {
		ref, err := keyToRefDo(key)
		if err != nil {
			continue
		}
		if ref.Aid.Equal(aid) && !ref.Hash.IsAll() {
			return true
		}
	}
	return false
}

// anyAllSEWithSpecificHash reports whether any cached key has AID-REF ==
// AllSEApplications with a specific (non-wildcard) hash. Used by the
// search's "generic-AID rule with different hash" step, which likewise
// only runs after Rule C has failed.
func (c *Cache) anyAllSEWithSpecificHash() bool {
	for key := range c.rules {
		ref, err := keyToRefDo(key)
		if err != nil {
			continue
		}
		if ref.Aid.IsAllSE() && !ref.Hash.IsAll() {
			return true
		}
	}
	return false
}

// RefreshTag returns the currently stored 8-byte refresh tag and whether one
// has been set.
func (c *Cache) RefreshTag() ([8]byte, bool) { return c.refreshTag, c.hasTag }

// SetRefreshTag stores a new 8-byte refresh tag.
func (c *Cache) SetRefreshTag(tag [8]byte) {
	c.refreshTag = tag
	c.hasTag = true
}

// IsRefreshTagEqual reports byte-identical equality with the stored tag.
func (c *Cache) IsRefreshTagEqual(tag [8]byte) bool {
	return c.hasTag && c.refreshTag == tag
}

// ClearCache empties the rule map, leaving the refresh tag untouched.
func (c *Cache) ClearCache() {
	c.rules = make(map[string]ChannelAccess)
}

// Reset empties the cache and forgets the refresh tag entirely.
func (c *Cache) Reset() {
	c.rules = make(map[string]ChannelAccess)
	c.refreshTag = [8]byte{}
	c.hasTag = false
}

// Len reports the number of cached rules, for diagnostics/CLI display.
func (c *Cache) Len() int { return len(c.rules) }

// Entry is one cached rule, exposed for listing/inspection (cmd's "rules
// list" output).
type Entry struct {
	Ref    gpdo.RefDo
	Access ChannelAccess
}

// Entries returns every cached rule, in unspecified order. Malformed keys
// (which should not occur since Key is the only writer) are skipped.
func (c *Cache) Entries() []Entry {
	out := make([]Entry, 0, len(c.rules))
	for key, ca := range c.rules {
		ref, err := keyToRefDo(key)
		if err != nil {
			continue
		}
		out = append(out, Entry{Ref: ref, Access: ca})
	}
	return out
}
