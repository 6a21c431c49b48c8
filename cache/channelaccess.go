// Package cache implements the Access Rule Cache (REF-DO -> ChannelAccess)
// with its AR-DO translation, merge lattice, refresh-tag invalidation, and
// the GP conflict-resolution search (Rules A-D).
package cache

import "ace/gpdo"

// Verdict is the tri-state lattice value used for both the APDU and NFC
// access axes.
type Verdict int

const (
	Undefined Verdict = iota
	Allowed
	Denied
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "Allowed"
	case Denied:
		return "Denied"
	default:
		return "Undefined"
	}
}

// ChannelAccess is the materialised verdict attached to a channel.
type ChannelAccess struct {
	Access     Verdict
	Reason     string
	ApduAccess Verdict
	NfcAccess  Verdict
	UseFilter  bool
	Filters    []gpdo.Filter

	PackageName string
	CallingPID  int
}

// Clone returns a deep copy, so a ChannelAccess handed to a client channel
// never shares state with the cache.
func (c ChannelAccess) Clone() ChannelAccess {
	cp := c
	if c.Filters != nil {
		cp.Filters = append([]gpdo.Filter{}, c.Filters...)
	}
	return cp
}

// denied builds a synthetic denial verdict for both axes, used by the
// conflict-resolution search's two "different hash" steps.
func denied(reason string) ChannelAccess {
	return ChannelAccess{
		Access:     Denied,
		Reason:     reason,
		ApduAccess: Denied,
		NfcAccess:  Denied,
	}
}
