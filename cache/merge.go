package cache

import "ace/gpdo"

// mergeVerdict applies the "DENY wins over ALLOW wins over UNDEFINED"
// lattice, with Undefined as identity and Denied absorbing (§4.4.2).
func mergeVerdict(a, b Verdict) Verdict {
	if a == Denied || b == Denied {
		return Denied
	}
	if a == Undefined {
		return b
	}
	if b == Undefined {
		return a
	}
	return Allowed // Allowed (+) Allowed
}

// Merge combines two ChannelAccess values for the same REF-DO key per
// §4.4.2. On the ApduAccess and NfcAccess axes it is commutative and
// idempotent; Access is recomputed from the merged APDU verdict, the denial
// Reason is taken from a before b, and filter lists are concatenated, so
// those fields are not.
func Merge(a, b ChannelAccess) ChannelAccess {
	apdu := mergeVerdict(a.ApduAccess, b.ApduAccess)
	nfc := mergeVerdict(a.NfcAccess, b.NfcAccess)

	out := ChannelAccess{
		ApduAccess: apdu,
		NfcAccess:  nfc,
	}

	switch apdu {
	case Denied:
		out.Access = Denied
		out.Reason = firstDeniedReason(a, b)
	case Allowed:
		out.Access = Allowed
	default:
		out.Access = Undefined
	}

	if apdu == Allowed && (a.UseFilter || b.UseFilter) {
		out.UseFilter = true
		out.Filters = concatFilters(a, b)
	}

	return out
}

func firstDeniedReason(a, b ChannelAccess) string {
	if a.ApduAccess == Denied && a.Reason != "" {
		return a.Reason
	}
	if b.ApduAccess == Denied && b.Reason != "" {
		return b.Reason
	}
	return "APDU access denied"
}

func concatFilters(a, b ChannelAccess) []gpdo.Filter {
	out := make([]gpdo.Filter, 0, len(a.Filters)+len(b.Filters))
	if a.UseFilter {
		out = append(out, a.Filters...)
	}
	if b.UseFilter {
		out = append(out, b.Filters...)
	}
	return out
}
