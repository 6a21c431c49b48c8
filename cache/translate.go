package cache

import "ace/gpdo"

// fromArDo translates an AR-DO into a ChannelAccess per §4.4.1.
func fromArDo(ar gpdo.ArDo) ChannelAccess {
	var ca ChannelAccess

	if !ar.HasApdu() {
		ca.Access = Denied
		ca.Reason = "No APDU access rule"
		ca.ApduAccess = Undefined
	} else {
		ca.Access = Allowed
		ca.UseFilter = false
		apdu := ar.Apdu
		if apdu.IsFlag() {
			if apdu.Flag() == gpdo.PolicyAlways {
				ca.ApduAccess = Allowed
			} else {
				ca.ApduAccess = Denied
			}
		} else {
			ca.ApduAccess = Allowed
			ca.UseFilter = true
			ca.Filters = append([]gpdo.Filter{}, apdu.Filters()...)
		}
	}

	if ar.HasNfc() {
		if ar.Nfc.Policy == gpdo.PolicyAlways {
			ca.NfcAccess = Allowed
		} else {
			ca.NfcAccess = Denied
		}
	} else {
		// NFC inherits the APDU verdict per the GP default (§4.4.1).
		ca.NfcAccess = ca.ApduAccess
	}

	return ca
}
