// Package aram drives the ARA-M (Access Rule Applet Master) protocol
// described in §4.5/§6.3: opening a logical channel to the well-known ARA-M
// AID, issuing GET DATA [All]/[Specific]/[Next]/[RefreshTag], and
// reassembling multi-fragment responses.
package aram

import (
	"ace/apdu"
	"ace/cache"
	"ace/errs"
	"ace/gpdo"
	"ace/terminal"
)

// AID is the well-known ARA-M applet identifier.
var AID = []byte{0xA0, 0x00, 0x00, 0x01, 0x51, 0x41, 0x43, 0x4C, 0x00}

const (
	insGetData = 0xCA
	claAram    = 0x80
	shortLe    = 0xF0 // accommodates modems that reject Le=0x00

	p1p2All        = 0xFF40
	p1p2Specific   = 0xFF50
	p1p2Next       = 0xFF60
	p1p2RefreshTag = 0xDF20

	maxFragment = 0xF0

	swSuccess    = 0x9000
	swNoData     = 0x6A88
	swAppletGone = 0x6A82
)

// Driver exchanges ARA-M GET DATA commands against a terminal and folds the
// results into a cache.Cache.
type Driver struct {
	term terminal.Terminal
}

// New wraps a terminal for ARA-M access.
func New(term terminal.Terminal) *Driver {
	return &Driver{term: term}
}

// Open selects the ARA-M applet on a fresh logical channel. Per §4.5, the
// channel the driver opens for itself is implicitly Allowed/Allowed; the
// enforcer never routes ARA-M's own traffic through cache lookups.
func (d *Driver) Open() (channel byte, err error) {
	channel, _, err = d.term.OpenLogicalChannel(AID, 0x00)
	if err != nil {
		if errs.IsNoSuchElement(err) {
			return 0, errs.NoSuchElement("ARA-M applet not present")
		}
		return 0, err
	}
	return channel, nil
}

// Close releases the channel opened by Open.
func (d *Driver) Close(channel byte) error {
	return d.term.CloseLogicalChannel(channel)
}

// RefreshTag issues GET DATA [RefreshTag] and returns the 8-byte tag.
func (d *Driver) RefreshTag(channel byte) ([8]byte, error) {
	raw, err := d.getData(channel, p1p2RefreshTag, nil)
	if err != nil {
		return [8]byte{}, err
	}
	rt, err := gpdo.InterpretResponseRefreshTagDo(gpdo.TagResponseRefreshTagDo, trimOuterTlv(raw, gpdo.TagResponseRefreshTagDo))
	if err != nil {
		return [8]byte{}, err
	}
	return rt.Tag8, nil
}

// GetAll issues GET DATA [All] with [Next] chaining and returns every
// REF-AR-DO found.
func (d *Driver) GetAll(channel byte) ([]gpdo.RefArDo, error) {
	raw, err := d.getDataChained(channel, p1p2All, nil)
	if err != nil {
		return nil, err
	}
	resp, err := gpdo.InterpretResponseAllArDo(gpdo.TagResponseAllArDo, trimOuterTlv(raw, gpdo.TagResponseAllArDo))
	if err != nil {
		return nil, err
	}
	return resp.Rules, nil
}

// GetSpecific issues GET DATA [Specific] for aid with [Next] chaining and
// returns the single AR-DO, if any.
func (d *Driver) GetSpecific(channel byte, aid gpdo.AidRef) (*gpdo.ArDo, error) {
	data := aid.Build(nil)
	raw, err := d.getDataChained(channel, p1p2Specific, data)
	if err != nil {
		return nil, err
	}
	resp, err := gpdo.InterpretResponseArDo(gpdo.TagResponseArDo, trimOuterTlv(raw, gpdo.TagResponseArDo))
	if err != nil {
		return nil, err
	}
	return resp.Ar, nil
}

// LoadAll refreshes c from a fresh ARA-M [All] read: it compares the
// current refresh tag, and if different, clears the cache and bulk-merges
// every rule, per §4.5's initialisation recipe.
func (d *Driver) LoadAll(channel byte, c *cache.Cache) error {
	tag, err := d.RefreshTag(channel)
	if err != nil {
		return err
	}
	if c.IsRefreshTagEqual(tag) {
		return nil
	}

	rules, err := d.GetAll(channel)
	if err != nil {
		return err
	}
	c.SetRefreshTag(tag)
	c.ClearCache()
	for _, rule := range rules {
		c.PutWithMerge(rule.Ref, rule.Ar)
	}
	return nil
}

// getDataChained performs a GET DATA [All]/[Specific] exchange and follows
// up with [Next] until the declared outer TLV length is satisfied, per
// §4.5's chaining algorithm.
func (d *Driver) getDataChained(channel byte, p1p2 uint16, data []byte) ([]byte, error) {
	buf, err := d.getData(channel, p1p2, data)
	if err != nil {
		return nil, err
	}

	expected, valueIndex, err := declaredTotalLength(buf)
	if err != nil {
		return nil, err
	}
	for len(buf) < expected {
		remaining := expected - len(buf)
		le := remaining
		if le > maxFragment {
			le = maxFragment
		}
		frag, err := d.getDataLe(channel, p1p2Next, nil, byte(le))
		if err != nil {
			return nil, err
		}
		if len(frag) == 0 {
			return nil, errs.Parse("GET DATA [Next] returned no data before reaching declared length")
		}
		buf = append(buf, frag...)
	}
	_ = valueIndex
	return buf, nil
}

// declaredTotalLength decodes the outer tag+length of a (possibly
// fragmentary) TLV buffer and returns the total byte count the complete
// element will occupy once fully assembled.
func declaredTotalLength(buf []byte) (total int, valueIndex int, err error) {
	tagLen := 1
	if len(buf) > 0 && (buf[0] == 0xDF || buf[0] == 0xFF) {
		tagLen = 2
	}
	if len(buf) < tagLen+1 {
		return 0, 0, errs.Parse("GET DATA response too short to read outer length")
	}
	length, lenLen, err := peekLength(buf[tagLen:])
	if err != nil {
		return 0, 0, err
	}
	vi := tagLen + lenLen
	return vi + length, vi, nil
}

// peekLength decodes a BER length field without requiring the value bytes
// to be present, mirroring tlv.decodeLength's rules but tolerant of a
// truncated value region (the fragment case this driver exists to handle).
func peekLength(raw []byte) (int, int, error) {
	if len(raw) == 0 {
		return 0, 0, errs.Parse("length field missing")
	}
	b0 := raw[0]
	switch {
	case b0 == 0x80:
		return 0, 0, errs.Parse("indefinite length (0x80) is not supported")
	case b0 <= 0x7F:
		return int(b0), 1, nil
	case b0 == 0x81:
		if len(raw) < 2 {
			return 0, 0, errs.Parse("length truncated: need 1 byte after 0x81")
		}
		if raw[1] < 128 {
			return 0, 0, errs.Parse("non-minimal length encoding: 0x81 %02X", raw[1])
		}
		return int(raw[1]), 2, nil
	case b0 == 0x82:
		if len(raw) < 3 {
			return 0, 0, errs.Parse("length truncated: need 2 bytes after 0x82")
		}
		if l := int(raw[1])<<8 | int(raw[2]); l >= 256 {
			return l, 3, nil
		}
		return 0, 0, errs.Parse("non-minimal length encoding after 0x82")
	case b0 == 0x83:
		if len(raw) < 4 {
			return 0, 0, errs.Parse("length truncated: need 3 bytes after 0x83")
		}
		if l := int(raw[1])<<16 | int(raw[2])<<8 | int(raw[3]); l >= 65536 {
			return l, 4, nil
		}
		return 0, 0, errs.Parse("non-minimal length encoding after 0x83")
	default:
		return 0, 0, errs.Parse("unsupported length byte 0x%02X", b0)
	}
}

// trimOuterTlv re-decodes a fully assembled buffer and returns just the
// value region, once declaredTotalLength has confirmed it is complete.
func trimOuterTlv(buf []byte, wantTag uint16) []byte {
	tagLen := 1
	if len(buf) > 0 && (buf[0] == 0xDF || buf[0] == 0xFF) {
		tagLen = 2
	}
	if len(buf) < tagLen {
		return nil
	}
	_, lenLen, err := peekLength(buf[tagLen:])
	if err != nil {
		return nil
	}
	return buf[tagLen+lenLen:]
}

func (d *Driver) getData(channel byte, p1p2 uint16, data []byte) ([]byte, error) {
	return d.getDataLe(channel, p1p2, data, shortLe)
}

func (d *Driver) getDataLe(channel byte, p1p2 uint16, data []byte, le byte) ([]byte, error) {
	p1 := byte(p1p2 >> 8)
	p2 := byte(p1p2)
	cmd := make([]byte, 0, 5+len(data)+1)
	cla := apdu.SetChannelNumber(claAram, int(channel))
	cmd = append(cmd, cla, insGetData, p1, p2)
	if len(data) > 0 {
		cmd = append(cmd, byte(len(data)))
		cmd = append(cmd, data...)
	}
	cmd = append(cmd, le)

	resp, err := d.term.Transmit(channel, cmd)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, errs.Io("ARA-M GET DATA response too short", nil)
	}
	sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
	body := resp[:len(resp)-2]
	switch sw {
	case swSuccess:
		return body, nil
	case swNoData:
		return nil, errs.NoSuchElement("ARA-M: referenced data not found (SW=6A88)")
	case swAppletGone:
		return nil, errs.NoSuchElement("ARA-M applet not present (SW=6A82)")
	default:
		return nil, errs.Card(sw)
	}
}

