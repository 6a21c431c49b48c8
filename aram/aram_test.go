package aram

import (
	"bytes"
	"testing"

	"ace/errs"
	"ace/gpdo"
)

// fakeTerminal is a scripted terminal.Terminal double: each call to
// Transmit pops the next queued response.
type fakeTerminal struct {
	responses [][]byte
	errsQueue []error
	sent      [][]byte
}

func (f *fakeTerminal) OpenLogicalChannel(aid []byte, p2 byte) (byte, []byte, error) {
	return 1, nil, nil
}
func (f *fakeTerminal) CloseLogicalChannel(channel byte) error { return nil }

func (f *fakeTerminal) Transmit(channel byte, apdu []byte) ([]byte, error) {
	f.sent = append(f.sent, apdu)
	if len(f.responses) == 0 {
		return nil, errs.Io("no scripted response", nil)
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	var err error
	if len(f.errsQueue) > 0 {
		err = f.errsQueue[0]
		f.errsQueue = f.errsQueue[1:]
	}
	return resp, err
}

func (f *fakeTerminal) SimIOExchange(fileID uint16, path string, cmd []byte) ([]byte, error) {
	return nil, errs.MissingResource("not a UICC terminal")
}
func (f *fakeTerminal) GetATR() ([]byte, bool)  { return nil, false }
func (f *fakeTerminal) IsCardPresent() bool     { return true }
func (f *fakeTerminal) TerminalName() string    { return "fake" }

func sw(b []byte, w uint16) []byte {
	return append(append([]byte{}, b...), byte(w>>8), byte(w))
}

func refArDoBytes(t *testing.T) []byte {
	t.Helper()
	aid, err := gpdo.NewSpecificAID([]byte{0xA0, 0x00, 0x00, 0x06, 0x11, 0x11, 0x22, 0x33})
	if err != nil {
		t.Fatalf("NewSpecificAID: %v", err)
	}
	hash, err := gpdo.NewSpecificHash(bytes.Repeat([]byte{0xAB}, 20))
	if err != nil {
		t.Fatalf("NewSpecificHash: %v", err)
	}
	apduRule := gpdo.NewApduPolicy(gpdo.PolicyAlways)
	nfcRule := gpdo.NewNfcArDo(gpdo.PolicyAlways)
	ar, err := gpdo.NewArDo(&apduRule, &nfcRule)
	if err != nil {
		t.Fatalf("NewArDo: %v", err)
	}
	rule := gpdo.NewRefArDo(gpdo.NewRefDo(aid, hash), ar)
	return rule.Build(nil)
}

func TestDriver_GetAll_SingleFragment(t *testing.T) {
	ruleBytes := refArDoBytes(t)
	raw := append([]byte{0xFF, 0x40}, append([]byte{byte(len(ruleBytes))}, ruleBytes...)...)

	term := &fakeTerminal{responses: [][]byte{sw(raw, 0x9000)}}
	d := New(term)

	rules, err := d.GetAll(1)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
}

func TestDriver_GetAll_Chained(t *testing.T) {
	one := refArDoBytes(t)
	// Six 44-byte rules back to back: the 264-byte value exceeds one
	// 240-byte fragment, so the fixture is split after 240 value bytes and
	// the remaining 24 arrive through a single [Next] continuation.
	var value []byte
	for i := 0; i < 6; i++ {
		value = append(value, one...)
	}

	var outer []byte
	outer = append(outer, 0xFF, 0x40)
	outer = append(outer, encodeLengthMinimal(len(value))...)
	outer = append(outer, value...)

	headerLen := 2 + len(encodeLengthMinimal(len(value)))
	splitAt := headerLen + 240
	if splitAt >= len(outer) {
		t.Fatalf("test fixture too small to exercise chaining: total %d, split %d", len(outer), splitAt)
	}
	first := outer[:splitAt]
	second := outer[splitAt:]

	term := &fakeTerminal{responses: [][]byte{sw(first, 0x9000), sw(second, 0x9000)}}
	d := New(term)

	rules, err := d.GetAll(1)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(rules) != 6 {
		t.Fatalf("expected 6 rules reassembled from 2 fragments, got %d", len(rules))
	}
	if len(term.sent) != 2 {
		t.Fatalf("expected exactly one [Next] follow-up, got %d sent APDUs", len(term.sent))
	}
	// Second command must be GET DATA [Next]: CLA 80, INS CA, P1P2 FF 60.
	next := term.sent[1]
	if next[2] != 0xFF || next[3] != 0x60 {
		t.Errorf("expected [Next] P1P2=FF60, got %02X%02X", next[2], next[3])
	}
}

// encodeLengthMinimal mirrors tlv.EncodeLength for building test fixtures
// without importing an internal helper.
func encodeLengthMinimal(n int) []byte {
	switch {
	case n <= 0x7F:
		return []byte{byte(n)}
	case n <= 0xFF:
		return []byte{0x81, byte(n)}
	case n <= 0xFFFF:
		return []byte{0x82, byte(n >> 8), byte(n)}
	default:
		return []byte{0x83, byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

func TestDriver_RefreshTag(t *testing.T) {
	tag := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	raw := append([]byte{0xDF, 0x20, 0x08}, tag...)
	term := &fakeTerminal{responses: [][]byte{sw(raw, 0x9000)}}
	d := New(term)

	got, err := d.RefreshTag(1)
	if err != nil {
		t.Fatalf("RefreshTag: %v", err)
	}
	if !bytes.Equal(got[:], tag) {
		t.Errorf("got %x want %x", got, tag)
	}
}

func TestDriver_AppletNotPresent(t *testing.T) {
	term := &fakeTerminal{responses: [][]byte{{0x6A, 0x82}}}
	d := New(term)

	_, err := d.RefreshTag(1)
	if !errs.IsNoSuchElement(err) {
		t.Errorf("expected NoSuchElement, got %v", err)
	}
}

func TestDriver_NoDataSW(t *testing.T) {
	term := &fakeTerminal{responses: [][]byte{{0x6A, 0x88}}}
	d := New(term)

	_, err := d.RefreshTag(1)
	if !errs.IsNoSuchElement(err) {
		t.Errorf("expected NoSuchElement for SW=6A88, got %v", err)
	}
}

func TestDriver_OtherSWIsCardError(t *testing.T) {
	term := &fakeTerminal{responses: [][]byte{{0x6D, 0x00}}}
	d := New(term)

	_, err := d.RefreshTag(1)
	if sw, ok := errs.IsCardError(err); !ok || sw != 0x6D00 {
		t.Errorf("expected CardError SW=6D00, got %v", err)
	}
}
