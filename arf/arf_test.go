package arf

import (
	"bytes"
	"fmt"
	"testing"

	"ace/cache"
	"ace/tlv"
)

// fakeTerminal simulates a transparent-EF UICC filesystem keyed by FID, for
// exercising FileAccess's SELECT/READ BINARY sequencing without a real
// card.
type fakeTerminal struct {
	files   map[uint16][]byte
	current uint16
}

func (f *fakeTerminal) OpenLogicalChannel(aid []byte, p2 byte) (byte, []byte, error) {
	return 1, nil, nil
}
func (f *fakeTerminal) CloseLogicalChannel(channel byte) error { return nil }

func (f *fakeTerminal) Transmit(channel byte, apdu []byte) ([]byte, error) {
	if len(apdu) < 4 {
		return nil, fmt.Errorf("short APDU")
	}
	ins := apdu[1]
	p1, p2 := apdu[2], apdu[3]
	switch ins {
	case 0xA4: // SELECT
		lc := int(apdu[4])
		data := apdu[5 : 5+lc]
		if len(data) == 2 {
			f.current = uint16(data[0])<<8 | uint16(data[1])
			return []byte{0x90, 0x00}, nil
		}
		return []byte{0x6A, 0x82}, nil
	case 0xB0: // READ BINARY
		offset := int(p1)<<8 | int(p2)
		le := int(apdu[4])
		content := f.files[f.current]
		if offset >= len(content) {
			return []byte{0x6B, 0x00}, nil
		}
		end := offset + le
		if end > len(content) {
			end = len(content)
		}
		chunk := append([]byte{}, content[offset:end]...)
		return append(chunk, 0x90, 0x00), nil
	default:
		return nil, fmt.Errorf("unexpected INS 0x%02X", ins)
	}
}

func (f *fakeTerminal) SimIOExchange(fileID uint16, path string, cmd []byte) ([]byte, error) {
	return nil, fmt.Errorf("SIM IO not modelled in this fixture")
}
func (f *fakeTerminal) GetATR() ([]byte, bool) { return nil, false }
func (f *fakeTerminal) IsCardPresent() bool    { return true }
func (f *fakeTerminal) TerminalName() string   { return "PCSC-fake" }

func pathBytes(fids ...uint16) []byte {
	out := make([]byte, 0, 2*len(fids))
	for _, f := range fids {
		out = append(out, byte(f>>8), byte(f))
	}
	return out
}

func buildFixture(t *testing.T) *fakeTerminal {
	t.Helper()
	const (
		fidPkcs15DF = 0x5000
		fidDODF     = 0x5032
		fidACMF     = 0x5033
		fidACRF     = 0x5034
		fidACCF     = 0x5035
	)

	oidBytes, err := tlv.EncodeOID(pkcs15OID)
	if err != nil {
		t.Fatalf("EncodeOID pkcs15: %v", err)
	}
	acmfOidBytes, err := tlv.EncodeOID(acmfOID)
	if err != nil {
		t.Fatalf("EncodeOID acmf: %v", err)
	}

	// EF(DIR): one APPLICATION-TEMPLATE naming the PKCS#15 DF.
	var dirEntry []byte
	dirEntry = tlv.Build(dirEntry, tagOID, oidBytes)
	dirEntry = tlv.Build(dirEntry, tagPath, pathBytes(fidPkcs15DF))
	var dir []byte
	dir = tlv.Build(dir, tagApplicationTemplate, dirEntry)

	// ODF: one DataObjects entry pointing at the DODF.
	var odfEntryInner []byte
	odfEntryInner = tlv.Build(odfEntryInner, tagPath, pathBytes(fidDODF))
	var odf []byte
	odf = tlv.Build(odf, tagODFDataObjects, odfEntryInner)

	// DODF: one entry carrying the ACMF OID and its path.
	var dodfEntryInner []byte
	dodfEntryInner = tlv.Build(dodfEntryInner, tagOID, acmfOidBytes)
	dodfEntryInner = tlv.Build(dodfEntryInner, tagPath, pathBytes(fidACMF))
	var dodf []byte
	dodf = tlv.Build(dodf, tagDODFEntry, dodfEntryInner)

	// ACMF: refresh tag + path to ACRF.
	refreshTag := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	var acmf []byte
	acmf = tlv.Build(acmf, tagACMFRefreshTag, refreshTag)
	acmf = tlv.Build(acmf, tagPath, pathBytes(fidACRF))

	// ACRF: one entry for a specific AID, pointing at the ACCF.
	aid := []byte{0xA0, 0x00, 0x00, 0x06, 0x11, 0x11, 0x22, 0x33}
	var acrfEntryInner []byte
	acrfEntryInner = tlv.Build(acrfEntryInner, tagAID, aid)
	acrfEntryInner = tlv.Build(acrfEntryInner, tagPath, pathBytes(fidACCF))
	var acrf []byte
	acrf = tlv.Build(acrf, tagACRFEntry, acrfEntryInner)

	// ACCF: two Hash-REF-DOs authorising that AID.
	h1 := bytes.Repeat([]byte{0xAA}, 20)
	h2 := bytes.Repeat([]byte{0xBB}, 20)
	var accf []byte
	accf = tlv.Build(accf, 0xC1, h1)
	accf = tlv.Build(accf, 0xC1, h2)

	return &fakeTerminal{files: map[uint16][]byte{
		fidDIR:  dir,
		fidODF:  odf,
		fidDODF: dodf,
		fidACMF: acmf,
		fidACRF: acrf,
		fidACCF: accf,
	}}
}

func TestWalk_FullChain(t *testing.T) {
	term := buildFixture(t)
	fa, err := Open(term)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	result, err := fa.Walk()
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	if result.RefreshTag != want {
		t.Errorf("refresh tag = %x, want %x", result.RefreshTag, want)
	}
	if len(result.Rules) != 1 {
		t.Fatalf("expected 1 ACRF rule, got %d", len(result.Rules))
	}
	if len(result.Rules[0].Hashes) != 2 {
		t.Fatalf("expected 2 hashes in the ACCF, got %d", len(result.Rules[0].Hashes))
	}
}

func TestLoad_PopulatesCache(t *testing.T) {
	term := buildFixture(t)
	fa, err := Open(term)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := cache.New()

	if err := fa.Load(c); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cache entries (one per ACCF hash), got %d", c.Len())
	}

	aid := []byte{0xA0, 0x00, 0x00, 0x06, 0x11, 0x11, 0x22, 0x33}
	h1 := bytes.Repeat([]byte{0xAA}, 20)
	ca, ok := c.FindAccessRule(aid, [][]byte{h1})
	if !ok {
		t.Fatalf("expected a hit for h1")
	}
	if ca.ApduAccess != cache.Allowed || ca.NfcAccess != cache.Allowed {
		t.Errorf("ca = %+v", ca)
	}
}

func TestLoad_SkipsReloadWhenRefreshTagUnchanged(t *testing.T) {
	term := buildFixture(t)
	fa, err := Open(term)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := cache.New()
	c.SetRefreshTag([8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	if err := fa.Load(c); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected no reload when refresh tag already matches, got %d entries", c.Len())
	}
}
