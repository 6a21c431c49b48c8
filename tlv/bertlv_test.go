package tlv

import (
	"bytes"
	"testing"
)

func TestDecodeOne_MinimumEncodingViolation(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"0x81 with L<128", []byte{0xC1, 0x81, 0x7F}},
		{"0x82 with L<256", []byte{0xC1, 0x82, 0x00, 0xFF}},
		{"0x83 with L<65536", []byte{0xC1, 0x83, 0x00, 0xFF, 0xFF}},
		{"indefinite length", []byte{0xE1, 0x80}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeOne(tc.raw, true); err == nil {
				t.Errorf("expected parse error for %x", tc.raw)
			}
		})
	}
}

func TestDecodeOne_TwoByteTag(t *testing.T) {
	raw := []byte{0xFF, 0x40, 0x02, 0xAA, 0xBB}
	elem, err := DecodeOne(raw, true)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if elem.Tag != 0xFF40 || elem.TagLen != 2 {
		t.Errorf("tag = %04X len %d, want FF40 len 2", elem.Tag, elem.TagLen)
	}
	if !bytes.Equal(elem.Value, []byte{0xAA, 0xBB}) {
		t.Errorf("value = % X", elem.Value)
	}
}

func TestDecodeOne_ContainsAllDataTruncation(t *testing.T) {
	raw := []byte{0xE1, 0x10, 0x01, 0x02} // declares 16 bytes, only 2 present
	if _, err := DecodeOne(raw, true); err == nil {
		t.Errorf("expected error for truncated declared length")
	}
	if _, err := DecodeOne(raw, false); err != nil {
		t.Errorf("unexpected error when containsAllData=false: %v", err)
	}
}

func TestBuildRoundTrip(t *testing.T) {
	value := []byte{0x01, 0x02, 0x03}
	built := Build(nil, 0xE1, value)
	elem, err := DecodeOne(built, true)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if elem.Tag != 0xE1 || !bytes.Equal(elem.Value, value) {
		t.Errorf("round trip mismatch: %+v", elem)
	}
}

func TestDecodeAll_TwoElements(t *testing.T) {
	one := Build(nil, 0xE2, []byte{0x01})
	two := Build(nil, 0xE2, []byte{0x02, 0x03})
	raw := append(append([]byte{}, one...), two...)
	elems, err := DecodeAll(raw)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("got %d elements, want 2", len(elems))
	}
}

func TestEncodeLength_Boundaries(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x80}},
		{0xFF, []byte{0x81, 0xFF}},
		{0x100, []byte{0x82, 0x01, 0x00}},
		{0x10000, []byte{0x83, 0x01, 0x00, 0x00}},
	}
	for _, tc := range tests {
		if got := EncodeLength(tc.n); !bytes.Equal(got, tc.want) {
			t.Errorf("EncodeLength(%d) = % X, want % X", tc.n, got, tc.want)
		}
	}
}
