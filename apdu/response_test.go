package apdu

import "testing"

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		name string
		sw1  byte
		sw2  byte
		want bool
	}{
		{"9000 OK", 0x90, 0x00, true},
		{"6A88 not found", 0x6A, 0x88, false},
		{"6200 warning", 0x62, 0x00, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewResponse([]byte{tc.sw1, tc.sw2})
			if err != nil {
				t.Fatalf("NewResponse: %v", err)
			}
			if got := r.IsSuccess(); got != tc.want {
				t.Errorf("IsSuccess() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResponse_IsWarning(t *testing.T) {
	r, _ := NewResponse([]byte{0x63, 0xC2})
	if !r.IsWarning() {
		t.Errorf("expected 63Cx to be a warning")
	}
	r2, _ := NewResponse([]byte{0x90, 0x00})
	if r2.IsWarning() {
		t.Errorf("9000 should not be a warning")
	}
}

func TestNewResponse_TooShort(t *testing.T) {
	if _, err := NewResponse([]byte{0x90}); err == nil {
		t.Errorf("expected error for 1-byte response")
	}
}

func TestResponse_SWValue(t *testing.T) {
	if got := SWValue(0x6A, 0x88); got != 0x6A88 {
		t.Errorf("SWValue = %04X, want 6A88", got)
	}
}
