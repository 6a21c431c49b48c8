package tlv

import (
	"fmt"
	"strings"

	"ace/errs"
)

// DER universal tag numbers PKCS#15 structures use.
const (
	TagInteger     = 0x02
	TagOctetString = 0x04
	TagOID         = 0x06
	TagSequence    = 0x30
	TagSet         = 0x31
)

// DerNode is one decoded DER element: its raw tag byte, declared length,
// content bytes, and how many bytes it (and any stripped 0xFF padding)
// occupied in the parent buffer.
type DerNode struct {
	Tag      byte
	Length   int
	Content  []byte
	consumed int
}

func (n DerNode) Consumed() int { return n.consumed }

func (n DerNode) IsConstructed() bool { return n.Tag&0x20 != 0 }

func (n DerNode) ContextTag() (int, bool) {
	if n.Tag&0xC0 != 0x80 {
		return 0, false
	}
	return int(n.Tag & 0x1F), true
}

// DerReader walks a DER buffer one element at a time and supports
// snapshot/restore of its read position, with strict minimum-length-
// encoding checks shared with BerTlv.DecodeOne.
type DerReader struct {
	buf []byte
	pos int
}

func NewDerReader(buf []byte) *DerReader { return &DerReader{buf: buf} }

// Snapshot returns an opaque position marker for later Restore.
func (r *DerReader) Snapshot() int { return r.pos }

// Restore rewinds the reader to a previously taken Snapshot.
func (r *DerReader) Restore(pos int) { r.pos = pos }

// Done reports whether the buffer is exhausted.
func (r *DerReader) Done() bool { return r.pos >= len(r.buf) }

// Next decodes the next top-level element at the current position.
func (r *DerReader) Next() (DerNode, error) {
	start := r.pos
	rest := r.buf[r.pos:]
	if len(rest) == 0 {
		return DerNode{}, errs.Parse("DER buffer exhausted")
	}
	if rest[0] == 0xFF {
		// trailing padding: consume greedily per PKCS#15 convention.
		n := 0
		for n < len(rest) && rest[n] == 0xFF {
			n++
		}
		r.pos += n
		if r.Done() {
			return DerNode{}, errs.Parse("DER buffer exhausted after padding")
		}
		rest = r.buf[r.pos:]
	}
	if len(rest) < 2 {
		return DerNode{}, errs.Parse("DER element truncated")
	}
	tag := rest[0]
	length, lenLen, err := decodeLength(rest[1:])
	if err != nil {
		return DerNode{}, err
	}
	valueIndex := 1 + lenLen
	if valueIndex+length > len(rest) {
		return DerNode{}, errs.Parse("DER element declares length %d beyond buffer", length)
	}
	content := rest[valueIndex : valueIndex+length]
	end := valueIndex + length
	// trailing padding: when only 0xFF bytes follow, consume them too.
	pad := end
	for pad < len(rest) && rest[pad] == 0xFF {
		pad++
	}
	if pad == len(rest) {
		end = pad
	}
	r.pos += end
	return DerNode{Tag: tag, Length: length, Content: content, consumed: r.pos - start}, nil
}

// DecodeOID decodes a DER OID's content octets (base-128, MSB-continuation)
// into dotted-decimal form, per X.690 §8.19.
func DecodeOID(content []byte) (string, error) {
	if len(content) == 0 {
		return "", errs.Parse("empty OID content")
	}
	var subids []int
	sub := 0
	for i, b := range content {
		sub = sub<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			subids = append(subids, sub)
			sub = 0
		} else if i == len(content)-1 {
			return "", errs.Parse("truncated OID subidentifier")
		}
	}
	if len(subids) == 0 {
		return "", errs.Parse("no subidentifiers decoded")
	}
	first := subids[0]
	var x, y int
	if first < 80 {
		x, y = first/40, first%40
	} else {
		x, y = 2, first-80
	}
	parts := make([]string, 0, len(subids)+1)
	parts = append(parts, fmt.Sprintf("%d.%d", x, y))
	for _, s := range subids[1:] {
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	return strings.Join(parts, "."), nil
}

// EncodeOID is the inverse of DecodeOID, producing DER content octets for a
// dotted-decimal OID string.
func EncodeOID(oid string) ([]byte, error) {
	parts := strings.Split(oid, ".")
	if len(parts) < 2 {
		return nil, errs.Parse("OID %q needs at least two components", oid)
	}
	var x, y int
	if _, err := fmt.Sscanf(parts[0], "%d", &x); err != nil {
		return nil, errs.Parse("bad OID component %q", parts[0])
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &y); err != nil {
		return nil, errs.Parse("bad OID component %q", parts[1])
	}
	first := x*40 + y
	out := encodeSubid(first)
	for _, p := range parts[2:] {
		var v int
		if _, err := fmt.Sscanf(p, "%d", &v); err != nil {
			return nil, errs.Parse("bad OID component %q", p)
		}
		out = append(out, encodeSubid(v)...)
	}
	return out, nil
}

func encodeSubid(v int) []byte {
	if v == 0 {
		return []byte{0}
	}
	var rev []byte
	for v > 0 {
		rev = append(rev, byte(v&0x7F))
		v >>= 7
	}
	out := make([]byte, len(rev))
	for i, b := range rev {
		o := len(rev) - 1 - i
		if o != len(rev)-1 {
			b |= 0x80
		}
		out[o] = b
	}
	return out
}
