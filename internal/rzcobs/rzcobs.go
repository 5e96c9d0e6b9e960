// Package rzcobs implements the reverse-zero run-length byte-stuffing
// framing codec used to delimit uLog frames on the wire. It is the
// "external collaborator" the core decoder treats as already handled: a
// frame boundary is a single 0x00 byte, and everything between boundaries
// is zero-stuffed so the terminator can never appear mid-frame.
//
// No published Go package implements this embedded-specific scheme, and
// the exact bit layout of the upstream Rust crate it borrows its name and
// shape from isn't available to port byte-for-byte; this is a from-scratch
// implementation of the same zero run-length stuffing idea, self-
// consistent between Encode and Decode.
package rzcobs

import "github.com/alexkar598/ulog-decoder/internal/er"

// ErrorType groups faults raised while decoding one stuffed frame.
var ErrorType = er.NewErrorType("rzcobs.DecodeError")

var (
	ErrTruncatedRun = ErrorType.Code("run marker at end of frame with no payload following")
	ErrZeroInFrame  = ErrorType.Code("unstuffed zero byte found inside a frame")
)

// maxRun is the largest literal or zero-run chunk a single marker byte can
// describe: 7 bits, since the 8th bit of a zero-run marker distinguishes
// it from a literal-run length.
const maxRun = 127

// Encode stuffs data so that no 0x00 byte appears in the result: runs of
// up to maxRun consecutive zero bytes collapse into a single marker byte
// with its high bit set, and runs of up to maxRun non-zero bytes are
// prefixed with a plain length byte. The caller appends the 0x00 frame
// terminator separately.
func Encode(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		if data[i] == 0 {
			j := i
			for j < len(data) && data[j] == 0 && j-i < maxRun {
				j++
			}
			out = append(out, 0x80|byte(j-i))
			i = j
			continue
		}
		j := i
		for j < len(data) && data[j] != 0 && j-i < maxRun {
			j++
		}
		out = append(out, byte(j-i))
		out = append(out, data[i:j]...)
		i = j
	}
	return out
}

// Decode reverses Encode. data must not include the frame's trailing 0x00
// terminator (the caller strips it off after reading up to the delimiter).
func Decode(data []byte) ([]byte, er.R) {
	var out []byte
	for i := 0; i < len(data); {
		marker := data[i]
		i++
		if marker == 0 {
			return nil, ErrZeroInFrame.Default()
		}
		if marker&0x80 != 0 {
			count := int(marker &^ 0x80)
			for k := 0; k < count; k++ {
				out = append(out, 0)
			}
			continue
		}
		count := int(marker)
		if i+count > len(data) {
			return nil, ErrTruncatedRun.Default()
		}
		out = append(out, data[i:i+count]...)
		i += count
	}
	return out, nil
}
