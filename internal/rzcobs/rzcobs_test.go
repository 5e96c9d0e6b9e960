package rzcobs

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01, 0x02, 0x03},
		{0x00, 0x00, 0x00},
		{0x01, 0x00, 0x00, 0x02, 0x03},
		{0xde, 0xad, 0xbe, 0xef},
		bytes.Repeat([]byte{0x00}, 300),
		bytes.Repeat([]byte{0x7f}, 300),
	}
	for _, c := range cases {
		encoded := Encode(c)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(Encode(%v)) error: %v", c, err.Message())
		}
		if !bytes.Equal(decoded, c) && !(len(decoded) == 0 && len(c) == 0) {
			t.Fatalf("Decode(Encode(%v)) = %v, want %v", c, decoded, c)
		}
	}
}

func TestEncodeNeverProducesZeroBytes(t *testing.T) {
	data := append(bytes.Repeat([]byte{0x00, 0x01}, 50), 0xff)
	encoded := Encode(data)
	for i, b := range encoded {
		if b == 0x00 {
			t.Fatalf("encoded output contains a literal zero byte at offset %d: %v", i, encoded)
		}
	}
}

func TestDecodeRejectsEmbeddedZero(t *testing.T) {
	_, err := Decode([]byte{0x01, 0xaa, 0x00})
	if err == nil || !ErrZeroInFrame.Is(err) {
		t.Fatalf("expected ErrZeroInFrame, got %v", err)
	}
}

func TestDecodeRejectsTruncatedRun(t *testing.T) {
	_, err := Decode([]byte{0x05, 0x01, 0x02})
	if err == nil || !ErrTruncatedRun.Is(err) {
		t.Fatalf("expected ErrTruncatedRun, got %v", err)
	}
}
