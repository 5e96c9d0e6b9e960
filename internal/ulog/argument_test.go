package ulog

import (
	"bytes"
	"math"
	"testing"
)

func TestNewArgumentFromTypeID(t *testing.T) {
	cases := []struct {
		id       uint8
		wantKind ArgKind
		wantSize int
	}{
		{1, ArgSlice, 0},
		{2, ArgFloat, 0},
		{3, ArgDouble, 0},
		{4, ArgString, 0},
		{5, ArgBool, 0},
		{6, ArgULogString, 0},
		{240, ArgInt8, 0},
		{241, ArgInt16, 0},
		{242, ArgInt32, 3},
		{243, ArgInt32, 4},
		{244, ArgInt64, 5},
		{247, ArgInt64, 8},
		{248, ArgUInt8, 0},
		{249, ArgUInt16, 0},
		{250, ArgUInt32, 3},
		{251, ArgUInt32, 4},
		{252, ArgUInt64, 5},
		{255, ArgUInt64, 8},
	}
	for _, c := range cases {
		arg, err := NewArgumentFromTypeID(c.id)
		if err != nil {
			t.Fatalf("type id %d: unexpected error: %v", c.id, err.Message())
		}
		if arg.Kind != c.wantKind || arg.Size != c.wantSize {
			t.Fatalf("type id %d: got Kind=%v Size=%d, want Kind=%v Size=%d",
				c.id, arg.Kind, arg.Size, c.wantKind, c.wantSize)
		}
	}
}

func TestNewArgumentFromTypeIDInvalid(t *testing.T) {
	for _, id := range []uint8{0, 7, 100, 239} {
		_, err := NewArgumentFromTypeID(id)
		if err == nil || !ErrInvalidTypeID.Is(err) {
			t.Fatalf("type id %d: expected ErrInvalidTypeID, got %v", id, err)
		}
	}
}

func decode(t *testing.T, a *Argument, data []byte, strs map[uint16]*ULogString) {
	t.Helper()
	r := bytes.NewReader(data)
	if err := a.Decode(r, strs); err != nil {
		t.Fatalf("Decode error: %v", err.Message())
	}
}

func TestDecodeInt32SignExtension(t *testing.T) {
	cases := []struct {
		size int
		data []byte
		want int32
	}{
		{3, []byte{0x80, 0x00, 0x00}, -8388608},
		{3, []byte{0x7F, 0xFF, 0xFF}, 8388607},
		{4, []byte{0x7F, 0xFF, 0xFF, 0xFF}, math.MaxInt32},
		{4, []byte{0x80, 0x00, 0x00, 0x00}, math.MinInt32},
	}
	for _, c := range cases {
		a := Argument{Kind: ArgInt32, Size: c.size}
		decode(t, &a, c.data, nil)
		if a.value.(int32) != c.want {
			t.Fatalf("size %d: got %d, want %d", c.size, a.value.(int32), c.want)
		}
	}
}

func TestDecodeUInt64ZeroExtension(t *testing.T) {
	a := Argument{Kind: ArgUInt64, Size: 5}
	decode(t, &a, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, nil)
	if a.value.(uint64) != 0xFFFFFFFFFF {
		t.Fatalf("got %x, want %x", a.value.(uint64), uint64(0xFFFFFFFFFF))
	}
}

func TestDecodeBool(t *testing.T) {
	for _, c := range []struct {
		b    byte
		want bool
	}{
		{0x00, false},
		{0x01, true},
		{0xff, true},
	} {
		a := Argument{Kind: ArgBool}
		decode(t, &a, []byte{c.b}, nil)
		if a.value.(bool) != c.want {
			t.Fatalf("byte %#x: got %v, want %v", c.b, a.value, c.want)
		}
	}
}

func TestDecodeString(t *testing.T) {
	a := Argument{Kind: ArgString}
	decode(t, &a, []byte("hello\x00trailing garbage"), nil)
	if a.value.(string) != "hello" {
		t.Fatalf("got %q, want %q", a.value, "hello")
	}
}

func TestDecodeSlice(t *testing.T) {
	a := Argument{Kind: ArgSlice}
	decode(t, &a, []byte{0x00, 0x00, 0x00, 0x03, 0xde, 0xad, 0xbe}, nil)
	if !bytes.Equal(a.value.([]byte), []byte{0xde, 0xad, 0xbe}) {
		t.Fatalf("got %v", a.value)
	}
	if a.Render() != "[de, ad, be]" {
		t.Fatalf("Render() = %q, want %q", a.Render(), "[de, ad, be]")
	}
}

func TestDecodeFloatAndDouble(t *testing.T) {
	a := Argument{Kind: ArgFloat}
	decode(t, &a, []byte{0x40, 0x49, 0x0F, 0xDB}, nil)
	if a.Render() != "3.1415927" {
		t.Fatalf("Render() = %q, want %q", a.Render(), "3.1415927")
	}

	d := Argument{Kind: ArgDouble}
	decode(t, &d, []byte{0x40, 0x09, 0x21, 0xFB, 0x54, 0x44, 0x2D, 0x18}, nil)
	if d.Render() != "3.141592653589793" {
		t.Fatalf("Render() = %q, want %q", d.Render(), "3.141592653589793")
	}
}

func TestDecodeULogStringResolvesFromTable(t *testing.T) {
	strs := map[uint16]*ULogString{
		0x0010: {ID: 0x0010, Value: "world"},
	}
	a := Argument{Kind: ArgULogString}
	decode(t, &a, []byte{0x00, 0x10}, strs)
	if a.Render() != "world" {
		t.Fatalf("Render() = %q, want %q", a.Render(), "world")
	}
}

func TestDecodeULogStringMissingID(t *testing.T) {
	a := Argument{Kind: ArgULogString}
	r := bytes.NewReader([]byte{0x00, 0x10})
	err := a.Decode(r, map[uint16]*ULogString{})
	if err == nil || !ErrMissingStringID.Is(err) {
		t.Fatalf("expected ErrMissingStringID, got %v", err)
	}
}

func TestUnsetArgumentRendersNil(t *testing.T) {
	a := Argument{Kind: ArgInt8}
	if a.Render() != "(nil)" {
		t.Fatalf("Render() = %q, want %q", a.Render(), "(nil)")
	}
}

func TestCloneDropsDecodedValue(t *testing.T) {
	a := Argument{Kind: ArgInt32, Size: 3}
	decode(t, &a, []byte{0x7F, 0xFF, 0xFF}, nil)
	clone := a.Clone()
	if clone.Kind != a.Kind || clone.Size != a.Size {
		t.Fatalf("Clone() lost Kind/Size: got %+v, want Kind=%v Size=%d", clone, a.Kind, a.Size)
	}
	if clone.Render() != "(nil)" {
		t.Fatalf("Clone() carried over a decoded value: Render() = %q", clone.Render())
	}
}

func TestDecodeShortReadFails(t *testing.T) {
	a := Argument{Kind: ArgInt16}
	r := bytes.NewReader([]byte{0x01})
	if err := a.Decode(r, nil); err == nil || !ErrArgIo.Is(err) {
		t.Fatalf("expected ErrArgIo on short read, got %v", err)
	}
}
