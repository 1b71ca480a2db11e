package ed2k

import "testing"

func TestBufferPrimitivesRoundTrip(t *testing.T) {
	b := NewBuffer(0)
	if err := b.PutUInt8(0xAB); err != nil {
		t.Fatal(err)
	}
	if err := b.PutUInt16LE(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := b.PutUInt32LE(0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := b.PutUInt64LE(0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if err := b.PutFloat32LE(3.5); err != nil {
		t.Fatal(err)
	}
	if err := b.PutString("hello"); err != nil {
		t.Fatal(err)
	}
	if err := b.PutString("abc", 3); err != nil {
		t.Fatal(err)
	}

	r := NewBufferFromBytes(b.Bytes())
	if v, err := r.GetUInt8(); err != nil || v != 0xAB {
		t.Fatalf("u8: %v %v", v, err)
	}
	if v, err := r.GetUInt16LE(); err != nil || v != 0x1234 {
		t.Fatalf("u16: %v %v", v, err)
	}
	if v, err := r.GetUInt32LE(); err != nil || v != 0xDEADBEEF {
		t.Fatalf("u32: %v %v", v, err)
	}
	if v, err := r.GetUInt64LE(); err != nil || v != 0x0102030405060708 {
		t.Fatalf("u64: %v %v", v, err)
	}
	if v, err := r.GetFloat32LE(); err != nil || v != 3.5 {
		t.Fatalf("f32: %v %v", v, err)
	}
	if v, err := r.GetString(); err != nil || v != "hello" {
		t.Fatalf("string: %v %v", v, err)
	}
	if v, err := r.GetString(3); err != nil || v != "abc" {
		t.Fatalf("fixed string: %v %v", v, err)
	}
}

func TestBufferOutOfBoundsOnFixedBuffer(t *testing.T) {
	r := NewBufferFromBytes([]byte{0x01})
	if _, err := r.GetUInt32LE(); err != ErrOutOfBounds {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestBufferHashRoundTrip(t *testing.T) {
	b := NewBuffer(0)
	var h [16]byte
	for i := range h {
		h[i] = byte(i)
	}
	if err := b.PutHash(h); err != nil {
		t.Fatal(err)
	}
	r := NewBufferFromBytes(b.Bytes())
	got, err := r.GetHash()
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("hash mismatch: %v != %v", got, h)
	}
}

func TestBufferGetRemainder(t *testing.T) {
	r := NewBufferFromBytes([]byte{1, 2, 3, 4, 5})
	r.Pos(2)
	rest := r.Get()
	if string(rest) != "\x03\x04\x05" {
		t.Fatalf("unexpected remainder: %v", rest)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected cursor at end, remaining=%d", r.Remaining())
	}
}
