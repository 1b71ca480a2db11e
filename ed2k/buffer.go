package ed2k

import (
	"encoding/binary"
	"math"
)

// Buffer is a flat byte slice with a read/write cursor, used for both
// encoding outbound payloads and decoding inbound ones. It has no knowledge
// of tags or messages; those layers build on top of Get/Put primitives.
type Buffer struct {
	data     []byte
	pointer  int
	growable bool
}

// NewBuffer returns an empty, growable buffer suitable for encoding: Put
// operations extend it as needed instead of failing on a fixed capacity.
// sizeHint preallocates capacity without affecting length.
func NewBuffer(sizeHint int) *Buffer {
	return &Buffer{data: make([]byte, 0, sizeHint), growable: true}
}

// NewBufferFromBytes wraps an existing, fixed-length slice for decoding: Get
// operations are bounds-checked against its length.
func NewBufferFromBytes(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Len() int {
	return len(b.data)
}

func (b *Buffer) Remaining() int {
	return len(b.data) - b.pointer
}

func (b *Buffer) Pos(pos ...int) int {
	if len(pos) == 0 {
		return b.pointer
	}
	b.pointer = pos[0]
	if b.pointer < 0 {
		b.pointer = 0
	}
	if b.pointer > len(b.data) {
		b.pointer = len(b.data)
	}
	return b.pointer
}

// require ensures n more bytes are available at the cursor: on a growable
// (encode) buffer it extends data as needed, on a fixed (decode) buffer it
// fails with ErrOutOfBounds instead of reading/writing past the end.
func (b *Buffer) require(n int) error {
	if n < 0 {
		return ErrOutOfBounds
	}
	need := b.pointer + n
	if need <= len(b.data) {
		return nil
	}
	if !b.growable {
		return ErrOutOfBounds
	}
	grown := make([]byte, need)
	copy(grown, b.data)
	b.data = grown
	return nil
}

func (b *Buffer) GetUInt8() (uint8, error) {
	if err := b.require(1); err != nil {
		return 0, err
	}
	v := b.data[b.pointer]
	b.pointer++
	return v, nil
}

func (b *Buffer) PutUInt8(n uint8) error {
	if err := b.require(1); err != nil {
		return err
	}
	b.data[b.pointer] = n
	b.pointer++
	return nil
}

func (b *Buffer) GetUInt16LE() (uint16, error) {
	if err := b.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(b.data[b.pointer:])
	b.pointer += 2
	return v, nil
}

func (b *Buffer) PutUInt16LE(n uint16) error {
	if err := b.require(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.data[b.pointer:], n)
	b.pointer += 2
	return nil
}

func (b *Buffer) GetUInt32LE() (uint32, error) {
	if err := b.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b.data[b.pointer:])
	b.pointer += 4
	return v, nil
}

func (b *Buffer) PutUInt32LE(n uint32) error {
	if err := b.require(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[b.pointer:], n)
	b.pointer += 4
	return nil
}

func (b *Buffer) GetUInt64LE() (uint64, error) {
	if err := b.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b.data[b.pointer:])
	b.pointer += 8
	return v, nil
}

func (b *Buffer) PutUInt64LE(n uint64) error {
	if err := b.require(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[b.pointer:], n)
	b.pointer += 8
	return nil
}

func (b *Buffer) GetFloat32LE() (float32, error) {
	bits, err := b.GetUInt32LE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (b *Buffer) PutFloat32LE(f float32) error {
	return b.PutUInt32LE(math.Float32bits(f))
}

// GetString reads a u16 length prefix followed by that many bytes when no
// explicit length is given, or exactly length[0] raw bytes otherwise (the
// fixed-length form used by compact string tags).
func (b *Buffer) GetString(length ...int) (string, error) {
	l := 0
	if len(length) == 0 {
		v, err := b.GetUInt16LE()
		if err != nil {
			return "", err
		}
		l = int(v)
	} else {
		l = length[0]
	}
	if err := b.require(l); err != nil {
		return "", err
	}
	data := b.data[b.pointer : b.pointer+l]
	b.pointer += l
	return string(data), nil
}

// PutString writes a u16 length prefix followed by the string's bytes, or,
// when fixedLen is given, exactly fixedLen raw bytes with no length prefix.
func (b *Buffer) PutString(s string, fixedLen ...int) error {
	src := []byte(s)
	if len(fixedLen) > 0 {
		if len(src) != fixedLen[0] {
			return ErrOutOfBounds
		}
		return b.putRaw(src)
	}
	if err := b.PutUInt16LE(uint16(len(src))); err != nil {
		return err
	}
	return b.putRaw(src)
}

func (b *Buffer) putRaw(src []byte) error {
	if err := b.require(len(src)); err != nil {
		return err
	}
	copy(b.data[b.pointer:], src)
	b.pointer += len(src)
	return nil
}

func (b *Buffer) PutBuffer(src []byte) error {
	return b.putRaw(src)
}

func (b *Buffer) PutHash(hash [16]byte) error {
	return b.putRaw(hash[:])
}

func (b *Buffer) GetHash() ([16]byte, error) {
	var out [16]byte
	if err := b.require(16); err != nil {
		return out, err
	}
	copy(out[:], b.data[b.pointer:b.pointer+16])
	b.pointer += 16
	return out, nil
}

// Get returns a slice of the next length[0] bytes (or the remainder of the
// buffer if length is omitted), advancing the cursor. The returned slice
// aliases the buffer; callers that retain it beyond the decode call must copy.
func (b *Buffer) Get(length ...int) []byte {
	if len(length) > 0 && length[0] == 0 {
		return nil
	}
	if len(length) == 0 {
		out := b.data[b.pointer:]
		b.pointer = len(b.data)
		return out
	}
	end := b.pointer + length[0]
	if end > len(b.data) {
		end = len(b.data)
	}
	out := b.data[b.pointer:end]
	b.pointer = end
	return out
}
