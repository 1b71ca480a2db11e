package ed2k

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderLen is the fixed size of a frame header: protocol, size, type.
const HeaderLen = 6

// ReadFrame performs the two exact reads a frame requires: the 6-byte
// header, then size-1 payload bytes. A PrZlib frame is inflated before
// being handed back; if inflate fails, dropped is true and err is nil — the
// caller should skip dispatch for this frame and keep reading, per the
// resilience choice over a zlib frame that fails to decompress. Any other
// protocol byte fails with invalid_protocol_type.
func ReadFrame(r io.Reader, maxInflatedLen uint32) (opcode uint8, payload []byte, dropped bool, err error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, false, err
	}
	protocol := hdr[0]
	size := binary.LittleEndian.Uint32(hdr[1:5])
	opcode = hdr[5]
	if size == 0 {
		return opcode, nil, false, fmt.Errorf("%w: frame size is 0, must count the type octet", ErrDecodePacket)
	}

	buf := make([]byte, size-1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return opcode, nil, false, err
	}

	switch protocol {
	case PrED2K, PrEMule:
		return opcode, buf, false, nil
	case PrZlib:
		inflated, ierr := InflateCapped(buf, maxInflatedLen)
		if ierr != nil {
			return opcode, nil, true, nil
		}
		return opcode, inflated, false, nil
	default:
		return opcode, nil, false, NewError(KindInvalidProtocolType, fmt.Errorf("protocol byte 0x%x", protocol))
	}
}

// EncodeFrame builds a complete outbound frame: header plus payload, always
// plain protocol. Outbound frames are never compressed.
func EncodeFrame(opcode uint8, payload []byte) []byte {
	out := make([]byte, HeaderLen+len(payload))
	out[0] = PrED2K
	binary.LittleEndian.PutUint32(out[1:5], uint32(1+len(payload)))
	out[5] = opcode
	copy(out[6:], payload)
	return out
}
