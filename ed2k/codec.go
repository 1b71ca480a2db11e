package ed2k

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// DefaultMaxInflatedLen is the inflate cap used when a caller passes 0,
// matching the framer's default max_inflated_frame_bytes.
const DefaultMaxInflatedLen = 1 << 22

// InflateCapped decompresses a zlib stream, refusing to allocate more than
// maxLen octets of output. A stream that would produce more than maxLen
// bytes fails with decode_packet_error before the excess is read, so a
// hostile frame cannot force unbounded allocation.
func InflateCapped(compressed []byte, maxLen uint32) ([]byte, error) {
	if maxLen == 0 {
		maxLen = DefaultMaxInflatedLen
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodePacket, err)
	}
	defer zr.Close()

	limited := io.LimitReader(zr, int64(maxLen)+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodePacket, err)
	}
	if uint32(len(out)) > maxLen {
		return nil, fmt.Errorf("%w: inflated size exceeds cap %d", ErrDecodePacket, maxLen)
	}
	return out, nil
}
