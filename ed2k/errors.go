package ed2k

import "fmt"

// Kind names one of the error categories from the wire-protocol error
// taxonomy. It intentionally has no behavior of its own: callers compare
// kinds with errors.Is against the package-level sentinels below, or via
// (*Error).Kind after an errors.As.
type Kind string

const (
	KindHashFormat             Kind = "hash_format"
	KindInvalidTagType         Kind = "invalid_tag_type"
	KindBlobTagTooLong         Kind = "blob_tag_too_long"
	KindIncompatibleTagGetter  Kind = "incompatible_tag_getter"
	KindTagListIndex           Kind = "tag_list_index"
	KindInvalidProtocolType    Kind = "invalid_protocol_type"
	KindDecodePacketError      Kind = "decode_packet_error"
)

// Error wraps a decode/encode failure with its taxonomy Kind, following the
// "kinds, not types" error design: one Go type, distinguished by Kind, so
// every layer can match on Kind without a growing zoo of error structs.
type Error struct {
	Kind Kind
	Err  error
}

func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ed2k: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ed2k: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel instances for errors.Is comparisons that don't need extra context.
var (
	ErrHashFormat            = &Error{Kind: KindHashFormat}
	ErrInvalidTagType        = &Error{Kind: KindInvalidTagType}
	ErrBlobTagTooLong        = &Error{Kind: KindBlobTagTooLong}
	ErrIncompatibleTagGetter = &Error{Kind: KindIncompatibleTagGetter}
	ErrTagListIndex          = &Error{Kind: KindTagListIndex}
	ErrInvalidProtocolType   = &Error{Kind: KindInvalidProtocolType}
	ErrDecodePacket          = &Error{Kind: KindDecodePacketError}
)

// ErrOutOfBounds signals a short read/write against a fixed-size Buffer.
// It is a plain sentinel, not a Kind: running off the end of a buffer is an
// implementation-level bug surface, not a wire-protocol taxonomy entry.
var ErrOutOfBounds = fmt.Errorf("ed2k: buffer out of bounds")
