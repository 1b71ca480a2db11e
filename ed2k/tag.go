package ed2k

import "fmt"

// DefaultMaxBlobLen is the cap applied to a blob tag's length prefix when no
// caller-supplied limit is given.
const DefaultMaxBlobLen = 1 << 20

// DefaultMaxTagListLen is the sanity cap on the number of tags a TagList
// decodes, guarding against unbounded allocation from malformed input.
const DefaultMaxTagListLen = 4096

// TagName is a Tag's name: either a numeric id in 1..255 or a short string.
// The two forms are mutually exclusive on the wire, signalled by the high
// bit of the tag's type byte.
type TagName struct {
	IsID bool
	ID   uint8
	Str  string
}

func NumericName(id uint8) TagName { return TagName{IsID: true, ID: id} }
func StringName(s string) TagName  { return TagName{Str: s} }

func (n TagName) String() string {
	if n.IsID {
		return fmt.Sprintf("#%d", n.ID)
	}
	return n.Str
}

func (n TagName) equal(o TagName) bool {
	if n.IsID != o.IsID {
		return false
	}
	if n.IsID {
		return n.ID == o.ID
	}
	return n.Str == o.Str
}

// Tag is a typed, named field: the unit the wire format's OP_LOGINREQUEST,
// OP_OFFERFILES, file descriptors and server identity records are built
// from.
type Tag struct {
	Name  TagName
	Type  uint8
	Value any
}

func BoolTag(name TagName, v bool) Tag    { return Tag{Name: name, Type: TypeBool, Value: v} }
func UInt8Tag(name TagName, v uint8) Tag  { return Tag{Name: name, Type: TypeUint8, Value: v} }
func UInt16Tag(name TagName, v uint16) Tag { return Tag{Name: name, Type: TypeUint16, Value: v} }
func UInt32Tag(name TagName, v uint32) Tag { return Tag{Name: name, Type: TypeUint32, Value: v} }
func UInt64Tag(name TagName, v uint64) Tag { return Tag{Name: name, Type: TypeUint64, Value: v} }
func Float32NamedTag(name TagName, v float32) Tag {
	return Tag{Name: name, Type: TypeFloat32, Value: v}
}
func StringTag(name TagName, v string) Tag { return Tag{Name: name, Type: TypeString, Value: v} }
func BlobTag(name TagName, v []byte) Tag   { return Tag{Name: name, Type: TypeBlob, Value: v} }
func HashTag(name TagName, v Hash) Tag     { return Tag{Name: name, Type: TypeHash, Value: v} }

// Encode writes the tag's wire form: type byte (with name-kind high bit),
// name, payload.
func (t Tag) Encode(b *Buffer) error {
	typeByte := t.Type
	compactLen := -1
	if t.Type == TypeString {
		s, ok := t.Value.(string)
		if !ok {
			return fmt.Errorf("%w: string tag holds %T", ErrInvalidTagType, t.Value)
		}
		if len(s) >= 1 && len(s) <= maxCompactStringLen {
			compactLen = len(s)
			typeByte = TypeStringBase + uint8(len(s)-1)
		}
	}
	if t.Name.IsID {
		typeByte |= tagNameBit
	}
	if err := b.PutUInt8(typeByte); err != nil {
		return err
	}
	if t.Name.IsID {
		if err := b.PutUInt8(t.Name.ID); err != nil {
			return err
		}
	} else {
		if err := b.PutString(t.Name.Str); err != nil {
			return err
		}
	}
	return t.encodeValue(b, compactLen)
}

func (t Tag) encodeValue(b *Buffer, compactStringLen int) error {
	switch t.Type {
	case TypeBool:
		v, ok := t.Value.(bool)
		if !ok {
			return fmt.Errorf("%w: bool tag holds %T", ErrInvalidTagType, t.Value)
		}
		n := uint8(0)
		if v {
			n = 1
		}
		return b.PutUInt8(n)
	case TypeUint8:
		v, ok := t.Value.(uint8)
		if !ok {
			return fmt.Errorf("%w: u8 tag holds %T", ErrInvalidTagType, t.Value)
		}
		return b.PutUInt8(v)
	case TypeUint16:
		v, ok := t.Value.(uint16)
		if !ok {
			return fmt.Errorf("%w: u16 tag holds %T", ErrInvalidTagType, t.Value)
		}
		return b.PutUInt16LE(v)
	case TypeUint32:
		v, ok := t.Value.(uint32)
		if !ok {
			return fmt.Errorf("%w: u32 tag holds %T", ErrInvalidTagType, t.Value)
		}
		return b.PutUInt32LE(v)
	case TypeUint64:
		v, ok := t.Value.(uint64)
		if !ok {
			return fmt.Errorf("%w: u64 tag holds %T", ErrInvalidTagType, t.Value)
		}
		return b.PutUInt64LE(v)
	case TypeFloat32:
		v, ok := t.Value.(float32)
		if !ok {
			return fmt.Errorf("%w: f32 tag holds %T", ErrInvalidTagType, t.Value)
		}
		return b.PutFloat32LE(v)
	case TypeString:
		v, ok := t.Value.(string)
		if !ok {
			return fmt.Errorf("%w: string tag holds %T", ErrInvalidTagType, t.Value)
		}
		if compactStringLen > 0 {
			return b.PutString(v, compactStringLen)
		}
		return b.PutString(v)
	case TypeBlob:
		v, ok := t.Value.([]byte)
		if !ok {
			return fmt.Errorf("%w: blob tag holds %T", ErrInvalidTagType, t.Value)
		}
		if err := b.PutUInt32LE(uint32(len(v))); err != nil {
			return err
		}
		return b.PutBuffer(v)
	case TypeHash:
		v, ok := t.Value.(Hash)
		if !ok {
			return fmt.Errorf("%w: hash tag holds %T", ErrInvalidTagType, t.Value)
		}
		return b.PutHash([16]byte(v))
	default:
		return fmt.Errorf("%w: 0x%x", ErrInvalidTagType, t.Type)
	}
}

// DecodeTag reads one Tag from b. maxBlobLen bounds a blob tag's length
// prefix; pass 0 to use DefaultMaxBlobLen.
func DecodeTag(b *Buffer, maxBlobLen uint32) (Tag, error) {
	if maxBlobLen == 0 {
		maxBlobLen = DefaultMaxBlobLen
	}
	startPos := b.Pos()
	raw, err := b.GetUInt8()
	if err != nil {
		return Tag{}, err
	}
	isID := raw&tagNameBit != 0
	typ := raw &^ tagNameBit

	var name TagName
	if isID {
		id, err := b.GetUInt8()
		if err != nil {
			return Tag{}, &TagDecodeError{Pos: startPos, Stage: "read-name-id", TagType: typ, Err: err}
		}
		name = NumericName(id)
	} else {
		s, err := b.GetString()
		if err != nil {
			return Tag{}, &TagDecodeError{Pos: startPos, Stage: "read-name-string", TagType: typ, Err: err}
		}
		name = StringName(s)
	}

	value, outType, err := decodeTagValue(b, typ, maxBlobLen)
	if err != nil {
		return Tag{}, &TagDecodeError{Pos: startPos, Stage: "read-value", TagType: typ, Err: err}
	}
	return Tag{Name: name, Type: outType, Value: value}, nil
}

func decodeTagValue(b *Buffer, typ uint8, maxBlobLen uint32) (any, uint8, error) {
	if typ >= TypeStringBase && typ < TypeStringBase+maxCompactStringLen {
		strLen := int(typ-TypeStringBase) + 1
		s, err := b.GetString(strLen)
		if err != nil {
			return nil, 0, err
		}
		return s, TypeString, nil
	}
	switch typ {
	case TypeBool:
		v, err := b.GetUInt8()
		return v != 0, TypeBool, err
	case TypeUint8:
		v, err := b.GetUInt8()
		return v, TypeUint8, err
	case TypeUint16:
		v, err := b.GetUInt16LE()
		return v, TypeUint16, err
	case TypeUint32:
		v, err := b.GetUInt32LE()
		return v, TypeUint32, err
	case TypeUint64:
		v, err := b.GetUInt64LE()
		return v, TypeUint64, err
	case TypeFloat32:
		v, err := b.GetFloat32LE()
		return v, TypeFloat32, err
	case TypeString:
		v, err := b.GetString()
		return v, TypeString, err
	case TypeBlob:
		n, err := b.GetUInt32LE()
		if err != nil {
			return nil, 0, err
		}
		if n > maxBlobLen {
			return nil, 0, fmt.Errorf("%w: %d octets exceeds cap %d", ErrBlobTagTooLong, n, maxBlobLen)
		}
		v := b.Get(int(n))
		if len(v) != int(n) {
			return nil, 0, ErrOutOfBounds
		}
		return append([]byte(nil), v...), TypeBlob, nil
	case TypeHash:
		v, err := b.GetHash()
		return Hash(v), TypeHash, err
	default:
		return nil, 0, fmt.Errorf("%w: 0x%x", ErrInvalidTagType, typ)
	}
}

// TagDecodeError annotates a tag decode failure with its position and the
// stage that failed, mirroring the context a buffer-level error alone lacks.
type TagDecodeError struct {
	Pos     int
	Stage   string
	TagType uint8
	Err     error
}

func (e *TagDecodeError) Error() string {
	return fmt.Sprintf("tag decode failed stage=%s pos=%d type=0x%x: %v", e.Stage, e.Pos, e.TagType, e.Err)
}

func (e *TagDecodeError) Unwrap() error {
	return e.Err
}

// TagList is an ordered sequence of Tags. Duplicate names are permitted on
// the wire; Get returns the first match, insertion order is preserved on
// re-encode.
type TagList []Tag

func (l TagList) Encode(b *Buffer) error {
	if err := b.PutUInt32LE(uint32(len(l))); err != nil {
		return err
	}
	for _, t := range l {
		if err := t.Encode(b); err != nil {
			return err
		}
	}
	return nil
}

// DecodeTagList reads a u32 count followed by that many tags, rejecting
// counts beyond maxTags (0 selects DefaultMaxTagListLen) before any
// allocation proportional to the claimed count happens.
func DecodeTagList(b *Buffer, maxTags uint32, maxBlobLen uint32) (TagList, error) {
	if maxTags == 0 {
		maxTags = DefaultMaxTagListLen
	}
	count, err := b.GetUInt32LE()
	if err != nil {
		return nil, err
	}
	if count > maxTags {
		return nil, fmt.Errorf("%w: tag list count %d exceeds cap %d", ErrDecodePacket, count, maxTags)
	}
	tags := make(TagList, 0, count)
	for i := uint32(0); i < count; i++ {
		t, err := DecodeTag(b, maxBlobLen)
		if err != nil {
			return nil, fmt.Errorf("tag list decode failed idx=%d: %w", i, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Get returns the first tag with the given name.
func (l TagList) Get(name TagName) (Tag, bool) {
	for _, t := range l {
		if t.Name.equal(name) {
			return t, true
		}
	}
	return Tag{}, false
}

// At returns the tag at index i, failing with tag_list_index if out of
// range.
func (l TagList) At(i int) (Tag, error) {
	if i < 0 || i >= len(l) {
		return Tag{}, fmt.Errorf("%w: index %d, length %d", ErrTagListIndex, i, len(l))
	}
	return l[i], nil
}

// GetUint32 coerces the first tag named name to uint32, succeeding only
// when the stored type's width is <= 32 bits and unsigned.
func (l TagList) GetUint32(name TagName) (uint32, error) {
	t, ok := l.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: no tag named %v", ErrTagListIndex, name)
	}
	switch t.Type {
	case TypeUint8:
		return uint32(t.Value.(uint8)), nil
	case TypeUint16:
		return uint32(t.Value.(uint16)), nil
	case TypeUint32:
		return t.Value.(uint32), nil
	default:
		return 0, fmt.Errorf("%w: tag %v has type 0x%x", ErrIncompatibleTagGetter, name, t.Type)
	}
}

// GetString returns the first tag named name, requiring it to be a string
// tag (variable or compact form both decode to TypeString).
func (l TagList) GetString(name TagName) (string, error) {
	t, ok := l.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: no tag named %v", ErrTagListIndex, name)
	}
	s, ok := t.Value.(string)
	if !ok {
		return "", fmt.Errorf("%w: tag %v has type 0x%x", ErrIncompatibleTagGetter, name, t.Type)
	}
	return s, nil
}
