package ed2k

import "fmt"

// loginEmuleVersionBase is the value LoginRequest sends in its TagVersion
// tag, one of the four tags a login carries: name, protocol version,
// capability flags, emule client version.
const (
	loginEmuleVersionBase = 0x3c
)

// LoginRequest is the OP_LOGINREQUEST payload: the client's identity and
// capability announcement sent once, immediately after connecting.
type LoginRequest struct {
	Hash         Hash
	ClientID     uint32
	Port         uint16
	ClientName   string
	ServerFlags  uint32
	EmuleVersion uint32
}

func (m LoginRequest) Encode() []byte {
	b := NewBuffer(64)
	b.PutHash([16]byte(m.Hash))
	b.PutUInt32LE(m.ClientID)
	b.PutUInt16LE(m.Port)
	tags := TagList{
		StringTag(NumericName(TagFileName), m.ClientName),
		UInt32Tag(NumericName(TagVersion), loginEmuleVersionBase),
		UInt32Tag(NumericName(TagFlags), m.ServerFlags),
		UInt32Tag(NumericName(TagMuleVersion), m.EmuleVersion),
	}
	tags.Encode(b)
	return b.Bytes()
}

// ServerMessage is the OP_SERVERMESSAGE payload: a single UTF-8 string
// delivered to the session as a server_message alert.
type ServerMessage struct {
	Text string
}

func DecodeServerMessage(b *Buffer) (ServerMessage, error) {
	s, err := b.GetString(b.Remaining())
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{Text: s}, nil
}

// ServerListEntry is one entry of OP_SERVERLIST.
type ServerListEntry struct {
	IPv4 uint32
	Port uint16
}

type ServerList struct {
	Servers []ServerListEntry
}

func DecodeServerList(b *Buffer) (ServerList, error) {
	count, err := b.GetUInt8()
	if err != nil {
		return ServerList{}, err
	}
	out := ServerList{Servers: make([]ServerListEntry, 0, count)}
	for i := uint8(0); i < count; i++ {
		ip, err := b.GetUInt32LE()
		if err != nil {
			return ServerList{}, fmt.Errorf("%w: server list idx=%d: %v", ErrDecodePacket, i, err)
		}
		port, err := b.GetUInt16LE()
		if err != nil {
			return ServerList{}, fmt.Errorf("%w: server list idx=%d: %v", ErrDecodePacket, i, err)
		}
		out.Servers = append(out.Servers, ServerListEntry{IPv4: ip, Port: port})
	}
	return out, nil
}

// ServerStatus is the OP_SERVERSTATUS payload.
type ServerStatus struct {
	UserCount uint32
	FileCount uint32
}

func DecodeServerStatus(b *Buffer) (ServerStatus, error) {
	users, err := b.GetUInt32LE()
	if err != nil {
		return ServerStatus{}, err
	}
	files, err := b.GetUInt32LE()
	if err != nil {
		return ServerStatus{}, err
	}
	return ServerStatus{UserCount: users, FileCount: files}, nil
}

// IDChange is the OP_IDCHANGE payload. tcp_flags and aux_port are only
// present when the frame carries enough remaining bytes; a bare 4-byte
// payload (size == 5 including the opcode) zero-fills both.
type IDChange struct {
	ClientID uint32
	TCPFlags uint32
	AuxPort  uint32
}

func DecodeIDChange(b *Buffer) (IDChange, error) {
	id, err := b.GetUInt32LE()
	if err != nil {
		return IDChange{}, err
	}
	out := IDChange{ClientID: id}
	if b.Remaining() >= 4 {
		if out.TCPFlags, err = b.GetUInt32LE(); err != nil {
			return IDChange{}, err
		}
	}
	if b.Remaining() >= 4 {
		if out.AuxPort, err = b.GetUInt32LE(); err != nil {
			return IDChange{}, err
		}
	}
	return out, nil
}

// ServerIdent is the OP_SERVERIDENT payload: the server's own identity.
type ServerIdent struct {
	Hash Hash
	IPv4 uint32
	Port uint16
	Tags TagList
}

func DecodeServerIdent(b *Buffer) (ServerIdent, error) {
	hash, err := b.GetHash()
	if err != nil {
		return ServerIdent{}, err
	}
	ip, err := b.GetUInt32LE()
	if err != nil {
		return ServerIdent{}, err
	}
	port, err := b.GetUInt16LE()
	if err != nil {
		return ServerIdent{}, err
	}
	tags, err := DecodeTagList(b, 0, 0)
	if err != nil {
		return ServerIdent{}, err
	}
	return ServerIdent{Hash: Hash(hash), IPv4: ip, Port: port, Tags: tags}, nil
}

// FileDescriptor is a shared-file entry as carried by OP_OFFERFILES (out)
// and OP_SEARCHRESULT (in): hash, owner endpoint, and a tag list describing
// name/size/type/media metadata.
type FileDescriptor struct {
	Hash Hash
	ID   uint32
	Port uint16
	Tags TagList
}

// NewSharedFileDescriptor builds the tag list a OP_OFFERFILES entry needs to
// announce a local file: name, size (split lo/hi when it exceeds 32 bits),
// and a type tag derived from the file's extension.
func NewSharedFileDescriptor(hash Hash, id uint32, port uint16, name string, size uint64) FileDescriptor {
	tags := TagList{
		StringTag(NumericName(TagFileName), name),
		UInt32Tag(NumericName(TagSize), uint32(size)),
	}
	if hi := uint32(size >> 32); hi != 0 {
		tags = append(tags, UInt32Tag(NumericName(TagSizeHi), hi))
	}
	if typ := GetFileType(name); typ != "" {
		tags = append(tags, StringTag(NumericName(TagType), typ))
	}
	return FileDescriptor{Hash: hash, ID: id, Port: port, Tags: tags}
}

func (f FileDescriptor) Encode(b *Buffer) error {
	if err := b.PutHash([16]byte(f.Hash)); err != nil {
		return err
	}
	if err := b.PutUInt32LE(f.ID); err != nil {
		return err
	}
	if err := b.PutUInt16LE(f.Port); err != nil {
		return err
	}
	return f.Tags.Encode(b)
}

func decodeFileDescriptor(b *Buffer) (FileDescriptor, error) {
	hash, err := b.GetHash()
	if err != nil {
		return FileDescriptor{}, err
	}
	id, err := b.GetUInt32LE()
	if err != nil {
		return FileDescriptor{}, err
	}
	port, err := b.GetUInt16LE()
	if err != nil {
		return FileDescriptor{}, err
	}
	tags, err := DecodeTagList(b, 0, 0)
	if err != nil {
		return FileDescriptor{}, err
	}
	return FileDescriptor{Hash: Hash(hash), ID: id, Port: port, Tags: tags}, nil
}

// OfferFiles is the OP_OFFERFILES payload. An empty Files list is also the
// keepalive frame.
type OfferFiles struct {
	Files []FileDescriptor
}

func (m OfferFiles) Encode() []byte {
	b := NewBuffer(4)
	b.PutUInt32LE(uint32(len(m.Files)))
	for _, f := range m.Files {
		f.Encode(b)
	}
	return b.Bytes()
}

// GetSources is the OP_GETSOURCES payload: request sources for a file by
// hash and size.
type GetSources struct {
	Hash Hash
	Size uint64
}

func (m GetSources) Encode() []byte {
	b := NewBuffer(24)
	b.PutHash([16]byte(m.Hash))
	b.PutUInt64LE(m.Size)
	return b.Bytes()
}

// SourceEndpoint is one peer returned by OP_FOUNDSOURCES.
type SourceEndpoint struct {
	ClientID uint32
	Port     uint16
}

// FoundSources is the OP_FOUNDSOURCES payload: hash plus a list of source
// endpoints, handed to the transfer matching the hash.
type FoundSources struct {
	Hash  Hash
	Peers []SourceEndpoint
}

func DecodeFoundSources(b *Buffer) (FoundSources, error) {
	hash, err := b.GetHash()
	if err != nil {
		return FoundSources{}, err
	}
	count, err := b.GetUInt8()
	if err != nil {
		return FoundSources{}, err
	}
	out := FoundSources{Hash: Hash(hash), Peers: make([]SourceEndpoint, 0, count)}
	for i := uint8(0); i < count; i++ {
		id, err := b.GetUInt32LE()
		if err != nil {
			return FoundSources{}, fmt.Errorf("%w: found sources idx=%d: %v", ErrDecodePacket, i, err)
		}
		port, err := b.GetUInt16LE()
		if err != nil {
			return FoundSources{}, fmt.Errorf("%w: found sources idx=%d: %v", ErrDecodePacket, i, err)
		}
		out.Peers = append(out.Peers, SourceEndpoint{ClientID: id, Port: port})
	}
	return out, nil
}

// SearchRequest is the OP_SEARCHREQUEST payload: an opaque, already-encoded
// search tree. This library never builds or interprets the tree grammar; it
// only carries the caller's pre-encoded bytes.
type SearchRequest struct {
	Tree []byte
}

func (m SearchRequest) Encode() []byte {
	return append([]byte(nil), m.Tree...)
}

// SearchResult is the OP_SEARCHRESULT payload: a list of file descriptors,
// emitted as a search_result alert.
type SearchResult struct {
	Files []FileDescriptor
}

func DecodeSearchResult(b *Buffer) (SearchResult, error) {
	count, err := b.GetUInt32LE()
	if err != nil {
		return SearchResult{}, err
	}
	out := SearchResult{Files: make([]FileDescriptor, 0, count)}
	for i := uint32(0); i < count; i++ {
		f, err := decodeFileDescriptor(b)
		if err != nil {
			return SearchResult{}, fmt.Errorf("%w: search result idx=%d: %v", ErrDecodePacket, i, err)
		}
		out.Files = append(out.Files, f)
	}
	return out, nil
}

// Reject, Disconnect, UsersList and CallbackRequested carry no payload the
// core interprets: they are logged and otherwise drive no state change.
type Reject struct{}
type Disconnect struct{}
type UsersList struct{}
type CallbackRequested struct{}

// UnknownMessage carries the raw payload of an opcode this library doesn't
// recognize; it round-trips but is otherwise inert.
type UnknownMessage struct {
	Opcode  uint8
	Payload []byte
}

// DecodeMessage decodes an inbound frame's payload according to its opcode.
// An unrecognized opcode is not an error: it decodes to UnknownMessage and
// recognized is false, matching the log-and-skip treatment unhandled
// opcodes get. A recognized opcode that fails to decode fails with
// decode_packet_error.
func DecodeMessage(opcode uint8, payload []byte) (msg any, recognized bool, err error) {
	b := NewBufferFromBytes(payload)
	switch opcode {
	case OpServerMessage:
		msg, err = DecodeServerMessage(b)
	case OpServerList:
		msg, err = DecodeServerList(b)
	case OpServerStatus:
		msg, err = DecodeServerStatus(b)
	case OpIDChange:
		msg, err = DecodeIDChange(b)
	case OpServerIdent:
		msg, err = DecodeServerIdent(b)
	case OpFoundSources:
		msg, err = DecodeFoundSources(b)
	case OpSearchResult:
		msg, err = DecodeSearchResult(b)
	case OpCallbackReqd:
		msg, err = CallbackRequested{}, nil
	case OpReject:
		msg, err = Reject{}, nil
	case OpDisconnect:
		msg, err = Disconnect{}, nil
	case OpUsersList:
		msg, err = UsersList{}, nil
	}
	if msg != nil || err != nil {
		if err != nil {
			return nil, true, fmt.Errorf("%w: opcode 0x%x: %v", ErrDecodePacket, opcode, err)
		}
		return msg, true, nil
	}
	return UnknownMessage{Opcode: opcode, Payload: payload}, false, nil
}
