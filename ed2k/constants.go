package ed2k

const (
	PrED2K  uint8 = 0xe3
	PrEMule uint8 = 0xc5
	PrZlib  uint8 = 0xd4
)

const (
	OpReject           uint8 = 0x05
	OpDisconnect       uint8 = 0x18
	OpUsersList        uint8 = 0x43
	OpLoginRequest     uint8 = 0x01
	OpServerMessage    uint8 = 0x38
	OpServerStatus     uint8 = 0x34
	OpIDChange         uint8 = 0x40
	OpGetServerList    uint8 = 0x14
	OpOfferFiles       uint8 = 0x15
	OpServerList       uint8 = 0x32
	OpServerIdent      uint8 = 0x41
	OpGetSources       uint8 = 0x19
	OpFoundSources     uint8 = 0x42
	OpSearchRequest    uint8 = 0x16
	OpSearchResult     uint8 = 0x33
	OpCallbackRequest  uint8 = 0x1c
	OpCallbackReqd     uint8 = 0x35
	OpCallbackFailed   uint8 = 0x36
	OpGetSourcesObfu   uint8 = 0x23
	OpFoundSourcesObfu uint8 = 0x44
	OpGlobSearchReq3   uint8 = 0x90
	OpGlobSearchReq2   uint8 = 0x92
	OpGlobGetSources2  uint8 = 0x94
	OpGlobServStatReq  uint8 = 0x96
	OpGlobServStatRes  uint8 = 0x97
	OpGlobSearchReq    uint8 = 0x98
	OpGlobSearchRes    uint8 = 0x99
	OpGlobGetSources   uint8 = 0x9a
	OpGlobFoundSources uint8 = 0x9b
	OpServerDescReq    uint8 = 0xa2
	OpServerDescRes    uint8 = 0xa3
)

// Tag type bytes (low 7 bits of the wire type octet; the high bit is the
// numeric-vs-string name discriminator handled separately in tag.go).
const (
	TypeHash    uint8 = 0x01
	TypeString  uint8 = 0x02
	TypeUint32  uint8 = 0x03
	TypeFloat32 uint8 = 0x04
	TypeBool    uint8 = 0x05
	TypeBlob    uint8 = 0x07
	TypeUint16  uint8 = 0x08
	TypeUint8   uint8 = 0x09
	TypeUint64  uint8 = 0x0b

	// TypeStringBase is the first of the 16 synthetic fixed-length string
	// types (string_1..string_16, TypeStringBase..TypeStringBase+15): the
	// type byte itself carries the string length, so no length prefix
	// follows on the wire. Encoders prefer this form for length <= 16.
	TypeStringBase uint8 = 0x11
	maxCompactStringLen = 16

	// tagNameBit, masked into the type byte, signals a numeric (vs string)
	// tag name follows.
	tagNameBit uint8 = 0x80
)

const (
	TagFileName        uint8 = 0x01
	TagSize            uint8 = 0x02
	TagType            uint8 = 0x03
	TagFormat          uint8 = 0x04
	TagVersion         uint8 = 0x11
	TagVersion2        uint8 = 0x91
	TagPort            uint8 = 0x0f
	TagDescription     uint8 = 0x0b
	TagDynIP           uint8 = 0x85
	TagSources         uint8 = 0x15
	TagCompleteSources uint8 = 0x30
	TagMuleVersion     uint8 = 0xfb
	TagFlags           uint8 = 0x20
	TagRating          uint8 = 0xf7
	TagSizeHi          uint8 = 0x3a
	TagMediaArtist     uint8 = 0xd0
	TagMediaAlbum      uint8 = 0xd1
	TagMediaTitle      uint8 = 0xd2
	TagMediaLength     uint8 = 0xd3
	TagMediaBitrate    uint8 = 0xd4
	TagMediaCodec      uint8 = 0xd5
	TagSearchTree      uint8 = 0x0e
	TagEmuleUDPPorts   uint8 = 0xf9
	TagEmuleOptions1   uint8 = 0xfa
	TagEmuleOptions2   uint8 = 0xfe
	TagAuxPortsList    uint8 = 0x93
)

const (
	ValPartialID    uint32 = 0xfcfcfcfc
	ValPartialPort  uint16 = 0xfcfc
	ValCompleteID   uint32 = 0xfbfbfbfb
	ValCompletePort uint16 = 0xfbfb
)

const (
	FlagZlib          uint32 = 0x0001
	FlagIPInLogin     uint32 = 0x0002
	FlagAuxPort       uint32 = 0x0004
	FlagNewTags       uint32 = 0x0008
	FlagUnicode       uint32 = 0x0010
	FlagLargeFiles    uint32 = 0x0100
	FlagSupportCrypt  uint32 = 0x0200
	FlagRequestCrypt  uint32 = 0x0400
	FlagRequireCrypt  uint32 = 0x0800
	FlagUdpExtSources uint32 = 0x0001
	FlagUdpExtFiles   uint32 = 0x0002
	FlagUdpExtSrc2    uint32 = 0x0020
	FlagUdpObfusc     uint32 = 0x0200
	FlagTcpObfusc     uint32 = 0x0400
)

const (
	ClientVersionStr = "v0.04"
	ClientVersionInt = 0x00000003
)
