package serverconn

import (
	"net"

	"github.com/zt8989/ed2k-serverconn/ed2k"
)

// udpMagicServerClient, udpMagicClientServer and the two sync values are the
// key-derivation constants the global-state UDP channel's obfuscation uses.
// Nothing in this package dials UDP yet; these exist so a future
// GlobalSearch/GlobalGetSources implementation has its crypto primitive
// ready without half-wiring request/response handling.
const (
	udpMagicServerClient = 0xA5
	udpMagicClientServer = 0x6B
	udpSyncClient         = 0x395F2EC1
	udpSyncServer         = 0x13EF24D5
)

// udpCrypt derives per-datagram RC4 keys from a server-advertised key plus a
// per-packet random nonce, the same MD5-then-RC4 construction the TCP
// handshake uses, but keyed from the server key instead of the client hash
// (the server key is learned out of band, from OP_SERVERIDENT's capability
// tags).
type udpCrypt struct {
	serverKey uint32
}

func newUDPCrypt(serverKey uint32) *udpCrypt {
	return &udpCrypt{serverKey: serverKey}
}

func (u *udpCrypt) key(magic byte, randomKey uint16) *rc4Key {
	b := ed2k.NewBuffer(7)
	b.PutUInt32LE(u.serverKey)
	b.PutUInt8(magic)
	b.PutUInt16LE(randomKey)
	return rc4CreateKey(md5Sum(b.Bytes()), false)
}

func (u *udpCrypt) decrypt(buffer []byte) []byte {
	b := ed2k.NewBufferFromBytes(buffer)
	protocol, err := b.GetUInt8()
	if err != nil {
		return buffer
	}
	if protocol == ed2k.PrED2K {
		b.Pos(0)
		return b.Bytes()
	}
	clientKey, err := b.GetUInt16LE()
	if err != nil {
		return buffer
	}
	data := b.Get()
	dec := rc4Crypt(data, len(data), u.key(udpMagicClientServer, clientKey))
	db := ed2k.NewBufferFromBytes(dec)
	sync, err := db.GetUInt32LE()
	if err != nil || sync != udpSyncServer {
		return buffer
	}
	padLen, err := db.GetUInt8()
	if err != nil {
		return buffer
	}
	db.Get(int(padLen))
	return db.Get()
}

func (u *udpCrypt) encrypt(randomKey uint16, buffer []byte) []byte {
	enc := ed2k.NewBuffer(len(buffer) + 5)
	enc.PutUInt32LE(udpSyncClient)
	enc.PutUInt8(0)
	enc.PutBuffer(buffer)
	return rc4Crypt(enc.Bytes(), len(enc.Bytes()), u.key(udpMagicServerClient, randomKey))
}

// dormantUDP is the documented, never-dialed extension point for the
// global-search UDP channel: a type shaped like a real channel. Nothing in
// this package constructs it, and ServerConnection holds no UDP field.
type dormantUDP struct {
	conn  net.PacketConn
	crypt *udpCrypt
}
