package serverconn

import (
	"errors"

	"github.com/zt8989/ed2k-serverconn/ed2k"
)

// crypt negotiation states, mirroring the wire handshake's own phases.
const (
	csNone = iota
	csNegotiating
	csEncrypting
)

// obfuscationHandshake is the RC4+MD5 initiator handshake used when the
// connection is configured to obfuscate its TCP stream. It models dialing
// out and negotiating as the initiator: the connection sends the encrypted
// sync blob first, then decrypts the server's reply before any ed2k frame
// is exchanged.
type obfuscationHandshake struct {
	hash    ed2k.Hash
	status  int
	method  int
	sendKey *rc4Key
	recvKey *rc4Key
}

func newObfuscationHandshake(hash ed2k.Hash) *obfuscationHandshake {
	return &obfuscationHandshake{hash: hash, status: csNone}
}

// build returns the bytes to send as the very first thing on the wire: one
// random protocol byte, a random key, then the RC4-encrypted sync payload.
func (h *obfuscationHandshake) build(randomProtocol uint8, randomKey uint32, pad []byte) ([]byte, error) {
	key := make([]byte, 21)
	copy(key, h.hash[:])
	key[16] = magicRequester
	keyBuf := make([]byte, 4)
	keyBuf[0] = byte(randomKey)
	keyBuf[1] = byte(randomKey >> 8)
	keyBuf[2] = byte(randomKey >> 16)
	keyBuf[3] = byte(randomKey >> 24)
	copy(key[17:], keyBuf)
	sendSeed := md5Sum(key)

	copy(key, h.hash[:])
	key[16] = magicServer
	recvSeed := md5Sum(key[:17])

	h.sendKey = rc4CreateKey(sendSeed, true)
	h.recvKey = rc4CreateKey(recvSeed, true)

	enc := ed2k.NewBuffer(8 + len(pad))
	enc.PutUInt32LE(magicValueSync)
	enc.PutUInt8(methodObfuscate)
	enc.PutUInt8(methodObfuscate)
	enc.PutUInt8(uint8(len(pad)))
	enc.PutBuffer(pad)
	encrypted := rc4Crypt(enc.Bytes(), len(enc.Bytes()), h.sendKey)

	out := ed2k.NewBuffer(5 + len(encrypted))
	out.PutUInt8(randomProtocol)
	out.PutUInt32LE(randomKey)
	out.PutBuffer(encrypted)
	h.status = csNegotiating
	return out.Bytes(), nil
}

// encrypt applies the send-side RC4 stream once negotiation has completed;
// before that it is a no-op passthrough (the handshake bytes themselves are
// built and sent separately, by build).
func (h *obfuscationHandshake) encrypt(data []byte) []byte {
	if h.status != csEncrypting {
		return data
	}
	return rc4Crypt(data, len(data), h.sendKey)
}

// decrypt advances the handshake state machine. While negotiating, it
// consumes the server's sync reply and returns (nil, true, nil) once the
// connection can switch to treating subsequent bytes as live ed2k frames.
// Once encrypting, it simply decrypts each inbound chunk.
func (h *obfuscationHandshake) decrypt(data []byte) (plain []byte, handshakeDone bool, err error) {
	switch h.status {
	case csEncrypting:
		return rc4Crypt(data, len(data), h.recvKey), false, nil
	case csNegotiating:
		dec := rc4Crypt(data, len(data), h.recvKey)
		b := ed2k.NewBufferFromBytes(dec)
		sync, err := b.GetUInt32LE()
		if err != nil {
			return nil, false, err
		}
		if sync != magicValueSync {
			h.status = csNone
			return nil, false, errors.New("obfuscation handshake: bad sync value in reply")
		}
		method, err := b.GetUInt8()
		if err != nil {
			return nil, false, err
		}
		h.method = int(method)
		padLen, err := b.GetUInt8()
		if err != nil {
			return nil, false, err
		}
		b.Get(int(padLen))
		h.status = csEncrypting
		return nil, true, nil
	default:
		return data, false, nil
	}
}
