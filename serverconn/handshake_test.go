package serverconn

import (
	"testing"

	"github.com/zt8989/ed2k-serverconn/ed2k"
)

func TestHandshakeBuildProducesSyncHeader(t *testing.T) {
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	h := newObfuscationHandshake(hash)
	out, err := h.build(0x42, 0xCAFEBABE, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) < 5 {
		t.Fatalf("handshake output too short: %d", len(out))
	}
	if out[0] != 0x42 {
		t.Fatalf("expected the random protocol byte leading the frame, got 0x%x", out[0])
	}
	if h.status != csNegotiating {
		t.Fatalf("expected csNegotiating after build, got %d", h.status)
	}
}

// serverReply derives the same recvKey a requester would compute for
// magicServer and encrypts a well-formed sync reply with it, mirroring what
// an index server's acceptor-side handshake produces.
func serverReply(hash ed2k.Hash, method uint8, pad []byte) []byte {
	key := make([]byte, 17)
	copy(key, hash[:])
	key[16] = magicServer
	seed := md5Sum(key)
	serverKey := rc4CreateKey(seed, true)

	b := ed2k.NewBuffer(8 + len(pad))
	b.PutUInt32LE(magicValueSync)
	b.PutUInt8(method)
	b.PutUInt8(uint8(len(pad)))
	b.PutBuffer(pad)
	return rc4Crypt(b.Bytes(), b.Len(), serverKey)
}

func TestHandshakeDecryptCompletesNegotiation(t *testing.T) {
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	h := newObfuscationHandshake(hash)
	if _, err := h.build(0x42, 0xCAFEBABE, nil); err != nil {
		t.Fatal(err)
	}

	reply := serverReply(hash, methodObfuscate, nil)
	_, done, err := h.decrypt(reply)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("expected handshake to report done on a valid reply")
	}
	if h.status != csEncrypting {
		t.Fatalf("expected csEncrypting, got %d", h.status)
	}
}

func TestHandshakeDecryptRejectsBadSync(t *testing.T) {
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	h := newObfuscationHandshake(hash)
	if _, err := h.build(0x42, 0xCAFEBABE, nil); err != nil {
		t.Fatal(err)
	}

	garbage := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	if _, _, err := h.decrypt(garbage); err == nil {
		t.Fatal("expected bad sync value error")
	}
	if h.status != csNone {
		t.Fatalf("expected status reset to csNone after bad sync, got %d", h.status)
	}
}

func TestHandshakeEncryptIsNoopBeforeNegotiationCompletes(t *testing.T) {
	hash, _ := ed2k.ParseHash("0102030405060708090a0b0c0d0e0f10")
	h := newObfuscationHandshake(hash)
	plain := []byte("not yet encrypting")
	if out := h.encrypt(plain); string(out) != string(plain) {
		t.Fatal("encrypt before negotiation should pass data through unchanged")
	}
}
