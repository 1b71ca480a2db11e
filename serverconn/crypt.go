package serverconn

import (
	"crypto/md5"
	crand "crypto/rand"
	"math/rand"
)

// Obfuscation method identifiers. RC4 stream obfuscation is the only method
// either side of this library speaks.
const (
	methodObfuscate = 0

	magicValueSync = 0x835E6FC4
	magicServer    = 203
	magicRequester = 34

	cryptPrimeSize = 96
	cryptDHASize   = 16
)

// cryptPrime is the 768-bit Diffie-Hellman prime of the obfuscation
// protocol. The initiator handshake in handshake.go does not use it: it
// derives its RC4 keys from MD5 over the client hash, a magic byte and a
// random key.
var cryptPrime = []byte{
	0xF2, 0xBF, 0x52, 0xC5, 0x5F, 0x58, 0x7A, 0xDD, 0x53, 0x71, 0xA9, 0x36,
	0xE8, 0x86, 0xEB, 0x3C, 0x62, 0x17, 0xA3, 0x3E, 0xC3, 0x4C, 0xB4, 0x0D,
	0xC7, 0x3A, 0x41, 0xA6, 0x43, 0xAF, 0xFC, 0xE7, 0x21, 0xFC, 0x28, 0x63,
	0x66, 0x53, 0x5B, 0xDB, 0xCE, 0x25, 0x9F, 0x22, 0x86, 0xDA, 0x4A, 0x91,
	0xB2, 0x07, 0xCB, 0xAA, 0x52, 0x55, 0xD4, 0xF6, 0x1C, 0xCE, 0xAE, 0xD4,
	0x5A, 0xD5, 0xE0, 0x74, 0x7D, 0xF7, 0x78, 0x18, 0x28, 0x10, 0x5F, 0x34,
	0x0F, 0x76, 0x23, 0x87, 0xF8, 0x8B, 0x28, 0x91, 0x42, 0xFB, 0x42, 0x68,
	0x8F, 0x05, 0x15, 0x0F, 0x54, 0x8B, 0x5F, 0x43, 0x6A, 0xF7, 0x0D, 0xF3,
}

type rc4Key struct {
	state [256]byte
	x, y  byte
}

func rc4CreateKey(keyphrase []byte, drop bool) *rc4Key {
	k := &rc4Key{}
	for i := 0; i < 256; i++ {
		k.state[i] = byte(i)
	}
	index1, index2 := 0, 0
	for i := 0; i < 256; i++ {
		index2 = (int(keyphrase[index1]) + int(k.state[i]) + index2) % 256
		k.state[i], k.state[index2] = k.state[index2], k.state[i]
		index1 = (index1 + 1) % len(keyphrase)
	}
	if drop {
		rc4Crypt(nil, 1024, k)
	}
	return k
}

func rc4Crypt(buffer []byte, length int, key *rc4Key) []byte {
	if key == nil {
		return nil
	}
	var out []byte
	if buffer != nil {
		out = make([]byte, length)
	}
	for i := 0; i < length; i++ {
		key.x = byte((int(key.x) + 1) % 256)
		key.y = byte((int(key.state[key.x]) + int(key.y)) % 256)
		key.state[key.x], key.state[key.y] = key.state[key.y], key.state[key.x]
		xorIndex := byte((int(key.state[key.x]) + int(key.state[key.y])) % 256)
		if buffer != nil {
			out[i] = buffer[i] ^ key.state[xorIndex]
		}
	}
	return out
}

func md5Sum(buffer []byte) []byte {
	sum := md5.Sum(buffer)
	return sum[:]
}

func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n + 1)
}

func randBuf(length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := crand.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}
