package serverconn

import "testing"

func TestRC4CryptRoundTrip(t *testing.T) {
	seed := []byte("shared-seed-material")
	plain := []byte("the quick brown fox jumps over the lazy dog")

	encKey := rc4CreateKey(seed, true)
	cipher := rc4Crypt(plain, len(plain), encKey)
	if string(cipher) == string(plain) {
		t.Fatal("ciphertext should differ from plaintext")
	}

	decKey := rc4CreateKey(seed, true)
	decoded := rc4Crypt(cipher, len(cipher), decKey)
	if string(decoded) != string(plain) {
		t.Fatalf("round trip failed: got %q", decoded)
	}
}

func TestRC4CryptNilKeyReturnsNil(t *testing.T) {
	if out := rc4Crypt([]byte("x"), 1, nil); out != nil {
		t.Fatalf("expected nil output for nil key, got %v", out)
	}
}

func TestRandBufLength(t *testing.T) {
	buf, err := randBuf(12)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(buf))
	}
}

func TestRandIntnBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		if v := randIntn(16); v < 0 || v > 16 {
			t.Fatalf("randIntn(16) out of bounds: %d", v)
		}
	}
	if v := randIntn(0); v != 0 {
		t.Fatalf("randIntn(0) should be 0, got %d", v)
	}
}
