package secretstore

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// newTestCipher keeps the derivation cheap for tests that decrypt many times.
func newTestCipher(passphrase string) *Cipher {
	c := NewCipher(passphrase)
	c.iterations = 1000
	return c
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCipher("")

	inputs := []string{
		"",
		"AIza...test",
		"  spaces are kept  ",
		"Kamu tidak pernah mendengarkan aku!",
		"émoji 🎉 and ünïcödé",
		strings.Repeat("long secret ", 2000),
	}

	for _, in := range inputs {
		enc, err := c.Encrypt(in)
		if err != nil {
			t.Fatalf("Encrypt(%.20q): %v", in, err)
		}
		if got := c.Decrypt(enc); got != in {
			t.Errorf("Decrypt(Encrypt(%.20q)) = %.20q", in, got)
		}
	}
}

func TestEncrypt_DefaultIterations(t *testing.T) {
	c := NewCipher("")
	if c.iterations != 100_000 {
		t.Fatalf("iterations = %d, want 100000", c.iterations)
	}

	enc, err := c.Encrypt("AIza...test")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got := c.Decrypt(enc); got != "AIza...test" {
		t.Errorf("Decrypt = %q, want %q", got, "AIza...test")
	}
}

func TestEncrypt_EnvelopeLayout(t *testing.T) {
	c := newTestCipher("")

	enc, err := c.Encrypt("abc")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		t.Fatalf("envelope is not std base64: %v", err)
	}

	want := SaltSize + NonceSize + len("abc") + tagSize
	if len(raw) != want {
		t.Errorf("envelope length = %d, want %d", len(raw), want)
	}
}

func TestEncrypt_FreshSaltAndNonce(t *testing.T) {
	c := newTestCipher("")

	a, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt("same input")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same input produced identical envelopes")
	}

	rawA, _ := base64.StdEncoding.DecodeString(a)
	rawB, _ := base64.StdEncoding.DecodeString(b)
	if bytes.Equal(rawA[:SaltSize], rawB[:SaltSize]) {
		t.Error("salt reused across encryptions")
	}
	if bytes.Equal(rawA[SaltSize:SaltSize+NonceSize], rawB[SaltSize:SaltSize+NonceSize]) {
		t.Error("nonce reused across encryptions")
	}
}

func TestDecrypt_TamperedByteFailsClosed(t *testing.T) {
	c := newTestCipher("")

	enc, err := c.Encrypt("AIza...test")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(enc)

	for i := range raw {
		tampered := bytes.Clone(raw)
		tampered[i] ^= 0x01
		got := c.Decrypt(base64.StdEncoding.EncodeToString(tampered))
		if got != "" {
			t.Fatalf("flipping byte %d decrypted to %q, want empty", i, got)
		}
	}
}

func TestDecrypt_WrongPassphrase(t *testing.T) {
	enc, err := newTestCipher("one").Encrypt("AIza...test")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got := newTestCipher("two").Decrypt(enc); got != "" {
		t.Errorf("Decrypt with wrong passphrase = %q, want empty", got)
	}
}

func TestDecrypt_MalformedInput(t *testing.T) {
	c := newTestCipher("")

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "%%%not-base64%%%"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, SaltSize+NonceSize))},
		{"just under minimum", base64.StdEncoding.EncodeToString(make([]byte, SaltSize+NonceSize+tagSize-1))},
		{"zeroed minimum", base64.StdEncoding.EncodeToString(make([]byte, SaltSize+NonceSize+tagSize))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Decrypt(tt.input); got != "" {
				t.Errorf("Decrypt = %q, want empty", got)
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestEncrypt_RandomSourceFailure(t *testing.T) {
	c := newTestCipher("")
	c.rand = failingReader{}

	if _, err := c.Encrypt("x"); err == nil {
		t.Fatal("expected error when the random source fails")
	}
}
