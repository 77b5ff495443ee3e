package cryptoutil

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/minio/sio"
)

func TestParseKey(t *testing.T) {
	raw := bytes.Repeat([]byte{0xa7}, KeySize)

	for _, encoded := range []string{
		base64.StdEncoding.EncodeToString(raw),
		hex.EncodeToString(raw),
	} {
		key, err := ParseKey(encoded)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", encoded, err)
		}
		if !bytes.Equal(key, raw) {
			t.Errorf("ParseKey(%q) decoded wrong bytes", encoded)
		}
	}
}

func TestParseKeyRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "short", hex.EncodeToString(bytes.Repeat([]byte{1}, 16))} {
		if _, err := ParseKey(s); err == nil {
			t.Errorf("ParseKey(%q) should fail", s)
		}
	}
}

func TestEncryptReaderRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeySize)
	plain := "recording bytes"

	enc, err := EncryptReader(strings.NewReader(plain), key)
	if err != nil {
		t.Fatalf("EncryptReader: %v", err)
	}
	ciphertext, err := io.ReadAll(enc)
	if err != nil {
		t.Fatalf("read ciphertext: %v", err)
	}
	if bytes.Contains(ciphertext, []byte(plain)) {
		t.Fatal("plaintext visible in ciphertext")
	}

	want, err := EncryptedSize(int64(len(plain)))
	if err != nil {
		t.Fatalf("EncryptedSize: %v", err)
	}
	if int64(len(ciphertext)) != want {
		t.Errorf("ciphertext size = %d, want %d", len(ciphertext), want)
	}

	dec, err := sio.DecryptReader(bytes.NewReader(ciphertext), sio.Config{Key: key})
	if err != nil {
		t.Fatalf("DecryptReader: %v", err)
	}
	back, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("read plaintext: %v", err)
	}
	if string(back) != plain {
		t.Errorf("round trip = %q, want %q", back, plain)
	}
}
