package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt 2: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("1234567890abcdef")

	key1 := DeriveKey("mypassphrase", salt)
	key2 := DeriveKey("mypassphrase", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", salt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	original := []byte("SQLite format 3\x00 pretend database pages")

	sealed, err := Seal(original, "test-passphrase-123")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, original) {
		t.Error("sealed snapshot should not contain the plaintext")
	}
	if !bytes.HasPrefix(sealed, magic) {
		t.Error("sealed snapshot should start with the magic header")
	}

	opened, err := Open(sealed, "test-passphrase-123")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, original) {
		t.Errorf("opened = %q, want %q", opened, original)
	}

	again, err := Seal(original, "test-passphrase-123")
	if err != nil {
		t.Fatalf("seal again: %v", err)
	}
	if bytes.Equal(again, sealed) {
		t.Error("sealing twice should use a fresh salt and nonce")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "correct")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(sealed, "wrong"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("err = %v, want ErrBadPassphrase", err)
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	// Flipping a salt byte changes the derived key and the authenticated header.
	tampered := bytes.Clone(sealed)
	tampered[len(magic)] ^= 0xff
	if _, err := Open(tampered, "pw"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("err = %v, want ErrBadPassphrase", err)
	}

	tampered = bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xff
	if _, err := Open(tampered, "pw"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("err = %v, want ErrBadPassphrase", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("short"), bytes.Repeat([]byte{'x'}, 64)} {
		if _, err := Open(data, "pw"); err == nil {
			t.Errorf("Open(%q) should fail", data)
		}
	}
}
