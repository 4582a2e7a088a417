package vault

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	keys := []string{
		"sk-abcdefghijklmnopqrstuvwxyz123456",
		"",
		"short",
	}
	for _, plain := range keys {
		enc, err := v.Encrypt(plain)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plain, err)
		}
		dec, err := v.Decrypt(enc)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plain, err)
		}
		if dec != plain {
			t.Errorf("round trip mismatch: got %q, want %q", dec, plain)
		}
	}
}

func TestEncryptProducesFreshCiphertext(t *testing.T) {
	v, err := New("secret-key-material")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	a, _ := v.Encrypt("sk-same-input")
	b, _ := v.Encrypt("sk-same-input")
	if a == b {
		t.Error("expected distinct ciphertexts for same plaintext (random nonce)")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	v, err := New("secret-key-material")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	if _, err := v.Decrypt("not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := v.Decrypt("AAAA"); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("sk-test")
	b := Fingerprint("sk-test")
	if a != b {
		t.Error("fingerprint not stable")
	}
	if a == Fingerprint("sk-other") {
		t.Error("distinct keys produced same fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestMask(t *testing.T) {
	got := Mask("sk-abcdefghijklmnop")
	if !strings.HasPrefix(got, "sk-abcd") || !strings.HasSuffix(got, "mnop") {
		t.Errorf("unexpected mask: %q", got)
	}
	if !strings.Contains(got, "********") {
		t.Errorf("expected 8 asterisks in %q", got)
	}

	// Too short to mask safely.
	if got := Mask("sk-short123"); got != "sk-short123" {
		t.Errorf("short key should pass through, got %q", got)
	}
}
