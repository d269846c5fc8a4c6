package aead

import (
	"bytes"
	"testing"
)

var key32 = make([]byte, 32)

func init() {
	for i := range key32 {
		key32[i] = byte(i)
	}
}

func suites(t *testing.T) map[string]Cipher {
	t.Helper()
	gcm, err := NewAESGCM(key32)
	if err != nil {
		t.Fatalf("NewAESGCM() error = %v", err)
	}
	cha, err := NewChaCha20(key32)
	if err != nil {
		t.Fatalf("NewChaCha20() error = %v", err)
	}
	return map[string]Cipher{"aes-gcm": gcm, "chacha20": cha}
}

func TestNew_SuiteSelection(t *testing.T) {
	tests := []struct {
		name    string
		suite   Suite
		want    Suite
		wantErr bool
	}{
		{"default is aes-gcm", "", SuiteAESGCM, false},
		{"explicit aes-gcm", SuiteAESGCM, SuiteAESGCM, false},
		{"explicit chacha20", SuiteChaCha20, SuiteChaCha20, false},
		{"unknown suite", "rot13", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(key32, tt.suite)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c.Suite() != tt.want {
				t.Errorf("Suite() = %s, want %s", c.Suite(), tt.want)
			}
		})
	}
}

func TestNew_KeySize(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		if _, err := NewAESGCM(make([]byte, n)); err == nil {
			t.Errorf("NewAESGCM(%d bytes) should return error", n)
		}
		if _, err := NewChaCha20(make([]byte, n)); err == nil {
			t.Errorf("NewChaCha20(%d bytes) should return error", n)
		}
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	plaintexts := [][]byte{
		nil,
		[]byte("x"),
		[]byte(`{"count":42}`),
		bytes.Repeat([]byte{0xff}, 4096),
	}
	aads := [][]byte{nil, []byte("1735689600000")}

	for name, c := range suites(t) {
		for _, pt := range plaintexts {
			for _, aad := range aads {
				iv, ct, err := c.Seal(pt, aad)
				if err != nil {
					t.Fatalf("%s: Seal() error = %v", name, err)
				}
				if len(iv) != IVSize {
					t.Fatalf("%s: iv length = %d, want %d", name, len(iv), IVSize)
				}
				got, err := c.Open(iv, ct, aad)
				if err != nil {
					t.Fatalf("%s: Open() error = %v", name, err)
				}
				if !bytes.Equal(got, pt) {
					t.Errorf("%s: round-trip mismatch", name)
				}
			}
		}
	}
}

func TestSeal_FreshIVPerCall(t *testing.T) {
	for name, c := range suites(t) {
		iv1, _, err := c.Seal([]byte("state"), nil)
		if err != nil {
			t.Fatalf("%s: Seal() error = %v", name, err)
		}
		iv2, _, err := c.Seal([]byte("state"), nil)
		if err != nil {
			t.Fatalf("%s: Seal() error = %v", name, err)
		}
		if bytes.Equal(iv1, iv2) {
			t.Errorf("%s: two Seal calls produced the same IV", name)
		}
	}
}

func TestOpen_TamperDetection(t *testing.T) {
	for name, c := range suites(t) {
		iv, ct, err := c.Seal([]byte("sensitive state"), []byte("aad"))
		if err != nil {
			t.Fatalf("%s: Seal() error = %v", name, err)
		}

		// Flip a bit in the ciphertext.
		badCT := append([]byte(nil), ct...)
		badCT[0] ^= 0x01
		if _, err := c.Open(iv, badCT, []byte("aad")); err == nil {
			t.Errorf("%s: Open() with tampered ciphertext should fail", name)
		}

		// Flip a bit in the IV.
		badIV := append([]byte(nil), iv...)
		badIV[0] ^= 0x01
		if _, err := c.Open(badIV, ct, []byte("aad")); err == nil {
			t.Errorf("%s: Open() with tampered IV should fail", name)
		}

		// Mismatched associated data.
		if _, err := c.Open(iv, ct, []byte("other")); err == nil {
			t.Errorf("%s: Open() with mismatched AAD should fail", name)
		}

		// Missing associated data.
		if _, err := c.Open(iv, ct, nil); err == nil {
			t.Errorf("%s: Open() with missing AAD should fail", name)
		}
	}
}

func TestOpen_WrongKey(t *testing.T) {
	other := make([]byte, 32)
	copy(other, key32)
	other[0] ^= 0xff

	for name, c := range suites(t) {
		iv, ct, err := c.Seal([]byte("state"), nil)
		if err != nil {
			t.Fatalf("%s: Seal() error = %v", name, err)
		}

		wrong, err := New(other, c.Suite())
		if err != nil {
			t.Fatalf("%s: New() error = %v", name, err)
		}
		if _, err := wrong.Open(iv, ct, nil); err == nil {
			t.Errorf("%s: Open() with wrong key should fail", name)
		}
	}
}

func TestOpen_BadIVLength(t *testing.T) {
	for name, c := range suites(t) {
		iv, ct, err := c.Seal([]byte("state"), nil)
		if err != nil {
			t.Fatalf("%s: Seal() error = %v", name, err)
		}
		if _, err := c.Open(iv[:8], ct, nil); err == nil {
			t.Errorf("%s: Open() with short IV should fail", name)
		}
	}
}

func TestOverhead(t *testing.T) {
	for name, c := range suites(t) {
		// Both suites carry a 16-byte Poly1305/GHASH tag.
		if c.Overhead() != 16 {
			t.Errorf("%s: Overhead() = %d, want 16", name, c.Overhead())
		}
	}
}
