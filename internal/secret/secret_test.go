package secret

import (
	"strings"
	"testing"
)

func TestDeriveDeterministic(t *testing.T) {
	a := Derive("abc", "def")
	b := Derive("abc", "def")
	if a != b {
		t.Errorf("Derive not deterministic: %q vs %q", a, b)
	}
}

func TestDeriveLength(t *testing.T) {
	got := Derive("abc", "def")
	if len(got) != 32 {
		t.Errorf("Derive returned %d chars, want 32", len(got))
	}
	if got != strings.ToLower(got) {
		t.Errorf("Derive returned non-lowercase hex: %q", got)
	}
	for _, r := range got {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("Derive returned non-hex char %q in %q", r, got)
		}
	}
}

func TestDeriveInputSensitivity(t *testing.T) {
	base := Derive("abc", "def")
	if Derive("abx", "def") == base {
		t.Error("changing instance ID did not change the secret")
	}
	if Derive("abc", "dex") == base {
		t.Error("changing encryption key did not change the secret")
	}
}

func TestDeriveEmptyInputs(t *testing.T) {
	// Empty inputs are permitted and still produce a 32-char hex secret.
	got := Derive("", "")
	if len(got) != 32 {
		t.Errorf("Derive(\"\", \"\") returned %d chars, want 32", len(got))
	}
}
