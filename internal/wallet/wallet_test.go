package wallet

import (
	"strings"
	"testing"
)

func TestGenerateProducesAllAddresses(t *testing.T) {
	w, err := Generate("avax")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(w.PrivateKeyHex, "0x") || len(w.PrivateKeyHex) != 66 {
		t.Errorf("private key format: %q", w.PrivateKeyHex)
	}
	if !strings.HasPrefix(w.AddressC, "0x") || len(w.AddressC) != 42 {
		t.Errorf("C address format: %q", w.AddressC)
	}
	if !strings.HasPrefix(w.AddressP, "P-avax1") {
		t.Errorf("P address format: %q", w.AddressP)
	}
	if !strings.HasPrefix(w.AddressX, "X-avax1") {
		t.Errorf("X address format: %q", w.AddressX)
	}
	if w.AddressP[2:] != w.AddressX[2:] {
		t.Errorf("P and X should share the encoded payload: %q vs %q", w.AddressP, w.AddressX)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	w, err := Generate("avax")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	again, err := Derive(w.PrivateKeyHex, "avax")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if again.AddressC != w.AddressC || again.AddressP != w.AddressP || again.AddressX != w.AddressX {
		t.Errorf("derivation not deterministic: %+v vs %+v", again, w)
	}
}

func TestGenerateIsUnique(t *testing.T) {
	a, err := Generate("avax")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate("avax")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.PrivateKeyHex == b.PrivateKeyHex {
		t.Error("two generated wallets share a private key")
	}
	if a.AddressC == b.AddressC {
		t.Error("two generated wallets share a C address")
	}
}

func TestDeriveRejectsGarbage(t *testing.T) {
	if _, err := Derive("0xnothex", "avax"); err == nil {
		t.Error("expected error for invalid key")
	}
}
