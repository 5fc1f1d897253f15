// Package wallet generates blockchain keypairs and derives the three
// chain-specific addresses a user record carries.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
)

// Wallet holds a freshly generated private key and its derived addresses.
// The key is created once at account confirmation and never rotated.
type Wallet struct {
	PrivateKeyHex string
	AddressC      string
	AddressP      string
	AddressX      string
}

// Generate creates a new secp256k1 keypair and derives the C, P and X chain
// addresses. The C address is the standard EIP-55 hex form; P and X are
// bech32 over ripemd160(sha256(compressed pubkey)) with a chain prefix.
func Generate(hrp string) (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return Derive("0x"+hex.EncodeToString(crypto.FromECDSA(key)), hrp)
}

// Derive computes the three chain addresses for an existing private key.
func Derive(privateKeyHex, hrp string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	addrC := crypto.PubkeyToAddress(key.PublicKey).Hex()

	compressed := crypto.CompressPubkey(&key.PublicKey)
	sha := sha256.Sum256(compressed)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	payload := ripe.Sum(nil)

	data, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return nil, fmt.Errorf("convert bits: %w", err)
	}
	encoded, err := bech32.Encode(hrp, data)
	if err != nil {
		return nil, fmt.Errorf("bech32 encode: %w", err)
	}

	return &Wallet{
		PrivateKeyHex: privateKeyHex,
		AddressC:      addrC,
		AddressP:      "P-" + encoded,
		AddressX:      "X-" + encoded,
	}, nil
}
