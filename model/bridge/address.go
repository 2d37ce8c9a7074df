package bridge

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // cosmos account addresses are defined over ripemd160
)

const (
	// DefaultAddressPrefix is the bech32 account prefix used by the test chains.
	DefaultAddressPrefix = "cosmos"

	// ValoperSuffix is appended to the account prefix for validator operator addresses.
	ValoperSuffix = "valoper"
)

// CosmosAddressBytes returns the 20 byte account address of a compressed secp256k1 public key.
func CosmosAddressBytes(compressedPubKey []byte) ([]byte, error) {
	if len(compressedPubKey) != 33 {
		return nil, fmt.Errorf("expected 33 byte compressed public key, got %d bytes", len(compressedPubKey))
	}
	sha := sha256.Sum256(compressedPubKey)
	hasher := ripemd160.New()
	_, _ = hasher.Write(sha[:])
	return hasher.Sum(nil), nil
}

// Bech32 encodes raw address bytes with the given human readable prefix.
func Bech32(prefix string, addr []byte) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("empty bech32 prefix")
	}
	conv, err := bech32.ConvertBits(addr, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("could not convert address bits: %w", err)
	}
	encoded, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", fmt.Errorf("could not bech32 encode address: %w", err)
	}
	return encoded, nil
}

// ParseBech32 decodes a bech32 address, returning its prefix and raw bytes.
func ParseBech32(address string) (string, []byte, error) {
	prefix, data, err := bech32.Decode(address)
	if err != nil {
		return "", nil, fmt.Errorf("could not decode bech32 address %q: %w", address, err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("could not convert address bits of %q: %w", address, err)
	}
	return prefix, raw, nil
}

// ValidateCosmosAddress checks that address is a 20 byte bech32 address carrying prefix.
func ValidateCosmosAddress(address, prefix string) error {
	got, raw, err := ParseBech32(address)
	if err != nil {
		return err
	}
	if got != prefix {
		return fmt.Errorf("address %s has prefix %s, expected %s", address, got, prefix)
	}
	if len(raw) != 20 {
		return fmt.Errorf("address %s decodes to %d bytes, expected 20", address, len(raw))
	}
	return nil
}
