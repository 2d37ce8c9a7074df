package bridge

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HonestIndex is the validator that never submits false claims. It also proposes the recovery.
const HonestIndex = 0

// KeyKind selects which of a validator's keys (and which address format) an address is derived from.
type KeyKind int

const (
	// KeyValidator is the validator's Cosmos account key, used for staking and governance.
	KeyValidator KeyKind = iota
	// KeyValidatorOperator is the validator key rendered as an operator (valoper) address.
	KeyValidatorOperator
	// KeyOrchestrator is the Cosmos key of the validator's orchestrator, used to sign claims.
	KeyOrchestrator
	// KeyEthereum is the Ethereum key the orchestrator signs validator set updates with.
	KeyEthereum
)

func (k KeyKind) String() string {
	switch k {
	case KeyValidator:
		return "validator"
	case KeyValidatorOperator:
		return "valoper"
	case KeyOrchestrator:
		return "orchestrator"
	case KeyEthereum:
		return "ethereum"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ValidatorIdentity is the key material of one validator and its orchestrator.
// It is never mutated after generation; addresses are derived views.
type ValidatorIdentity struct {
	ValidatorKey    *btcec.PrivateKey
	OrchestratorKey *btcec.PrivateKey
	EthKey          *ecdsa.PrivateKey
}

// GenerateValidatorIdentity creates an identity with three independent random keys.
func GenerateValidatorIdentity() (ValidatorIdentity, error) {
	validatorKey, err := btcec.NewPrivateKey()
	if err != nil {
		return ValidatorIdentity{}, fmt.Errorf("could not generate validator key: %w", err)
	}
	orchestratorKey, err := btcec.NewPrivateKey()
	if err != nil {
		return ValidatorIdentity{}, fmt.Errorf("could not generate orchestrator key: %w", err)
	}
	ethKey, err := crypto.GenerateKey()
	if err != nil {
		return ValidatorIdentity{}, fmt.Errorf("could not generate ethereum key: %w", err)
	}
	return ValidatorIdentity{
		ValidatorKey:    validatorKey,
		OrchestratorKey: orchestratorKey,
		EthKey:          ethKey,
	}, nil
}

// Validate checks that every key is present.
func (v ValidatorIdentity) Validate() error {
	if v.ValidatorKey == nil {
		return fmt.Errorf("missing validator key")
	}
	if v.OrchestratorKey == nil {
		return fmt.Errorf("missing orchestrator key")
	}
	if v.EthKey == nil {
		return fmt.Errorf("missing ethereum key")
	}
	return nil
}

// DeriveAddress returns the address of the identity's key of the given kind. Cosmos addresses are
// bech32 encoded with prefix (valoper addresses append ValoperSuffix); Ethereum addresses ignore the prefix.
func DeriveAddress(identity ValidatorIdentity, kind KeyKind, prefix string) (string, error) {
	switch kind {
	case KeyValidator:
		return cosmosAddress(identity.ValidatorKey, prefix)
	case KeyValidatorOperator:
		return cosmosAddress(identity.ValidatorKey, prefix+ValoperSuffix)
	case KeyOrchestrator:
		return cosmosAddress(identity.OrchestratorKey, prefix)
	case KeyEthereum:
		if identity.EthKey == nil {
			return "", fmt.Errorf("missing ethereum key")
		}
		return crypto.PubkeyToAddress(identity.EthKey.PublicKey).Hex(), nil
	default:
		return "", fmt.Errorf("unknown key kind %d", int(kind))
	}
}

// ValidatorAddress is DeriveAddress(v, KeyValidator, prefix).
func (v ValidatorIdentity) ValidatorAddress(prefix string) (string, error) {
	return DeriveAddress(v, KeyValidator, prefix)
}

// OperatorAddress is DeriveAddress(v, KeyValidatorOperator, prefix).
func (v ValidatorIdentity) OperatorAddress(prefix string) (string, error) {
	return DeriveAddress(v, KeyValidatorOperator, prefix)
}

// OrchestratorAddress is DeriveAddress(v, KeyOrchestrator, prefix).
func (v ValidatorIdentity) OrchestratorAddress(prefix string) (string, error) {
	return DeriveAddress(v, KeyOrchestrator, prefix)
}

// EthAddress returns the Ethereum address of the identity.
func (v ValidatorIdentity) EthAddress() common.Address {
	return crypto.PubkeyToAddress(v.EthKey.PublicKey)
}

func cosmosAddress(key *btcec.PrivateKey, prefix string) (string, error) {
	if key == nil {
		return "", fmt.Errorf("missing key")
	}
	raw, err := CosmosAddressBytes(key.PubKey().SerializeCompressed())
	if err != nil {
		return "", err
	}
	return Bech32(prefix, raw)
}

// ValidatorSet is the ordered, index-stable roster of validators taking part in a scenario.
// It is read-only after generation.
type ValidatorSet []ValidatorIdentity

// GenerateValidatorSet creates n validator identities with independent random keys.
func GenerateValidatorSet(n int) (ValidatorSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("validator set size must be positive, got %d", n)
	}
	set := make(ValidatorSet, 0, n)
	for i := 0; i < n; i++ {
		identity, err := GenerateValidatorIdentity()
		if err != nil {
			return nil, fmt.Errorf("could not generate validator %d: %w", i, err)
		}
		set = append(set, identity)
	}
	return set, nil
}

// Validate checks the set is non-empty and every identity carries all keys.
func (s ValidatorSet) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty validator set")
	}
	for i, identity := range s {
		if err := identity.Validate(); err != nil {
			return fmt.Errorf("invalid validator %d: %w", i, err)
		}
	}
	return nil
}

// Honest returns the distinguished baseline validator.
func (s ValidatorSet) Honest() ValidatorIdentity {
	return s[HonestIndex]
}

// Contains reports whether index addresses a member of the set.
func (s ValidatorSet) Contains(index int) bool {
	return index >= 0 && index < len(s)
}

// IndexOf returns the index of the identity whose validator key matches identity's, or false.
func (s ValidatorSet) IndexOf(identity ValidatorIdentity) (int, bool) {
	if identity.ValidatorKey == nil {
		return 0, false
	}
	for i, member := range s {
		if member.ValidatorKey != nil && bytes.Equal(member.ValidatorKey.Serialize(), identity.ValidatorKey.Serialize()) {
			return i, true
		}
	}
	return 0, false
}

// OrchestratorAddresses derives every orchestrator address, in set order.
func (s ValidatorSet) OrchestratorAddresses(prefix string) ([]string, error) {
	addrs := make([]string, 0, len(s))
	for i, identity := range s {
		addr, err := identity.OrchestratorAddress(prefix)
		if err != nil {
			return nil, fmt.Errorf("could not derive orchestrator address of validator %d: %w", i, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// BridgeUser is the end user moving funds across the bridge during a scenario.
type BridgeUser struct {
	EthKey    *ecdsa.PrivateKey
	CosmosKey *btcec.PrivateKey
}

// GenerateBridgeUser creates a user with fresh Ethereum and Cosmos keys.
func GenerateBridgeUser() (BridgeUser, error) {
	ethKey, err := crypto.GenerateKey()
	if err != nil {
		return BridgeUser{}, fmt.Errorf("could not generate user ethereum key: %w", err)
	}
	cosmosKey, err := btcec.NewPrivateKey()
	if err != nil {
		return BridgeUser{}, fmt.Errorf("could not generate user cosmos key: %w", err)
	}
	return BridgeUser{EthKey: ethKey, CosmosKey: cosmosKey}, nil
}

// EthAddress returns the user's Ethereum address.
func (u BridgeUser) EthAddress() common.Address {
	return crypto.PubkeyToAddress(u.EthKey.PublicKey)
}

// CosmosAddress returns the user's bech32 account address.
func (u BridgeUser) CosmosAddress(prefix string) (string, error) {
	return cosmosAddress(u.CosmosKey, prefix)
}
