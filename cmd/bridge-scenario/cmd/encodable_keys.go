package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// EncodableIdentity is the JSON form of a validator identity. Private keys are hex encoded; the
// addresses are informational and ignored when decoding.
type EncodableIdentity struct {
	ValidatorKey    string `json:"validator_key"`
	OrchestratorKey string `json:"orchestrator_key"`
	EthKey          string `json:"eth_key"`

	ValidatorAddress    string `json:"validator_address,omitempty"`
	OperatorAddress     string `json:"operator_address,omitempty"`
	OrchestratorAddress string `json:"orchestrator_address,omitempty"`
	EthAddress          string `json:"eth_address,omitempty"`
}

func encodeIdentity(identity bridge.ValidatorIdentity, prefix string) (EncodableIdentity, error) {
	e := EncodableIdentity{
		ValidatorKey:    hex.EncodeToString(identity.ValidatorKey.Serialize()),
		OrchestratorKey: hex.EncodeToString(identity.OrchestratorKey.Serialize()),
		EthKey:          hex.EncodeToString(crypto.FromECDSA(identity.EthKey)),
		EthAddress:      identity.EthAddress().Hex(),
	}
	var err error
	if e.ValidatorAddress, err = identity.ValidatorAddress(prefix); err != nil {
		return EncodableIdentity{}, err
	}
	if e.OperatorAddress, err = identity.OperatorAddress(prefix); err != nil {
		return EncodableIdentity{}, err
	}
	if e.OrchestratorAddress, err = identity.OrchestratorAddress(prefix); err != nil {
		return EncodableIdentity{}, err
	}
	return e, nil
}

func (e EncodableIdentity) decode() (bridge.ValidatorIdentity, error) {
	validatorKey, err := decodeSecp256k1(e.ValidatorKey)
	if err != nil {
		return bridge.ValidatorIdentity{}, fmt.Errorf("invalid validator key: %w", err)
	}
	orchestratorKey, err := decodeSecp256k1(e.OrchestratorKey)
	if err != nil {
		return bridge.ValidatorIdentity{}, fmt.Errorf("invalid orchestrator key: %w", err)
	}
	ethKey, err := crypto.HexToECDSA(e.EthKey)
	if err != nil {
		return bridge.ValidatorIdentity{}, fmt.Errorf("invalid ethereum key: %w", err)
	}
	identity := bridge.ValidatorIdentity{ValidatorKey: validatorKey, OrchestratorKey: orchestratorKey, EthKey: ethKey}
	return identity, identity.Validate()
}

func decodeSecp256k1(s string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", btcec.PrivKeyBytesLen, len(b))
	}
	key, _ := btcec.PrivKeyFromBytes(b)
	return key, nil
}

func writeKeys(path string, set bridge.ValidatorSet, prefix string) error {
	encoded := make([]EncodableIdentity, 0, len(set))
	for i, identity := range set {
		e, err := encodeIdentity(identity, prefix)
		if err != nil {
			return fmt.Errorf("could not encode validator %d: %w", i, err)
		}
		encoded = append(encoded, e)
	}
	bz, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}
	if err := os.WriteFile(path, bz, 0600); err != nil {
		return fmt.Errorf("could not write file: %w", err)
	}
	return nil
}

func readKeys(path string) (bridge.ValidatorSet, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read keys file: %w", err)
	}
	var encoded []EncodableIdentity
	if err := json.Unmarshal(bz, &encoded); err != nil {
		return nil, fmt.Errorf("cannot unmarshal keys file: %w", err)
	}
	set := make(bridge.ValidatorSet, 0, len(encoded))
	for i, e := range encoded {
		identity, err := e.decode()
		if err != nil {
			return nil, fmt.Errorf("could not decode validator %d: %w", i, err)
		}
		set = append(set, identity)
	}
	return set, set.Validate()
}
