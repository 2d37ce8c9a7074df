package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// ParameterChangeProposalTypeURL is the governance content type used for bridge recovery.
	ParameterChangeProposalTypeURL = "/cosmos.params.v1beta1.ParameterChangeProposal"

	// GravitySubspace is the params subspace of the gravity module.
	GravitySubspace = "gravity"
	// ParamResetBridgeState instructs the module to discard attestations above the reset nonce.
	ParamResetBridgeState = "ResetBridgeState"
	// ParamResetBridgeNonce is the event nonce the bridge is rolled back to.
	ParamResetBridgeNonce = "ResetBridgeNonce"

	recoveryTitle       = "Reset Bridge State"
	recoveryDescription = "Resetting the bridge state to the last nonce agreed on by the honest validators"
)

// ParamChange is a single parameter update. Value holds the JSON encoding of the new value.
type ParamChange struct {
	Subspace string `json:"subspace"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// ParameterChangeProposal is the governance content submitted to reset the bridge.
type ParameterChangeProposal struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Changes     []ParamChange `json:"changes"`
}

// TypeURL returns the content type of the proposal.
func (p ParameterChangeProposal) TypeURL() string {
	return ParameterChangeProposalTypeURL
}

// Change returns the value of subspace/key, if the proposal changes it.
func (p ParameterChangeProposal) Change(subspace, key string) (string, bool) {
	for _, c := range p.Changes {
		if c.Subspace == subspace && c.Key == key {
			return c.Value, true
		}
	}
	return "", false
}

// RecoveryProposal describes the state reset that restores bridge liveness after a halt.
// It is immutable once submitted.
type RecoveryProposal struct {
	TargetResetNonce uint64
	StateResetFlag   bool
	Deposit          Coin
}

// Validate checks the proposal carries a usable deposit.
func (p RecoveryProposal) Validate() error {
	if err := p.Deposit.Validate(); err != nil {
		return fmt.Errorf("invalid recovery deposit: %w", err)
	}
	return nil
}

// Content renders the proposal as a parameter change of the gravity subspace. Parameter values are
// JSON: the flag as a bool, the nonce as a quoted decimal string.
func (p RecoveryProposal) Content() (ParameterChangeProposal, error) {
	flag, err := json.Marshal(p.StateResetFlag)
	if err != nil {
		return ParameterChangeProposal{}, fmt.Errorf("could not encode reset flag: %w", err)
	}
	nonce, err := json.Marshal(strconv.FormatUint(p.TargetResetNonce, 10))
	if err != nil {
		return ParameterChangeProposal{}, fmt.Errorf("could not encode reset nonce: %w", err)
	}
	return ParameterChangeProposal{
		Title:       recoveryTitle,
		Description: recoveryDescription,
		Changes: []ParamChange{
			{Subspace: GravitySubspace, Key: ParamResetBridgeState, Value: string(flag)},
			{Subspace: GravitySubspace, Key: ParamResetBridgeNonce, Value: string(nonce)},
		},
	}, nil
}

// ParseRecovery extracts the reset request from a parameter change proposal. ok is false when the
// proposal does not touch the reset parameters.
func ParseRecovery(content ParameterChangeProposal) (reset bool, nonce uint64, ok bool, err error) {
	flagValue, hasFlag := content.Change(GravitySubspace, ParamResetBridgeState)
	nonceValue, hasNonce := content.Change(GravitySubspace, ParamResetBridgeNonce)
	if !hasFlag && !hasNonce {
		return false, 0, false, nil
	}
	if hasFlag {
		if err := json.Unmarshal([]byte(flagValue), &reset); err != nil {
			return false, 0, true, fmt.Errorf("could not decode %s: %w", ParamResetBridgeState, err)
		}
	}
	if hasNonce {
		var s string
		if err := json.Unmarshal([]byte(nonceValue), &s); err != nil {
			return false, 0, true, fmt.Errorf("could not decode %s: %w", ParamResetBridgeNonce, err)
		}
		nonce, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return false, 0, true, fmt.Errorf("invalid %s %q: %w", ParamResetBridgeNonce, s, err)
		}
	}
	return reset, nonce, true, nil
}
