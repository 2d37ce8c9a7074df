package simnet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/logging"
)

// attestation collects the orchestrators that submitted identical claims for one event nonce.
type attestation struct {
	claim    bridge.AttestationClaim
	votes    map[int]struct{}
	observed bool
}

// attestationPower is the sum of the current power of every validator that voted for att.
// Callers must hold the lock.
func (n *Network) attestationPower(att *attestation) uint64 {
	var power uint64
	for i := range att.votes {
		power += n.validators[i].power()
	}
	return power
}

// SubmitClaim broadcasts claim signed by the orchestrator key of signer.
func (n *Network) SubmitClaim(ctx context.Context, claim bridge.AttestationClaim, signer bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return bridge.TxHandle{}, err
	}
	now := n.lockAndAdvance()
	defer n.mu.Unlock()

	if err := claim.ValidateBasic(); err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "invalid claim: %v", err)
	}
	v, err := n.identity(signer)
	if err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeUnauthorized, "%v", err)
	}
	if v.orchestrator != claim.Orchestrator {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeUnauthorized, "claim of %s signed by orchestrator %s", claim.Orchestrator, v.orchestrator)
	}
	if n.faults.rejectClaims[v.index] {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeFault, "claims of validator %d are rejected", v.index)
	}

	claim = claim.WithOrchestrator(claim.Orchestrator)
	return n.broadcast(now, "claim", v.orchestrator, fee, func(at time.Time, _ *txEntry) (uint32, string) {
		return n.deliverClaim(v.index, claim, at)
	})
}

// deliverClaim applies the gravity claim handler: the nonce must directly follow the orchestrator's
// last event nonce, and the claim is tallied into the attestation of its event. Callers must hold the lock.
func (n *Network) deliverClaim(index int, claim bridge.AttestationClaim, at time.Time) (uint32, string) {
	v := n.validators[index]
	if claim.EventNonce != v.lastEventNonce+1 {
		return codeNonContiguousNonce, fmt.Sprintf("non contiguous event nonce: expected %d, received %d", v.lastEventNonce+1, claim.EventNonce)
	}
	v.lastEventNonce = claim.EventNonce

	byHash, ok := n.attestations[claim.EventNonce]
	if !ok {
		byHash = make(map[common.Hash]*attestation)
		n.attestations[claim.EventNonce] = byHash
	}
	hash := claim.ClaimHash()
	att, ok := byHash[hash]
	if !ok {
		att = &attestation{claim: claim, votes: make(map[int]struct{})}
		byHash[hash] = att
	}
	att.votes[index] = struct{}{}

	n.log.Debug().
		Int("validator", index).
		Dict("claim", logging.Claim(claim)).
		Time("at", at).
		Msg("claim included")

	n.tryObserve()
	return 0, ""
}

// tryObserve acts on every attestation following the last observed nonce whose power exceeds 66%
// of the total, in nonce order. It stops at the first nonce without such an attestation.
// Callers must hold the lock.
func (n *Network) tryObserve() {
	required := n.totalPower() * 66 / 100
	for {
		next := n.lastObserved + 1
		var observed *attestation
		for _, att := range n.attestations[next] {
			if n.attestationPower(att) > required {
				observed = att
				break
			}
		}
		if observed == nil {
			return
		}

		observed.observed = true
		n.lastObserved = next
		denom := bridge.GravityDenom(observed.claim.TokenContract)
		n.credit(observed.claim.CosmosReceiver, denom, observed.claim.Amount)

		n.log.Info().
			Uint64("event_nonce", next).
			Str("receiver", observed.claim.CosmosReceiver).
			Str("amount", observed.claim.Amount.Dec()+denom).
			Msg("attestation observed")
	}
}

// resetBridge discards every attestation above nonce and rolls the observed nonce and the last
// event nonce of every orchestrator back to it. Callers must hold the lock.
func (n *Network) resetBridge(nonce uint64) {
	for k := range n.attestations {
		if k > nonce {
			delete(n.attestations, k)
		}
	}
	n.lastObserved = nonce
	for _, v := range n.validators {
		v.lastEventNonce = nonce
	}
	n.log.Warn().Uint64("nonce", nonce).Msg("bridge state reset")
}

// relay makes every running orchestrator submit the Ethereum events it has not attested to yet, in
// nonce order. Callers must hold the lock.
func (n *Network) relay(at time.Time) {
	events := make([]ethEvent, len(n.ethEvents))
	copy(events, n.ethEvents)
	sort.Slice(events, func(i, j int) bool { return events[i].nonce < events[j].nonce })

	for _, v := range n.validators {
		if !v.relaying {
			continue
		}
		for _, event := range events {
			if event.nonce <= v.lastEventNonce {
				continue
			}
			code, log := n.deliverClaim(v.index, event.claim(v.orchestrator), at)
			if code != 0 {
				n.log.Warn().Int("validator", v.index).Uint64("event_nonce", event.nonce).Str("log", log).Msg("orchestrator could not relay event")
				break
			}
		}
	}
}
