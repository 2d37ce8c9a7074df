package logging

import (
	"strconv"

	"github.com/rs/zerolog"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// Snapshot renders a nonce snapshot as a zerolog dictionary keyed by validator index.
func Snapshot(snapshot bridge.NonceSnapshot) *zerolog.Event {
	dict := zerolog.Dict()
	for _, i := range snapshot.Indices() {
		dict = dict.Uint64("v"+strconv.Itoa(i), snapshot[i])
	}
	return dict
}

// Indices renders validator indices as a zerolog array.
func Indices(indices []int) *zerolog.Array {
	arr := zerolog.Arr()
	for _, i := range indices {
		arr = arr.Int(i)
	}
	return arr
}

// Claim renders the identifying fields of a claim.
func Claim(claim bridge.AttestationClaim) *zerolog.Event {
	return zerolog.Dict().
		Uint64("event_nonce", claim.EventNonce).
		Uint64("block_height", claim.BlockHeight).
		Str("token", claim.TokenContract.Hex()).
		Str("receiver", claim.CosmosReceiver).
		Str("claim_hash", claim.ClaimHash().Hex())
}
