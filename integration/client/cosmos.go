// Package client implements the clients a scenario uses against a live bridge: a gRPC query client
// for the Cosmos chain and an Ethereum client sending deposits through the Gravity contract.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

const (
	methodLastEventNonce = "/gravity.v1.Query/LastEventNonceByAddr"
	methodBalance        = "/cosmos.bank.v1beta1.Query/Balance"
	methodProposals      = "/cosmos.gov.v1beta1.Query/Proposals"
	methodValidators     = "/cosmos.staking.v1beta1.Query/Validators"

	proposalStatusVotingPeriod = 2
	bondStatusBonded           = "BOND_STATUS_BONDED"
	pageLimit                  = 1000
)

// powerReduction converts bonded tokens to consensus power.
var powerReduction = uint256.NewInt(1_000_000)

// CircuitBreakerConfig configures the circuit breaker guarding the node.
type CircuitBreakerConfig struct {
	// Enabled specifies whether the circuit breaker is enabled.
	Enabled bool
	// RestoreTimeout is the time the breaker stays open before letting a request through again.
	RestoreTimeout time.Duration
	// MaxFailures is the number of consecutive transient failures that opens the breaker.
	MaxFailures uint32
	// MaxRequests is the number of requests let through while half open.
	MaxRequests uint32
}

// DefaultCircuitBreakerConfig returns the breaker settings used by the command line tools.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:        true,
		RestoreTimeout: 10 * time.Second,
		MaxFailures:    5,
		MaxRequests:    1,
	}
}

// CosmosQueryClient reads bridge state from a Cosmos node over gRPC.
// Queries are rate limited and guarded by a circuit breaker. Transient failures and responses that
// cannot be decoded are reported as module.TransportError.
type CosmosQueryClient struct {
	log      zerolog.Logger
	endpoint string
	conn     *grpc.ClientConn
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

var _ module.ChainQuerier = (*CosmosQueryClient)(nil)

// NewCosmosQueryClient creates a client for the node at cfg.GRPCEndpoint. The connection is
// established lazily by the first query.
func NewCosmosQueryClient(log zerolog.Logger, cfg config.ChainConfig, breaker CircuitBreakerConfig, opts ...grpc.DialOption) (*CosmosQueryClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	}, opts...)
	conn, err := grpc.Dial(cfg.GRPCEndpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not dial %s: %w", cfg.GRPCEndpoint, err)
	}

	c := &CosmosQueryClient{
		log:      log.With().Str("component", "cosmos_query_client").Str("endpoint", cfg.GRPCEndpoint).Logger(),
		endpoint: cfg.GRPCEndpoint,
		conn:     conn,
		limiter:  rate.NewLimiter(rate.Limit(cfg.QueryRateLimit), cfg.QueryBurst),
	}
	if breaker.Enabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.GRPCEndpoint,
			MaxRequests: breaker.MaxRequests,
			Timeout:     breaker.RestoreTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breaker.MaxFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !isTransient(err)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}
	return c, nil
}

// Close closes the client connection.
func (c *CosmosQueryClient) Close() error {
	return c.conn.Close()
}

// invoke performs one unary call. The response is returned undecoded.
func (c *CosmosQueryClient) invoke(ctx context.Context, method string, req rawFrame) (rawFrame, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s not sent: %w", method, ctxErr)
		}
		return nil, module.NewTransportError(c.endpoint, fmt.Errorf("%s not sent: %w", method, err))
	}

	call := func() (interface{}, error) {
		var resp rawFrame
		if err := c.conn.Invoke(ctx, method, &req, &resp); err != nil {
			return nil, err
		}
		return resp, nil
	}

	var out interface{}
	var err error
	if c.breaker != nil {
		out, err = c.breaker.Execute(call)
	} else {
		out, err = call()
	}
	if err != nil {
		// the caller gave up, the node did not fail
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, gobreaker.ErrOpenState) {
			return nil, fmt.Errorf("%s abandoned: %w", method, ctxErr)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || isTransient(err) {
			return nil, module.NewTransportError(c.endpoint, fmt.Errorf("%s failed: %w", method, err))
		}
		return nil, fmt.Errorf("%s failed: %w", method, err)
	}
	return out.(rawFrame), nil
}

// isTransient reports whether a call error may succeed when retried later. Cancellation by the
// caller is never transient.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal, codes.Unknown:
		return true
	default:
		return false
	}
}

func (c *CosmosQueryClient) decodeError(method string, err error) error {
	return module.NewTransportError(c.endpoint, fmt.Errorf("could not decode %s response: %w", method, err))
}

// LastEventNonce returns the nonce of the last event the orchestrator attested to.
func (c *CosmosQueryClient) LastEventNonce(ctx context.Context, orchestrator string) (uint64, error) {
	req := (&messageBuilder{}).string(1, orchestrator).frame()
	resp, err := c.invoke(ctx, methodLastEventNonce, req)
	if err != nil {
		return 0, err
	}

	var nonce uint64
	err = walkMessage(resp, func(num protowire.Number, typ protowire.Type, _ []byte, v uint64) error {
		if num == 1 && typ == protowire.VarintType {
			nonce = v
		}
		return nil
	})
	if err != nil {
		return 0, c.decodeError(methodLastEventNonce, err)
	}
	return nonce, nil
}

// Balance returns the amount of denom held by address. Unknown denoms have a zero balance.
func (c *CosmosQueryClient) Balance(ctx context.Context, address string, denom string) (*uint256.Int, error) {
	req := (&messageBuilder{}).string(1, address).string(2, denom).frame()
	resp, err := c.invoke(ctx, methodBalance, req)
	if err != nil {
		return nil, err
	}

	amount := new(uint256.Int)
	err = walkMessage(resp, func(num protowire.Number, typ protowire.Type, coin []byte, _ uint64) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		return walkMessage(coin, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
			if num != 2 || typ != protowire.BytesType || len(value) == 0 {
				return nil
			}
			parsed, err := uint256.FromDecimal(string(value))
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", value, err)
			}
			amount = parsed
			return nil
		})
	})
	if err != nil {
		return nil, c.decodeError(methodBalance, err)
	}
	return amount, nil
}

// ProposalsInVotingPeriod lists the governance proposals currently accepting votes.
func (c *CosmosQueryClient) ProposalsInVotingPeriod(ctx context.Context) ([]bridge.ProposalID, error) {
	page := (&messageBuilder{}).uint64(3, pageLimit).frame()
	req := (&messageBuilder{}).uint64(1, proposalStatusVotingPeriod).message(4, page).frame()
	resp, err := c.invoke(ctx, methodProposals, req)
	if err != nil {
		return nil, err
	}

	var ids []bridge.ProposalID
	err = walkMessage(resp, func(num protowire.Number, typ protowire.Type, proposal []byte, _ uint64) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		return walkMessage(proposal, func(num protowire.Number, typ protowire.Type, _ []byte, v uint64) error {
			if num == 1 && typ == protowire.VarintType {
				ids = append(ids, bridge.ProposalID(v))
			}
			return nil
		})
	})
	if err != nil {
		return nil, c.decodeError(methodProposals, err)
	}
	return ids, nil
}

// ValidatorPowers returns the consensus power of every bonded validator.
func (c *CosmosQueryClient) ValidatorPowers(ctx context.Context) ([]bridge.ValidatorPower, error) {
	page := (&messageBuilder{}).uint64(3, pageLimit).frame()
	req := (&messageBuilder{}).string(1, bondStatusBonded).message(2, page).frame()
	resp, err := c.invoke(ctx, methodValidators, req)
	if err != nil {
		return nil, err
	}

	var powers []bridge.ValidatorPower
	err = walkMessage(resp, func(num protowire.Number, typ protowire.Type, validator []byte, _ uint64) error {
		if num != 1 || typ != protowire.BytesType {
			return nil
		}
		var p bridge.ValidatorPower
		err := walkMessage(validator, func(num protowire.Number, typ protowire.Type, value []byte, _ uint64) error {
			if typ != protowire.BytesType {
				return nil
			}
			switch num {
			case 1:
				p.OperatorAddress = string(value)
			case 5:
				tokens, err := uint256.FromDecimal(string(value))
				if err != nil {
					return fmt.Errorf("invalid tokens %q: %w", value, err)
				}
				p.Power = new(uint256.Int).Div(tokens, powerReduction).Uint64()
			}
			return nil
		})
		if err != nil {
			return err
		}
		powers = append(powers, p)
		return nil
	})
	if err != nil {
		return nil, c.decodeError(methodValidators, err)
	}
	return powers, nil
}
