package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/unittest"
)

type handlerFunc func(req rawFrame) (rawFrame, error)

// fakeNode serves any unary method through registered handlers.
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests map[string]rawFrame
	calls    *atomic.Int64
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		handlers: make(map[string]handlerFunc),
		requests: make(map[string]rawFrame),
		calls:    atomic.NewInt64(0),
	}
}

func (n *fakeNode) on(method string, h handlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

func (n *fakeNode) lastRequest(method string) rawFrame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.requests[method]
}

func (n *fakeNode) serve(_ interface{}, stream grpc.ServerStream) error {
	n.calls.Inc()
	method, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "no method")
	}
	var req rawFrame
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	n.mu.Lock()
	h, ok := n.handlers[method]
	n.requests[method] = req
	n.mu.Unlock()
	if !ok {
		return status.Errorf(codes.Unimplemented, "unknown method %s", method)
	}
	resp, err := h(req)
	if err != nil {
		return err
	}
	return stream.SendMsg(&resp)
}

type CosmosQueryClientSuite struct {
	suite.Suite

	node   *fakeNode
	server *grpc.Server
	client *CosmosQueryClient
}

func TestCosmosQueryClient(t *testing.T) {
	suite.Run(t, new(CosmosQueryClientSuite))
}

func (s *CosmosQueryClientSuite) SetupTest() {
	s.node = newFakeNode()
	listener := bufconn.Listen(1 << 20)
	s.server = grpc.NewServer(grpc.ForceServerCodec(rawCodec{}), grpc.UnknownServiceHandler(s.node.serve))
	go func() {
		_ = s.server.Serve(listener)
	}()

	cfg := config.Default().Chain
	cfg.GRPCEndpoint = "bufnet"
	cfg.QueryRateLimit = 1000
	client, err := NewCosmosQueryClient(unittest.Logger(), cfg, CircuitBreakerConfig{
		Enabled:        true,
		RestoreTimeout: time.Minute,
		MaxFailures:    2,
		MaxRequests:    1,
	}, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}))
	s.Require().NoError(err)
	s.client = client
}

func (s *CosmosQueryClientSuite) TearDownTest() {
	s.Require().NoError(s.client.Close())
	s.server.Stop()
}

func (s *CosmosQueryClientSuite) TestLastEventNonce() {
	s.node.on(methodLastEventNonce, func(rawFrame) (rawFrame, error) {
		return (&messageBuilder{}).uint64(1, 6).frame(), nil
	})

	nonce, err := s.client.LastEventNonce(context.Background(), "cosmos1orchestrator")
	s.Require().NoError(err)
	s.Assert().Equal(uint64(6), nonce)

	var address string
	err = walkMessage(s.node.lastRequest(methodLastEventNonce), func(num protowire.Number, _ protowire.Type, value []byte, _ uint64) error {
		if num == 1 {
			address = string(value)
		}
		return nil
	})
	s.Require().NoError(err)
	s.Assert().Equal("cosmos1orchestrator", address)
}

// TestLastEventNonce_Zero checks that an omitted nonce field decodes as zero.
func (s *CosmosQueryClientSuite) TestLastEventNonce_Zero() {
	s.node.on(methodLastEventNonce, func(rawFrame) (rawFrame, error) {
		return rawFrame{}, nil
	})
	nonce, err := s.client.LastEventNonce(context.Background(), "cosmos1orchestrator")
	s.Require().NoError(err)
	s.Assert().Zero(nonce)
}

func (s *CosmosQueryClientSuite) TestBalance() {
	s.node.on(methodBalance, func(rawFrame) (rawFrame, error) {
		coin := (&messageBuilder{}).string(1, "gravity0xabc").string(2, "1000000000000000000").frame()
		return (&messageBuilder{}).message(1, coin).frame(), nil
	})

	balance, err := s.client.Balance(context.Background(), "cosmos1receiver", "gravity0xabc")
	s.Require().NoError(err)
	s.Assert().Equal(bridge.OneEther(), balance)
}

func (s *CosmosQueryClientSuite) TestBalance_Unknown() {
	s.node.on(methodBalance, func(rawFrame) (rawFrame, error) {
		coin := (&messageBuilder{}).string(1, "gravity0xabc").frame()
		return (&messageBuilder{}).message(1, coin).frame(), nil
	})

	balance, err := s.client.Balance(context.Background(), "cosmos1receiver", "gravity0xabc")
	s.Require().NoError(err)
	s.Assert().True(balance.IsZero())
}

func (s *CosmosQueryClientSuite) TestBalance_Undecodable() {
	s.node.on(methodBalance, func(rawFrame) (rawFrame, error) {
		coin := (&messageBuilder{}).string(2, "not a number").frame()
		return (&messageBuilder{}).message(1, coin).frame(), nil
	})

	_, err := s.client.Balance(context.Background(), "cosmos1receiver", "stake")
	s.Require().Error(err)
	s.Assert().True(module.IsTransportError(err))
}

func (s *CosmosQueryClientSuite) TestProposalsInVotingPeriod() {
	s.node.on(methodProposals, func(rawFrame) (rawFrame, error) {
		p1 := (&messageBuilder{}).uint64(1, 1).frame()
		p2 := (&messageBuilder{}).uint64(1, 4).uint64(3, 2).frame()
		return (&messageBuilder{}).message(1, p1).message(1, p2).frame(), nil
	})

	ids, err := s.client.ProposalsInVotingPeriod(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal([]bridge.ProposalID{1, 4}, ids)

	var statusFilter uint64
	err = walkMessage(s.node.lastRequest(methodProposals), func(num protowire.Number, _ protowire.Type, _ []byte, v uint64) error {
		if num == 1 {
			statusFilter = v
		}
		return nil
	})
	s.Require().NoError(err)
	s.Assert().Equal(uint64(proposalStatusVotingPeriod), statusFilter)
}

func (s *CosmosQueryClientSuite) TestValidatorPowers() {
	s.node.on(methodValidators, func(rawFrame) (rawFrame, error) {
		v0 := (&messageBuilder{}).string(1, "cosmosvaloper1a").string(5, "1500000000").frame()
		v1 := (&messageBuilder{}).string(1, "cosmosvaloper1b").string(5, "1000999999").frame()
		return (&messageBuilder{}).message(1, v0).message(1, v1).frame(), nil
	})

	powers, err := s.client.ValidatorPowers(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal([]bridge.ValidatorPower{
		{OperatorAddress: "cosmosvaloper1a", Power: 1500},
		{OperatorAddress: "cosmosvaloper1b", Power: 1000},
	}, powers)
}

// TestErrorClassification checks that only transient failures are transport errors.
func (s *CosmosQueryClientSuite) TestErrorClassification() {
	s.node.on(methodLastEventNonce, func(rawFrame) (rawFrame, error) {
		return nil, status.Error(codes.InvalidArgument, "invalid address")
	})
	_, err := s.client.LastEventNonce(context.Background(), "bogus")
	s.Require().Error(err)
	s.Assert().False(module.IsTransportError(err))
	st, ok := status.FromError(err)
	s.Require().True(ok)
	s.Assert().Equal(codes.InvalidArgument, st.Code())

	s.node.on(methodLastEventNonce, func(rawFrame) (rawFrame, error) {
		return nil, status.Error(codes.Unavailable, "node syncing")
	})
	_, err = s.client.LastEventNonce(context.Background(), "cosmos1orchestrator")
	s.Require().Error(err)
	s.Assert().True(module.IsTransportError(err))
}

// TestCircuitBreaker checks that consecutive transient failures stop further requests reaching the node.
func (s *CosmosQueryClientSuite) TestCircuitBreaker() {
	s.node.on(methodLastEventNonce, func(rawFrame) (rawFrame, error) {
		return nil, status.Error(codes.Unavailable, "node down")
	})

	for i := 0; i < 2; i++ {
		_, err := s.client.LastEventNonce(context.Background(), "cosmos1orchestrator")
		s.Require().True(module.IsTransportError(err))
	}
	s.Require().Equal(int64(2), s.node.calls.Load())

	_, err := s.client.LastEventNonce(context.Background(), "cosmos1orchestrator")
	s.Require().True(module.IsTransportError(err))
	s.Assert().ErrorIs(err, gobreaker.ErrOpenState)
	s.Assert().Equal(int64(2), s.node.calls.Load())
}

func (s *CosmosQueryClientSuite) TestCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.client.LastEventNonce(ctx, "cosmos1orchestrator")
	s.Require().ErrorIs(err, context.Canceled)
	s.Assert().False(module.IsTransportError(err))
	s.Assert().Equal(int64(0), s.node.calls.Load())
}

// TestCancelledDuringCall checks that calls abandoned by their caller are neither transport failures
// nor counted against the node by the circuit breaker.
func (s *CosmosQueryClientSuite) TestCancelledDuringCall() {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	s.node.on(methodLastEventNonce, func(rawFrame) (rawFrame, error) {
		entered <- struct{}{}
		<-release
		return nil, status.Error(codes.Unavailable, "released")
	})

	// more abandoned calls than the breaker tolerates failures
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-entered
			cancel()
		}()
		_, err := s.client.LastEventNonce(ctx, "cosmos1orchestrator")
		cancel()
		s.Require().ErrorIs(err, context.Canceled)
		s.Assert().False(module.IsTransportError(err))
	}
	s.Assert().Equal(int64(3), s.node.calls.Load())

	s.Assert().False(isTransient(status.Error(codes.Canceled, "context canceled")))
	s.Assert().True(isTransient(status.Error(codes.Unavailable, "node down")))
}

func TestRawCodec(t *testing.T) {
	var codec rawCodec
	frame := rawFrame{1, 2, 3}
	b, err := codec.Marshal(&frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	var out rawFrame
	require.NoError(t, codec.Unmarshal(b, &out))
	assert.Equal(t, frame, out)

	_, err = codec.Marshal("not a frame")
	assert.Error(t, err)
	assert.Error(t, codec.Unmarshal(b, new(string)))
}

func TestWalkMessage_Truncated(t *testing.T) {
	frame := (&messageBuilder{}).string(1, "cosmos1receiver").frame()
	err := walkMessage(frame[:len(frame)-3], func(protowire.Number, protowire.Type, []byte, uint64) error { return nil })
	assert.Error(t, err)
}

func TestPowerReduction(t *testing.T) {
	tokens := uint256.NewInt(2_500_000)
	assert.Equal(t, uint64(2), new(uint256.Int).Div(tokens, powerReduction).Uint64())
}
