package simnet_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/osmosis-labs/cosmos-gravity-bridge/insecure/falseclaim"
	"github.com/osmosis-labs/cosmos-gravity-bridge/integration/simnet"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/governance"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/metrics"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/nonce"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/unittest"
)

const (
	pollInterval = 10 * time.Millisecond
	waitTimeout  = 5 * time.Second
)

func newNetwork(t *testing.T, n int) (*simnet.Network, bridge.ValidatorSet) {
	set := unittest.ValidatorSetFixture(t, n)
	net, err := simnet.NewNetwork(unittest.Logger(), set, simnet.DefaultParams())
	require.NoError(t, err)
	return net, set
}

// TestBaselineEquality checks that every orchestrator of a fresh network reports the genesis nonce.
func TestBaselineEquality(t *testing.T) {
	for _, n := range []int{3, 4, 5} {
		t.Run(fmt.Sprintf("%d validators", n), func(t *testing.T) {
			net, set := newNetwork(t, n)
			monitor := nonce.NewMonitor(unittest.Logger(), net, metrics.NewNoopCollector(), bridge.DefaultAddressPrefix)

			snapshot, err := monitor.Snapshot(context.Background(), set)
			require.NoError(t, err)
			require.Len(t, snapshot, n)
			value, equal := snapshot.AllEqual()
			assert.True(t, equal)
			assert.Equal(t, simnet.DefaultParams().InitialEventNonce, value)
		})
	}
}

type NetworkSuite struct {
	suite.Suite

	net      *simnet.Network
	set      bridge.ValidatorSet
	monitor  *nonce.Monitor
	injector *falseclaim.Injector
	driver   *governance.Driver
	token    bridge.AttestationClaim
	user     bridge.BridgeUser
	receiver string
}

func TestNetwork(t *testing.T) {
	suite.Run(t, new(NetworkSuite))
}

func (s *NetworkSuite) SetupTest() {
	s.net, s.set = newNetwork(s.T(), 3)
	noop := metrics.NewNoopCollector()
	s.monitor = nonce.NewMonitor(unittest.Logger(), s.net, noop, bridge.DefaultAddressPrefix)
	s.injector = falseclaim.NewInjector(unittest.Logger(), s.net, noop, unittest.FeeFixture(), bridge.DefaultAddressPrefix)
	s.driver = governance.NewDriver(unittest.Logger(), s.net, noop, unittest.FeeFixture(), time.Second)
	s.token = unittest.ClaimTemplateFixture(s.T())
	s.user = unittest.BridgeUserFixture(s.T())
	receiver, err := s.user.CosmosAddress(bridge.DefaultAddressPrefix)
	s.Require().NoError(err)
	s.receiver = receiver
}

// redistribute makes every validator except the honest one delegate a quarter of its starting stake
// from its account to the honest validator, leaving the others below the observation threshold together.
func (s *NetworkSuite) redistribute() {
	valoper, err := s.set.Honest().OperatorAddress(bridge.DefaultAddressPrefix)
	s.Require().NoError(err)
	amount := bridge.NewCoin("stake", simnet.DefaultParams().StartingStake/4)
	for i := 1; i < len(s.set); i++ {
		tx, err := s.net.Delegate(context.Background(), valoper, amount, s.set[i], unittest.FeeFixture())
		s.Require().NoError(err)
		_, err = s.net.WaitForFinalization(context.Background(), tx, time.Second)
		s.Require().NoError(err)
	}
}

// falseClaims injects a claim for the event following the genesis nonce from validators 1 and 2.
func (s *NetworkSuite) falseClaims() bridge.AttestationClaim {
	height, err := s.net.LatestBlockHeight(context.Background())
	s.Require().NoError(err)
	template := s.token
	template.EventNonce = simnet.DefaultParams().InitialEventNonce + 1
	template.BlockHeight = height + 1

	outcomes, err := s.injector.InjectFalseClaims(context.Background(), s.set, []int{1, 2}, template, time.Second)
	s.Require().NoError(err)
	for _, o := range outcomes {
		s.Require().True(o.Finalized())
	}
	return template
}

func (s *NetworkSuite) deposit(amount uint64) {
	_, err := s.net.SendToCosmos(context.Background(), s.user.EthKey, s.token.TokenContract, s.receiver, uint256.NewInt(amount))
	s.Require().NoError(err)
}

func (s *NetworkSuite) balance() *uint256.Int {
	b, err := s.net.Balance(context.Background(), s.receiver, bridge.GravityDenom(s.token.TokenContract))
	s.Require().NoError(err)
	return b
}

func (s *NetworkSuite) awaitNonces(expected bridge.NonceSnapshot) {
	snapshot, err := s.monitor.AwaitSnapshot(context.Background(), s.set, func(snapshot bridge.NonceSnapshot) bool {
		return snapshot.Equal(expected)
	}, pollInterval, waitTimeout)
	s.Require().NoError(err, "last snapshot %v", snapshot)
}

func (s *NetworkSuite) TestRedistribution() {
	s.redistribute()
	powers, err := s.net.ValidatorPowers(context.Background())
	s.Require().NoError(err)
	s.Require().Len(powers, 3)
	s.Assert().Equal(uint64(1500), powers[0].Power)
	s.Assert().Equal(uint64(1000), powers[1].Power)
	s.Assert().Equal(uint64(1000), powers[2].Power)
	s.Assert().Equal(uint64(3500), bridge.TotalPower(powers))
}

func (s *NetworkSuite) TestDepositObserved() {
	s.deposit(1000)
	s.awaitNonces(bridge.NonceSnapshot{0: 6, 1: 6, 2: 6})
	s.Assert().Equal(uint64(1000), s.balance().Uint64())
	s.Assert().Equal(uint64(6), s.net.LastObservedNonce())
	s.Assert().Equal(uint64(6), s.net.EthereumEventNonce())
}

// TestFalseClaimPartition checks the nonce partition and the halt caused by a minority attesting to
// an event that never happened.
func (s *NetworkSuite) TestFalseClaimPartition() {
	s.redistribute()
	s.falseClaims()

	snapshot, err := s.monitor.AwaitConvergence(context.Background(), s.set, bridge.NonceGroups{{0}, {1, 2}}, pollInterval, waitTimeout)
	s.Require().NoError(err)
	s.Assert().Equal(bridge.NonceSnapshot{0: 5, 1: 6, 2: 6}, snapshot)
	s.Assert().Equal(uint64(5), s.net.LastObservedNonce())

	// the honest orchestrator relays the real event 6, which now conflicts with the false attestation
	s.deposit(1000)
	s.awaitNonces(bridge.NonceSnapshot{0: 6, 1: 6, 2: 6})
	time.Sleep(5 * simnet.DefaultParams().RelayDelay)
	s.Assert().True(s.balance().IsZero())
	s.Assert().Equal(uint64(5), s.net.LastObservedNonce())
}

// TestFalseClaimWithPowerMajority checks that false claims backed by more than 66% of the power are acted on.
func (s *NetworkSuite) TestFalseClaimWithPowerMajority() {
	template := s.falseClaims()
	s.Assert().Equal(uint64(6), s.net.LastObservedNonce())

	b, err := s.net.Balance(context.Background(), template.CosmosReceiver, bridge.GravityDenom(template.TokenContract))
	s.Require().NoError(err)
	s.Assert().Equal(bridge.OneEther(), b)
}

// TestRecovery checks that the reset proposal rolls every orchestrator back and the bridge resumes.
func (s *NetworkSuite) TestRecovery() {
	s.redistribute()
	s.falseClaims()
	s.deposit(1000)
	s.awaitNonces(bridge.NonceSnapshot{0: 6, 1: 6, 2: 6})

	proposal := bridge.RecoveryProposal{TargetResetNonce: 5, StateResetFlag: true, Deposit: bridge.NewCoin("stake", 1_000_000_000)}
	id, err := s.driver.SubmitRecovery(context.Background(), s.set.Honest(), proposal, s.set)
	s.Require().NoError(err)
	tally, err := s.driver.CollectVotes(context.Background(), id, s.set)
	s.Require().NoError(err)
	s.Assert().Equal([]int{0, 1, 2}, tally.Finalized)

	s.awaitNonces(bridge.NonceSnapshot{0: 5, 1: 5, 2: 5})
	status, err := s.net.ProposalStatus(id)
	s.Require().NoError(err)
	s.Assert().Equal(bridge.ProposalStatusPassed, status)
	s.Assert().Equal(uint64(5), s.net.LastObservedNonce())

	// the next deposit makes every orchestrator relay events 6 and 7
	s.deposit(500)
	s.awaitNonces(bridge.NonceSnapshot{0: 7, 1: 7, 2: 7})
	err = s.driver.AwaitEffect(context.Background(), func(ctx context.Context) (bool, error) {
		return s.net.LastObservedNonce() == 7, nil
	}, pollInterval, waitTimeout)
	s.Require().NoError(err)
	s.Assert().Equal(uint64(1500), s.balance().Uint64())
}

func (s *NetworkSuite) TestProposalRejectedWithoutQuorum() {
	proposal := bridge.RecoveryProposal{TargetResetNonce: 5, StateResetFlag: true, Deposit: bridge.NewCoin("stake", 1_000_000_000)}
	id, err := s.driver.SubmitRecovery(context.Background(), s.set.Honest(), proposal, s.set)
	s.Require().NoError(err)

	ids, err := s.net.ProposalsInVotingPeriod(context.Background())
	s.Require().NoError(err)
	s.Assert().Equal([]bridge.ProposalID{id}, ids)

	err = s.driver.AwaitEffect(context.Background(), func(ctx context.Context) (bool, error) {
		status, err := s.net.ProposalStatus(id)
		return status == bridge.ProposalStatusRejected, err
	}, pollInterval, waitTimeout)
	s.Require().NoError(err)
}

func (s *NetworkSuite) TestProposalBelowMinimumDeposit() {
	proposal := bridge.RecoveryProposal{TargetResetNonce: 5, StateResetFlag: true, Deposit: bridge.NewCoin("stake", 1)}
	_, err := s.driver.SubmitRecovery(context.Background(), s.set.Honest(), proposal, s.set)
	s.Require().Error(err)
	s.Assert().True(module.IsChainRejectionError(err))
}

// TestRejectedVoteStillReachesQuorum checks that a failed vote of one validator does not prevent the
// reset when the remaining power passes the proposal.
func (s *NetworkSuite) TestRejectedVoteStillReachesQuorum() {
	s.redistribute()
	s.net.RejectVotesFrom(2)

	proposal := bridge.RecoveryProposal{TargetResetNonce: 5, StateResetFlag: true, Deposit: bridge.NewCoin("stake", 1_000_000_000)}
	id, err := s.driver.SubmitRecovery(context.Background(), s.set.Honest(), proposal, s.set)
	s.Require().NoError(err)
	tally, err := s.driver.CollectVotes(context.Background(), id, s.set)
	s.Require().NoError(err)
	s.Assert().Equal([]int{0, 1}, tally.Finalized)
	s.Assert().True(module.IsChainRejectionError(tally.Failures[2]))

	err = s.driver.AwaitEffect(context.Background(), func(ctx context.Context) (bool, error) {
		status, err := s.net.ProposalStatus(id)
		return status == bridge.ProposalStatusPassed, err
	}, pollInterval, waitTimeout)
	s.Require().NoError(err)
}

func (s *NetworkSuite) TestNonContiguousClaimRejected() {
	orchestrator, err := s.set[1].OrchestratorAddress(bridge.DefaultAddressPrefix)
	s.Require().NoError(err)
	claim := s.token.WithOrchestrator(orchestrator)
	claim.EventNonce = 8

	tx, err := s.net.SubmitClaim(context.Background(), claim, s.set[1], unittest.FeeFixture())
	s.Require().NoError(err)
	result, err := s.net.WaitForFinalization(context.Background(), tx, time.Second)
	s.Require().Error(err)
	s.Assert().True(module.IsChainRejectionError(err))
	s.Require().NotNil(result)
	s.Assert().False(result.Succeeded())

	got, err := s.net.LastEventNonce(context.Background(), orchestrator)
	s.Require().NoError(err)
	s.Assert().Equal(uint64(5), got)
}

func (s *NetworkSuite) TestClaimSignedByOtherOrchestrator() {
	orchestrator, err := s.set[1].OrchestratorAddress(bridge.DefaultAddressPrefix)
	s.Require().NoError(err)
	claim := s.token.WithOrchestrator(orchestrator)
	claim.EventNonce = 6

	_, err = s.net.SubmitClaim(context.Background(), claim, s.set[2], unittest.FeeFixture())
	s.Require().Error(err)
	s.Assert().True(module.IsChainRejectionError(err))
}

func (s *NetworkSuite) TestRejectedClaims() {
	s.net.RejectClaimsFrom(2)
	template := s.token
	template.EventNonce = 6

	outcomes, err := s.injector.InjectFalseClaims(context.Background(), s.set, []int{1, 2}, template, time.Second)
	s.Require().Error(err)
	partial, ok := module.AsPartialFailureError(err)
	s.Require().True(ok)
	s.Assert().Equal([]int{2}, partial.Failed())
	s.Assert().True(outcomes[0].Finalized())
}

// TestFailedQueriesDegradeRounds checks that transient query failures delay but never fake a snapshot.
func (s *NetworkSuite) TestFailedQueriesDegradeRounds() {
	s.net.FailQueries(1, 3)
	_, err := s.monitor.Snapshot(context.Background(), s.set)
	s.Require().Error(err)
	s.Assert().True(module.IsTransportError(err))

	s.awaitNonces(bridge.NonceSnapshot{0: 5, 1: 5, 2: 5})
}

func (s *NetworkSuite) TestStoppedOrchestrator() {
	s.net.StopOrchestrator(2)
	s.deposit(1000)
	s.awaitNonces(bridge.NonceSnapshot{0: 6, 1: 6, 2: 5})
	// validators 0 and 1 hold two thirds of the power, which is above the threshold
	s.Assert().Equal(uint64(6), s.net.LastObservedNonce())

	s.net.StartOrchestrator(2)
	s.deposit(1000)
	s.awaitNonces(bridge.NonceSnapshot{0: 7, 1: 7, 2: 7})
}

func (s *NetworkSuite) TestSendToCosmosValidation() {
	_, err := s.net.SendToCosmos(context.Background(), s.user.EthKey, s.token.TokenContract, "not-an-address", uint256.NewInt(1))
	s.Assert().Error(err)
	_, err = s.net.SendToCosmos(context.Background(), s.user.EthKey, s.token.TokenContract, s.receiver, uint256.NewInt(0))
	s.Assert().Error(err)
}

func (s *NetworkSuite) TestWaitForFinalization_UnknownTx() {
	_, err := s.net.WaitForFinalization(context.Background(), unittest.TxHandleFixture(), time.Second)
	s.Require().Error(err)
	s.Assert().True(module.IsTransportError(err))
}

func (s *NetworkSuite) TestWaitForFinalization_Cancelled() {
	valoper, err := s.set.Honest().OperatorAddress(bridge.DefaultAddressPrefix)
	s.Require().NoError(err)
	tx, err := s.net.Delegate(context.Background(), valoper, bridge.NewCoin("stake", 1), s.set[1], unittest.FeeFixture())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.net.WaitForFinalization(ctx, tx, time.Second)
	s.Require().ErrorIs(err, context.Canceled)
	s.Assert().False(module.IsTransportError(err))
}

// TestQueries_Cancelled checks that a cancelled caller is not reported as an unreachable endpoint.
func (s *NetworkSuite) TestQueries_Cancelled() {
	orchestrators, err := s.set.OrchestratorAddresses(bridge.DefaultAddressPrefix)
	s.Require().NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.net.LastEventNonce(ctx, orchestrators[0])
	s.Assert().ErrorIs(err, context.Canceled)
	s.Assert().False(module.IsTransportError(err))

	_, err = s.net.ValidatorPowers(ctx)
	s.Assert().ErrorIs(err, context.Canceled)
	s.Assert().False(module.IsTransportError(err))

	_, err = s.net.LatestBlockHeight(ctx)
	s.Assert().ErrorIs(err, context.Canceled)
	s.Assert().False(module.IsTransportError(err))
}
