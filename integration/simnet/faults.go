package simnet

// faults are misbehaviours injected into the network by tests.
type faults struct {
	failQueries  map[int]int
	rejectVotes  map[int]bool
	rejectClaims map[int]bool
}

func newFaults() faults {
	return faults{
		failQueries:  make(map[int]int),
		rejectVotes:  make(map[int]bool),
		rejectClaims: make(map[int]bool),
	}
}

// takeQueryFailure consumes one pending query failure of validator i.
func (f faults) takeQueryFailure(i int) bool {
	if f.failQueries[i] == 0 {
		return false
	}
	f.failQueries[i]--
	return true
}

// FailQueries makes the next count nonce queries of validator i fail with a transport error.
func (n *Network) FailQueries(i int, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults.failQueries[i] += count
}

// RejectVotesFrom makes every vote of validator i fail at inclusion.
func (n *Network) RejectVotesFrom(i int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults.rejectVotes[i] = true
}

// RejectClaimsFrom makes every claim of validator i's orchestrator fail the mempool checks.
func (n *Network) RejectClaimsFrom(i int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults.rejectClaims[i] = true
}

// StopOrchestrator stops validator i's orchestrator from relaying Ethereum events.
func (n *Network) StopOrchestrator(i int) {
	n.lockAndAdvance()
	defer n.mu.Unlock()
	n.validators[i].relaying = false
}

// StartOrchestrator resumes relaying for validator i. Events emitted while it was stopped are relayed
// with the next event.
func (n *Network) StartOrchestrator(i int) {
	n.lockAndAdvance()
	defer n.mu.Unlock()
	n.validators[i].relaying = true
}
