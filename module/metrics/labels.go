package metrics

const (
	namespaceBridge   = "gravity_bridge"
	subsystemScenario = "scenario"
	subsystemNonce    = "nonce"
	subsystemFaults   = "faults"
	subsystemGov      = "governance"
)

const (
	LabelState     = "state"
	LabelValidator = "validator"
	LabelOutcome   = "outcome"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeComplete  = "complete"
	OutcomeDegraded  = "degraded"
	OutcomeFinalized = "finalized"
)
