package trace

// SpanName names an operation traced by the scenario engine.
type SpanName string

const (
	ScenarioRun SpanName = "scenario.run"

	// one span per state the scenario tries to reach
	scenarioStatePrefix = "scenario.state."

	FalseClaimInjection SpanName = "scenario.faults.inject_false_claims"
	VoteCollection      SpanName = "scenario.governance.collect_votes"
)

// ScenarioState names the span of the step reaching state.
func ScenarioState(state string) SpanName {
	return SpanName(scenarioStatePrefix + state)
}
