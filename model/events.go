package model

import "github.com/tailored-agentic-units/bulldog/observability"

const (
	EventCommitStart    observability.EventType = "model.commit.start"
	EventCommitComplete observability.EventType = "model.commit.complete"
	EventCommitFailed   observability.EventType = "model.commit.failed"

	EventDispatchStart    observability.EventType = "model.dispatch.start"
	EventDispatchComplete observability.EventType = "model.dispatch.complete"
	EventDispatchFailed   observability.EventType = "model.dispatch.failed"

	EventAnalysesStart    observability.EventType = "model.analyses.start"
	EventAnalysesComplete observability.EventType = "model.analyses.complete"
	EventAnalysisFailed   observability.EventType = "model.analysis.failed"

	EventCheckpointSave observability.EventType = "model.checkpoint.save"
	EventRevert         observability.EventType = "model.revert"
)
