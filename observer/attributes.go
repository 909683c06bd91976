package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for orchestration spans and metrics.
var (
	AttrAgentName = attribute.Key("agent.name")
	AttrAgentType = attribute.Key("agent.type")

	AttrLLMStep      = attribute.Key("llm.step")
	AttrTokenKind    = attribute.Key("llm.token.kind")
	AttrLLMOutcome   = attribute.Key("llm.outcome")
	AttrContextLimit = attribute.Key("llm.context_limit")

	AttrToolServer = attribute.Key("tool.server")
	AttrToolName   = attribute.Key("tool.name")
	AttrToolStatus = attribute.Key("tool.status")
)
