package kafka

// Topic definitions for brokerage event streaming
const (
	// External events consumed by the live gateway
	TopicEvents = "brokerage.events"

	// Consolidated brokerage decisions
	TopicDecisions = "brokerage.decisions"
)
