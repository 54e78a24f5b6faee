package kafka

// Topic definitions for runtime event streaming
const (
	// Interaction events
	TopicInteractionCompleted = "interactions.completed"

	// Handoff events
	TopicHandoffExecuted = "handoffs.executed"

	// Memory events
	TopicMemoryUpdated = "memory.updated"
)
