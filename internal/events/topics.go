package events

// Topic constants for domain events emitted by the checkout service.
const (
	TopicCheckoutCompleted = "checkout.completed"
	TopicCheckoutFailed    = "checkout.failed"
	TopicCheckoutCanceled  = "checkout.canceled"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicCheckoutCompleted,
		TopicCheckoutFailed,
		TopicCheckoutCanceled,
	}
}
