package messaging

// TopicOrderCompleted carries domain.OrderCompletedEvent, keyed by order id.
const TopicOrderCompleted = "order.completed"
