package ports

import "context"

const (
	// EventDeployStarted is emitted when a deployment run begins.
	EventDeployStarted = "deploy.started"
	// EventDeployCompleted is emitted after every stage succeeded.
	EventDeployCompleted = "deploy.completed"
	// EventDeployFailed is emitted when a run stops on a hook failure.
	EventDeployFailed = "deploy.failed"
	// EventStageStarted is emitted before the hooks of a stage are issued.
	EventStageStarted = "stage.started"
	// EventStageCompleted is emitted when every hook of a stage succeeded.
	EventStageCompleted = "stage.completed"
	// EventStageFailed is emitted when at least one hook of a stage failed.
	EventStageFailed = "stage.failed"
	// EventHookCompleted is emitted for each successful hook.
	EventHookCompleted = "hook.completed"
	// EventHookFailed is emitted for each failing hook.
	EventHookFailed = "hook.failed"
)

// DomainEvent represents a significant occurrence within the domain or
// application layer.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run. Implementations must be
// thread-safe because hooks of one stage finish concurrently.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler.
type Subscription interface {
	Unsubscribe()
}
