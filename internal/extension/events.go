package extension

import (
	"github.com/google/uuid"

	"github.com/zjrosen/plugboard/internal/pubsub"
)

// Lifecycle event types published by the manager. Both fire strictly
// after every other side effect of the transition completes.
const (
	EventInitialized   pubsub.EventType = "extension.initialized"
	EventUninitialized pubsub.EventType = "extension.uninitialized"
)

// LifecycleEvent is the payload published on the manager's notification
// broker when an instance initializes or uninitializes.
type LifecycleEvent struct {
	ID          string
	ExtensionID string
	Instance    *Instance
}

// Broker is the notification channel the manager publishes lifecycle
// events on.
type Broker = pubsub.Broker[LifecycleEvent]

// NewBroker creates a lifecycle event broker.
func NewBroker() *Broker {
	return pubsub.NewBroker[LifecycleEvent]()
}

func newLifecycleEvent(instance *Instance) LifecycleEvent {
	return LifecycleEvent{
		ID:          uuid.NewString(),
		ExtensionID: instance.ID(),
		Instance:    instance,
	}
}
