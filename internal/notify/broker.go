// Package notify carries live events from mutations to connected group
// members. Delivery is fire-and-forget: best-effort, unordered and not
// replayed for clients that are not currently subscribed.
package notify

import "context"

// EventMediaCreated is published when a media record is persisted.
const EventMediaCreated = "media-created"

// Event is a group-scoped notification. Payload is the full record the
// event refers to.
type Event struct {
	Type     string `json:"type"`
	CliqueID string `json:"clique_id"`
	Payload  any    `json:"payload"`
}

// Publisher fans an event out to the clique's notification channel.
// Publish must not block indefinitely; failures are surfaced to the
// caller, who treats them as best-effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber delivers events for one clique channel. The returned cancel
// function releases the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, cliqueID string) (<-chan Event, func(), error)
}

// Broker is both ends of the notification channel.
type Broker interface {
	Publisher
	Subscriber
}
