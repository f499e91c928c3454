// Package events records what happened to bills, payments, customers and
// stock in the domain_events table and hands each event to notifiers, such as
// the queue that schedules report invalidation and low stock alerts.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-billing/internal/store"
)

// ErrUnknownTopic is returned for topics not listed in topics.go.
var ErrUnknownTopic = errors.New("events: unknown topic")

type Notifier interface {
	Notify(ctx context.Context, event store.DomainEvent) error
}

type NotifierFunc func(ctx context.Context, event store.DomainEvent) error

func (f NotifierFunc) Notify(ctx context.Context, event store.DomainEvent) error {
	return f(ctx, event)
}

// Bus persists events, then notifies. An event that could not be stored is
// never dispatched.
type Bus struct {
	Store     store.EventStore
	Notifiers []Notifier
}

// Emit stores payload, JSON encoded, under topic. Raw JSON may be passed as
// []byte or json.RawMessage. Notifier errors are joined; the event is
// returned either way since it was persisted.
func (b *Bus) Emit(ctx context.Context, topic, aggregateID string, payload any) (store.DomainEvent, error) {
	switch {
	case b == nil || b.Store == nil:
		return store.DomainEvent{}, errors.New("events: store not configured")
	case !known(topic):
		return store.DomainEvent{}, fmt.Errorf("%w %q", ErrUnknownTopic, topic)
	case aggregateID == "":
		return store.DomainEvent{}, errors.New("events: aggregate id is required")
	}
	body, err := encode(payload)
	if err != nil {
		return store.DomainEvent{}, fmt.Errorf("events: encode %s: %w", topic, err)
	}
	ev, err := b.Store.InsertDomainEvent(ctx, store.DomainEvent{Topic: topic, AggregateID: aggregateID, Payload: body})
	if err != nil {
		return store.DomainEvent{}, fmt.Errorf("events: persist %s: %w", topic, err)
	}

	var errs []error
	for _, n := range b.Notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("events: notify %s: %w", topic, err))
		}
	}
	return ev, errors.Join(errs...)
}

// EmitLogged is for callers whose own write already committed: failures are
// logged and dropped.
func (b *Bus) EmitLogged(ctx context.Context, topic, aggregateID string, payload any) {
	if b == nil {
		return
	}
	if _, err := b.Emit(ctx, topic, aggregateID, payload); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("topic", topic).Str("aggregate_id", aggregateID).Msg("event_emit_failed")
	}
}

func encode(payload any) ([]byte, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return json.Marshal(v)
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), raw...), nil
}
