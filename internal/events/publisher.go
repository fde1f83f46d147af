// Package events fans committed ledger events out to live listeners.
package events

import (
	"context"
	"encoding/json"
	"errors"

	"go-popup-ledger/internal/model"
)

// Publisher receives events only after their transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, event model.EventLog) error
}

// Message is the wire shape sent to websocket clients and redis subscribers.
type Message struct {
	Type  string         `json:"type"`
	Event model.EventLog `json:"event"`
}

const MessageType = "ledger_event"

func Encode(event model.EventLog) ([]byte, error) {
	return json.Marshal(Message{Type: MessageType, Event: event})
}

type Noop struct{}

func (Noop) Publish(context.Context, model.EventLog) error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event model.EventLog) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
