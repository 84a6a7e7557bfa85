// Package events publishes user lifecycle notifications to a message broker.
// Delivery is best effort: a failed publish is logged and never fails the
// operation that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

const publishTimeout = 5 * time.Second

// Backend defines the broker-agnostic publish operation.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Event is the JSON payload published for every user change.
// It never carries credentials.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Emitter serialises events and hands them to a backend.
type Emitter struct {
	backend Backend
	channel string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEmitter constructs an Emitter. A nil backend yields a no-op emitter.
func NewEmitter(backend Backend, channel string, logger zerolog.Logger) *Emitter {
	if backend == nil {
		backend = Noop{}
	}
	return &Emitter{
		backend: backend,
		channel: channel,
		logger:  logger,
		now:     time.Now,
	}
}

// Emit publishes an event of the given type. It returns the event that was sent.
func (e *Emitter) Emit(ctx context.Context, eventType string, userID int64, name, email string) Event {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Name:       name,
		Email:      email,
		OccurredAt: e.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Msg("encode event failed")
		return event
	}

	// The request context may already be done once the response is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	attrs := map[string]string{"type": eventType}
	messageID, err := e.backend.Publish(ctx, e.channel, data, attrs)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("event_type", eventType).
			Int64("user_id", userID).
			Msg("publish event failed")
		return event
	}
	e.logger.Debug().
		Str("event_type", eventType).
		Str("message_id", messageID).
		Int64("user_id", userID).
		Msg("event published")
	return event
}

// Close closes the underlying backend.
func (e *Emitter) Close() error {
	return e.backend.Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (Noop) Close() error { return nil }
