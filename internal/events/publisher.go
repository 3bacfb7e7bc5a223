// Package events handles publishing events to NATS JetStream
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// DisclaimerEvent is emitted when a user is shown the license annex of a record
type DisclaimerEvent struct {
	RecordID       string
	UUID           string
	SessionID      string
	UserID         string
	Files          []string
	AcknowledgedAt time.Time
}

// Struct converts the event into its wire payload
func (e DisclaimerEvent) Struct() (*structpb.Struct, error) {
	files := make([]any, 0, len(e.Files))
	for _, f := range e.Files {
		files = append(files, f)
	}
	fields := map[string]any{
		"record_id":       e.RecordID,
		"uuid":            e.UUID,
		"session_id":      e.SessionID,
		"files":           files,
		"acknowledged_at": e.AcknowledgedAt.UTC().Format(time.RFC3339),
	}
	if e.UserID != "" {
		fields["user_id"] = e.UserID
	}
	return structpb.NewStruct(fields)
}

// Publisher defines the interface for publishing events
type Publisher interface {
	DisclaimerAcknowledged(event DisclaimerEvent) error
}

// JetStreamPublisher implements Publisher interface using NATS JetStream
type JetStreamPublisher struct {
	js nats.JetStreamContext
}

// NewPublisher creates a new JetStreamPublisher instance
func NewPublisher(js nats.JetStreamContext) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

// EnsureStream creates the stream carrying disclaimer events if it is missing
func EnsureStream(js nats.JetStreamContext, name string) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("lookup stream %s: %w", name, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{StreamSubjects},
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

func (p *JetStreamPublisher) publish(subject string, event proto.Message) error {
	data, err := proto.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(subject, data)
	return err
}

// DisclaimerAcknowledged publishes a "disclaimer.acknowledged" event to NATS JetStream
func (p *JetStreamPublisher) DisclaimerAcknowledged(event DisclaimerEvent) error {
	payload, err := event.Struct()
	if err != nil {
		return err
	}
	return p.publish(DisclaimerAcknowledged, payload)
}
