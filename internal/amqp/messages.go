package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"novoape/internal/persist"
)

// WriteFailedMessage is a document write that did not reach the store. It
// carries the whole body so the worker can replay it without the session.
type WriteFailedMessage struct {
	Op         string          `json:"op"`
	Path       string          `json:"path"`
	Body       json.RawMessage `json:"body,omitempty"`
	UserID     string          `json:"userId"`
	Collection string          `json:"collection,omitempty"`
	Error      string          `json:"error"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewWriteFailedMessage builds a message from a failed outcome.
func NewWriteFailedMessage(o persist.Outcome) *WriteFailedMessage {
	msg := &WriteFailedMessage{
		Op:         string(o.Op),
		Path:       o.Path.String(),
		UserID:     o.UserID,
		Collection: o.Collection,
		Timestamp:  o.At,
	}
	if len(o.Body) > 0 {
		msg.Body = json.RawMessage(o.Body)
	}
	if o.Err != nil {
		msg.Error = o.Err.Error()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *WriteFailedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// WriteFailedMessageFromJSON decodes and checks a message.
func WriteFailedMessageFromJSON(data []byte) (*WriteFailedMessage, error) {
	var msg WriteFailedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Path == "" {
		return nil, errors.New("message has no path")
	}
	switch persist.Op(msg.Op) {
	case persist.OpSave, persist.OpMerge:
		if len(msg.Body) == 0 {
			return nil, fmt.Errorf("%s message has no body", msg.Op)
		}
	case persist.OpDelete:
	default:
		return nil, fmt.Errorf("unknown op %q", msg.Op)
	}
	return &msg, nil
}

// Publisher is the publishing half of Client.
type Publisher interface {
	PublishWriteFailed(ctx context.Context, msg *WriteFailedMessage) error
}

// Sink hands failed outcomes to a Publisher.
type Sink struct {
	publisher Publisher
	timeout   time.Duration
}

func NewSink(p Publisher) *Sink {
	return &Sink{publisher: p, timeout: publishTimeout}
}

// Report publishes a failed outcome. Paths that never formed are not
// replayable and are skipped.
func (s *Sink) Report(ctx context.Context, o persist.Outcome) error {
	if !o.Failed() || o.Path == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	return s.publisher.PublishWriteFailed(ctx, NewWriteFailedMessage(o))
}
