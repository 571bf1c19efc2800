package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	specVersion      = "1.0"
	typeVersionSuffix = ".v1"
	ContentType      = "application/cloudevents+json"
)

var ErrMalformedEnvelope = errors.New("outbox: malformed cloudevents envelope")

// Envelope is the CloudEvents 1.0 structured-mode message published to Kafka.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
	TraceParent     string          `json:"traceparent,omitempty"`
}

// EventName strips the version suffix from Type: booking.created.v1 -> booking.created.
func (e Envelope) EventName() string {
	return strings.TrimSuffix(e.Type, typeVersionSuffix)
}

// DecodeEnvelope parses a published message.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}
	if env.ID == "" || env.Type == "" {
		return Envelope{}, ErrMalformedEnvelope
	}
	return env, nil
}
