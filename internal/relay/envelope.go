package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kind tags an envelope on the wire.
type Kind string

const (
	KindSystem Kind = "system"
	KindChat   Kind = "chat"
)

// TimestampLayout renders UTC instants with millisecond precision, the same
// shape browsers produce with Date.prototype.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ErrMalformedPayload marks an inbound frame that could not be decoded into a
// chat submission. Such frames are dropped.
var ErrMalformedPayload = errors.New("malformed payload")

// Envelope is the unit sent to clients. Username is only set on chat envelopes.
type Envelope struct {
	Type      Kind   `json:"type"`
	Username  string `json:"username,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Submission is the inbound payload a client sends. Message is a pointer so
// that an absent field can be told apart from an empty string.
type Submission struct {
	Username string  `json:"username"`
	Message  *string `json:"message" validate:"required"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func newSystemEnvelope(message string, at time.Time) Envelope {
	return Envelope{
		Type:      KindSystem,
		Message:   message,
		Timestamp: formatTimestamp(at),
	}
}

func newChatEnvelope(username, message string, at time.Time) Envelope {
	return Envelope{
		Type:      KindChat,
		Username:  username,
		Message:   message,
		Timestamp: formatTimestamp(at),
	}
}

// decodeSubmission parses raw into a Submission. Only the exact keys
// "username" and "message" are read. Any shape other than an object carrying a
// string message fails with ErrMalformedPayload.
func decodeSubmission(validate *validator.Validate, raw []byte) (Submission, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var sub Submission
	if v, ok := fields["username"]; ok {
		if err := json.Unmarshal(v, &sub.Username); err != nil {
			return Submission{}, fmt.Errorf("%w: username: %v", ErrMalformedPayload, err)
		}
	}
	if v, ok := fields["message"]; ok {
		if err := json.Unmarshal(v, &sub.Message); err != nil {
			return Submission{}, fmt.Errorf("%w: message: %v", ErrMalformedPayload, err)
		}
	}
	if err := validate.Struct(sub); err != nil {
		return Submission{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return sub, nil
}
