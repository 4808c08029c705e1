// Package classifier maps raw webhook events onto the event categories the
// flow interpreter understands. It performs no I/O.
package classifier

import (
	"strings"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Classifier categorizes raw events. The zero value uses DefaultMaxInputSize.
type Classifier struct {
	MaxInputSize int
}

var defaultClassifier Classifier

// Classify categorizes an event with the default limits.
func Classify(raw domain.RawEvent) domain.ClassifiedEvent {
	return defaultClassifier.Classify(raw)
}

// Classify produces exactly one event category. Events that cannot be
// understood become EventUnrecognized instead of failing.
func (c Classifier) Classify(raw domain.RawEvent) domain.ClassifiedEvent {
	ev := domain.ClassifiedEvent{
		Kind:     domain.EventUnrecognized,
		SenderID: raw.SenderID,
		EventID:  raw.EventID,
	}
	if raw.SenderID == "" {
		return ev
	}

	switch strings.ToLower(raw.Kind) {
	case domain.RawKindPostback:
		payload := domain.NormalizePayload(raw.PayloadOrText)
		if payload == "" {
			return ev
		}
		ev.Kind = domain.EventSelection
		ev.Payload = payload

	case domain.RawKindMessage:
		text, err := SanitizeInput(raw.PayloadOrText, c.MaxInputSize)
		if err != nil || strings.TrimSpace(text) == "" {
			return ev
		}
		ev.Kind = domain.EventTextResponse
		ev.Text = text

	case domain.RawKindDelivery:
		ev.Kind = domain.EventDeliveryReceipt

	case domain.RawKindOptIn:
		ev.Kind = domain.EventOptIn
	}
	return ev
}
