package http

import (
	"time"

	"github.com/malcolmmathew-zz/bot-engine/pkg/domain"
)

// Envelope is the page-subscription body posted to the webhook.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry batches the messaging events of one page.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single platform event. Exactly one of the pointer fields
// is normally set.
type Messaging struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
	Delivery  *Delivery `json:"delivery,omitempty"`
	OptIn     *OptIn    `json:"optin,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type Message struct {
	Mid        string      `json:"mid"`
	Text       string      `json:"text"`
	IsEcho     bool        `json:"is_echo,omitempty"`
	QuickReply *QuickReply `json:"quick_reply,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type Postback struct {
	Mid     string `json:"mid,omitempty"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

type Delivery struct {
	Mids      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
}

type OptIn struct {
	Ref string `json:"ref,omitempty"`
}

// RawEvents flattens the envelope in delivery order. Quick replies are
// selections; echoes of the page's own messages are dropped.
func (e Envelope) RawEvents() []domain.RawEvent {
	var out []domain.RawEvent
	for _, entry := range e.Entry {
		for _, m := range entry.Messaging {
			raw, ok := m.RawEvent()
			if ok {
				out = append(out, raw)
			}
		}
	}
	return out
}

// RawEvent converts one messaging item.
func (m Messaging) RawEvent() (domain.RawEvent, bool) {
	raw := domain.RawEvent{SenderID: m.Sender.ID}
	if m.Timestamp > 0 {
		raw.Timestamp = time.UnixMilli(m.Timestamp).UTC()
	}

	switch {
	case m.Postback != nil:
		raw.Kind = domain.RawKindPostback
		raw.PayloadOrText = m.Postback.Payload
		raw.EventID = m.Postback.Mid
	case m.Message != nil && m.Message.IsEcho:
		return raw, false
	case m.Message != nil && m.Message.QuickReply != nil:
		raw.Kind = domain.RawKindPostback
		raw.PayloadOrText = m.Message.QuickReply.Payload
		raw.EventID = m.Message.Mid
	case m.Message != nil:
		raw.Kind = domain.RawKindMessage
		raw.PayloadOrText = m.Message.Text
		raw.EventID = m.Message.Mid
	case m.Delivery != nil:
		raw.Kind = domain.RawKindDelivery
	case m.OptIn != nil:
		raw.Kind = domain.RawKindOptIn
	default:
		raw.Kind = "unknown"
	}
	return raw, true
}
