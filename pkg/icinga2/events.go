package icinga2

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// EventStreamType names an event stream the API can deliver.
type EventStreamType string

const (
	EventCheckResult            EventStreamType = "CheckResult"
	EventStateChange            EventStreamType = "StateChange"
	EventNotification           EventStreamType = "Notification"
	EventAcknowledgementSet     EventStreamType = "AcknowledgementSet"
	EventAcknowledgementCleared EventStreamType = "AcknowledgementCleared"
	EventCommentAdded           EventStreamType = "CommentAdded"
	EventCommentRemoved         EventStreamType = "CommentRemoved"
	EventDowntimeAdded          EventStreamType = "DowntimeAdded"
	EventDowntimeRemoved        EventStreamType = "DowntimeRemoved"
	EventDowntimeStarted        EventStreamType = "DowntimeStarted"
	EventDowntimeTriggered      EventStreamType = "DowntimeTriggered"
	EventFlapping               EventStreamType = "Flapping"
	EventObjectCreated          EventStreamType = "ObjectCreated"
	EventObjectDeleted          EventStreamType = "ObjectDeleted"
	EventObjectModified         EventStreamType = "ObjectModified"
)

// EventSubscription configures an event stream.
type EventSubscription struct {
	// Types selects which event streams to receive. Required.
	Types []EventStreamType
	// Queue is the unique subscriber queue name. A random name is generated
	// when empty.
	Queue      string
	Filter     string
	FilterVars map[string]any
}

// Event is one record delivered on an event stream. The typed fields cover
// the common envelope; Raw preserves the complete payload for event types
// with additional fields.
type Event struct {
	Type        EventStreamType `json:"type"`
	Timestamp   Timestamp       `json:"timestamp"`
	Host        string          `json:"host,omitempty"`
	Service     string          `json:"service,omitempty"`
	Author      string          `json:"author,omitempty"`
	Text        string          `json:"text,omitempty"`
	CheckResult *CheckResult    `json:"check_result,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// EventStream is an open subscription. Next blocks until the next event
// arrives, the stream fails, or the subscribe context is cancelled. The
// caller must Close the stream when done.
type EventStream struct {
	queue   string
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// Queue returns the queue name the subscription uses.
func (s *EventStream) Queue() string { return s.queue }

// Next returns the next event on the stream. io.EOF signals an orderly end
// of the stream.
func (s *EventStream) Next() (Event, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return Event{}, newMalformedResponseError(0, fmt.Errorf("decode event: %w", err))
		}
		if event.Type == "" {
			return Event{}, newValidationError("type", "required attribute missing from event")
		}
		event.Raw = append(json.RawMessage(nil), line...)
		return event, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Event{}, newTransportError(err)
	}
	return Event{}, io.EOF
}

// Close terminates the subscription.
func (s *EventStream) Close() error { return s.body.Close() }

// SubscribeEvents opens an event stream. The connection stays open until the
// context is cancelled or the stream is closed; no reconnect is attempted.
func (c *Client) SubscribeEvents(ctx context.Context, sub EventSubscription) (*EventStream, error) {
	if len(sub.Types) == 0 {
		return nil, newValidationError("types", "at least one event type is required")
	}
	queue := sub.Queue
	if queue == "" {
		queue = "icingactl-" + uuid.NewString()
	}

	payload := map[string]any{
		"types": sub.Types,
		"queue": queue,
	}
	if sub.Filter != "" {
		payload["filter"] = sub.Filter
		if len(sub.FilterVars) > 0 {
			payload["filter_vars"] = sub.FilterVars
		}
	}

	resp, err := c.doWith(ctx, c.streamClient, "POST", "events", nil, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, newTransportError(fmt.Errorf("read response: %w", readErr))
		}
		return nil, c.remoteError(resp.StatusCode, raw)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &EventStream{
		queue:   queue,
		body:    resp.Body,
		scanner: scanner,
	}, nil
}
