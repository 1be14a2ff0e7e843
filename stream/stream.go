// Package stream implements the Event Streamer of §4.9: a thin,
// non-blocking sink keyed by chatId, grounded on the teacher's
// graph/streaming.go StreamingListener (channel send with a `select
// default`, dropped-event counter instead of ever blocking the scheduler).
package stream

import (
	"sync"
	"time"
)

// Kind discriminates the four emission kinds of §4.9/§6.
type Kind string

const (
	KindNextNode       Kind = "nextAgentFlowEvent"
	KindExecutedData   Kind = "agentFlowExecutedDataEvent"
	KindFlowStatus     Kind = "agentFlowEvent"
	KindAction         Kind = "actionEvent"
)

// Event is one emission. Only the fields relevant to Kind are populated;
// the rest are zero values.
type Event struct {
	ChatID    string
	Kind      Kind
	Timestamp time.Time

	// KindNextNode
	NodeID    string
	NodeLabel string
	Status    string
	Error     string

	// KindExecutedData: the ordered checkpoint array, already JSON-
	// serializable and with every FLOWISE_CREDENTIAL_ID key stripped by
	// the caller before it reaches Emit (see StripCredentialKeys).
	ExecutedData any

	// KindFlowStatus
	FlowStatus string

	// KindAction: {id, mapping, elements, data} per §4.5/§6.
	Action map[string]any
}

// Streamer is the sink the engine emits through. All emissions MUST be
// fire-and-forget — a Streamer implementation must never block the
// scheduler, and a disconnected client must never surface as an engine
// error (§4.9, §5).
type Streamer interface {
	Emit(e Event)
}

// ChannelStreamer delivers events over a buffered channel, matching the
// teacher's StreamingListener.emitEvent non-blocking send with backpressure
// tracking.
type ChannelStreamer struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	dropped int
}

// NewChannelStreamer creates a ChannelStreamer with the given buffer size.
func NewChannelStreamer(bufferSize int) *ChannelStreamer {
	return &ChannelStreamer{ch: make(chan Event, bufferSize)}
}

// Events returns the read side of the event channel.
func (s *ChannelStreamer) Events() <-chan Event {
	return s.ch
}

// Emit implements Streamer. It never blocks: if the channel is full the
// event is dropped and counted.
func (s *ChannelStreamer) Emit(e Event) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case s.ch <- e:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped returns the number of events dropped due to a full buffer.
func (s *ChannelStreamer) Dropped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// Close marks the streamer closed and closes the channel. Safe to call
// once after the producing scheduler loop has exited.
func (s *ChannelStreamer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// NoopStreamer discards every event; useful for tests and callers that
// don't need streaming.
type NoopStreamer struct{}

// Emit implements Streamer.
func (NoopStreamer) Emit(Event) {}

// credentialKey is the sentinel key name that must never appear anywhere
// in a streamed payload (§6, §8 invariants).
const credentialKey = "FLOWISE_CREDENTIAL_ID"

// StripCredentialKeys recursively removes any map key equal to
// FLOWISE_CREDENTIAL_ID from v, returning a new value safe to attach to a
// KindExecutedData event.
func StripCredentialKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if k == credentialKey {
				continue
			}
			out[k] = StripCredentialKeys(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = StripCredentialKeys(inner)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = StripCredentialKeys(inner)
		}
		return out
	default:
		return v
	}
}
