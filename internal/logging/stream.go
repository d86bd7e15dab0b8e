package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one daemon log line in the form served to observers: the
// Logs RPC behind `hakimi logs --follow` and the HTTP observation API.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	Stage         string            `json:"stage,omitempty"`
	ItemID        int64             `json:"item_id,omitempty"`
	Lane          string            `json:"lane,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField carries one of the bullet lines the console handler would
// have printed under the message.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogEventSink receives every published event; the on-disk EventArchive
// implements it.
type LogEventSink interface {
	Append(LogEvent)
}

// StreamHub keeps the most recent daemon log events in memory and wakes
// blocked followers as new ones arrive. Sequence numbers are assigned here
// and only ever grow, so a follower can resume from its last cursor.
type StreamHub struct {
	mu      sync.Mutex
	cond    *sync.Cond
	cap     int
	events  []LogEvent
	lastSeq uint64
	sinks   []LogEventSink
}

// NewStreamHub returns a hub retaining at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	hub := &StreamHub{cap: capacity}
	hub.cond = sync.NewCond(&hub.mu)
	return hub
}

// AddSink registers a sink that will see every event published after this
// call.
func (h *StreamHub) AddSink(sink LogEventSink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish stamps the event with the next sequence number, buffers it, and
// wakes any blocked Fetch callers. Sinks run outside the lock so a slow
// archive write cannot stall logging.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.lastSeq++
	evt.Sequence = h.lastSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.events) == h.cap {
		copy(h.events, h.events[1:])
		h.events = h.events[:h.cap-1]
	}
	h.events = append(h.events, evt)
	sinks := append([]LogEventSink(nil), h.sinks...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(evt)
	}
}

// Fetch returns buffered events newer than since, up to limit. With wait
// set it blocks until something arrives or ctx ends, which is how
// `hakimi logs --follow` long-polls the daemon.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	limit = h.clampLimit(limit)

	// cond.Wait cannot observe ctx on its own; a helper goroutine turns
	// ctx cancellation into a broadcast.
	stop := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-stop:
			}
		}()
	}
	defer close(stop)

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		events, cursor := h.afterLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, cursor, ctxErr(ctx)
		}
		if err := ctxErr(ctx); err != nil {
			return nil, cursor, err
		}
		h.cond.Wait()
		if err := ctxErr(ctx); err != nil {
			return nil, cursor, err
		}
	}
}

// Tail returns up to limit of the newest buffered events without blocking.
func (h *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	limit = h.clampLimit(limit)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return nil, h.lastSeq
	}
	start := len(h.events) - limit
	if start < 0 {
		start = 0
	}
	out := make([]LogEvent, len(h.events)-start)
	copy(out, h.events[start:])
	return out, h.lastSeq
}

// FirstSequence reports the oldest sequence still buffered; observers use
// it to detect gaps and fall back to the archive.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return h.lastSeq
	}
	return h.events[0].Sequence
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > h.cap {
		return h.cap
	}
	return limit
}

func (h *StreamHub) afterLocked(since uint64, limit int) ([]LogEvent, uint64) {
	if len(h.events) == 0 {
		return nil, h.lastSeq
	}
	first := -1
	for i := range h.events {
		if h.events[i].Sequence > since {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, h.lastSeq
	}
	end := first + limit
	if end > len(h.events) {
		end = len(h.events)
	}
	out := make([]LogEvent, end-first)
	copy(out, h.events[first:end])
	return out, h.lastSeq
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// streamHandler mirrors every record it sees into the hub before passing
// it on unchanged.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	bound []slog.Attr // attrs from With(...) calls, replayed into each event
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.hub != nil {
		h.hub.Publish(recordToEvent(record, h.bound))
	}
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.bound)+len(attrs))
	bound = append(bound, h.bound...)
	bound = append(bound, attrs...)
	return &streamHandler{next: h.next.WithAttrs(attrs), hub: h.hub, bound: bound}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub}
}

func recordToEvent(record slog.Record, bound []slog.Attr) LogEvent {
	event := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    make(map[string]string),
	}

	absorb := func(attr slog.Attr) {
		key := strings.TrimSpace(attr.Key)
		switch key {
		case "":
		case FieldItemID:
			event.ItemID = attr.Value.Int64()
		case FieldStage:
			event.Stage = attrString(attr.Value)
		case FieldLane:
			event.Lane = attrString(attr.Value)
		case FieldCorrelationID:
			event.CorrelationID = attrString(attr.Value)
		case "component":
			event.Component = attrString(attr.Value)
		default:
			event.Fields[key] = attrString(attr.Value)
		}
	}

	// Bound attrs first; record attrs win on key collisions.
	for _, attr := range bound {
		absorb(attr)
	}
	var recordAttrs []kv
	record.Attrs(func(attr slog.Attr) bool {
		absorb(attr)
		if key := strings.TrimSpace(attr.Key); key != "" {
			recordAttrs = append(recordAttrs, kv{key: key, value: attr.Value})
		}
		return true
	})

	if info, _ := selectInfoFields(recordAttrs, infoAttrLimit, false); len(info) > 0 {
		event.Details = make([]DetailField, 0, len(info))
		for _, field := range info {
			event.Details = append(event.Details, DetailField{Label: field.label, Value: field.value})
		}
	}
	return event
}
