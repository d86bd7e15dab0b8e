package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// EventArchive journals every published log event to disk as JSON lines.
// The stream hub only holds the most recent events; observers that fell
// behind its window replay the rest of the run from here.
type EventArchive struct {
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventArchive starts a fresh journal at path, truncating any previous
// run's contents. An empty path returns a nil archive, which every method
// treats as archiving disabled.
func NewEventArchive(path string) (*EventArchive, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if err := ensureLogDir(path); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &EventArchive{path: path, file: file, enc: json.NewEncoder(file)}, nil
}

// Append journals the event. Write failures are swallowed; losing archive
// lines must never take down the logger feeding the hub.
func (a *EventArchive) Append(evt LogEvent) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enc == nil {
		file, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		a.file = file
		a.enc = json.NewEncoder(file)
	}
	_ = a.enc.Encode(evt)
}

// ReadSince scans the journal for events with sequence greater than since,
// returning at most limit of them (0 means no cap) plus the highest
// sequence seen anywhere in the file.
func (a *EventArchive) ReadSince(since uint64, limit int) ([]LogEvent, uint64, error) {
	if a == nil {
		return nil, since, nil
	}
	file, err := os.Open(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, since, nil
	}
	if err != nil {
		return nil, since, fmt.Errorf("open archive %s: %w", a.path, err)
	}
	defer file.Close()

	sizeHint := limit
	if sizeHint <= 0 || sizeHint > 512 {
		sizeHint = 512
	}
	events := make([]LogEvent, 0, sizeHint)
	highest := since
	dec := json.NewDecoder(file)
	for {
		var evt LogEvent
		if err := dec.Decode(&evt); err != nil {
			if errors.Is(err, io.EOF) {
				return events, highest, nil
			}
			return events, highest, fmt.Errorf("decode archive %s: %w", a.path, err)
		}
		if evt.Sequence > highest {
			highest = evt.Sequence
		}
		if evt.Sequence <= since {
			continue
		}
		events = append(events, evt)
		if limit > 0 && len(events) >= limit {
			return events, highest, nil
		}
	}
}

// Close flushes and releases the journal file.
func (a *EventArchive) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var err error
	if a.file != nil {
		err = a.file.Close()
	}
	a.file = nil
	a.enc = nil
	return err
}
