// Package sse decodes text/event-stream response bodies returned by
// httpclient.Adapter.SendEventStream.
package sse

import (
	"bufio"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"
)

// ContentType is the media type of a server-sent event stream.
const ContentType = "text/event-stream"

const maxLineSize = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	// Type is the "event:" field. Empty means "message".
	Type string
	// Data joins every "data:" line of the event with newlines.
	Data string
	// ID is the last event ID seen on the stream, carried over between events.
	ID string
	// Retry is the reconnection delay announced by the server, if any.
	Retry time.Duration
}

// Bytes returns the payload, ready for a parse node factory.
func (e *Event) Bytes() []byte {
	return []byte(e.Data)
}

// Reader reads events from a stream. Close must be called when done.
type Reader interface {
	// Next returns the next event, or io.EOF when the stream ends.
	Next() (*Event, error)
	// All iterates the remaining events and closes the stream afterwards.
	All() iter.Seq2[*Event, error]
	// Close releases the underlying stream.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
}

// NewReader creates a reader over body.
func NewReader(body io.ReadCloser) Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &reader{scanner: scanner, body: body}
}

func (r *reader) Next() (*Event, error) {
	var (
		event   Event
		data    strings.Builder
		hasData bool
	)
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if line == "" {
			if hasData {
				return r.dispatch(&event, &data), nil
			}
			event = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			event.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				event.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		return r.dispatch(&event, &data), nil
	}
	return nil, io.EOF
}

func (r *reader) dispatch(event *Event, data *strings.Builder) *Event {
	event.Data = data.String()
	event.ID = r.lastID
	return event
}

func (r *reader) All() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		defer func() { _ = r.Close() }()
		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

func (r *reader) Close() error {
	return r.body.Close()
}

// splitField splits "field: value", dropping one leading space from the value.
func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
