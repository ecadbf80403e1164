// Package sse reads server-sent event streams as used by OpenAI-style APIs.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Done is the sentinel payload that ends an OpenAI-style stream.
const Done = "[DONE]"

// Event is one dispatched server-sent event.
type Event struct {
	Name string // value of the "event:" field, empty if absent
	Data string // "data:" lines joined with "\n"
}

// Reader yields events from an SSE body.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next event. It returns io.EOF at end of stream or when
// the [DONE] sentinel is received.
func (s *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		started bool
	)
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return Event{}, err
		}
		eof := err == io.EOF
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if started {
				ev.Data = strings.Join(data, "\n")
				if ev.Data == Done {
					return Event{}, io.EOF
				}
				return ev, nil
			}
			if eof {
				return Event{}, io.EOF
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "data:"):
			data = append(data, trimField(line, "data:"))
			started = true
		case strings.HasPrefix(line, "event:"):
			ev.Name = trimField(line, "event:")
			started = true
		}

		if eof {
			if !started {
				return Event{}, io.EOF
			}
			ev.Data = strings.Join(data, "\n")
			if ev.Data == Done {
				return Event{}, io.EOF
			}
			return ev, nil
		}
	}
}

func trimField(line, prefix string) string {
	v := strings.TrimPrefix(line, prefix)
	return strings.TrimPrefix(v, " ")
}
