package stream

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one parsed Server-Sent Events frame.
type sseEvent struct {
	Type string // from "event:", empty for the default type
	Data string // "data:" lines joined with newlines
}

// sseScanner reads SSE frames from a stream. Frames are delimited by
// blank lines; comment lines (leading ":") and unknown fields are
// skipped per the SSE specification.
type sseScanner struct {
	r       *bufio.Reader
	current sseEvent
	err     error
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{r: bufio.NewReader(r)}
}

// Next advances to the next frame, returning false at EOF or on a read
// error. Check Err afterwards to tell the two apart.
func (s *sseScanner) Next() bool {
	var dataLines []string
	var eventType string

	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				// Emit a final frame that wasn't blank-line terminated.
				s.current = sseEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
				s.err = io.EOF
				return true
			}
			s.err = err
			return false
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(dataLines) > 0 {
				s.current = sseEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
				return true
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			dataLines = append(dataLines, value)
		case "event":
			eventType = value
		}
	}
}

// Event returns the frame parsed by the last successful Next.
func (s *sseScanner) Event() sseEvent {
	return s.current
}

// Err returns the read error that stopped scanning, or nil on clean EOF.
func (s *sseScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
