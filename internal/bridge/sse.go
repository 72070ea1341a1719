// internal/bridge/sse.go
package bridge

import (
	"bufio"
	"io"
	"strings"
)

// Frame is one Server-Sent-Events message.
type Frame struct {
	Event string
	Data  string
}

// maxLine bounds one SSE line.
const maxLine = 64 * 1024

// ReadFrames parses an SSE stream and calls fn for every complete frame.
// Comment lines (":ok") and unknown fields are skipped. Multiple data lines
// in one frame are joined with "\n". It returns the first error from fn or
// the reader; a clean end of stream returns io.EOF.
func ReadFrames(r io.Reader, fn func(Frame) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	var (
		cur     Frame
		data    []string
		pending bool
	)

	flush := func() error {
		if !pending {
			return nil
		}
		cur.Data = strings.Join(data, "\n")
		f := cur
		cur, data, pending = Frame{}, data[:0], false
		return fn(f)
	}

	for sc.Scan() {
		line := sc.Text()

		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			cur.Event = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return io.EOF
}
