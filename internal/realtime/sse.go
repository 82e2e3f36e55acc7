package realtime

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// Event is one server-sent event. Empty Name and zero ID are omitted from the frame.
type Event struct {
	Name string
	ID   int
	Data any
}

// WriteEvent encodes e in text/event-stream framing and flushes it.
func WriteEvent(w *bufio.Writer, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	if e.Name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", e.Name); err != nil {
			return err
		}
	}
	if e.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", e.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
