// Package sse frames values as Server-Sent Events.
package sse

import (
	"bufio"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// SetHeaders marks the response as an unbuffered event stream.
func SetHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

// Frame encodes v as a single `data:` frame.
func Frame(v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// Pump writes and flushes one frame per value until values is closed.
// After the first write error it keeps draining values without writing,
// so the producer is never blocked by a gone client.
func Pump[T any](w *bufio.Writer, values <-chan T, onError func(error)) {
	broken := false
	for v := range values {
		if broken {
			continue
		}
		frame, err := Frame(v)
		if err == nil {
			_, err = w.Write(frame)
		}
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			broken = true
			if onError != nil {
				onError(err)
			}
		}
	}
}
