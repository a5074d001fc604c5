package handlers

// events.go streams hub events to clients as server-sent events on GET /api/v1/events.
//
// Optional query param: ?match=<id> to follow one match; without it the client
// receives every event. Browsers connect with EventSource, which cannot set an
// Authorization header, so the token may also be passed as ?token=.

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	// fasthttp is the engine under fiber; its StreamWriter lets the handler keep
	// writing to the response after it returns.
	"github.com/valyala/fasthttp"

	"github.com/padelhub/padelhub/internal/hub"
)

// heartbeatEvery keeps proxies from closing idle streams.
const heartbeatEvery = 15 * time.Second

// writeEvent writes one SSE frame and flushes it.
func writeEvent(w *bufio.Writer, msg hub.Message) error {
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, msg.Data); err != nil {
		return err
	}
	return w.Flush()
}

// Events returns a handler for GET /api/v1/events.
func Events(h *hub.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		topic := hub.AllMatches
		if c.Query("match") != "" {
			id := c.QueryInt("match")
			if id <= 0 {
				return badRequest(c, "invalid match id")
			}
			topic = hub.MatchTopic(id)
		}

		client := hub.NewClient(topic)
		if !h.Register(client) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "event stream unavailable"})
		}
		log := logrus.WithFields(logrus.Fields{"client": client.ID, "topic": topic})
		log.Debug("event stream opened")

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer func() {
				h.Unregister(client)
				log.Debug("event stream closed")
			}()

			if _, err := fmt.Fprintf(w, ": connected %s\n\n", client.ID); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}

			ticker := time.NewTicker(heartbeatEvery)
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					if err := writeEvent(w, msg); err != nil {
						return
					}
				case <-ticker.C:
					// A failed flush is how a disconnected client shows up.
					if _, err := w.WriteString(": ping\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		}))
		return nil
	}
}
