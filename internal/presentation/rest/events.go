package rest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const keepAliveInterval = 15 * time.Second

// StreamDeployment pushes progress events for a deployment id as server-sent events until
// a terminal event arrives or the client disconnects.
func (s Server) StreamDeployment(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).SendString("deployment id is required")
	}
	stream, cancel := s.commands.Progress.Subscribe(id)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case event, ok := <-stream:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					slog.Error("can't encode progress event", "deployment", id, "err", err)
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				if err = w.Flush(); err != nil {
					slog.Info("progress subscriber went away", "deployment", id)
					return
				}
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
