package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/MegaGrindStone/chatwidget/internal/models"
	"github.com/tmaxmax/go-sse"
)

// ErrStreamEnded is yielded when the event stream closes before a terminal event arrives.
var ErrStreamEnded = errors.New("event stream ended before a terminal event")

// Stream opens the GET /api/chat event stream for message and yields its events in arrival order. The
// iterator stops after the terminal event. Transport failures, malformed payloads and a stream that ends
// without a terminal event are yielded as errors, after which iteration stops. Breaking out of the loop
// closes the connection; the connection is never reopened.
func (c *Client) Stream(ctx context.Context, message string) iter.Seq2[models.StreamEvent, error] {
	return func(yield func(models.StreamEvent, error) bool) {
		target := c.endpoint(chatPath, url.Values{"message": []string{message}})
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			yield(models.StreamEvent{}, fmt.Errorf("error creating request: %w", err))
			return
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.client.Do(req)
		if err != nil {
			yield(models.StreamEvent{}, fmt.Errorf("error sending request: %w", err))
			return
		}
		if err := checkStatus(resp); err != nil {
			yield(models.StreamEvent{}, err)
			return
		}
		defer resp.Body.Close()

		for ev, err := range sse.Read(resp.Body, nil) {
			if err != nil {
				yield(models.StreamEvent{}, fmt.Errorf("error reading stream: %w", err))
				return
			}

			c.logger.Debug("Received event",
				slog.String("type", ev.Type),
				slog.String("event", ev.Data),
			)

			var se models.StreamEvent
			if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
				yield(models.StreamEvent{}, fmt.Errorf("error unmarshaling event: %w", err))
				return
			}

			if !yield(se, nil) || se.Terminal() {
				return
			}
		}

		yield(models.StreamEvent{}, ErrStreamEnded)
	}
}
