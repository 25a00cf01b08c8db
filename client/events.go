package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"scribe/models"
	"scribe/websocket"

	gorilla "github.com/gorilla/websocket"
)

// Events dials the event stream. token may be empty for an anonymous stream.
// The channel closes when ctx is cancelled or the connection drops.
func (c *Client) Events(ctx context.Context, token string) (<-chan websocket.Event, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}

	conn, resp, err := gorilla.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, models.NewUnauthenticatedError("Invalid token")
		}
		return nil, &models.AppError{Code: models.CodeUnavailable, Message: "Event stream unreachable", Err: err}
	}

	events := make(chan websocket.Event, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(events)
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && !gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
					log.Printf("event stream closed: %v", err)
				}
				return
			}
			var ev websocket.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Printf("event stream: %v", fmt.Errorf("bad frame: %w", err))
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
