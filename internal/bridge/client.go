package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Listen connects to the bridge as window and calls fn for every push until
// ctx is done or the connection drops. Replies are ignored.
func Listen(ctx context.Context, endpoint, token, window string, fn func(Push)) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid bridge url %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set(TokenParam, token)
	if window != "" {
		q.Set("window", window)
	}
	u.RawQuery = q.Encode()

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to bridge: %w", err)
	}
	defer ws.Close()

	go func() {
		<-ctx.Done()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("bridge connection lost: %w", err)
		}
		var push Push
		if err := json.Unmarshal(data, &push); err != nil || push.Event == "" {
			continue
		}
		fn(push)
	}
}
