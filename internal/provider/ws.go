package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/quainet/qi-wallet/internal/log"
	"github.com/quainet/qi-wallet/pkg/types"
)

// ErrNoWebSocket is returned by On when no ws endpoint is configured.
var ErrNoWebSocket = errors.New("no websocket endpoint configured")

// subscribeRequest is the wire form of a subscription registration.
type subscribeRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	ID      int64    `json:"id"`
}

// wsSubscription is one active event registration backed by a dedicated
// websocket connection. Each subscription owns its connection; tearing one
// down cannot disturb another.
type wsSubscription struct {
	conn     *websocket.Conn
	done     chan struct{}
	stopOnce sync.Once
}

// Unsubscribe stops event delivery and closes the connection.
func (s *wsSubscription) Unsubscribe() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// On registers a listener for events of the given kind in the zone. The
// listener is invoked from a dedicated reader goroutine; it must not block
// for long or events will back up on the connection.
func (c *Client) On(kind EventKind, listener Listener, zone types.Zone) (Subscription, error) {
	if c.wsEndpoint == "" {
		return nil, ErrNoWebSocket
	}
	if !zone.Valid() {
		return nil, fmt.Errorf("invalid zone 0x%02x", uint8(zone))
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.wsEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}

	req := subscribeRequest{
		JSONRPC: "2.0",
		Method:  "qi_subscribe",
		Params:  []string{string(kind), zone.String()},
		ID:      c.nextID.Add(1),
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe request: %w", err)
	}

	sub := &wsSubscription{
		conn: conn,
		done: make(chan struct{}),
	}
	go sub.readLoop(kind, zone, listener)
	return sub, nil
}

// readLoop delivers incoming events to the listener until the subscription
// is torn down or the connection fails.
func (s *wsSubscription) readLoop(kind EventKind, zone types.Zone, listener Listener) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Normal teardown.
			default:
				log.Provider.Warn().
					Err(err).
					Str("zone", zone.String()).
					Str("kind", string(kind)).
					Msg("subscription read failed")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Provider.Debug().Err(err).Msg("skipping malformed event payload")
			continue
		}
		event.Kind = kind
		event.Zone = zone
		listener(event)
	}
}
