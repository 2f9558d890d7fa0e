package nostr

import (
	stdjson "encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nocturnehq/nocturne/pkg/internal/models"
)

const relayWriteWait = 10 * time.Second

// relayHandlers route inbound frames from a single relay back to the pool.
type relayHandlers struct {
	onEvent func(relayURL, subID string, evt models.Event)
	onEOSE  func(relayURL, subID string)
	onOK    func(relayURL, eventID string, accepted bool, reason string)
}

// relayConn is one websocket connection to one relay. The protocol frames are
// JSON arrays: ["REQ", subID, filter], ["EVENT", subID, event],
// ["EOSE", subID], ["CLOSE", subID], ["OK", eventID, accepted, reason].
type relayConn struct {
	url      string
	conn     *websocket.Conn
	handlers relayHandlers

	writeMu sync.Mutex
	closed  bool
	mu      sync.Mutex
}

func dialRelay(url string, handlers relayHandlers) (*relayConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial relay %s: %v", url, err)
	}

	relay := &relayConn{url: url, conn: conn, handlers: handlers}
	go relay.readLoop()

	return relay, nil
}

func (v *relayConn) readLoop() {
	for {
		_, payload, err := v.conn.ReadMessage()
		if err != nil {
			v.mu.Lock()
			closed := v.closed
			v.mu.Unlock()
			if !closed {
				log.Warn().Err(err).Str("relay", v.url).Msg("Relay connection lost.")
			}
			return
		}

		var frame []stdjson.RawMessage
		if err := json.Unmarshal(payload, &frame); err != nil || len(frame) < 2 {
			log.Debug().Str("relay", v.url).Msg("Dropped unparsable relay frame.")
			continue
		}

		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil {
			continue
		}

		switch label {
		case "EVENT":
			if len(frame) < 3 {
				continue
			}
			var subID string
			var evt models.Event
			if err := json.Unmarshal(frame[1], &subID); err != nil {
				continue
			}
			if err := json.Unmarshal(frame[2], &evt); err != nil {
				log.Debug().Str("relay", v.url).Msg("Dropped malformed event payload.")
				continue
			}
			v.handlers.onEvent(v.url, subID, evt)
		case "EOSE":
			var subID string
			if err := json.Unmarshal(frame[1], &subID); err == nil {
				v.handlers.onEOSE(v.url, subID)
			}
		case "OK":
			if len(frame) < 3 {
				continue
			}
			var eventID, reason string
			var accepted bool
			_ = json.Unmarshal(frame[1], &eventID)
			_ = json.Unmarshal(frame[2], &accepted)
			if len(frame) > 3 {
				_ = json.Unmarshal(frame[3], &reason)
			}
			v.handlers.onOK(v.url, eventID, accepted, reason)
		case "NOTICE":
			var notice string
			_ = json.Unmarshal(frame[1], &notice)
			log.Info().Str("relay", v.url).Str("notice", notice).Msg("Relay notice received.")
		}
	}
}

func (v *relayConn) send(frame []any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("unable to serialize relay frame: %v", err)
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	_ = v.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
	return v.conn.WriteMessage(websocket.TextMessage, payload)
}

func (v *relayConn) subscribe(subID string, filter models.Filter) error {
	return v.send([]any{"REQ", subID, filter})
}

func (v *relayConn) unsubscribe(subID string) error {
	return v.send([]any{"CLOSE", subID})
}

func (v *relayConn) publish(evt models.Event) error {
	return v.send([]any{"EVENT", evt})
}

func (v *relayConn) close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	_ = v.conn.Close()
}
