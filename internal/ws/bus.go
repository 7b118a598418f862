package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/hydrachess/backend/internal/session"
)

// StartEventSubscriber subscribes to the outbound event channel and delivers
// each envelope to the sessions this process owns. Envelopes for sessions on
// other processes fall through silently.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	pubsub := rdb.Subscribe(ctx, session.Channel)
	ch := pubsub.Channel()

	go func() {
		log.Printf("[WS] event subscriber started on %s", session.Channel)
		for msg := range ch {
			var env session.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			frame, err := json.Marshal(map[string]interface{}{
				"type": env.Event,
				"data": env.Data,
			})
			if err != nil {
				log.Printf("[WS] encode frame for %s: %v", env.Event, err)
				continue
			}

			switch env.Target {
			case session.TargetSession:
				hub.SendToSession(env.SessionID, frame)
			case session.TargetRoom:
				hub.BroadcastToRoom(env.GameID, frame)
			default:
				log.Printf("[WS] unknown event target %q", env.Target)
			}
		}
	}()
}
