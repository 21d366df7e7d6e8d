package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartActivityConsumer connects to RabbitMQ, declares the durable
// activity queue, and starts consuming events. Each event is appended to
// logs/activity.log in a single-line, human-friendly format. The
// function runs a reconnect loop with backoff and keeps running; any
// processing error is logged and the offending message rejected so the
// server continues operating.
func StartActivityConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("activity-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(conn)
		_ = conn.Close()
		if err != nil {
			log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("activity-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(activityQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(activityQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body); err != nil {
			log.Printf("activity-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte) error {
	var ev ActivityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	var line string
	switch ev.Type {
	case TypeInviteRedeemed:
		if ev.Invite == nil {
			return fmt.Errorf("invite.redeemed event without payload")
		}
		line = fmt.Sprintf("[%s] Invite redeemed | code=%q | user_id=%d | uses=%d/%d\n",
			ev.OccurredAt, ev.Invite.Code, ev.Invite.UserID, ev.Invite.CurrentUses, ev.Invite.MaxUses)
	case TypeMatchUnmatched:
		if ev.Match == nil {
			return fmt.Errorf("match.unmatched event without payload")
		}
		line = fmt.Sprintf("[%s] Match ended | match_id=%d | users=%d,%d | by=%d\n",
			ev.OccurredAt, ev.Match.MatchID, ev.Match.User1ID, ev.Match.User2ID, ev.Match.ActorID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "activity.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
