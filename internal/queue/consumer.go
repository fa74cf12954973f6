package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier delivers one SMS; satisfied by service.Notifier implementations.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// AlertMarker records the notified transition after fan-out; satisfied by
// repository.SOSRepo.
type AlertMarker interface {
	MarkNotified(ctx context.Context, alertID uint64) error
}

// StartSOSConsumer connects to RabbitMQ, declares the sos.alert queue
// (durable), and starts consuming alerts. Each alert is fanned out as one
// SMS per contact, appended to logs/sos.log, and marked notified. The
// function runs a reconnect loop and keeps running across broker outages,
// logging errors and rejecting bad messages so the server stays up.
func StartSOSConsumer(notifier Notifier, marker AlertMarker) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("sos-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, notifier, marker); err != nil {
			log.Printf("sos-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, notifier Notifier, marker AlertMarker) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("sos-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(sosQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(sosQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleAlert(d.Body, notifier, marker); err != nil {
			log.Printf("sos-consumer: handle alert failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleAlert(body []byte, notifier Notifier, marker AlertMarker) error {
	var ev SOSAlertEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text := alertText(ev)
	sent := 0
	for _, c := range ev.Contacts {
		if c.Phone == "" {
			continue
		}
		if err := notifier.Notify(ctx, c.Phone, text); err != nil {
			log.Printf("sos-consumer: notify %s failed: %v", c.Name, err)
			continue
		}
		sent++
	}

	if err := appendAlertLog(ev, sent); err != nil {
		return err
	}
	if err := marker.MarkNotified(ctx, ev.AlertID); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

func alertText(ev SOSAlertEvent) string {
	return fmt.Sprintf("SOS from %s: %s. Location: https://maps.google.com/?q=%f,%f",
		ev.UserName, ev.Message, ev.Lat, ev.Lng)
}

func appendAlertLog(ev SOSAlertEvent, sent int) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "sos.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] SOS alert | alert_id=%d | user_id=%d | user=%q | lat=%f | lng=%f | contacts=%d | sms_sent=%d\n",
		ev.RaisedAt, ev.AlertID, ev.UserID, ev.UserName, ev.Lat, ev.Lng, len(ev.Contacts), sent)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
