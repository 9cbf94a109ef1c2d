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

// StartNotificationConsumer connects to RabbitMQ, declares both
// notification queues (durable) and drains them. Each message is appended
// to logs/notifications.log in a single-line, human-friendly format; a real
// mailer would consume the same queues instead. The function runs a
// reconnect loop with exponential backoff and keeps running for the life of
// the process, logging processing errors and rejecting the offending
// message so the server continues operating.
func StartNotificationConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("notification-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
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
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}

	for _, name := range []string{WelcomeQueue, ResetQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	welcomes, err := ch.Consume(WelcomeQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", WelcomeQueue, err)
	}
	resets, err := ch.Consume(ResetQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume %s: %w", ResetQueue, err)
	}

	for {
		select {
		case d, ok := <-welcomes:
			if !ok {
				return errors.New("welcome deliveries channel closed")
			}
			handleDelivery(d, handleWelcome)
		case d, ok := <-resets:
			if !ok {
				return errors.New("reset deliveries channel closed")
			}
			handleDelivery(d, handleReset)
		}
	}
}

func handleDelivery(d amqp.Delivery, handle func([]byte) error) {
	if err := handle(d.Body); err != nil {
		log.Printf("notification-consumer: handle message failed: %v", err)
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleWelcome(body []byte) error {
	var ev WelcomeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Welcome | email=%s | username=%s\n",
		ev.SentAt, ev.Email, ev.Username)
	return appendLog(line)
}

func handleReset(body []byte) error {
	var ev PasswordResetEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	// The raw token never goes to the log, only its length.
	line := fmt.Sprintf("[%s] Password reset requested | email=%s | username=%s | token_len=%d\n",
		ev.SentAt, ev.Email, ev.Username, len(ev.Token))
	return appendLog(line)
}

func appendLog(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
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
