package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLogFile is the file, inside the configured directory, that the
// audit consumer appends to.
const AuditLogFile = "booking.log"

// StartAuditConsumer connects to RabbitMQ, declares the events queue
// (durable) and appends every event as one line to logDir/booking.log.
// It reconnects with exponential backoff until ctx is cancelled and then
// returns nil.  A message that cannot be decoded or written is rejected
// without requeue so a poison message cannot spin the loop.
func StartAuditConsumer(ctx context.Context, url, logDir string, log *zap.Logger) error {
	log = log.Named("audit-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(EventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("consuming", zap.String("queue", EventsQueue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(d.Body, logDir); err != nil {
				log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one event and appends its audit line.
func HandleMessage(body []byte, logDir string) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders ev as a single human friendly line, newline
// terminated.  Rows are listed in label order.
func FormatAuditLine(ev Event) string {
	var detail string
	switch ev.Type {
	case TypeScreenRegistered:
		parts := make([]string, 0, len(ev.Rows))
		for _, label := range sortedKeys(ev.Rows) {
			parts = append(parts, fmt.Sprintf("%s:%d", label, ev.Rows[label]))
		}
		detail = fmt.Sprintf("Screen registered | rows=[%s]", strings.Join(parts, ","))
	case TypeSeatsReserved:
		parts := make([]string, 0, len(ev.Seats))
		for _, label := range sortedKeys(ev.Seats) {
			seats := make([]string, len(ev.Seats[label]))
			for i, s := range ev.Seats[label] {
				seats[i] = fmt.Sprint(s)
			}
			parts = append(parts, fmt.Sprintf("%s:%s", label, strings.Join(seats, " ")))
		}
		detail = fmt.Sprintf("Seats reserved | seats=[%s]", strings.Join(parts, ","))
	default:
		detail = "Event " + ev.Type
	}
	return fmt.Sprintf("[%s] %s | event_id=%s | screen_id=%d | screen=%q\n",
		ev.OccurredAt, detail, ev.EventID, ev.ScreenID, ev.ScreenName)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
