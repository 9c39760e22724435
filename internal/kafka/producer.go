package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/segmentio/kafka-go"
)

// Event names published on the ticket topic.
const (
	EventTicketCreated    = "ticket.created"
	EventTicketInProgress = "ticket.in_progress"
	EventTicketClosed     = "ticket.closed"
	EventTicketRated      = "ticket.rated"
	EventTicketFeedback   = "ticket.feedback"
	EventTicketSnapshot   = "ticket.snapshot"
	EventUserBlocked      = "user.blocked"
	EventUserUnblocked    = "user.unblocked"
)

// TicketEventProducer: интерфейс для отправки событий в Kafka (для подмены в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, key string, payload map[string]interface{})
}

// Producer пишет события в топик Kafka (best-effort, не блокирует бота).
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *slog.Logger
}

// NewProducer создаёт продюсер. Если brokers пустой или topic пустой, методы no-op.
func NewProducer(brokers []string, topic string, log *slog.Logger) *Producer {
	p := &Producer{log: logging.OrDefault(log).With("component", "kafka")}
	if len(brokers) == 0 || topic == "" {
		return p
	}
	p.topic = topic
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return p
}

// Enabled reports whether events are actually written.
func (p *Producer) Enabled() bool { return p.writer != nil }

// ProduceTicketEvent отправляет событие. key keeps events of one ticket or
// user on one partition, so consumers see them in order.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, key string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	body, err := Encode(event, payload)
	if err != nil {
		p.log.Error("marshal event", "event", event, "error", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		p.log.Warn("write event", "event", event, "error", err)
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Encode builds the JSON message body: payload fields plus "event".
func Encode(event string, payload map[string]interface{}) ([]byte, error) {
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	return json.Marshal(msg)
}

// TicketKey is the partition key for a ticket's events.
func TicketKey(id uint64) string { return "ticket-" + strconv.FormatUint(id, 10) }

// UserKey is the partition key for a user's block events.
func UserKey(id int64) string { return "user-" + strconv.FormatInt(id, 10) }

// TicketPayload flattens a ticket into an event payload.
func TicketPayload(t *model.Ticket) map[string]interface{} {
	p := map[string]interface{}{
		"ticket_id":    t.ID,
		"requester_id": t.RequesterID,
		"full_name":    t.FullName,
		"room":         t.Room,
		"problem":      t.Problem,
		"status":       string(t.Status),
		"created_at":   t.CreatedAt,
	}
	if t.ClosedBy != nil {
		p["closed_by"] = *t.ClosedBy
	}
	if t.ClosedAt != nil {
		p["closed_at"] = *t.ClosedAt
	}
	if t.AdminResponse != nil {
		p["admin_response"] = *t.AdminResponse
	}
	if t.Rating != nil {
		p["rating"] = *t.Rating
	}
	if t.Feedback != nil {
		p["feedback"] = *t.Feedback
	}
	return p
}

// ParseBrokers разбивает строку брокеров "host1:9092,host2:9092" на слайс.
func ParseBrokers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Async publishes events on detached contexts so a slow broker never holds
// up the caller. A nil producer makes it a no-op.
type Async struct {
	producer TicketEventProducer
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewAsync(p TicketEventProducer) *Async {
	return &Async{producer: p, timeout: 5 * time.Second}
}

func (a *Async) Publish(event, key string, payload map[string]interface{}) {
	if a == nil || a.producer == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		a.producer.ProduceTicketEvent(ctx, event, key, payload)
	}()
}

// Wait blocks until in-flight events are handed to the producer.
func (a *Async) Wait() {
	if a != nil {
		a.wg.Wait()
	}
}
