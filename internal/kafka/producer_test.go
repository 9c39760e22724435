package kafka

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/psds-microservice/helpdesk-service/internal/logging"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

func TestParseBrokers(t *testing.T) {
	got := ParseBrokers(" a:9092, ,b:9092,")
	if want := []string{"a:9092", "b:9092"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseBrokers = %v, want %v", got, want)
	}
	if ParseBrokers("") != nil {
		t.Fatal("empty input must give nil")
	}
}

func TestDisabledProducerIsNoop(t *testing.T) {
	p := NewProducer(nil, "helpdesk.tickets", logging.Discard())
	if p.Enabled() {
		t.Fatal("producer without brokers must be disabled")
	}
	p.ProduceTicketEvent(context.Background(), EventTicketCreated, TicketKey(1), nil)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestEncodeTicketPayload(t *testing.T) {
	rating := 5
	closer := "Tech A"
	tk := &model.Ticket{ID: 1, RequesterID: 10, FullName: "Ivan Ivanov", Room: "204", Problem: "projector broken",
		Status: model.TicketStatusClosed, ClosedBy: &closer, Rating: &rating}

	body, err := Encode(EventTicketRated, TicketPayload(tk))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["event"] != EventTicketRated || got["status"] != "closed" || got["closed_by"] != "Tech A" || got["rating"] != float64(5) {
		t.Fatalf("body = %s", body)
	}
	if _, ok := got["feedback"]; ok {
		t.Fatal("nil feedback must be omitted")
	}
}

func TestKeys(t *testing.T) {
	if TicketKey(7) != "ticket-7" || UserKey(-5) != "user--5" {
		t.Fatalf("keys = %s, %s", TicketKey(7), UserKey(-5))
	}
}
