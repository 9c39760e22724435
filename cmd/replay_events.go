package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/spf13/cobra"
)

var replayEventsCmd = &cobra.Command{
	Use:   "replay-events",
	Short: "Republish every ticket to Kafka as ticket.snapshot (rebuilds downstream read models)",
	RunE:  runReplayEvents,
}

func runReplayEvents(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, logger)
	if !producer.Enabled() {
		return errors.New("replay-events: KAFKA_BROKERS and KAFKA_TOPIC_TICKET must be set")
	}
	defer producer.Close()

	conn, err := database.Open(cfg.DB.Driver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	tickets, err := service.NewTicketService(conn).ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}
	log.Printf("replay-events: found %d tickets", len(tickets))
	for i := range tickets {
		t := &tickets[i]
		producer.ProduceTicketEvent(ctx, kafka.EventTicketSnapshot, kafka.TicketKey(t.ID), kafka.TicketPayload(t))
		if (i+1)%50 == 0 || i == len(tickets)-1 {
			log.Printf("replay-events: sent %d/%d", i+1, len(tickets))
		}
	}
	log.Printf("replay-events: done, sent %d events to %s", len(tickets), cfg.KafkaTopicTicket)
	return nil
}
