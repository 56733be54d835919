package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-booking/internal/config"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer   *kafka.Writer
	Topics   config.TopicConfig
	MockMode bool
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: cfg.Topics, MockMode: cfg.MockMode}
}

func (p *Producer) publish(topic, key string, payload any) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if p.MockMode {
		fmt.Printf("Kafka mock mode, skipping publish [%s]: %s\n", topic, string(msgBytes))
		return nil
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishBookingRecorded streams a new or grown booking entry
func (p *Producer) PublishBookingRecorded(ev models.BookingEvent) error {
	return p.publish(p.Topics.BookingRecorded, ev.UserEmail, ev)
}

// PublishPaymentToggled streams an admin paid/due flip
func (p *Producer) PublishPaymentToggled(ev models.BookingEvent) error {
	return p.publish(p.Topics.PaymentToggled, ev.UserEmail, ev)
}

// PublishBookingsNormalized streams a converge pass over the whole store
func (p *Producer) PublishBookingsNormalized(ev models.NormalizeEvent) error {
	return p.publish(p.Topics.BookingsNormalized, ev.EventID, ev)
}

// PublishMovieDeleted streams a catalog deletion (bookings already renumbered)
func (p *Producer) PublishMovieDeleted(ev models.MovieEvent) error {
	return p.publish(p.Topics.MovieDeleted, ev.EventID, ev)
}

func (p *Producer) Close() error {
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}
