package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"chat-relay/internal/models"

	"github.com/IBM/sarama"
)

const (
	EventMessageSaved   = "message_saved"
	EventMessageDeleted = "message_deleted"
)

func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy  // Enable compression
	config.Producer.Partitioner = sarama.NewHashPartitioner // Messages of one channel share a partition
	config.Version = sarama.V2_0_0_0
	config.ClientID = "chat-relay"
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// MessageEvent is the record written for every stored or deleted message.
type MessageEvent struct {
	Event     string    `json:"event"`
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes message events keyed by channel. Failures are logged and
// never reach the chat path.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

func (p *Publisher) MessageSaved(ctx context.Context, msg *models.Message) {
	p.publish(ctx, MessageEvent{
		Event:     EventMessageSaved,
		ID:        msg.ID,
		Username:  msg.Username,
		Channel:   msg.Channel,
		Text:      msg.Text,
		Timestamp: msg.CreatedAt,
	})
}

func (p *Publisher) MessageDeleted(ctx context.Context, msg *models.Message) {
	p.publish(ctx, MessageEvent{
		Event:     EventMessageDeleted,
		ID:        msg.ID,
		Username:  msg.Username,
		Channel:   msg.Channel,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, ev MessageEvent) {
	if ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to encode message event", "event", ev.Event, "messageID", ev.ID, "error", err)
		return
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Channel),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(ev.Event)},
		},
	})
	if err != nil {
		p.logger.Warn("Failed to publish message event", "event", ev.Event, "messageID", ev.ID, "error", err)
		return
	}
	p.logger.Debug("Published message event", "event", ev.Event, "messageID", ev.ID, "partition", partition, "offset", offset)
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
