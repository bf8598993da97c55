package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Producer publishes through a buffered inbox so request handlers do not wait for broker acks.
// Publish blocks only while the inbox is full, which bounds memory when the broker is down.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	once    sync.Once
	log     zerolog.Logger
}

func NewProducer(brokers []string, topic string, buf int, log zerolog.Logger) *Producer {
	p := &Producer{
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     log.With().Str("topic", topic).Logger(),
	}
	p.w = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				p.log.Error().Err(err).Int("messages", len(msgs)).Msg("kafka write failed")
			}
		},
	}
	return p
}

func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Error().Err(err).Str("key", string(m.Key)).Msg("kafka enqueue failed")
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Error().Err(err).Msg("kafka writer close")
		}
	}()
}

// Publish queues a message. It blocks while the inbox is full.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages, flushes what is queued and waits for the writer.
// Publish must not be called after Close.
func (p *Producer) Close() {
	p.once.Do(func() { close(p.inbox) })
	<-p.closeCh
}

// Publisher is the part of Producer that request paths depend on.
type Publisher interface {
	Publish(key, value []byte, headers ...kafka.Header)
}

var _ Publisher = (*Producer)(nil)
