package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
)

type Config struct {
	Brokers      string
	Topic        string
	WriteTimeout time.Duration
	// BatchTimeout bounds how long a single event waits for a batch to fill.
	BatchTimeout time.Duration
}

const defaultBatchTimeout = 10 * time.Millisecond

type envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type aggregateEvent interface {
	AggregateID() string
}

// messageWriter abstracts kafka.Writer for tests.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ service.EventDispatcher = &Dispatcher{}

// Dispatcher publishes domain events to a topic keyed by aggregate id, so
// every event of one order lands on the same partition in order.
type Dispatcher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

func NewDispatcher(cfg Config) *Dispatcher {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}
	return newDispatcher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: batchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, cfg.WriteTimeout)
}

func newDispatcher(w messageWriter, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{writer: w, timeout: timeout, now: time.Now}
}

func (d *Dispatcher) Dispatch(e service.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", e.Type())
	}
	value, err := json.Marshal(envelope{
		Type:       e.Type(),
		OccurredAt: d.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return errors.Wrapf(err, "marshal %s envelope", e.Type())
	}

	key := e.Type()
	if a, ok := e.(aggregateEvent); ok {
		key = a.AggregateID()
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.Type())}},
	})
	return errors.Wrapf(err, "publish %s", e.Type())
}

func (d *Dispatcher) Close() error {
	return d.writer.Close()
}
