package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"paidreviews/internal/domain"
)

// maxHandlerRetries bounds how often one message is retried before it is
// committed and skipped, so a poison event cannot block the stream.
const maxHandlerRetries = 3

// Handler processes one settled payment. A non-nil error requests a retry.
type Handler func(ctx context.Context, ev domain.PaymentEvent) error

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// Consumer reads the gateway's settled-invoice topic and feeds each event to
// the handler strictly one at a time, in arrival order.
type Consumer struct {
	reader    *kafka.Reader
	handler   Handler
	closeOnce sync.Once
}

func NewConsumer(cfg ConsumerConfig, h Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Consumer{reader: r, handler: h}
}

// settledPayment is the wire shape the gateway publishes.
type settledPayment struct {
	PaymentHash string `json:"payment_hash"`
	Amount      int64  `json:"amount"`
	Extra       struct {
		Tag string `json:"tag"`
	} `json:"extra"`
}

func decodeEvent(b []byte) (domain.PaymentEvent, error) {
	var sp settledPayment
	if err := json.Unmarshal(b, &sp); err != nil {
		return domain.PaymentEvent{}, err
	}
	return domain.PaymentEvent{
		PaymentHash: sp.PaymentHash,
		Amount:      sp.Amount,
		Tag:         sp.Extra.Tag,
	}, nil
}

// runWithRetries invokes the handler up to maxHandlerRetries times with a
// linear backoff. The final error is returned for logging; the caller
// commits the message either way.
func runWithRetries(ctx context.Context, h Handler, ev domain.PaymentEvent) error {
	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		lastErr = h(ctx, ev)
		if lastErr == nil {
			return nil
		}
		log.Warn().Err(lastErr).
			Str("payment_hash", ev.PaymentHash).
			Int("attempt", attempt).
			Msg("payment event handler failed")
		if attempt < maxHandlerRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return lastErr
}

// Run blocks until ctx is canceled. Messages are only fetched between
// handler invocations, so cancellation never interrupts a transition.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group", c.reader.Config().GroupID).
		Msg("payment consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", c.reader.Config().Topic).Msg("payment consumer stopping")
				return c.Close()
			}
			log.Error().Err(err).Msg("fetch payment event failed")
			continue
		}

		ev, err := decodeEvent(msg.Value)
		if err != nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("malformed payment event, skipping")
			c.commit(ctx, msg)
			continue
		}

		if err := runWithRetries(ctx, c.handler, ev); err != nil {
			if ctx.Err() != nil {
				return c.Close()
			}
			log.Error().Err(err).
				Str("payment_hash", ev.PaymentHash).
				Int64("offset", msg.Offset).
				Msg("payment event dropped after retries")
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit payment event failed")
	}
}

// Close is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
