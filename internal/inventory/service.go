package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

type StockReader interface {
	StockEntries(ctx context.Context, keys []orders.StockKey) (map[orders.StockKey]orders.StockEntry, error)
}

type Deduper interface {
	First(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Service watches placed orders and reports stock entries that ran low.
type Service struct {
	Stock       StockReader
	Dedup       Deduper
	Producer    kafkax.Publisher // publishes inventory.stock.low
	Threshold   int
	ServiceName string
	Log         zerolog.Logger
}

// HandleOrderPlaced is installed as the consumer handler.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; committing it keeps the partition moving
		s.Log.Error().Err(err).Int64("offset", m.Offset).Msg("undecodable envelope skipped")
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	first, err := s.Dedup.First(ctx, env.EventID)
	if err != nil {
		s.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("dedup unavailable, processing anyway")
		first = true
	}
	if !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Error().Err(err).Str("event_id", env.EventID).Msg("undecodable payload skipped")
		return nil
	}
	if err := s.checkLevels(ctx, p, env.TraceID); err != nil {
		if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
			s.Log.Warn().Err(ferr).Str("event_id", env.EventID).Msg("release dedup claim")
		}
		return err
	}
	return nil
}

func (s *Service) checkLevels(ctx context.Context, p orders.OrderPlacedPayload, trace string) error {
	keys := make([]orders.StockKey, 0, len(p.Items))
	seen := map[orders.StockKey]bool{}
	for _, it := range p.Items {
		k := orders.StockKey{ProductID: it.ProductID, SizeID: it.SizeID}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	entries, err := s.Stock.StockEntries(ctx, keys)
	if err != nil {
		return fmt.Errorf("read stock for %s: %w", p.OrderNumber, err)
	}
	for _, k := range keys {
		e, ok := entries[k]
		if !ok || e.Quantity > s.Threshold {
			continue
		}
		s.publishLow(e, p.OrderNumber, trace)
	}
	return nil
}

func (s *Service) publishLow(e orders.StockEntry, orderNumber, trace string) {
	k := orders.StockKey{ProductID: e.ProductID, SizeID: e.SizeID}
	payload := orders.StockLowPayload{
		ProductID:   e.ProductID,
		SizeID:      e.SizeID,
		Quantity:    e.Quantity,
		Threshold:   s.Threshold,
		OrderNumber: orderNumber,
	}
	ev := orders.NewEnvelope(orders.EventStockLow, s.ServiceName, trace, orderNumber, kafkax.MustMarshal(payload))
	s.Producer.Publish(orders.StockKeyPartition(k), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	s.Log.Info().
		Int64("product_id", e.ProductID).
		Int64("size_id", e.SizeID).
		Int("quantity", e.Quantity).
		Str("order_number", orderNumber).
		Msg("stock low")
}
