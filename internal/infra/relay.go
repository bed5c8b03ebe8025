package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maydaypets/platform/internal/clock"
	"github.com/maydaypets/platform/internal/guard"
	"github.com/maydaypets/platform/internal/repository"
)

// RelayPoller polls the event log for unrelayed records and publishes
// them to Kafka, one topic per event type. Broker trouble trips a
// circuit breaker so a flapping cluster is not hammered on every tick.
type RelayPoller struct {
	source    repository.RelaySource
	producer  *KafkaProducer
	breaker   *guard.CircuitBreaker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewRelayPoller creates a new relay poller.
func NewRelayPoller(source repository.RelaySource, producer *KafkaProducer, interval time.Duration, batchSize int, clk clock.Clock, logger *slog.Logger) *RelayPoller {
	return &RelayPoller{
		source:    source,
		producer:  producer,
		breaker:   guard.NewCircuitBreaker(5, 30*time.Second, clk),
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *RelayPoller) Start(ctx context.Context) {
	p.logger.Info("relay poller started", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("relay poller stopped")
				return
			case <-ticker.C:
				if err := p.Poll(ctx); err != nil {
					p.logger.Error("relay poll error", "error", err)
				}
			}
		}
	}()
}

// Poll relays one batch of unrelayed records. Exported so a one-shot
// relay binary can drive it without the ticker.
func (p *RelayPoller) Poll(ctx context.Context) error {
	if !p.breaker.Allow() {
		p.logger.Warn("relay skipped, circuit open")
		return nil
	}

	records, err := p.source.ListUnrelayed(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	relayed := 0
	for _, rec := range records {
		topic := "mayday.alert." + string(rec.EventType)
		key := []byte(rec.SubjectID.String())

		msg, err := json.Marshal(rec)
		if err != nil {
			p.logger.Error("marshal event record failed", "event_id", rec.EventID, "error", err)
			continue
		}

		if err := p.producer.Publish(ctx, topic, key, msg); err != nil {
			p.breaker.RecordFailure()
			p.logger.Error("kafka publish failed", "event_id", rec.EventID, "topic", topic, "error", err)
			continue
		}
		p.breaker.RecordSuccess()

		if err := p.source.MarkRelayed(ctx, rec.EventID); err != nil {
			p.logger.Error("mark relayed failed", "event_id", rec.EventID, "error", err)
			continue
		}
		relayed++
	}

	p.logger.Debug("relay poll complete", "fetched", len(records), "relayed", relayed)
	return nil
}
