package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/FlexQR/internal/app/model"
	apprepository "github.com/sifan077/FlexQR/internal/app/repository"
	"go.uber.org/zap"
)

// ScanObserver is notified of every consumed scan event.
type ScanObserver interface {
	ObserveScanEvent(result string)
}

// EnsureScanStream creates the scan stream when it does not exist yet.
func EnsureScanStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(model.ScanStreamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     model.ScanStreamName,
		Subjects: []string{model.ScanStreamSubject},
		MaxBytes: model.ScanStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// ScanConsumer drains scan events from NATS JetStream into the scan log
type ScanConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	repo     apprepository.ScanEventRepository
	observer ScanObserver
}

// NewScanConsumer creates a new scan event consumer. observer may be nil.
func NewScanConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ScanEventRepository, observer ScanObserver) *ScanConsumer {
	return &ScanConsumer{js: js, logger: logger, repo: repo, observer: observer}
}

// Start begins consuming scan events until ctx is cancelled
func (c *ScanConsumer) Start(ctx context.Context) error {
	if err := EnsureScanStream(c.js); err != nil {
		return err
	}

	if _, err := c.js.ConsumerInfo(model.ScanStreamName, model.ScanConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.ScanStreamName, &nats.ConsumerConfig{
			Durable:   model.ScanConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ScanStreamSubject, model.ScanConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *ScanConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("scan consumer stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			settle(msg, c.handle(ctx, msg.Data))
		}
	}
}

// errUndecodableScan marks payloads that no redelivery can fix.
var errUndecodableScan = errors.New("undecodable scan event")

// scanMessage is the acknowledgement surface of a JetStream message.
type scanMessage interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

// settle acks stored events, terminates undecodable ones and naks the rest
// for redelivery.
func settle(msg scanMessage, err error) {
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.Is(err, errUndecodableScan):
		_ = msg.Term()
	default:
		_ = msg.Nak()
	}
}

// handle persists one encoded scan event.
func (c *ScanConsumer) handle(ctx context.Context, data []byte) error {
	var event model.ScanEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal scan event", zap.Error(err))
		c.observe("invalid")
		return fmt.Errorf("%w: %v", errUndecodableScan, err)
	}

	if err := c.repo.Create(ctx, &event); err != nil {
		if errors.Is(err, apprepository.ErrDuplicateScanEvent) {
			c.logger.Debug("scan event already stored", zap.String("id", event.ID))
			c.observe("duplicate")
			return nil
		}
		c.logger.Error("failed to store scan event",
			zap.String("id", event.ID),
			zap.String("qr_code_id", event.QrCodeID),
			zap.Error(err))
		c.observe("failed")
		return err
	}

	c.logger.Debug("scan event stored",
		zap.String("id", event.ID),
		zap.String("qr_code_id", event.QrCodeID),
		zap.String("ip", event.IPAddress),
		zap.Time("scanned_at", event.ScannedAt),
	)
	c.observe("stored")
	return nil
}

func (c *ScanConsumer) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveScanEvent(result)
	}
}
