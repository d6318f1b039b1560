package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
)

// JetStreamPublisher is the part of nats.JetStreamContext the publisher needs.
type JetStreamPublisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// ScanPublisher publishes scan events to NATS JetStream
type ScanPublisher struct {
	js JetStreamPublisher
}

// NewScanPublisher creates a new scan event publisher
func NewScanPublisher(js JetStreamPublisher) *ScanPublisher {
	return &ScanPublisher{js: js}
}

// Publish publishes a scan event to the stream
func (p *ScanPublisher) Publish(ctx context.Context, event *model.ScanEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ScanStreamSubject, data, nats.Context(ctx))
	return err
}

type streamingRedirectStore struct {
	repository.RedirectStore
	publisher *ScanPublisher
}

// NewStreamingRedirectStore wraps base so scan inserts go to the stream
// instead of the store. Lookups and counts still hit base.
func NewStreamingRedirectStore(base repository.RedirectStore, publisher *ScanPublisher) repository.RedirectStore {
	return &streamingRedirectStore{RedirectStore: base, publisher: publisher}
}

func (s *streamingRedirectStore) InsertScan(ctx context.Context, scan *model.ScanEvent) error {
	return s.publisher.Publish(ctx, scan)
}
