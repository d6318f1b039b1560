package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/FlexQR/internal/app/model"
	"github.com/sifan077/FlexQR/internal/app/repository"
	"go.uber.org/zap"
)

type mockJetStream struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (m *mockJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.subjects = append(m.subjects, subj)
	m.payloads = append(m.payloads, data)
	return &nats.PubAck{Stream: model.ScanStreamName}, nil
}

type recordingObserver struct {
	results []string
}

func (o *recordingObserver) ObserveScanEvent(result string) {
	o.results = append(o.results, result)
}

func TestStreamingRedirectStore_InsertScanPublishes(t *testing.T) {
	base := newMemoryRedirectStore(&model.QrCode{ID: "qr-1", ShortCode: "abc", DestinationURL: "https://ex.com"})
	js := &mockJetStream{}
	store := NewStreamingRedirectStore(base, NewScanPublisher(js))

	svc := NewRedirectService(store, RedirectOptions{})
	if _, err := svc.Resolve(context.Background(), ScanRequest{ShortCode: "abc", RealIP: "8.8.8.8"}); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if len(base.scans) != 0 {
		t.Fatalf("expected no direct inserts, got %d", len(base.scans))
	}
	if len(js.payloads) != 1 || js.subjects[0] != model.ScanStreamSubject {
		t.Fatalf("expected one publish on %s, got %v", model.ScanStreamSubject, js.subjects)
	}

	var event model.ScanEvent
	if err := json.Unmarshal(js.payloads[0], &event); err != nil {
		t.Fatalf("payload is not a scan event: %v", err)
	}
	if event.ID == "" || event.QrCodeID != "qr-1" || event.IPAddress != "8.8.8.8" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestStreamingRedirectStore_PublishFailureStillRedirects(t *testing.T) {
	base := newMemoryRedirectStore(&model.QrCode{ID: "qr-1", ShortCode: "abc", DestinationURL: "https://ex.com"})
	store := NewStreamingRedirectStore(base, NewScanPublisher(&mockJetStream{err: nats.ErrNoResponders}))

	out, err := NewRedirectService(store, RedirectOptions{}).Resolve(context.Background(), ScanRequest{ShortCode: "abc"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if out.ScanLogged {
		t.Fatal("expected ScanLogged to be false")
	}
}

func TestScanConsumer_Handle(t *testing.T) {
	var stored []model.ScanEvent
	repo := &mockScanEventRepository{
		createFn: func(ctx context.Context, event *model.ScanEvent) error {
			stored = append(stored, *event)
			return nil
		},
	}
	observer := &recordingObserver{}
	c := NewScanConsumer(nil, zap.NewNop(), repo, observer)

	data, _ := json.Marshal(model.ScanEvent{ID: "evt-1", QrCodeID: "qr-1"})
	if err := c.handle(context.Background(), data); err != nil {
		t.Fatalf("handle returned error: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != "evt-1" {
		t.Fatalf("unexpected stored events %v", stored)
	}

	if err := c.handle(context.Background(), []byte("{")); !errors.Is(err, errUndecodableScan) {
		t.Fatalf("expected undecodable error, got %v", err)
	}

	repo.createFn = func(ctx context.Context, event *model.ScanEvent) error {
		return errors.New("db down")
	}
	if err := c.handle(context.Background(), data); err == nil {
		t.Fatal("expected store error")
	}

	repo.createFn = func(ctx context.Context, event *model.ScanEvent) error {
		return repository.ErrDuplicateScanEvent
	}
	if err := c.handle(context.Background(), data); err != nil {
		t.Fatalf("redelivered event should be acked, got %v", err)
	}

	want := []string{"stored", "invalid", "failed", "duplicate"}
	for i, r := range want {
		if observer.results[i] != r {
			t.Fatalf("unexpected observed results %v", observer.results)
		}
	}
}

type recordingMessage struct {
	settled []string
}

func (m *recordingMessage) Ack(...nats.AckOpt) error {
	m.settled = append(m.settled, "ack")
	return nil
}

func (m *recordingMessage) Nak(...nats.AckOpt) error {
	m.settled = append(m.settled, "nak")
	return nil
}

func (m *recordingMessage) Term(...nats.AckOpt) error {
	m.settled = append(m.settled, "term")
	return nil
}

func TestSettle(t *testing.T) {
	repo := &mockScanEventRepository{
		createFn: func(ctx context.Context, event *model.ScanEvent) error {
			return errors.New("db down")
		},
	}
	c := NewScanConsumer(nil, zap.NewNop(), repo, nil)
	data, _ := json.Marshal(model.ScanEvent{ID: "evt-1", QrCodeID: "qr-1"})

	msg := &recordingMessage{}
	settle(msg, c.handle(context.Background(), []byte("not json")))
	settle(msg, c.handle(context.Background(), data))

	repo.createFn = nil
	settle(msg, c.handle(context.Background(), data))

	want := []string{"term", "nak", "ack"}
	if len(msg.settled) != len(want) {
		t.Fatalf("unexpected settlements %v", msg.settled)
	}
	for i := range want {
		if msg.settled[i] != want[i] {
			t.Fatalf("unexpected settlements %v", msg.settled)
		}
	}
}
