// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/goleak"

	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/notify"
)

type fakeStore struct {
	mu        sync.Mutex
	clients   map[uuid.UUID]*models.Client
	pros      map[uuid.UUID]*models.Pro
	failTimes int // GetClient fails this many times before succeeding
}

func (s *fakeStore) GetClient(_ context.Context, id uuid.UUID) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTimes > 0 {
		s.failTimes--
		return nil, errors.New("database is locked")
	}
	c, ok := s.clients[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) GetPro(_ context.Context, id uuid.UUID) (*models.Pro, error) {
	p, ok := s.pros[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

type sent struct {
	Template string
	To       string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []sent
	data  []interface{}
	fail  bool
}

func (n *fakeNotifier) SendTemplate(_ context.Context, name, to string, data interface{}) (*models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, sent{Template: name, To: to})
	n.data = append(n.data, data)
	if n.fail {
		return nil, errors.New("provider down")
	}
	return &models.Notification{}, nil
}

func (n *fakeNotifier) snapshot() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sent(nil), n.sends...)
}

type fakeHub struct {
	mu     sync.Mutex
	frames [][]byte
}

func (h *fakeHub) BroadcastRaw(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, data)
}

func (h *fakeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func fixtures() (*fakeStore, *models.Client, *models.Pro) {
	client := &models.Client{
		ID:            uuid.New(),
		CompanyName:   "Summit Realty",
		Email:         "hiring@summit.test",
		MarketAddress: "100 Main St, Boise, ID 83702",
	}
	pro := &models.Pro{
		ID:        uuid.New(),
		Type:      models.ProTypeLoanOfficer,
		FirstName: "Dana",
		LastName:  "Reyes",
		Phone:     "+12085550100",
		Score:     82,
	}
	return &fakeStore{
		clients: map[uuid.UUID]*models.Client{client.ID: client},
		pros:    map[uuid.UUID]*models.Pro{pro.ID: pro},
	}, client, pro
}

func envelopeMessage(t *testing.T, topic string, payload interface{}) *message.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(models.Event{ID: uuid.NewString(), Topic: topic, OccurredAt: time.Now(), CorrelationID: "corr-1", Data: data})
	if err != nil {
		t.Fatal(err)
	}
	return message.NewMessage(uuid.NewString(), body)
}

func TestHandleMatchCreated(t *testing.T) {
	store, client, pro := fixtures()
	notifier := &fakeNotifier{}
	h := NewNotificationHandler(store, notifier, "https://app.owldoor.test/")

	matchID := uuid.New()
	msg := envelopeMessage(t, models.TopicMatchCreated, models.MatchEvent{
		MatchID: matchID, ClientID: client.ID, ProID: pro.ID, Score: 82, DistanceMiles: 4.2,
	})
	if err := h.HandleMatchCreated(msg); err != nil {
		t.Fatalf("HandleMatchCreated: %v", err)
	}

	want := []sent{
		{Template: notify.TemplateMatchNotice, To: "hiring@summit.test"},
		{Template: notify.TemplateNewOpportunity, To: "+12085550100"},
	}
	if diff := cmp.Diff(want, notifier.snapshot()); diff != "" {
		t.Fatalf("sends (-want +got):\n%s", diff)
	}
	notice := notifier.data[0].(notify.MatchNoticeData)
	if notice.ProName != "Dana Reyes" || notice.ProType != "loan officer" ||
		notice.DashboardURL != "https://app.owldoor.test/dashboard/matches/"+matchID.String() {
		t.Errorf("notice = %+v", notice)
	}
	if opp := notifier.data[1].(notify.OpportunityData); opp.City != "Boise" || opp.FirstName != "Dana" {
		t.Errorf("opportunity = %+v", opp)
	}
}

func TestHandleMatchCreatedEdgeCases(t *testing.T) {
	store, client, pro := fixtures()

	t.Run("missing pro is dropped", func(t *testing.T) {
		notifier := &fakeNotifier{}
		h := NewNotificationHandler(store, notifier, "")
		msg := envelopeMessage(t, models.TopicMatchCreated, models.MatchEvent{ClientID: client.ID, ProID: uuid.New()})
		if err := h.HandleMatchCreated(msg); err != nil {
			t.Fatalf("err = %v", err)
		}
		if len(notifier.snapshot()) != 0 {
			t.Error("nothing should be sent")
		}
	})

	t.Run("garbage is dropped", func(t *testing.T) {
		h := NewNotificationHandler(store, &fakeNotifier{}, "")
		if err := h.HandleMatchCreated(message.NewMessage("x", []byte("{"))); err != nil {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("store error is retried", func(t *testing.T) {
		flaky := &fakeStore{clients: store.clients, pros: store.pros, failTimes: 1}
		h := NewNotificationHandler(flaky, &fakeNotifier{}, "")
		msg := envelopeMessage(t, models.TopicMatchCreated, models.MatchEvent{ClientID: client.ID, ProID: pro.ID})
		if err := h.HandleMatchCreated(msg); err == nil {
			t.Fatal("expected the store error to be returned")
		}
		if err := h.HandleMatchCreated(msg); err != nil {
			t.Fatalf("second attempt: %v", err)
		}
	})

	t.Run("send failure is not retried", func(t *testing.T) {
		notifier := &fakeNotifier{fail: true}
		h := NewNotificationHandler(store, notifier, "")
		msg := envelopeMessage(t, models.TopicMatchCreated, models.MatchEvent{ClientID: client.ID, ProID: pro.ID})
		if err := h.HandleMatchCreated(msg); err != nil {
			t.Fatalf("err = %v", err)
		}
		if len(notifier.snapshot()) != 2 {
			t.Errorf("both channels should still be attempted, got %v", notifier.snapshot())
		}
	})
}

func TestHandlePaymentCompleted(t *testing.T) {
	store, client, _ := fixtures()
	notifier := &fakeNotifier{}
	h := NewNotificationHandler(store, notifier, "")
	paymentID := uuid.New()
	msg := envelopeMessage(t, models.TopicPaymentCompleted, models.PaymentEvent{
		PaymentID: paymentID, ClientID: client.ID, Plan: "growth", AmountCents: 24900, Currency: "usd",
	})
	if err := h.HandlePaymentCompleted(msg); err != nil {
		t.Fatal(err)
	}
	got := notifier.snapshot()
	if len(got) != 1 || got[0].Template != notify.TemplatePaymentReceipt || got[0].To != client.Email {
		t.Fatalf("sends = %v", got)
	}
	want := notify.ReceiptData{CompanyName: "Summit Realty", Plan: "growth", AmountCents: 24900, Currency: "usd", PaymentID: paymentID.String()}
	if diff := cmp.Diff(want, notifier.data[0]); diff != "" {
		t.Errorf("receipt (-want +got):\n%s", diff)
	}
}

func TestMarketCity(t *testing.T) {
	tests := map[string]string{
		"100 Main St, Boise, ID 83702": "Boise",
		"Austin, TX":                   "Austin",
		"78701":                        "",
		"":                             "",
	}
	for in, want := range tests {
		if got := marketCity(in); got != want {
			t.Errorf("marketCity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublisherEnvelope(t *testing.T) {
	bus, err := NewBus(context.Background(), DefaultBusConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer bus.Close()

	sub, err := bus.Subscriber("")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	messages, err := sub.Subscribe(ctx, models.TopicProScored)
	if err != nil {
		t.Fatal(err)
	}

	pub := NewPublisher(bus.Publisher())
	pro := &models.Pro{ID: uuid.New(), FirstName: "Ann", LastName: "Lee", Score: 71, Stage: models.StageQualified}
	pctx := logging.ContextWithCorrelationID(ctx, "corr-42")
	if err := pub.Publish(pctx, models.TopicProScored, models.NewProEvent(pro)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		var data models.ProEvent
		event, err := DecodeEvent(msg, &data)
		if err != nil {
			t.Fatal(err)
		}
		if event.ID != msg.UUID || event.Topic != models.TopicProScored || event.CorrelationID != "corr-42" {
			t.Errorf("envelope = %+v", event)
		}
		if data.ProID != pro.ID || data.Score != 71 || data.Name != "Ann Lee" {
			t.Errorf("data = %+v", data)
		}
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	pub.Close()
	if err := pub.Publish(ctx, models.TopicProScored, nil); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("publish after close = %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProcessorEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, client, pro := fixtures()
	store.failTimes = 1
	notifier := &fakeNotifier{}
	hub := &fakeHub{}

	rc := DefaultRouterConfig()
	rc.RetryInitialInterval = time.Millisecond
	rc.RetryMaxInterval = 5 * time.Millisecond
	p, err := New(context.Background(), DefaultBusConfig(), rc, Deps{Store: store, Notifier: notifier, Hub: hub})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Router().Serve(ctx) }()
	select {
	case <-p.Router().Started():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	pub := p.Publisher()
	if err := pub.Publish(ctx, models.TopicMatchCreated, models.MatchEvent{MatchID: uuid.New(), ClientID: client.ID, ProID: pro.ID}); err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(ctx, models.TopicProCreated, models.NewProEvent(pro)); err != nil {
		t.Fatal(err)
	}

	// The first GetClient fails; the retry middleware redelivers.
	waitFor(t, func() bool { return len(notifier.snapshot()) == 2 && hub.count() == 2 })
	if p.Broadcast().Forwarded() != 2 {
		t.Errorf("forwarded = %d", p.Broadcast().Forwarded())
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNATSBusRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}
	bc := DefaultBusConfig()
	bc.EmbeddedServer = true
	bc.StoreDir = t.TempDir()

	hub := &fakeHub{}
	p, err := New(context.Background(), bc, DefaultRouterConfig(), Deps{Hub: hub})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Bus().Transport() != "nats" || !p.Bus().Embedded().IsRunning() {
		t.Fatal("expected the embedded NATS transport")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Router().Serve(ctx) }()
	<-p.Router().Started()

	if err := p.Publisher().Publish(ctx, models.TopicPaymentCompleted, models.PaymentEvent{ClientID: uuid.New(), Plan: "pro"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return hub.count() == 1 })

	cancel()
	<-done
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

type fakeJetStream struct {
	exists  bool
	created []jetstream.StreamConfig
	updated []jetstream.StreamConfig
}

func (f *fakeJetStream) Stream(context.Context, string) (jetstream.Stream, error) {
	if f.exists {
		return nil, nil
	}
	return nil, jetstream.ErrStreamNotFound
}

func (f *fakeJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.created = append(f.created, cfg)
	return nil, nil
}

func (f *fakeJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.updated = append(f.updated, cfg)
	return nil, nil
}

func TestEnsureStream(t *testing.T) {
	cfg := DefaultBusConfig()

	fresh := &fakeJetStream{}
	if _, err := EnsureStream(context.Background(), fresh, cfg); err != nil {
		t.Fatal(err)
	}
	if len(fresh.created) != 1 || len(fresh.updated) != 0 {
		t.Fatalf("created=%d updated=%d", len(fresh.created), len(fresh.updated))
	}
	if sc := fresh.created[0]; sc.Name != "OWLDOOR" || sc.Subjects[0] != "owldoor.>" || sc.Storage != jetstream.FileStorage {
		t.Errorf("stream config = %+v", sc)
	}

	existing := &fakeJetStream{exists: true}
	if _, err := EnsureStream(context.Background(), existing, cfg); err != nil {
		t.Fatal(err)
	}
	if len(existing.updated) != 1 || len(existing.created) != 0 {
		t.Errorf("created=%d updated=%d", len(existing.created), len(existing.updated))
	}
}

func TestDurableName(t *testing.T) {
	if got := durableName("owldoor-processor_notify", models.TopicMatchCreated); got != "owldoor-processor_notify_owldoor_match_created" {
		t.Errorf("durableName = %q", got)
	}
}
