package anchor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"pageguard/internal/audit"
	"pageguard/internal/event"
)

type fakeLedger struct {
	mu      sync.Mutex
	calls   int
	receipt *Receipt
	err     error
}

func (f *fakeLedger) Anchor(_ context.Context, fingerprint, tenantID string, severity int) (*Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type WorkerSuite struct {
	suite.Suite

	logger *slog.Logger
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *WorkerSuite) newCompletedEvent(store *event.InMemoryStore, tenantID string) string {
	id, err := store.Create(context.Background(), tenantID, event.KindImage, "https://example.com", []byte(`{}`))
	s.Require().NoError(err)
	s.Require().NoError(store.AttachVerdict(context.Background(), id, event.Verdict{
		Label:      event.LabelMalicious,
		Severity:   5,
		Confidence: 0.95,
		Action:     event.ActionQuarantine,
	}))
	return id
}

func (s *WorkerSuite) TestSuccessfulAnchorLinksReceipt() {
	store := event.NewInMemoryStore()
	ledger := &fakeLedger{receipt: &Receipt{TxID: "0xabc", Chain: "polygon-mumbai"}}
	publisher := audit.NewPublisher(16, s.logger)
	worker := NewWorker(8, ledger, store, publisher, s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	eventID := s.newCompletedEvent(store, "tenant-a")
	capturedAt := time.Now()
	worker.Enqueue(Job{EventID: eventID, TenantID: "tenant-a", Severity: 5, CapturedAt: capturedAt})

	s.Require().Eventually(func() bool {
		e, err := store.GetByID(context.Background(), "tenant-a", eventID)
		return err == nil && e.Receipt != nil
	}, 2*time.Second, 10*time.Millisecond)

	e, err := store.GetByID(context.Background(), "tenant-a", eventID)
	s.Require().NoError(err)
	s.Equal("0xabc", e.Receipt.TxID)
	s.Equal("polygon-mumbai", e.Receipt.Chain)
	s.Equal(Fingerprint(eventID, "tenant-a", 5, capturedAt), e.Receipt.Fingerprint)
	s.Equal(event.StatusCompleted, e.Status)

	entry := s.drainOne(publisher)
	s.Equal(audit.ActionAnchorSubmitted, entry.Action)
	s.Equal(eventID, entry.EventID)
}

func (s *WorkerSuite) TestLedgerFailureEmitsAuditWithoutRetry() {
	store := event.NewInMemoryStore()
	ledger := &fakeLedger{err: errors.New("gateway down")}
	publisher := audit.NewPublisher(16, s.logger)
	worker := NewWorker(8, ledger, store, publisher, s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	eventID := s.newCompletedEvent(store, "tenant-a")
	worker.Enqueue(Job{EventID: eventID, TenantID: "tenant-a", Severity: 4, CapturedAt: time.Now()})

	entry := s.drainOne(publisher)
	s.Equal(audit.ActionAnchorFailed, entry.Action)
	s.Equal(eventID, entry.EventID)

	// A second poll window confirms no retry happened.
	time.Sleep(50 * time.Millisecond)
	s.Equal(1, ledger.callCount())

	e, err := store.GetByID(context.Background(), "tenant-a", eventID)
	s.Require().NoError(err)
	s.Nil(e.Receipt)
}

func (s *WorkerSuite) TestNoopLedgerProducesNoReceipt() {
	store := event.NewInMemoryStore()
	publisher := audit.NewPublisher(16, s.logger)
	worker := NewWorker(8, NoopLedger{}, store, publisher, s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	eventID := s.newCompletedEvent(store, "tenant-a")
	worker.Enqueue(Job{EventID: eventID, TenantID: "tenant-a", Severity: 5, CapturedAt: time.Now()})

	time.Sleep(50 * time.Millisecond)
	e, err := store.GetByID(context.Background(), "tenant-a", eventID)
	s.Require().NoError(err)
	s.Nil(e.Receipt)

	select {
	case entry := <-publisher.Inbox():
		s.Failf("unexpected audit entry", "action %s", entry.Action)
	default:
	}
}

func (s *WorkerSuite) TestEnqueueDropsOldestWhenFull() {
	store := event.NewInMemoryStore()
	ledger := &fakeLedger{receipt: &Receipt{TxID: "0x1", Chain: "polygon-mumbai"}}
	publisher := audit.NewPublisher(16, s.logger)
	worker := NewWorker(2, ledger, store, publisher, s.logger)

	// Worker not running: fill the queue past capacity.
	worker.Enqueue(Job{EventID: "first"})
	worker.Enqueue(Job{EventID: "second"})
	worker.Enqueue(Job{EventID: "third"})

	got := []string{(<-worker.jobs).EventID, (<-worker.jobs).EventID}
	s.Equal([]string{"second", "third"}, got)
}

func (s *WorkerSuite) drainOne(p *audit.Publisher) audit.Entry {
	select {
	case entry := <-p.Inbox():
		return entry
	case <-time.After(2 * time.Second):
		s.Require().FailNow("no audit entry produced")
		return audit.Entry{}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	a := Fingerprint("ev-1", "tenant-a", 5, at)
	b := Fingerprint("ev-1", "tenant-a", 5, at)
	require.Equal(t, a, b)
	require.Len(t, a, 2+64)
	require.Equal(t, "0x", a[:2])
	require.NotEqual(t, a, Fingerprint("ev-2", "tenant-a", 5, at))
	require.NotEqual(t, a, Fingerprint("ev-1", "tenant-a", 4, at))
}
