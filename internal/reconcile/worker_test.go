package reconcile_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"certledger/internal/certificate/models"
	contentstore "certledger/internal/content/store"
	indexstore "certledger/internal/index/store"
	ledgerstore "certledger/internal/ledger/store"
	"certledger/internal/reconcile"
	"certledger/internal/reconcile/queue"
	"certledger/pkg/platform/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type WorkerSuite struct {
	suite.Suite
	ledger  *ledgerstore.InMemoryLedger
	content *contentstore.InMemoryStore
	index   *indexstore.InMemoryStore
	worker  *reconcile.Worker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ledger = ledgerstore.NewInMemory()
	s.content = contentstore.NewInMemory("")
	s.index = indexstore.NewInMemory()
	w, err := reconcile.NewWorker(s.ledger, s.content, s.index, reconcile.WithMetrics(reconcile.NewMetrics(nil)))
	s.Require().NoError(err)
	s.worker = w
}

func (s *WorkerSuite) issue(p models.Payload) models.CertificateID {
	ctx := context.Background()
	data, err := p.Marshal()
	s.Require().NoError(err)
	ptr, err := s.content.Put(ctx, data)
	s.Require().NoError(err)
	id, err := s.ledger.Mint(ctx, p.MintRequest(ptr))
	s.Require().NoError(err)
	return id
}

func payload(roll string) models.Payload {
	return models.Payload{
		Name:            "Bachelor of Science",
		IssuedTo:        "Ada Lovelace",
		Issuer:          "Analytical University",
		Organization:    "Analytical University",
		IssueDate:       "2024-06-01",
		CertificateType: "degree",
		RollNumber:      roll,
		IssuerAddress:   "0x00000000000000000000000000000000000000aa",
	}
}

func (s *WorkerSuite) TestNewWorkerRequiresDependencies() {
	_, err := reconcile.NewWorker(nil, s.content, s.index)
	s.Error(err)
	_, err = reconcile.NewWorker(s.ledger, nil, s.index)
	s.Error(err)
	_, err = reconcile.NewWorker(s.ledger, s.content, nil)
	s.Error(err)
}

// =============================================================================
// Reconcile
// =============================================================================

func (s *WorkerSuite) TestReconcile() {
	ctx := context.Background()

	s.Run("writes full record from payload", func() {
		s.SetupTest()
		id := s.issue(payload("R-1"))

		s.Require().NoError(s.worker.Reconcile(ctx, reconcile.Item{ID: id, Reason: reconcile.ReasonIndexWriteFailed, TxRef: "0xabc"}))

		rec, err := s.index.QueryByIdentifier(ctx, id)
		s.Require().NoError(err)
		s.Equal("R-1", rec.RollNumber)
		s.Equal("Bachelor of Science", rec.Name)
		s.Equal("0xabc", rec.TxRef)
		s.False(rec.Revoked)
	})

	s.Run("is idempotent per token id", func() {
		s.SetupTest()
		id := s.issue(payload("R-2"))

		for range 3 {
			s.Require().NoError(s.worker.Reconcile(ctx, reconcile.Item{ID: id}))
		}
		s.Len(s.index.Records(), 1)
	})

	s.Run("carries ledger revocation", func() {
		s.SetupTest()
		id := s.issue(payload("R-3"))
		s.Require().NoError(s.ledger.Revoke(ctx, id))

		s.Require().NoError(s.worker.Reconcile(ctx, reconcile.Item{ID: id}))

		rec, err := s.index.QueryByIdentifier(ctx, id)
		s.Require().NoError(err)
		s.True(rec.Revoked)
	})

	s.Run("falls back to ledger core when content is offline", func() {
		s.SetupTest()
		id := s.issue(payload("R-4"))
		s.content.SetOffline(true)

		s.Require().NoError(s.worker.Reconcile(ctx, reconcile.Item{ID: id}))

		rec, err := s.index.QueryByIdentifier(ctx, id)
		s.Require().NoError(err)
		s.Equal("Ada Lovelace", rec.IssuedTo)
		s.Equal("Analytical University", rec.Issuer)
		s.Empty(rec.RollNumber)

		s.content.SetOffline(false)
		s.Require().NoError(s.worker.Reconcile(ctx, reconcile.Item{ID: id}))
		rec, err = s.index.QueryByIdentifier(ctx, id)
		s.Require().NoError(err)
		s.Equal("R-4", rec.RollNumber)
		s.Len(s.index.Records(), 1)
	})

	s.Run("uses ledger pointer over item pointer", func() {
		s.SetupTest()
		id := s.issue(payload("R-5"))
		cert, err := s.ledger.Get(ctx, id)
		s.Require().NoError(err)

		s.Require().NoError(s.worker.Reconcile(ctx, reconcile.Item{ID: id, Pointer: "bafkreibogus"}))

		rec, err := s.index.QueryByIdentifier(ctx, id)
		s.Require().NoError(err)
		s.Equal(cert.Pointer, rec.Pointer)
	})

	s.Run("unknown id fails with not found", func() {
		s.SetupTest()
		err := s.worker.Reconcile(ctx, reconcile.Item{ID: 999999})
		s.Require().Error(err)
		s.True(errors.Is(err, sentinel.ErrNotFound))
		s.Empty(s.index.Records())
	})

	s.Run("index outage surfaces", func() {
		s.SetupTest()
		id := s.issue(payload("R-6"))
		s.index.SetUnavailable(errors.New("connection refused"))

		err := s.worker.Reconcile(ctx, reconcile.Item{ID: id})
		s.Require().Error(err)
		s.True(errors.Is(err, sentinel.ErrUnavailable))
	})
}

// =============================================================================
// Rebuild
// =============================================================================

func (s *WorkerSuite) TestRebuild() {
	ctx := context.Background()

	s.Run("walks every ledger id", func() {
		s.SetupTest()
		for _, roll := range []string{"A", "B", "C"} {
			s.issue(payload(roll))
		}

		report, err := s.worker.Rebuild(ctx, 0)
		s.Require().NoError(err)
		s.Equal(3, report.Reconciled)
		s.Empty(report.Failed)
		s.Equal(models.CertificateID(3), report.To)
		s.Len(s.index.Records(), 3)
	})

	s.Run("starts from offset", func() {
		s.SetupTest()
		for _, roll := range []string{"A", "B", "C"} {
			s.issue(payload(roll))
		}

		report, err := s.worker.Rebuild(ctx, 2)
		s.Require().NoError(err)
		s.Equal(1, report.Reconciled)
		recs := s.index.Records()
		s.Require().Len(recs, 1)
		s.Equal("C", recs[0].RollNumber)
	})

	s.Run("reports failures and keeps going", func() {
		s.SetupTest()
		s.issue(payload("A"))
		s.index.SetUnavailable(errors.New("down"))

		report, err := s.worker.Rebuild(ctx, 0)
		s.Require().NoError(err)
		s.Zero(report.Reconciled)
		s.Equal([]models.CertificateID{0}, report.Failed)
	})

	s.Run("ledger read failure aborts", func() {
		s.SetupTest()
		s.ledger.FailReads(errors.New("rpc down"))

		_, err := s.worker.Rebuild(ctx, 0)
		s.Error(err)
	})
}

// =============================================================================
// Run
// =============================================================================

func (s *WorkerSuite) TestRunDrainsQueue() {
	id := s.issue(payload("Q-1"))
	q := queue.NewInMemory(4)
	s.Require().NoError(q.Publish(context.Background(), reconcile.Item{ID: id, Reason: reconcile.ReasonIndexWriteFailed}))
	s.Require().NoError(q.Publish(context.Background(), reconcile.Item{ID: 424242, Reason: reconcile.ReasonManual}))
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Require().NoError(s.worker.Run(ctx, q))

	s.Len(s.index.Records(), 1)
	s.Zero(q.Len())
}

func (s *WorkerSuite) TestRunStopsOnCancel() {
	q := queue.NewInMemory(1)
	defer q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx, q) }()
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("worker did not stop")
	}
}
