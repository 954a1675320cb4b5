package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"certledger/internal/certificate/models"
	"certledger/internal/index"
	"certledger/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// InMemoryStore is an insertion-ordered index used by tests and the
// single-process dev mode. Listing walks the slices backwards for newest first.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.IndexRecord
	logs    []models.VerificationLogEntry
	failErr error
	now     func() time.Time
}

// NewInMemory creates an empty index.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

// SetUnavailable makes every call fail with err wrapped as unavailable.
// Pass nil to restore service.
func (s *InMemoryStore) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *InMemoryStore) fault(op string) error {
	if s.failErr != nil {
		return index.Unavailable(op, s.failErr)
	}
	return nil
}

func (s *InMemoryStore) UpsertCertificate(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("upsert"); err != nil {
		return models.IndexRecord{}, err
	}
	now := s.now()
	if i, kind := index.FindMatch(s.records, rec); kind != index.MatchNone {
		s.records[i] = index.Merge(s.records[i], rec, now)
		return s.records[i], nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *InMemoryStore) QueryByIssuer(ctx context.Context, issuer models.WalletAddress) ([]models.IndexRecord, error) {
	return s.collect("query by issuer", func(r models.IndexRecord) bool {
		return r.IssuerAddress == issuer
	}, 0)
}

func (s *InMemoryStore) QueryByIdentifier(ctx context.Context, id models.CertificateID) (models.IndexRecord, error) {
	return s.first("query by identifier", func(r models.IndexRecord) bool {
		return r.TokenID != nil && *r.TokenID == id
	})
}

func (s *InMemoryStore) QueryByPointer(ctx context.Context, ptr models.ContentPointer) (models.IndexRecord, error) {
	return s.first("query by pointer", func(r models.IndexRecord) bool {
		return r.Pointer == ptr
	})
}

func (s *InMemoryStore) QueryByLegacyKey(ctx context.Context, key string) (models.IndexRecord, error) {
	return s.first("query by legacy key", func(r models.IndexRecord) bool {
		return key != "" && r.RollNumber == key
	})
}

func (s *InMemoryStore) Search(ctx context.Context, q index.SearchQuery) ([]models.IndexRecord, error) {
	q = q.Normalize()
	return s.collect("search", q.Matches, q.Limit)
}

func (s *InMemoryStore) MarkRevoked(ctx context.Context, id models.CertificateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("mark revoked"); err != nil {
		return err
	}
	for i, r := range s.records {
		if r.TokenID != nil && *r.TokenID == id {
			s.records[i].Revoked = true
			s.records[i].UpdatedAt = s.now()
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) Stats(ctx context.Context, issuer models.WalletAddress, now time.Time) (models.IssuerStats, error) {
	recs, err := s.QueryByIssuer(ctx, issuer)
	if err != nil {
		return models.IssuerStats{}, err
	}
	var stats models.IssuerStats
	for _, r := range recs {
		stats.Add(models.StatusAt(r.Revoked, r.ExpiryDate, now))
	}
	return stats, nil
}

func (s *InMemoryStore) AppendVerificationLog(ctx context.Context, entry models.VerificationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("append verification log"); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *InMemoryStore) QueryRecentLog(ctx context.Context, n int) ([]models.VerificationLogEntry, error) {
	return s.collectLogs("query recent log", func(models.VerificationLogEntry) bool { return true }, index.ClampLimit(n))
}

func (s *InMemoryStore) VerificationHistory(ctx context.Context, id models.CertificateID) ([]models.VerificationLogEntry, error) {
	return s.collectLogs("verification history", func(e models.VerificationLogEntry) bool {
		return e.TokenID != nil && *e.TokenID == id
	}, 0)
}

// Records returns a snapshot of every row, oldest first.
func (s *InMemoryStore) Records() []models.IndexRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Logs returns a snapshot of the verification log, oldest first.
func (s *InMemoryStore) Logs() []models.VerificationLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.logs)
}

func (s *InMemoryStore) first(op string, match func(models.IndexRecord) bool) (models.IndexRecord, error) {
	recs, err := s.collect(op, match, 1)
	if err != nil {
		return models.IndexRecord{}, err
	}
	if len(recs) == 0 {
		return models.IndexRecord{}, sentinel.ErrNotFound
	}
	return recs[0], nil
}

func (s *InMemoryStore) collect(op string, match func(models.IndexRecord) bool, limit int) ([]models.IndexRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(op); err != nil {
		return nil, err
	}
	var out []models.IndexRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if match(s.records[i]) {
			out = append(out, s.records[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) collectLogs(op string, match func(models.VerificationLogEntry) bool, limit int) ([]models.VerificationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(op); err != nil {
		return nil, err
	}
	var out []models.VerificationLogEntry
	for i := len(s.logs) - 1; i >= 0; i-- {
		if match(s.logs[i]) {
			out = append(out, s.logs[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
