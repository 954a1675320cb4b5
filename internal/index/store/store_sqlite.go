package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"certledger/internal/certificate/models"
	"certledger/internal/index"
	"certledger/pkg/platform/sentinel"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// certificateRow is the gorm model of an index record.
type certificateRow struct {
	ID                string `gorm:"primaryKey;size:36"`
	TokenID           *int64 `gorm:"uniqueIndex"`
	Pointer           string `gorm:"column:ipfs_hash;index"`
	Name              string
	IssuedTo          string
	Issuer            string
	Organization      string
	IssueDate         string
	ExpiryDate        string
	CertificateType   string
	AdditionalDetails string
	IssuerAddress     string    `gorm:"column:issuer_wallet_address;index"`
	RecipientAddress  string    `gorm:"column:recipient_wallet_address"`
	RollNumber        string    `gorm:"index"`
	TxRef             string    `gorm:"column:blockchain_tx_hash"`
	Revoked           bool      `gorm:"column:is_revoked"`
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time
}

func (certificateRow) TableName() string { return "certificates" }

type verificationLogRow struct {
	ID                   string    `gorm:"primaryKey;size:36"`
	CreatedAt            time.Time `gorm:"index"`
	Source               string
	TokenID              *int64 `gorm:"index"`
	ExtractedKey         string
	Status               string
	Message              string
	Requester            []byte
	MatchedCertificateID *string
	ExtractedDetails     []byte
}

func (verificationLogRow) TableName() string { return "verification_logs" }

// SQLiteStore is the embedded index used by single-node deployments.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLite opens (and migrates) an index database under dataDir. An empty
// dataDir gives a private in-memory database.
func NewSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == "" {
		dsn = fmt.Sprintf("file:index-%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
			filepath.Join(dataDir, "index.sqlite"))
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install gorm tracing: %w", err)
	}
	if err := db.AutoMigrate(&certificateRow{}, &verificationLogRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite index: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) UpsertCertificate(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, error) {
	var out models.IndexRecord
	err := s.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		existing, found, err := sqliteFindMatch(txDB, rec)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if found {
			out = index.Merge(existing, rec, now)
			return txDB.Save(toCertificateRow(out)).Error
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.CreatedAt, rec.UpdatedAt = now, now
		out = rec
		return txDB.Create(toCertificateRow(rec)).Error
	})
	if err != nil {
		return models.IndexRecord{}, index.Unavailable("upsert", err)
	}
	return out, nil
}

func sqliteFindMatch(db *gorm.DB, rec models.IndexRecord) (models.IndexRecord, bool, error) {
	type probe struct {
		ok    bool
		query string
		args  []any
	}
	pointerQuery := "ipfs_hash = ?"
	if rec.TokenID != nil {
		pointerQuery += " AND token_id IS NULL"
	}
	probes := []probe{
		{rec.TokenID != nil, "token_id = ?", []any{tokenArg(rec.TokenID)}},
		{rec.Pointer != "", pointerQuery, []any{string(rec.Pointer)}},
		{rec.RollNumber != "", "roll_number = ? AND ipfs_hash = '' AND token_id IS NULL", []any{rec.RollNumber}},
	}
	for _, p := range probes {
		if !p.ok {
			continue
		}
		var rows []certificateRow
		if err := db.Where(p.query, p.args...).Order("created_at").Limit(1).Find(&rows).Error; err != nil {
			return models.IndexRecord{}, false, err
		}
		if len(rows) == 1 {
			r, err := fromCertificateRow(rows[0])
			return r, err == nil, err
		}
	}
	return models.IndexRecord{}, false, nil
}

func (s *SQLiteStore) QueryByIssuer(ctx context.Context, issuer models.WalletAddress) ([]models.IndexRecord, error) {
	return s.findCertificates(ctx, "query by issuer", s.db.WithContext(ctx).
		Where("issuer_wallet_address = ?", string(issuer)).
		Order("created_at DESC"))
}

func (s *SQLiteStore) QueryByIdentifier(ctx context.Context, id models.CertificateID) (models.IndexRecord, error) {
	return s.findOne(ctx, "query by identifier", s.db.WithContext(ctx).Where("token_id = ?", int64(id)))
}

func (s *SQLiteStore) QueryByPointer(ctx context.Context, ptr models.ContentPointer) (models.IndexRecord, error) {
	return s.findOne(ctx, "query by pointer", s.db.WithContext(ctx).
		Where("ipfs_hash = ?", string(ptr)).Order("created_at DESC"))
}

func (s *SQLiteStore) QueryByLegacyKey(ctx context.Context, key string) (models.IndexRecord, error) {
	if key == "" {
		return models.IndexRecord{}, sentinel.ErrNotFound
	}
	return s.findOne(ctx, "query by legacy key", s.db.WithContext(ctx).
		Where("roll_number = ? COLLATE BINARY", key).Order("created_at DESC"))
}

func (s *SQLiteStore) Search(ctx context.Context, q index.SearchQuery) ([]models.IndexRecord, error) {
	q = q.Normalize()
	pattern := "%" + escapeLike(strings.ToLower(q.Term)) + "%"
	db := s.db.WithContext(ctx).
		Where(`lower(name) LIKE ? ESCAPE '\' OR lower(issued_to) LIKE ? ESCAPE '\' OR lower(issuer) LIKE ? ESCAPE '\' OR lower(organization) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern)
	if !q.IssuerAddress.IsZero() {
		db = db.Where("issuer_wallet_address = ?", string(q.IssuerAddress))
	}
	return s.findCertificates(ctx, "search", db.Order("created_at DESC").Limit(q.Limit))
}

func (s *SQLiteStore) MarkRevoked(ctx context.Context, id models.CertificateID) error {
	res := s.db.WithContext(ctx).Model(&certificateRow{}).
		Where("token_id = ?", int64(id)).
		Updates(map[string]any{"is_revoked": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return index.Unavailable("mark revoked", res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context, issuer models.WalletAddress, now time.Time) (models.IssuerStats, error) {
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

func (s *SQLiteStore) AppendVerificationLog(ctx context.Context, e models.VerificationLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	row, err := toLogRow(e)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return index.Unavailable("append verification log", err)
	}
	return nil
}

func (s *SQLiteStore) QueryRecentLog(ctx context.Context, n int) ([]models.VerificationLogEntry, error) {
	return s.findLogs(ctx, "query recent log", s.db.WithContext(ctx).
		Order("created_at DESC").Limit(index.ClampLimit(n)))
}

func (s *SQLiteStore) VerificationHistory(ctx context.Context, id models.CertificateID) ([]models.VerificationLogEntry, error) {
	return s.findLogs(ctx, "verification history", s.db.WithContext(ctx).
		Where("token_id = ?", int64(id)).Order("created_at DESC"))
}

func (s *SQLiteStore) findOne(ctx context.Context, op string, db *gorm.DB) (models.IndexRecord, error) {
	recs, err := s.findCertificates(ctx, op, db.Limit(1))
	if err != nil {
		return models.IndexRecord{}, err
	}
	if len(recs) == 0 {
		return models.IndexRecord{}, sentinel.ErrNotFound
	}
	return recs[0], nil
}

func (s *SQLiteStore) findCertificates(ctx context.Context, op string, db *gorm.DB) ([]models.IndexRecord, error) {
	var rows []certificateRow
	if err := db.Find(&rows).Error; err != nil {
		return nil, index.Unavailable(op, err)
	}
	out := make([]models.IndexRecord, 0, len(rows))
	for _, row := range rows {
		r, err := fromCertificateRow(row)
		if err != nil {
			return nil, index.Unavailable(op, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *SQLiteStore) findLogs(ctx context.Context, op string, db *gorm.DB) ([]models.VerificationLogEntry, error) {
	var rows []verificationLogRow
	if err := db.Find(&rows).Error; err != nil {
		return nil, index.Unavailable(op, err)
	}
	out := make([]models.VerificationLogEntry, 0, len(rows))
	for _, row := range rows {
		e, err := fromLogRow(row)
		if err != nil {
			return nil, index.Unavailable(op, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func toCertificateRow(r models.IndexRecord) *certificateRow {
	return &certificateRow{
		ID:                r.ID.String(),
		TokenID:           tokenArg(r.TokenID),
		Pointer:           string(r.Pointer),
		Name:              r.Name,
		IssuedTo:          r.IssuedTo,
		Issuer:            r.Issuer,
		Organization:      r.Organization,
		IssueDate:         r.IssueDate,
		ExpiryDate:        r.ExpiryDate,
		CertificateType:   r.CertificateType,
		AdditionalDetails: r.AdditionalDetails,
		IssuerAddress:     string(r.IssuerAddress),
		RecipientAddress:  string(r.RecipientAddress),
		RollNumber:        r.RollNumber,
		TxRef:             r.TxRef,
		Revoked:           r.Revoked,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func fromCertificateRow(row certificateRow) (models.IndexRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return models.IndexRecord{}, fmt.Errorf("parse record id: %w", err)
	}
	return models.IndexRecord{
		ID:                id,
		TokenID:           fromTokenArg(row.TokenID),
		Pointer:           models.ContentPointer(row.Pointer),
		Name:              row.Name,
		IssuedTo:          row.IssuedTo,
		Issuer:            row.Issuer,
		Organization:      row.Organization,
		IssueDate:         row.IssueDate,
		ExpiryDate:        row.ExpiryDate,
		CertificateType:   row.CertificateType,
		AdditionalDetails: row.AdditionalDetails,
		IssuerAddress:     models.WalletAddress(row.IssuerAddress),
		RecipientAddress:  models.WalletAddress(row.RecipientAddress),
		RollNumber:        row.RollNumber,
		TxRef:             row.TxRef,
		Revoked:           row.Revoked,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func toLogRow(e models.VerificationLogEntry) (verificationLogRow, error) {
	requester, err := json.Marshal(e.Requester)
	if err != nil {
		return verificationLogRow{}, fmt.Errorf("marshal requester: %w", err)
	}
	row := verificationLogRow{
		ID:           e.ID.String(),
		CreatedAt:    e.Timestamp,
		Source:       string(e.Source),
		TokenID:      tokenArg(e.TokenID),
		ExtractedKey: e.ExtractedKey,
		Status:       string(e.Outcome),
		Message:      e.Message,
		Requester:    requester,
	}
	if e.MatchedRecordID != nil {
		id := e.MatchedRecordID.String()
		row.MatchedCertificateID = &id
	}
	if e.Extracted != nil {
		if row.ExtractedDetails, err = json.Marshal(e.Extracted); err != nil {
			return verificationLogRow{}, fmt.Errorf("marshal extracted details: %w", err)
		}
	}
	return row, nil
}

func fromLogRow(row verificationLogRow) (models.VerificationLogEntry, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return models.VerificationLogEntry{}, fmt.Errorf("parse log id: %w", err)
	}
	e := models.VerificationLogEntry{
		ID:           id,
		Timestamp:    row.CreatedAt,
		Source:       models.VerificationSource(row.Source),
		TokenID:      fromTokenArg(row.TokenID),
		ExtractedKey: row.ExtractedKey,
		Outcome:      models.Outcome(row.Status),
		Message:      row.Message,
	}
	if len(row.Requester) > 0 {
		if err := json.Unmarshal(row.Requester, &e.Requester); err != nil {
			return models.VerificationLogEntry{}, fmt.Errorf("unmarshal requester: %w", err)
		}
	}
	if row.MatchedCertificateID != nil {
		m, err := uuid.Parse(*row.MatchedCertificateID)
		if err != nil {
			return models.VerificationLogEntry{}, fmt.Errorf("parse matched record id: %w", err)
		}
		e.MatchedRecordID = &m
	}
	if len(row.ExtractedDetails) > 0 {
		var d models.ExtractedDetails
		if err := json.Unmarshal(row.ExtractedDetails, &d); err != nil {
			return models.VerificationLogEntry{}, fmt.Errorf("unmarshal extracted details: %w", err)
		}
		e.Extracted = &d
	}
	return e, nil
}
