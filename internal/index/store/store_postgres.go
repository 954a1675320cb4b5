package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"certledger/internal/certificate/models"
	"certledger/internal/index"
	"certledger/pkg/platform/sentinel"
	"certledger/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

const certificateColumns = `id, token_id, ipfs_hash, name, issued_to, issuer, organization, issue_date,
	expiry_date, certificate_type, additional_details, issuer_wallet_address, recipient_wallet_address,
	roll_number, blockchain_tx_hash, is_revoked, created_at, updated_at`

const logColumns = `id, created_at, source, token_id, extracted_key, status, message, requester,
	matched_certificate_id, extracted_details`

// PostgresStore persists the index in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed index.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate index schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) q(ctx context.Context) tx.Querier {
	return tx.QuerierFrom(ctx, s.pool)
}

func (s *PostgresStore) UpsertCertificate(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, error) {
	var out models.IndexRecord
	err := tx.Run(ctx, s.pool, func(ctx context.Context) error {
		existing, found, err := s.findMatch(ctx, rec)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if found {
			out = index.Merge(existing, rec, now)
			return s.update(ctx, out)
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.CreatedAt, rec.UpdatedAt = now, now
		out = rec
		return s.insert(ctx, rec)
	})
	if err != nil {
		return models.IndexRecord{}, index.Unavailable("upsert", err)
	}
	return out, nil
}

// findMatch locks the row incoming merges into, trying the reconciliation
// keys in priority order.
func (s *PostgresStore) findMatch(ctx context.Context, rec models.IndexRecord) (models.IndexRecord, bool, error) {
	type probe struct {
		ok    bool
		where string
		arg   any
	}
	probes := []probe{
		{rec.TokenID != nil, "token_id = $1", tokenArg(rec.TokenID)},
		{rec.Pointer != "", "ipfs_hash = $1" + pointerGuard(rec), string(rec.Pointer)},
		{rec.RollNumber != "", "roll_number = $1 AND ipfs_hash = '' AND token_id IS NULL", rec.RollNumber},
	}
	for _, p := range probes {
		if !p.ok {
			continue
		}
		row := s.q(ctx).QueryRow(ctx,
			`SELECT `+certificateColumns+` FROM certificates WHERE `+p.where+` ORDER BY created_at LIMIT 1 FOR UPDATE`, p.arg)
		existing, err := scanCertificate(row)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return models.IndexRecord{}, false, err
		}
		return existing, true, nil
	}
	return models.IndexRecord{}, false, nil
}

// pointerGuard stops a pointer match from folding two distinct ledger tokens
// that share a payload into one row.
func pointerGuard(rec models.IndexRecord) string {
	if rec.TokenID != nil {
		return " AND token_id IS NULL"
	}
	return ""
}

func (s *PostgresStore) insert(ctx context.Context, r models.IndexRecord) error {
	_, err := s.q(ctx).Exec(ctx, `INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		r.ID, tokenArg(r.TokenID), string(r.Pointer), r.Name, r.IssuedTo, r.Issuer, r.Organization, r.IssueDate,
		r.ExpiryDate, r.CertificateType, r.AdditionalDetails, string(r.IssuerAddress), string(r.RecipientAddress),
		r.RollNumber, r.TxRef, r.Revoked, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) update(ctx context.Context, r models.IndexRecord) error {
	_, err := s.q(ctx).Exec(ctx, `UPDATE certificates SET
		token_id = $2, ipfs_hash = $3, name = $4, issued_to = $5, issuer = $6, organization = $7,
		issue_date = $8, expiry_date = $9, certificate_type = $10, additional_details = $11,
		issuer_wallet_address = $12, recipient_wallet_address = $13, roll_number = $14,
		blockchain_tx_hash = $15, is_revoked = $16, updated_at = $17
		WHERE id = $1`,
		r.ID, tokenArg(r.TokenID), string(r.Pointer), r.Name, r.IssuedTo, r.Issuer, r.Organization,
		r.IssueDate, r.ExpiryDate, r.CertificateType, r.AdditionalDetails,
		string(r.IssuerAddress), string(r.RecipientAddress), r.RollNumber,
		r.TxRef, r.Revoked, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryByIssuer(ctx context.Context, issuer models.WalletAddress) ([]models.IndexRecord, error) {
	return s.queryCertificates(ctx, "query by issuer",
		`SELECT `+certificateColumns+` FROM certificates WHERE issuer_wallet_address = $1 ORDER BY created_at DESC`,
		string(issuer))
}

func (s *PostgresStore) QueryByIdentifier(ctx context.Context, id models.CertificateID) (models.IndexRecord, error) {
	return s.queryOne(ctx, "query by identifier",
		`SELECT `+certificateColumns+` FROM certificates WHERE token_id = $1`, int64(id))
}

func (s *PostgresStore) QueryByPointer(ctx context.Context, ptr models.ContentPointer) (models.IndexRecord, error) {
	return s.queryOne(ctx, "query by pointer",
		`SELECT `+certificateColumns+` FROM certificates WHERE ipfs_hash = $1 ORDER BY created_at DESC LIMIT 1`, string(ptr))
}

func (s *PostgresStore) QueryByLegacyKey(ctx context.Context, key string) (models.IndexRecord, error) {
	if key == "" {
		return models.IndexRecord{}, sentinel.ErrNotFound
	}
	return s.queryOne(ctx, "query by legacy key",
		`SELECT `+certificateColumns+` FROM certificates WHERE roll_number = $1 ORDER BY created_at DESC LIMIT 1`, key)
}

func (s *PostgresStore) Search(ctx context.Context, q index.SearchQuery) ([]models.IndexRecord, error) {
	q = q.Normalize()
	pattern := "%" + escapeLike(q.Term) + "%"
	return s.queryCertificates(ctx, "search",
		`SELECT `+certificateColumns+` FROM certificates
		WHERE ($1 = '' OR issuer_wallet_address = $1)
		  AND (name ILIKE $2 OR issued_to ILIKE $2 OR issuer ILIKE $2 OR organization ILIKE $2)
		ORDER BY created_at DESC LIMIT $3`,
		string(q.IssuerAddress), pattern, q.Limit)
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, id models.CertificateID) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE certificates SET is_revoked = TRUE, updated_at = now() WHERE token_id = $1`, int64(id))
	if err != nil {
		return index.Unavailable("mark revoked", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, issuer models.WalletAddress, now time.Time) (models.IssuerStats, error) {
	var stats models.IssuerStats
	today := now.UTC().Format(models.DateLayout)
	err := s.q(ctx).QueryRow(ctx, `SELECT
			count(*),
			count(*) FILTER (WHERE is_revoked),
			count(*) FILTER (WHERE NOT is_revoked AND expiry_date <> '' AND expiry_date <= $2)
		FROM certificates WHERE issuer_wallet_address = $1`,
		string(issuer), today).Scan(&stats.Total, &stats.Revoked, &stats.Expired)
	if err != nil {
		return models.IssuerStats{}, index.Unavailable("stats", err)
	}
	stats.Valid = stats.Total - stats.Revoked - stats.Expired
	return stats, nil
}

func (s *PostgresStore) AppendVerificationLog(ctx context.Context, e models.VerificationLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	requester, err := json.Marshal(e.Requester)
	if err != nil {
		return fmt.Errorf("marshal requester: %w", err)
	}
	var extracted []byte
	if e.Extracted != nil {
		if extracted, err = json.Marshal(e.Extracted); err != nil {
			return fmt.Errorf("marshal extracted details: %w", err)
		}
	}
	_, err = s.q(ctx).Exec(ctx, `INSERT INTO verification_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Timestamp, string(e.Source), tokenArg(e.TokenID), e.ExtractedKey, string(e.Outcome), e.Message,
		requester, e.MatchedRecordID, extracted)
	if err != nil {
		return index.Unavailable("append verification log", err)
	}
	return nil
}

func (s *PostgresStore) QueryRecentLog(ctx context.Context, n int) ([]models.VerificationLogEntry, error) {
	return s.queryLogs(ctx, "query recent log",
		`SELECT `+logColumns+` FROM verification_logs ORDER BY created_at DESC LIMIT $1`, index.ClampLimit(n))
}

func (s *PostgresStore) VerificationHistory(ctx context.Context, id models.CertificateID) ([]models.VerificationLogEntry, error) {
	return s.queryLogs(ctx, "verification history",
		`SELECT `+logColumns+` FROM verification_logs WHERE token_id = $1 ORDER BY created_at DESC`, int64(id))
}

func (s *PostgresStore) queryOne(ctx context.Context, op, sql string, args ...any) (models.IndexRecord, error) {
	rec, err := scanCertificate(s.q(ctx).QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IndexRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.IndexRecord{}, index.Unavailable(op, err)
	}
	return rec, nil
}

func (s *PostgresStore) queryCertificates(ctx context.Context, op, sql string, args ...any) ([]models.IndexRecord, error) {
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, index.Unavailable(op, err)
	}
	defer rows.Close()
	var out []models.IndexRecord
	for rows.Next() {
		rec, err := scanCertificate(rows)
		if err != nil {
			return nil, index.Unavailable(op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, index.Unavailable(op, err)
	}
	return out, nil
}

func (s *PostgresStore) queryLogs(ctx context.Context, op, sql string, args ...any) ([]models.VerificationLogEntry, error) {
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, index.Unavailable(op, err)
	}
	defer rows.Close()
	var out []models.VerificationLogEntry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, index.Unavailable(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, index.Unavailable(op, err)
	}
	return out, nil
}

func scanCertificate(row pgx.Row) (models.IndexRecord, error) {
	var (
		r       models.IndexRecord
		tokenID *int64
		ptr     string
		issuer  string
		recip   string
	)
	err := row.Scan(&r.ID, &tokenID, &ptr, &r.Name, &r.IssuedTo, &r.Issuer, &r.Organization, &r.IssueDate,
		&r.ExpiryDate, &r.CertificateType, &r.AdditionalDetails, &issuer, &recip,
		&r.RollNumber, &r.TxRef, &r.Revoked, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.IndexRecord{}, err
	}
	r.TokenID = fromTokenArg(tokenID)
	r.Pointer = models.ContentPointer(ptr)
	r.IssuerAddress = models.WalletAddress(issuer)
	r.RecipientAddress = models.WalletAddress(recip)
	return r, nil
}

func scanLog(row pgx.Row) (models.VerificationLogEntry, error) {
	var (
		e         models.VerificationLogEntry
		source    string
		tokenID   *int64
		status    string
		requester []byte
		extracted []byte
	)
	err := row.Scan(&e.ID, &e.Timestamp, &source, &tokenID, &e.ExtractedKey, &status, &e.Message,
		&requester, &e.MatchedRecordID, &extracted)
	if err != nil {
		return models.VerificationLogEntry{}, err
	}
	e.Source = models.VerificationSource(source)
	e.Outcome = models.Outcome(status)
	e.TokenID = fromTokenArg(tokenID)
	if len(requester) > 0 {
		if err := json.Unmarshal(requester, &e.Requester); err != nil {
			return models.VerificationLogEntry{}, fmt.Errorf("unmarshal requester: %w", err)
		}
	}
	if len(extracted) > 0 {
		var d models.ExtractedDetails
		if err := json.Unmarshal(extracted, &d); err != nil {
			return models.VerificationLogEntry{}, fmt.Errorf("unmarshal extracted details: %w", err)
		}
		e.Extracted = &d
	}
	return e, nil
}

func tokenArg(id *models.CertificateID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func fromTokenArg(v *int64) *models.CertificateID {
	if v == nil {
		return nil
	}
	id := models.CertificateID(*v)
	return &id
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
