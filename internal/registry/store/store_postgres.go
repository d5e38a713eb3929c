package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/lib/pq"

	"landledger/internal/platform/postgres"
	"landledger/internal/registry/models"
	"landledger/pkg/platform/sentinel"
	txcontext "landledger/pkg/platform/tx"
)

// PostgresStore persists the registry in PostgreSQL. Methods join the
// transaction carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) exec(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const propertyColumns = `id, chain_property_id, owner_address, owner_name, ipfs_hash, location, area,
	property_type, survey_number, description, status, block_reason, tx_hash, version, registered_at, updated_at`

func scanProperty(row rowScanner) (*models.Property, error) {
	var p models.Property
	var status int16
	err := row.Scan(&p.ID, &p.ChainID, &p.OwnerAddress, &p.OwnerName, &p.IPFSHash, &p.Location, &p.Area,
		&p.PropertyType, &p.SurveyNumber, &p.Description, &status, &p.BlockReason, &p.TxHash,
		&p.Version, &p.RegisteredAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.PropertyStatus(status)
	return &p, nil
}

func (s *PostgresStore) CreateProperty(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (chain_property_id, owner_address, owner_name, ipfs_hash, location, area,
			property_type, survey_number, description, status, block_reason, tx_hash, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, version
	`
	err := s.exec(ctx).QueryRowContext(ctx, query,
		p.ChainID, p.OwnerAddress, p.OwnerName, p.IPFSHash, p.Location, p.Area, p.PropertyType,
		p.SurveyNumber, p.Description, int16(p.Status), p.BlockReason, p.TxHash,
		p.RegisteredAt, p.UpdatedAt,
	).Scan(&p.ID, &p.Version)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

func (s *PostgresStore) getProperty(ctx context.Context, id int64, forUpdate bool) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProperty(s.exec(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select property: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, id int64) (*models.Property, error) {
	return s.getProperty(ctx, id, false)
}

// LockProperty takes a row lock for the rest of the surrounding transaction.
func (s *PostgresStore) LockProperty(ctx context.Context, id int64) (*models.Property, error) {
	return s.getProperty(ctx, id, true)
}

// UpdateProperty bumps the row version and writes it back to p.
func (s *PostgresStore) UpdateProperty(ctx context.Context, p *models.Property) error {
	query := `
		UPDATE properties
		SET owner_address = $2, owner_name = $3, status = $4, block_reason = $5, tx_hash = $6, updated_at = $7,
			version = version + 1
		WHERE id = $1
		RETURNING version
	`
	err := s.exec(ctx).QueryRowContext(ctx, query,
		p.ID, p.OwnerAddress, p.OwnerName, int16(p.Status), p.BlockReason, p.TxHash, p.UpdatedAt,
	).Scan(&p.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryProperties(ctx context.Context, query string, args ...any) ([]*models.Property, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListPropertiesByOwner(ctx context.Context, owner string) ([]*models.Property, error) {
	return s.queryProperties(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE owner_address = $1 ORDER BY id DESC`, owner)
}

func (s *PostgresStore) ListPropertiesByStatus(ctx context.Context, statuses []models.PropertyStatus) ([]*models.Property, error) {
	codes := make([]int64, len(statuses))
	for i, st := range statuses {
		codes[i] = int64(st)
	}
	return s.queryProperties(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE status = ANY($1::smallint[]) ORDER BY id DESC`,
		pq.Array(codes))
}

const transferColumns = `id, chain_transfer_id, property_id, seller_address, buyer_address, price::text, status,
	registrar_approved, approved_by, tx_hash, initiated_at, updated_at, completed_at`

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var t models.Transfer
	var price string
	var status int16
	var completed sql.NullTime
	err := row.Scan(&t.ID, &t.ChainID, &t.PropertyID, &t.Seller, &t.Buyer, &price, &status,
		&t.RegistrarApproved, &t.ApprovedBy, &t.TxHash, &t.InitiatedAt, &t.UpdatedAt, &completed)
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(price, 10)
	if !ok {
		return nil, fmt.Errorf("transfer %d has malformed price %q", t.ID, price)
	}
	t.Price = amount
	t.Status = models.TransferStatus(status)
	if completed.Valid {
		at := completed.Time
		t.CompletedAt = &at
	}
	return &t, nil
}

func priceText(p *big.Int) string {
	if p == nil {
		return "0"
	}
	return p.String()
}

// CreateTransfer relies on the partial unique index to reject a second open
// transfer for the same property; that surfaces as sentinel.ErrConflict.
func (s *PostgresStore) CreateTransfer(ctx context.Context, t *models.Transfer) error {
	query := `
		INSERT INTO property_transfers (chain_transfer_id, property_id, seller_address, buyer_address, price, status,
			registrar_approved, approved_by, tx_hash, initiated_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := s.exec(ctx).QueryRowContext(ctx, query,
		t.ChainID, t.PropertyID, t.Seller, t.Buyer, priceText(t.Price), int16(t.Status),
		t.RegistrarApproved, t.ApprovedBy, t.TxHash, t.InitiatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) getTransfer(ctx context.Context, id int64, forUpdate bool) (*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM property_transfers WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTransfer(s.exec(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select transfer: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTransfer(ctx context.Context, id int64) (*models.Transfer, error) {
	return s.getTransfer(ctx, id, false)
}

func (s *PostgresStore) LockTransfer(ctx context.Context, id int64) (*models.Transfer, error) {
	return s.getTransfer(ctx, id, true)
}

func (s *PostgresStore) UpdateTransfer(ctx context.Context, t *models.Transfer) error {
	query := `
		UPDATE property_transfers
		SET status = $2, registrar_approved = $3, approved_by = $4, tx_hash = $5, updated_at = $6, completed_at = $7
		WHERE id = $1
	`
	var completed sql.NullTime
	if t.CompletedAt != nil {
		completed = sql.NullTime{Time: *t.CompletedAt, Valid: true}
	}
	res, err := s.exec(ctx).ExecContext(ctx, query,
		t.ID, int16(t.Status), t.RegistrarApproved, t.ApprovedBy, t.TxHash, t.UpdatedAt, completed)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) OpenTransfer(ctx context.Context, propertyID int64) (*models.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM property_transfers WHERE property_id = $1 AND status IN (1, 2)`
	t, err := scanTransfer(s.exec(ctx).QueryRowContext(ctx, query, propertyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select open transfer: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTransfers(ctx context.Context, propertyID int64) ([]*models.Transfer, error) {
	rows, err := s.exec(ctx).QueryContext(ctx,
		`SELECT `+transferColumns+` FROM property_transfers WHERE property_id = $1 ORDER BY id DESC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *models.Event) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal event details: %w", err)
	}
	var transferID sql.NullInt64
	if e.TransferID != 0 {
		transferID = sql.NullInt64{Int64: e.TransferID, Valid: true}
	}

	query := `
		INSERT INTO property_events (id, property_id, transfer_id, action, actor, details, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.exec(ctx).ExecContext(ctx, query,
		e.ID, e.PropertyID, transferID, string(e.Action), e.Actor, details, e.TxHash, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns newest first. Events written in one request share a
// timestamp, so ties fall back to reverse insertion order via seq.
func (s *PostgresStore) ListEvents(ctx context.Context, propertyID int64) ([]*models.Event, error) {
	query := `
		SELECT id, property_id, transfer_id, action, actor, details, tx_hash, created_at
		FROM property_events
		WHERE property_id = $1
		ORDER BY created_at DESC, seq DESC
	`
	rows, err := s.exec(ctx).QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Event, 0)
	for rows.Next() {
		var e models.Event
		var transferID sql.NullInt64
		var action string
		var details []byte
		if err := rows.Scan(&e.ID, &e.PropertyID, &transferID, &action, &e.Actor, &details, &e.TxHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Action = models.EventAction(action)
		e.TransferID = transferID.Int64
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode event details: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddRegistrar(ctx context.Context, r *models.Registrar) error {
	res, err := s.exec(ctx).ExecContext(ctx,
		`INSERT INTO registrars (address, added_at) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`,
		r.Address, r.AddedAt)
	if err != nil {
		return fmt.Errorf("insert registrar: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) RemoveRegistrar(ctx context.Context, address string) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM registrars WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete registrar: %w", err)
	}
	return requireOneRow(res)
}

func (s *PostgresStore) IsRegistrar(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrars WHERE address = $1)`, address).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registrar: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListRegistrars(ctx context.Context) ([]*models.Registrar, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `SELECT address, added_at FROM registrars ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("query registrars: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Registrar, 0)
	for rows.Next() {
		var r models.Registrar
		if err := rows.Scan(&r.Address, &r.AddedAt); err != nil {
			return nil, fmt.Errorf("scan registrar: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrars: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{ByStatus: make(map[models.PropertyStatus]int64)}

	if err := s.exec(ctx).QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM properties), (SELECT COUNT(*) FROM property_transfers)`,
	).Scan(&stats.TotalProperties, &stats.TotalTransfers); err != nil {
		return nil, fmt.Errorf("count registry: %w", err)
	}

	rows, err := s.exec(ctx).QueryContext(ctx, `SELECT status, COUNT(*) FROM properties GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status int16
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[models.PropertyStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return stats, nil
}
