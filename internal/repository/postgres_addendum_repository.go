package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentflow/leasesign/internal/domain"
)

// PostgresAddendumRepository implements AddendumRepository using PostgreSQL
type PostgresAddendumRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAddendumRepository creates a new PostgresAddendumRepository
func NewPostgresAddendumRepository(pool *pgxpool.Pool) *PostgresAddendumRepository {
	return &PostgresAddendumRepository{pool: pool}
}

const addendumColumns = `
	id, org_id, lease_id, status, title, content, uploaded_file_url,
	document_url, document_hash, landlord_signed_at, landlord_signature_data,
	created_at, updated_at
`

const addendumSlotColumns = `
	s.id, s.addendum_id, s.tenant_id,
	t.full_name, t.email,
	s.signed_at, s.signature_data, s.signing_token, s.token_expires_at
`

// Create creates a new draft addendum
func (r *PostgresAddendumRepository) Create(ctx context.Context, addendum *domain.LeaseAddendum) error {
	query := `
		INSERT INTO lease_addendums (id, org_id, lease_id, status, title, content, uploaded_file_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		addendum.ID,
		addendum.OrgID,
		addendum.LeaseID,
		addendum.Status,
		addendum.Title,
		addendum.Content,
		addendum.UploadedFileURL,
		addendum.CreatedAt,
		addendum.UpdatedAt,
	)
	return err
}

// GetByID retrieves an addendum with signature slots joined
func (r *PostgresAddendumRepository) GetByID(ctx context.Context, id string) (*domain.LeaseAddendum, error) {
	query := fmt.Sprintf(`SELECT %s FROM lease_addendums WHERE id = $1`, addendumColumns)

	addendum, err := scanAddendum(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	slotQuery := fmt.Sprintf(`
		SELECT %s
		FROM addendum_signatures s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE s.addendum_id = $1
		ORDER BY t.full_name ASC
	`, addendumSlotColumns)

	rows, err := r.pool.Query(ctx, slotQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		slot, err := scanAddendumSlot(rows)
		if err != nil {
			return nil, err
		}
		addendum.Signatures = append(addendum.Signatures, slot)
	}

	return addendum, rows.Err()
}

// CreateSlots creates one signature slot per lease tenant
func (r *PostgresAddendumRepository) CreateSlots(ctx context.Context, slots []*domain.AddendumSignature) error {
	query := `
		INSERT INTO addendum_signatures (id, addendum_id, tenant_id)
		VALUES ($1, $2, $3)
	`
	for _, slot := range slots {
		if _, err := r.pool.Exec(ctx, query, slot.ID, slot.AddendumID, slot.TenantID); err != nil {
			return err
		}
	}
	return nil
}

// FindSlotByToken resolves a signing token to its slot, or nil
func (r *PostgresAddendumRepository) FindSlotByToken(ctx context.Context, token string) (*domain.AddendumSignature, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM addendum_signatures s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE s.signing_token = $1
	`, addendumSlotColumns)

	slot, err := scanAddendumSlot(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// UpdateStatus sets the addendum status
func (r *PostgresAddendumRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE lease_addendums SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("addendum not found")
	}
	return nil
}

// SetSlotToken overwrites the slot's signing token and expiry
func (r *PostgresAddendumRepository) SetSlotToken(ctx context.Context, slotID, token string, expiresAt time.Time) error {
	query := `
		UPDATE addendum_signatures
		SET signing_token = $2, token_expires_at = $3
		WHERE id = $1 AND signed_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, slotID, token, expiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found or already signed")
	}
	return nil
}

// SetLandlordSignature writes the landlord countersignature
func (r *PostgresAddendumRepository) SetLandlordSignature(ctx context.Context, addendumID string, signedAt time.Time, data *domain.SignatureData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE lease_addendums
		SET landlord_signed_at = $2, landlord_signature_data = $3, updated_at = $4
		WHERE id = $1 AND landlord_signed_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, addendumID, signedAt, payload, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyCountersigned
	}
	return nil
}

// UpdateDocumentPointer repoints the addendum at its latest artifact
func (r *PostgresAddendumRepository) UpdateDocumentPointer(ctx context.Context, addendumID, url, hash string) error {
	query := `UPDATE lease_addendums SET document_url = $2, document_hash = $3, updated_at = $4 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, addendumID, url, hash, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("addendum not found")
	}
	return nil
}

// LockAddendumTx locks the addendum row
func (r *PostgresAddendumRepository) LockAddendumTx(ctx context.Context, tx pgx.Tx, addendumID string) (*domain.LeaseAddendum, error) {
	query := fmt.Sprintf(`SELECT %s FROM lease_addendums WHERE id = $1 FOR UPDATE`, addendumColumns)

	addendum, err := scanAddendum(tx.QueryRow(ctx, query, addendumID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return addendum, nil
}

// LockSlotByTokenTx locks the slot referencing the token, or returns nil
func (r *PostgresAddendumRepository) LockSlotByTokenTx(ctx context.Context, tx pgx.Tx, token string) (*domain.AddendumSignature, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM addendum_signatures s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE s.signing_token = $1
		FOR UPDATE OF s
	`, addendumSlotColumns)

	slot, err := scanAddendumSlot(tx.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// LockSlotByTenantTx locks the slot for a tenant on an addendum, or nil
func (r *PostgresAddendumRepository) LockSlotByTenantTx(ctx context.Context, tx pgx.Tx, addendumID, tenantID string) (*domain.AddendumSignature, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM addendum_signatures s
		JOIN tenants t ON t.id = s.tenant_id
		WHERE s.addendum_id = $1 AND s.tenant_id = $2
		FOR UPDATE OF s
	`, addendumSlotColumns)

	slot, err := scanAddendumSlot(tx.QueryRow(ctx, query, addendumID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// WriteSlotSignatureTx writes the evidence record and sets signed_at in one
// guarded statement. The token stays on the slot so a reused token resolves
// and reports AlreadySigned rather than vanishing.
func (r *PostgresAddendumRepository) WriteSlotSignatureTx(ctx context.Context, tx pgx.Tx, slotID string, signedAt time.Time, data *domain.SignatureData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE addendum_signatures
		SET signed_at = $2, signature_data = $3
		WHERE id = $1 AND signed_at IS NULL
	`
	result, err := tx.Exec(ctx, query, slotID, signedAt, payload)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found or already signed")
	}
	return nil
}

// CountUnsignedTx counts slots still waiting for a signature
func (r *PostgresAddendumRepository) CountUnsignedTx(ctx context.Context, tx pgx.Tx, addendumID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM addendum_signatures WHERE addendum_id = $1 AND signed_at IS NULL`
	err := tx.QueryRow(ctx, query, addendumID).Scan(&count)
	return count, err
}

// MarkSignedTx transitions the addendum to signed
func (r *PostgresAddendumRepository) MarkSignedTx(ctx context.Context, tx pgx.Tx, addendumID string) error {
	query := `UPDATE lease_addendums SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := tx.Exec(ctx, query, addendumID, domain.AddendumStatusSigned, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("addendum not found")
	}
	return nil
}

// VoidTx transitions the addendum to void. Outstanding tokens are dead from
// this moment: validation re-reads the addendum status under the same lock
// discipline, so no token can authorize a signature on a void addendum.
func (r *PostgresAddendumRepository) VoidTx(ctx context.Context, tx pgx.Tx, addendumID string) error {
	result, err := tx.Exec(ctx,
		`UPDATE lease_addendums SET status = $2, updated_at = $3 WHERE id = $1`,
		addendumID, domain.AddendumStatusVoid, time.Now(),
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("addendum not found")
	}
	return nil
}

// --- row scanning helpers ---

func scanAddendum(row rowScanner) (*domain.LeaseAddendum, error) {
	addendum := &domain.LeaseAddendum{}
	var landlordData []byte
	err := row.Scan(
		&addendum.ID,
		&addendum.OrgID,
		&addendum.LeaseID,
		&addendum.Status,
		&addendum.Title,
		&addendum.Content,
		&addendum.UploadedFileURL,
		&addendum.DocumentURL,
		&addendum.DocumentHash,
		&addendum.LandlordSignedAt,
		&landlordData,
		&addendum.CreatedAt,
		&addendum.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(landlordData) > 0 {
		addendum.LandlordSignatureData = &domain.SignatureData{}
		if err := json.Unmarshal(landlordData, addendum.LandlordSignatureData); err != nil {
			return nil, err
		}
	}
	return addendum, nil
}

func scanAddendumSlot(row rowScanner) (*domain.AddendumSignature, error) {
	slot := &domain.AddendumSignature{}
	var sigData []byte
	err := row.Scan(
		&slot.ID,
		&slot.AddendumID,
		&slot.TenantID,
		&slot.TenantName,
		&slot.TenantEmail,
		&slot.SignedAt,
		&sigData,
		&slot.SigningToken,
		&slot.TokenExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if len(sigData) > 0 {
		slot.SignatureData = &domain.SignatureData{}
		if err := json.Unmarshal(sigData, slot.SignatureData); err != nil {
			return nil, err
		}
	}
	return slot, nil
}
