package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// Claim is the outcome of ClaimConversion.
type Claim struct {
	Acquired bool
	// Unrecorded is set when an earlier attempt wrote a quotation for the
	// picklist but could not record its success.
	Unrecorded *UnrecordedQuotation
}

// UnrecordedQuotation identifies a committed quotation missing its success record.
type UnrecordedQuotation struct {
	QuotationID     int64
	QuotationNumber string
}

// ClaimConversion takes a lease on picklistID for owner. It succeeds when no
// lease exists or the existing one expired. Pinned leases never expire.
func (s *Store) ClaimConversion(ctx context.Context, picklistID int64, owner string, ttl time.Duration) (Claim, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversion_claims (picklist_id, owner, claimed_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(picklist_id) DO UPDATE SET
			owner = excluded.owner,
			claimed_at = excluded.claimed_at,
			expires_at = excluded.expires_at
		WHERE conversion_claims.expires_at < excluded.claimed_at
			AND conversion_claims.quotation_id IS NULL`,
		picklistID, owner, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	if err != nil {
		return Claim{}, fmt.Errorf("claim picklist %d: %w", picklistID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Claim{}, fmt.Errorf("claim picklist %d: %w", picklistID, err)
	}
	if n == 1 {
		return Claim{Acquired: true}, nil
	}

	var (
		quotationID     sql.NullInt64
		quotationNumber sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT quotation_id, quotation_number FROM conversion_claims WHERE picklist_id = ?`,
		picklistID,
	).Scan(&quotationID, &quotationNumber)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Claim{}, nil
	case err != nil:
		return Claim{}, fmt.Errorf("read claim %d: %w", picklistID, err)
	}
	if !quotationID.Valid {
		return Claim{}, nil
	}
	return Claim{Unrecorded: &UnrecordedQuotation{
		QuotationID:     quotationID.Int64,
		QuotationNumber: quotationNumber.String,
	}}, nil
}

// ReleaseConversion drops owner's lease on picklistID. Pinned leases stay.
func (s *Store) ReleaseConversion(ctx context.Context, picklistID int64, owner string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversion_claims WHERE picklist_id = ? AND owner = ? AND quotation_id IS NULL`,
		picklistID, owner)
	if err != nil {
		return fmt.Errorf("release claim %d: %w", picklistID, err)
	}
	return nil
}

// PinConversion turns owner's lease into a permanent one carrying the
// quotation that was written without a success record.
func (s *Store) PinConversion(ctx context.Context, picklistID int64, owner string, q UnrecordedQuotation) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversion_claims
		SET expires_at = ?, quotation_id = ?, quotation_number = ?
		WHERE picklist_id = ? AND owner = ?`,
		int64(math.MaxInt64), q.QuotationID, q.QuotationNumber, picklistID, owner)
	if err != nil {
		return fmt.Errorf("pin claim %d: %w", picklistID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pin claim %d: lease no longer held by %s", picklistID, owner)
	}
	return nil
}

// ClearConversion removes any lease on picklistID, pinned or not.
func (s *Store) ClearConversion(ctx context.Context, picklistID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM conversion_claims WHERE picklist_id = ?`, picklistID); err != nil {
		return fmt.Errorf("clear claim %d: %w", picklistID, err)
	}
	return nil
}
