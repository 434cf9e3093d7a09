// internal/store/sqlstore/membership.go
package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"libraloan/internal/apperrors"
	"libraloan/internal/membership"
)

const borrowerColumns = `id, name, email, phone, enrolled_on, fine_balance, created_at`

// InsertBorrower stores the borrower and their credential together.
func (s *Store) InsertBorrower(ctx context.Context, b *membership.Borrower, cred *membership.Credential) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO borrowers (`+borrowerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), b.ID, b.Name, b.Email, b.Phone, dateArg(b.EnrolledOn), b.FineBalance, b.CreatedAt)
	if err != nil {
		err = classify(err, "insert borrower")
		if apperrors.IsConstraint(err, apperrors.Duplicate) {
			return apperrors.Constraint(apperrors.Duplicate, "email "+b.Email+" is already registered", err)
		}
		return err
	}

	if cred != nil {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO credentials (borrower_id, password_hash, salt) VALUES (?, ?, ?)
		`), b.ID, cred.PasswordHash, cred.Salt)
		if err != nil {
			return classify(err, "insert credential")
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit borrower")
	}
	return nil
}

func (s *Store) GetBorrower(ctx context.Context, id uuid.UUID) (*membership.Borrower, error) {
	var b membership.Borrower
	query := s.db.Rebind(`SELECT ` + borrowerColumns + ` FROM borrowers WHERE id = ?`)
	if err := s.db.GetContext(ctx, &b, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(apperrors.EntityBorrower, id)
		}
		return nil, classify(err, "get borrower")
	}
	b.EnrolledOn = normalizeDate(b.EnrolledOn)
	return &b, nil
}

func (s *Store) GetBorrowerByEmail(ctx context.Context, email string) (*membership.Borrower, error) {
	var b membership.Borrower
	query := s.db.Rebind(`SELECT ` + borrowerColumns + ` FROM borrowers WHERE email = ?`)
	if err := s.db.GetContext(ctx, &b, query, email); err != nil {
		if isNoRows(err) {
			return nil, &apperrors.NotFoundError{Entity: apperrors.EntityBorrower, ID: email}
		}
		return nil, classify(err, "get borrower by email")
	}
	b.EnrolledOn = normalizeDate(b.EnrolledOn)
	return &b, nil
}

func (s *Store) GetCredential(ctx context.Context, borrowerID uuid.UUID) (*membership.Credential, error) {
	var c membership.Credential
	query := s.db.Rebind(`SELECT borrower_id, password_hash, salt FROM credentials WHERE borrower_id = ?`)
	if err := s.db.GetContext(ctx, &c, query, borrowerID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(apperrors.EntityBorrower, borrowerID)
		}
		return nil, classify(err, "get credential")
	}
	return &c, nil
}

func (s *Store) ListBorrowers(ctx context.Context) ([]*membership.Borrower, error) {
	var borrowers []*membership.Borrower
	query := `SELECT ` + borrowerColumns + ` FROM borrowers ORDER BY name, id`
	if err := s.db.SelectContext(ctx, &borrowers, query); err != nil {
		return nil, classify(err, "list borrowers")
	}
	for _, b := range borrowers {
		b.EnrolledOn = normalizeDate(b.EnrolledOn)
	}
	return borrowers, nil
}

func (s *Store) UpdateBorrower(ctx context.Context, b *membership.Borrower) error {
	query := s.db.Rebind(`
		UPDATE borrowers
		SET name = ?, email = ?, phone = ?, enrolled_on = ?, fine_balance = ?
		WHERE id = ?
	`)
	res, err := s.db.ExecContext(ctx, query, b.Name, b.Email, b.Phone, dateArg(b.EnrolledOn), b.FineBalance, b.ID)
	if err != nil {
		err = classify(err, "update borrower")
		if apperrors.IsConstraint(err, apperrors.Duplicate) {
			return apperrors.Constraint(apperrors.Duplicate, "email "+b.Email+" is already registered", err)
		}
		return err
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBorrower, b.ID))
}

// DeleteBorrower removes the credential through ON DELETE CASCADE.
func (s *Store) DeleteBorrower(ctx context.Context, id uuid.UUID) error {
	query := s.db.Rebind(`DELETE FROM borrowers WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		err = classify(err, "delete borrower")
		if apperrors.IsConstraint(err, apperrors.InUse) {
			return apperrors.Constraint(apperrors.InUse, "borrower "+id.String()+" is referenced by loans", err)
		}
		return err
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBorrower, id))
}

func (s *Store) UpdateFineBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := s.db.Rebind(`UPDATE borrowers SET fine_balance = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, balance, id)
	if err != nil {
		return classify(err, "update fine balance")
	}
	return requireAffected(res, apperrors.NotFound(apperrors.EntityBorrower, id))
}
