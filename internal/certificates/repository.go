package certificates

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Constraint names the insert arbitration depends on.
const (
	constraintNumberUnique    = "certificates_number_key"
	constraintRecipientUnique = "certificates_recipient_unique"
)

type Repository interface {
	// Insert writes a new certificate. Unique violations are classified:
	// a number collision asks the caller to regenerate, a recipient-tuple
	// collision means a concurrent request already issued.
	Insert(ctx context.Context, cert *Certificate) error
	GetByNumber(ctx context.Context, number string) (*Certificate, error)
	GetByRecipient(ctx context.Context, userID, programID, classID uuid.UUID, recipientType RecipientType) (*Certificate, error)
	UpdateAssets(ctx context.Context, id uuid.UUID, pdfURL, qrURL string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, revokedBy *uuid.UUID) error
	ListUnrendered(ctx context.Context, limit int) ([]Certificate, error)

	// LogVerification appends one audit row. Rows are never updated or
	// deleted by this service.
	LogVerification(ctx context.Context, attempt *VerificationAttempt) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Insert(ctx context.Context, cert *Certificate) error {
	query := `
		INSERT INTO certificates (
			id, number, user_id, enrollment_id, recipient_type, recipient_name,
			company, position, trainer_level, program_id, class_id, program_title,
			program_starts_at, program_ends_at, completion_date, template_id,
			status, expires_at, pdf_url, qr_url, issued_at
		) VALUES (
			:id, :number, :user_id, :enrollment_id, :recipient_type, :recipient_name,
			:company, :position, :trainer_level, :program_id, :class_id, :program_title,
			:program_starts_at, :program_ends_at, :completion_date, :template_id,
			:status, :expires_at, :pdf_url, :qr_url, :issued_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, cert)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case constraintNumberUnique:
			return errNumberTaken
		case constraintRecipientUnique:
			return errAlreadyIssued
		}
	}
	return err
}

func (r *postgresRepository) GetByNumber(ctx context.Context, number string) (*Certificate, error) {
	var cert Certificate
	err := r.db.GetContext(ctx, &cert, "SELECT * FROM certificates WHERE number = $1", number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *postgresRepository) GetByRecipient(ctx context.Context, userID, programID, classID uuid.UUID, recipientType RecipientType) (*Certificate, error) {
	var cert Certificate
	err := r.db.GetContext(ctx, &cert,
		"SELECT * FROM certificates WHERE user_id = $1 AND program_id = $2 AND class_id = $3 AND recipient_type = $4",
		userID, programID, classID, recipientType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *postgresRepository) UpdateAssets(ctx context.Context, id uuid.UUID, pdfURL, qrURL string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE certificates SET pdf_url = $1, qr_url = $2 WHERE id = $3",
		pdfURL, qrURL, id)
	return err
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, revokedBy *uuid.UUID) error {
	if status == StatusRevoked {
		_, err := r.db.ExecContext(ctx,
			"UPDATE certificates SET status = $1, revoked_at = $2, revoked_by = $3 WHERE id = $4",
			status, time.Now().UTC(), revokedBy, id)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE certificates SET status = $1 WHERE id = $2", status, id)
	return err
}

func (r *postgresRepository) ListUnrendered(ctx context.Context, limit int) ([]Certificate, error) {
	var certs []Certificate
	err := r.db.SelectContext(ctx, &certs,
		"SELECT * FROM certificates WHERE pdf_url IS NULL ORDER BY issued_at ASC LIMIT $1", limit)
	return certs, err
}

func (r *postgresRepository) LogVerification(ctx context.Context, attempt *VerificationAttempt) error {
	query := `
		INSERT INTO certificate_verification_attempts (
			id, certificate_id, ip_address, user_agent, outcome, verified_at
		) VALUES (
			:id, :certificate_id, :ip_address, :user_agent, :outcome, :verified_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, attempt)
	return err
}
