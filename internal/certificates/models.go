package certificates

import (
	"time"

	"github.com/google/uuid"
)

// Status is the stored certificate lifecycle status. The externally visible
// verification result is derived, see DeriveStatus.
type Status string

const (
	StatusValid   Status = "valid"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// RecipientType selects which source fields populate the certificate.
type RecipientType string

const (
	RecipientParticipant RecipientType = "participant"
	RecipientTrainer     RecipientType = "trainer"
)

// Certificate is one issued certificate. Program and class fields are
// snapshots captured at issuance so later edits to the program never alter
// certificates already in circulation. The number is immutable once issued;
// rows are never deleted in normal operation, only their status moves.
type Certificate struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Number        string        `json:"number" db:"number"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	EnrollmentID  uuid.UUID     `json:"enrollment_id" db:"enrollment_id"`
	RecipientType RecipientType `json:"recipient_type" db:"recipient_type"`
	RecipientName string        `json:"recipient_name" db:"recipient_name"`
	Company       string        `json:"company,omitempty" db:"company"`
	Position      string        `json:"position,omitempty" db:"position"`
	TrainerLevel  string        `json:"trainer_level,omitempty" db:"trainer_level"`

	ProgramID       uuid.UUID `json:"program_id" db:"program_id"`
	ClassID         uuid.UUID `json:"class_id" db:"class_id"`
	ProgramTitle    string    `json:"program_title" db:"program_title"`
	ProgramStartsAt time.Time `json:"program_starts_at" db:"program_starts_at"`
	ProgramEndsAt   time.Time `json:"program_ends_at" db:"program_ends_at"`
	CompletionDate  time.Time `json:"completion_date" db:"completion_date"`

	TemplateID uuid.UUID  `json:"template_id" db:"template_id"`
	Status     Status     `json:"status" db:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	PDFURL     *string    `json:"pdf_url,omitempty" db:"pdf_url"`
	QRURL      *string    `json:"qr_url,omitempty" db:"qr_url"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedBy  *uuid.UUID `json:"revoked_by,omitempty" db:"revoked_by"`
	IssuedAt   time.Time  `json:"issued_at" db:"issued_at"`
}

// DeriveStatus computes the verification result. Precedence is fixed:
// explicit revocation beats everything, then an explicit expired status,
// then a computed expiry from expires_at, otherwise valid.
func (c *Certificate) DeriveStatus(now time.Time) Status {
	if c.Status == StatusRevoked {
		return StatusRevoked
	}
	if c.Status == StatusExpired {
		return StatusExpired
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return StatusExpired
	}
	return StatusValid
}

// VerificationAttempt is one append-only audit record of a verification
// call. The verification flow never mutates or deletes these rows.
type VerificationAttempt struct {
	ID            uuid.UUID `json:"id" db:"id"`
	CertificateID uuid.UUID `json:"certificate_id" db:"certificate_id"`
	IPAddress     string    `json:"ip_address" db:"ip_address"`
	UserAgent     string    `json:"user_agent" db:"user_agent"`
	Outcome       Status    `json:"outcome" db:"outcome"`
	VerifiedAt    time.Time `json:"verified_at" db:"verified_at"`
}
