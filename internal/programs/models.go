package programs

import (
	"time"

	"github.com/google/uuid"
)

// Program categories that matter to certificate issuance. TOT ("training of
// trainers") programs promote their graduates to the trainer role.
const (
	CategoryGeneral = "GENERAL"
	CategoryTOT     = "TOT"
)

// EnrollmentDetail is the joined view issuance needs: who completed what,
// when the class ran, and which template applies. Program fields are read
// here and snapshotted onto the certificate at issuance time.
type EnrollmentDetail struct {
	EnrollmentID    uuid.UUID  `db:"enrollment_id"`
	UserID          uuid.UUID  `db:"user_id"`
	RecipientName   string     `db:"recipient_name"`
	Company         string     `db:"company"`
	Position        string     `db:"position"`
	TrainerLevel    string     `db:"trainer_level"`
	RecipientType   string     `db:"recipient_type"`
	ProgramID       uuid.UUID  `db:"program_id"`
	ProgramTitle    string     `db:"program_title"`
	ProgramCategory string     `db:"program_category"`
	TemplateID      *uuid.UUID `db:"template_id"`
	ClassID         uuid.UUID  `db:"class_id"`
	ClassStartsAt   time.Time  `db:"class_starts_at"`
	ClassEndsAt     time.Time  `db:"class_ends_at"`
}
