package programs

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrEnrollmentNotFound is returned when the enrollment id is unknown.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// Repository is the read-side view of programs, classes and enrollments that
// certificate issuance depends on. Program CRUD lives elsewhere.
type Repository interface {
	GetEnrollmentDetail(ctx context.Context, enrollmentID uuid.UUID) (*EnrollmentDetail, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetEnrollmentDetail(ctx context.Context, enrollmentID uuid.UUID) (*EnrollmentDetail, error) {
	var detail EnrollmentDetail
	query := `
		SELECT
			e.id AS enrollment_id,
			e.user_id,
			u.full_name AS recipient_name,
			COALESCE(e.company, '') AS company,
			COALESCE(e.position, '') AS position,
			COALESCE(u.trainer_level, '') AS trainer_level,
			e.recipient_type,
			p.id AS program_id,
			p.title AS program_title,
			p.category AS program_category,
			p.template_id,
			c.id AS class_id,
			c.starts_at AS class_starts_at,
			c.ends_at AS class_ends_at
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		JOIN classes c ON c.id = e.class_id
		JOIN programs p ON p.id = c.program_id
		WHERE e.id = $1`
	err := r.db.GetContext(ctx, &detail, query, enrollmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
