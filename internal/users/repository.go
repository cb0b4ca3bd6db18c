package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Account roles. Role changes flow one way: the portal promotes, it never
// demotes.
const (
	RoleUser    = "user"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

// ErrUserNotFound is returned when the user id is unknown.
var ErrUserNotFound = errors.New("user not found")

// Repository covers the slice of account state certificate issuance touches.
type Repository interface {
	GetRole(ctx context.Context, userID uuid.UUID) (string, error)
	// PromoteToTrainer upgrades a base-role account to trainer. The guard is
	// in the statement itself so concurrent issuance cannot double-promote or
	// overwrite an admin role. Returns whether a promotion happened.
	PromoteToTrainer(ctx context.Context, userID uuid.UUID) (bool, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var role string
	err := r.db.GetContext(ctx, &role, "SELECT role FROM users WHERE id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

func (r *postgresRepository) PromoteToTrainer(ctx context.Context, userID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2 AND role = $3",
		RoleTrainer, userID, RoleUser)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
