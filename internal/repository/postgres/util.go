package postgres

import (
	"errors"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound   = domain.ErrNotFound
	ErrConflict   = domain.ErrConflict
	ErrConstraint = domain.ErrConstraint
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23502", "23503", "23514":
			return ErrConstraint
		}
	}
	return err
}
