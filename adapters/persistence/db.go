package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const pgUniqueViolation = "23505"

func NewPostgresPool(cfg config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("do not create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	log.Info("Connect PostgreSQL successfully.", zap.Int32("max_conns", pool.Config().MaxConns))
	return pool, nil
}

// storageErr classifies a driver error. Missing rows become NotFound, everything else is
// StorageUnavailable.
func storageErr(resource, id, action string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(resource, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperror.NewStorageUnavailable(fmt.Sprintf("%s %s: concurrent write rejected (%s)", action, resource, pgErr.ConstraintName), err)
	}
	return apperror.NewStorageUnavailable(fmt.Sprintf("failed to %s %s", action, resource), err)
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func withID(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.NewNotFound(resource, id.String())
	}
	return err
}
