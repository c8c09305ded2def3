package persistence

import (
	"context"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const cvColumns = "id, user_id, title, cv_data, is_primary, created_at, updated_at"

type postgresCVRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresCVRepo(db *pgxpool.Pool, logger logger.Logger) cv.Repository {
	return &postgresCVRepo{db: db, logger: logger}
}

var psqlCV = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func scanCV(row pgx.Row, l logger.Logger) (*cv.CV, error) {
	c := &cv.CV{}
	var bodyBytes []byte

	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &bodyBytes,
		&c.IsPrimary, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, storageErr("cv", "", "scan", err)
	}

	c.Body = cv.EmptyCVData()
	if err := json.Unmarshal(bodyBytes, &c.Body); err != nil {
		l.Warn("Failed to unmarshal cv_data", zap.String("cv_id", c.ID.String()), zap.Error(err))
	}
	return c, nil
}

func scanCVs(rows pgx.Rows, l logger.Logger) ([]*cv.CV, error) {
	defer rows.Close()
	cvs := make([]*cv.CV, 0)
	for rows.Next() {
		c, err := scanCV(rows, l)
		if err != nil {
			return nil, err
		}
		cvs = append(cvs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewStorageUnavailable("error iterating cv rows", err)
	}
	return cvs, nil
}

// lockOwner serialises primary-flag writers of one owner until the transaction ends. The trigger
// alone demotes siblings, but two writers racing on different rows could otherwise deadlock or trip
// the partial unique index.
func lockOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ownerID.String())
	return err
}

// inOwnerTx runs fn inside a transaction holding the owner's lock when primary is set, and directly
// on the pool otherwise.
func (r *postgresCVRepo) inOwnerTx(ctx context.Context, ownerID uuid.UUID, primary bool, fn func(q pgxQuerier) error) error {
	if !primary {
		return fn(r.db)
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockOwner(ctx, tx, ownerID); err != nil {
			return err
		}
		return fn(tx)
	})
}

func (r *postgresCVRepo) Save(ctx context.Context, c *cv.CV) error {
	bodyBytes, err := json.Marshal(c.Body)
	if err != nil {
		return apperror.NewInternal("failed to marshal cv_data", err)
	}

	query := `
		INSERT INTO cvs (id, user_id, title, cv_data, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	err = r.inOwnerTx(ctx, c.OwnerID, c.IsPrimary, func(q pgxQuerier) error {
		_, err := q.Exec(ctx, query,
			c.ID, c.OwnerID, c.Title, bodyBytes,
			c.IsPrimary, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return storageErr("cv", c.ID.String(), "save", err)
	}
	return nil
}

func (r *postgresCVRepo) Update(ctx context.Context, id uuid.UUID, ownerID uuid.UUID, patch cv.Patch) (*cv.CV, error) {
	builder := psqlCV.Update("cvs").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "user_id": ownerID}).
		Suffix("RETURNING " + cvColumns)

	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Body != nil {
		bodyBytes, err := json.Marshal(patch.Body)
		if err != nil {
			return nil, apperror.NewInternal("failed to marshal cv_data for update", err)
		}
		builder = builder.Set("cv_data", bodyBytes)
	}
	if patch.IsPrimary != nil {
		builder = builder.Set("is_primary", *patch.IsPrimary)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build update cv query", err)
	}

	primary := patch.IsPrimary != nil && *patch.IsPrimary
	var updated *cv.CV
	err = r.inOwnerTx(ctx, ownerID, primary, func(q pgxQuerier) error {
		c, err := scanCV(q.QueryRow(ctx, sql, args...), r.logger)
		if err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, withID(err, "cv", id)
		}
		return nil, storageErr("cv", id.String(), "update", err)
	}
	return updated, nil
}

func (r *postgresCVRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM cvs WHERE id = $1 AND user_id = $2`
	cmdTag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return storageErr("cv", id.String(), "delete", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("cv", id.String())
	}
	return nil
}

func (r *postgresCVRepo) FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*cv.CV, error) {
	query := `SELECT ` + cvColumns + ` FROM cvs WHERE id = $1 AND user_id = $2`
	c, err := scanCV(r.db.QueryRow(ctx, query, id, ownerID), r.logger)
	if err != nil {
		return nil, withID(err, "cv", id)
	}
	return c, nil
}

func (r *postgresCVRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*cv.CV, error) {
	builder := psqlCV.Select(cvColumns).
		From("cvs").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC", "id")

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list cvs query", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr("cv", "", "list", err)
	}
	return scanCVs(rows, r.logger)
}
