package persistence

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/apperror"
	"github.com/khoahotran/talentsin/pkg/logger"
)

const cvFileColumns = "id, user_id, title, file_url, file_path, file_type, status, ai_score, ai_feedback, created_at, updated_at"

type postgresCVFileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresCVFileRepo(db *pgxpool.Pool, logger logger.Logger) cv.FileRepository {
	return &postgresCVFileRepo{db: db, logger: logger}
}

func scanCVFile(row pgx.Row, l logger.Logger) (*cv.File, error) {
	f := &cv.File{}
	var feedbackBytes []byte

	err := row.Scan(
		&f.ID, &f.OwnerID, &f.Title, &f.FileURL, &f.FilePath, &f.FileType,
		&f.Status, &f.AIScore, &feedbackBytes, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, storageErr("cv file", "", "scan", err)
	}

	if len(feedbackBytes) > 0 {
		fb := &cv.Feedback{}
		if err := json.Unmarshal(feedbackBytes, fb); err != nil {
			l.Warn("Failed to unmarshal ai_feedback", zap.String("file_id", f.ID.String()), zap.Error(err))
		} else {
			f.AIFeedback = fb
		}
	}
	return f, nil
}

func (r *postgresCVFileRepo) Save(ctx context.Context, f *cv.File) error {
	query := `
		INSERT INTO cv_files (id, user_id, title, file_url, file_path, file_type, status, ai_score, ai_feedback, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, NULL, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		f.ID, f.OwnerID, f.Title, f.FileURL, f.FilePath, f.FileType,
		f.Status, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return storageErr("cv file", f.ID.String(), "save", err)
	}
	return nil
}

func (r *postgresCVFileRepo) SaveAnalysis(ctx context.Context, ownerID uuid.UUID, fileURL string, a cv.Analysis) error {
	feedbackBytes, err := json.Marshal(a.Feedback)
	if err != nil {
		return apperror.NewInternal("failed to marshal ai_feedback", err)
	}

	query := `
		UPDATE cv_files SET ai_score = $1, ai_feedback = $2, updated_at = NOW()
		WHERE file_url = $3 AND user_id = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, a.Score, feedbackBytes, fileURL, ownerID)
	if err != nil {
		return storageErr("cv file", fileURL, "save analysis for", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("cv file", fileURL)
	}
	return nil
}

func (r *postgresCVFileRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cv_files WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return storageErr("cv file", id.String(), "delete", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("cv file", id.String())
	}
	return nil
}

func (r *postgresCVFileRepo) FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*cv.File, error) {
	query := `SELECT ` + cvFileColumns + ` FROM cv_files WHERE id = $1 AND user_id = $2`
	f, err := scanCVFile(r.db.QueryRow(ctx, query, id, ownerID), r.logger)
	if err != nil {
		return nil, withID(err, "cv file", id)
	}
	return f, nil
}

func (r *postgresCVFileRepo) FindByURL(ctx context.Context, fileURL string, ownerID uuid.UUID) (*cv.File, error) {
	query := `SELECT ` + cvFileColumns + ` FROM cv_files WHERE file_url = $1 AND user_id = $2`
	f, err := scanCVFile(r.db.QueryRow(ctx, query, fileURL, ownerID), r.logger)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *postgresCVFileRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*cv.File, error) {
	sql, args, err := psqlCV.Select(cvFileColumns).
		From("cv_files").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list cv files query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr("cv file", "", "list", err)
	}
	return r.scanFiles(rows)
}

func (r *postgresCVFileRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*cv.File, error) {
	sql, args, err := psqlCV.Select(cvFileColumns).
		From("cv_files").
		Where(sq.Eq{"status": cv.FileStatusActive, "ai_score": nil}).
		Where(sq.Lt{"created_at": createdBefore}).
		OrderBy("created_at ASC", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list pending cv files query", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageErr("cv file", "", "list pending", err)
	}
	return r.scanFiles(rows)
}

func (r *postgresCVFileRepo) scanFiles(rows pgx.Rows) ([]*cv.File, error) {
	defer rows.Close()

	files := make([]*cv.File, 0)
	for rows.Next() {
		f, err := scanCVFile(rows, r.logger)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewStorageUnavailable("error iterating cv file rows", err)
	}
	return files, nil
}
