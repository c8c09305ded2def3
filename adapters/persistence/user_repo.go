package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/talentsin/internal/domain/user"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type postgresUserRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresUserRepo(db *pgxpool.Pool, logger logger.Logger) user.Repository {
	return &postgresUserRepo{db: db, logger: logger}
}

func (r *postgresUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, name, password_hash, role
		FROM users
		WHERE email = $1
	`
	u := &user.User{}
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
	)
	if err != nil {
		return nil, storageErr("user", email, "find", err)
	}
	return u, nil
}

func (r *postgresUserRepo) Upsert(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
		RETURNING id
	`
	if err := r.db.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.PasswordHash, u.Role).Scan(&u.ID); err != nil {
		return storageErr("user", u.Email, "upsert", err)
	}
	return nil
}
