package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/talentsin/adapters/persistence"
	"github.com/khoahotran/talentsin/internal/config"
	"github.com/khoahotran/talentsin/internal/domain/user"
	"github.com/khoahotran/talentsin/pkg/auth"
	"github.com/khoahotran/talentsin/pkg/logger"
)

// Seeds one account from OWNER_EMAIL, OWNER_PASSWORD and optional OWNER_NAME / OWNER_ROLE.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}
	log := logger.NewZapLogger(cfg.App.Env)
	defer log.Sync()

	email := strings.ToLower(strings.TrimSpace(os.Getenv("OWNER_EMAIL")))
	password := os.Getenv("OWNER_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("OWNER_EMAIL and OWNER_PASSWORD are required", nil)
	}

	role := user.Role(os.Getenv("OWNER_ROLE"))
	if role == "" {
		role = user.RoleJobseeker
	}
	if !role.Valid() {
		log.Fatal("invalid OWNER_ROLE", nil, zap.String("role", string(role)))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatal("cannot hash password", err)
	}

	pool, err := persistence.NewPostgresPool(cfg, log)
	if err != nil {
		log.Fatal("cannot connect DB", err)
	}
	defer pool.Close()

	u := &user.User{ID: uuid.New(), Email: email, PasswordHash: hash, Role: role}
	if name := strings.TrimSpace(os.Getenv("OWNER_NAME")); name != "" {
		u.Name = &name
	}

	if err := persistence.NewPostgresUserRepo(pool, log).Upsert(context.Background(), u); err != nil {
		log.Fatal("cannot add user", err)
	}

	fmt.Printf("added or updated %s '%s' (%s) successfully!\n", role, email, u.ID)
}
