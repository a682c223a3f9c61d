package main

import (
	"context"
	"flag"
	"strings"

	"printstore_backend/internal/auth/password"
	"printstore_backend/internal/auth/repository"
	"printstore_backend/platform/config"
	"printstore_backend/platform/db"
	"printstore_backend/platform/logger"
)

func main() {
	email := flag.String("email", "", "admin email address")
	name := flag.String("name", "", "display name")
	pass := flag.String("password", "", "initial password")
	roles := flag.String("roles", "admin", "comma-separated roles")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	if *email == "" || *pass == "" {
		log.Error("both -email and -password are required")
		return
	}
	if *name == "" {
		*name = *email
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)

	existing, err := repo.GetUserByEmail(ctx, *email)
	if err != nil {
		log.Error("failed to look up admin", "error", err)
		return
	}
	if existing != nil {
		log.Error("an admin with this email already exists", "email", *email)
		return
	}

	hash, err := password.Hash(*pass)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		return
	}

	user, err := repo.CreateUser(ctx, *email, *name, hash)
	if err != nil {
		log.Error("failed to create admin", "error", err)
		return
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}
	if err := repo.SetUserRoles(ctx, user.ID, roleList); err != nil {
		log.Error("failed to assign roles", "error", err)
		return
	}

	log.Info("admin created", "id", user.ID, "email", user.Email, "roles", roleList)
}
