package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/app"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/config"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/database"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/repository"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/utils"
)

type seedConfig struct {
	Email    string `env:"SEED_EMAIL"`
	Password string `env:"SEED_PASSWORD"`
	Role     string `env:"SEED_ROLE" env-default:"ADMIN"`
}

// seed-admin creates a staff account.  Values come from SEED_* variables
// and may be overridden with flags.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	var seed seedConfig
	if err := cleanenv.ReadEnv(&seed); err != nil {
		log.Fatalf("seed env: %v", err)
	}

	flag.StringVar(&seed.Email, "email", seed.Email, "account email")
	flag.StringVar(&seed.Password, "password", seed.Password, "account password")
	flag.StringVar(&seed.Role, "role", seed.Role, "ADMIN or STAFF")
	flag.Parse()

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	seed.Role = strings.ToUpper(strings.TrimSpace(seed.Role))
	if seed.Role != model.RoleAdmin && seed.Role != model.RoleStaff {
		logger.Fatal("role must be ADMIN or STAFF", zap.String("role", seed.Role))
	}
	if strings.TrimSpace(seed.Email) == "" {
		logger.Fatal("email is required")
	}
	if err := utils.ValidatePassword(seed.Password); err != nil {
		logger.Fatal("weak password", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	id, err := repository.NewUserRepo(db).Create(ctx, seed.Email, seed.Password, seed.Role, cfg.Auth.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		logger.Warn("account already exists", zap.String("email", seed.Email))
		return
	}
	if err != nil {
		logger.Fatal("create account", zap.Error(err))
	}
	logger.Info("account created", zap.Uint64("id", id), zap.String("role", seed.Role))
}
