package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gymsync/internal/auth"
	"gymsync/internal/config"
	"gymsync/internal/db"
	"gymsync/internal/logging"
	"gymsync/internal/model"
	"gymsync/internal/repository"
	"gymsync/internal/service"
)

const demoPassword = "password123"

// demoAccount is one seeded login.
type demoAccount struct {
	Name           string
	Email          string
	Role           model.Role
	Status         model.ApprovalStatus
	GymName        string
	Location       string
	Specialization string
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting seed")

	gormDB, err := db.Open(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("database migrations completed")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	users := repository.NewUserRepository(gormDB)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, cfg.HashConcurrency)
	authService := service.NewAuthService(users, hasher, auth.NewTokenService(cfg.JWTSecret), nil, service.BootstrapConfig{
		Email:    cfg.SuperAdminEmail,
		Password: cfg.SuperAdminPassword,
		Name:     cfg.SuperAdminName,
	}, logger)
	if err := authService.Bootstrap(ctx); err != nil {
		logger.Fatal("bootstrap super admin", zap.Error(err))
	}

	created, skipped, err := seedDemo(ctx, users, hasher)
	if err != nil {
		logger.Fatal("seed demo accounts", zap.Error(err))
	}
	logger.Info("seed completed",
		zap.Int("created", created),
		zap.Int("skipped", skipped),
		zap.String("demo_password", demoPassword),
	)
}

// seedDemo creates an approved gym owner, a pending one, a trainer and a
// member linked to them. Existing emails are left untouched.
func seedDemo(ctx context.Context, users repository.UserRepository, hasher auth.PasswordHasher) (created, skipped int, err error) {
	hash, err := hasher.Hash(ctx, demoPassword)
	if err != nil {
		return 0, 0, err
	}

	owner, ok, err := ensure(ctx, users, hash, demoAccount{
		Name: "Demo Owner", Email: "owner@gymsync.com", Role: model.RoleGymOwner,
		Status: model.StatusApproved, GymName: "Iron Temple", Location: "Downtown",
	}, nil, nil)
	if err != nil {
		return created, skipped, err
	}
	count(ok, &created, &skipped)

	_, ok, err = ensure(ctx, users, hash, demoAccount{
		Name: "Pending Owner", Email: "pending@gymsync.com", Role: model.RoleGymOwner,
		Status: model.StatusPending, GymName: "Flex Factory", Location: "Uptown",
	}, nil, nil)
	if err != nil {
		return created, skipped, err
	}
	count(ok, &created, &skipped)

	trainer, ok, err := ensure(ctx, users, hash, demoAccount{
		Name: "Demo Trainer", Email: "trainer@gymsync.com", Role: model.RoleTrainer,
		Status: model.StatusApproved, Specialization: "Strength",
	}, &owner.ID, nil)
	if err != nil {
		return created, skipped, err
	}
	count(ok, &created, &skipped)

	_, ok, err = ensure(ctx, users, hash, demoAccount{
		Name: "Demo Member", Email: "member@gymsync.com", Role: model.RoleMember,
		Status: model.StatusApproved,
	}, &owner.ID, &trainer.ID)
	if err != nil {
		return created, skipped, err
	}
	count(ok, &created, &skipped)

	return created, skipped, nil
}

func ensure(ctx context.Context, users repository.UserRepository, hash string, a demoAccount, createdBy, trainer *uuid.UUID) (*model.User, bool, error) {
	existing, err := users.FindByEmail(ctx, a.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("check %s: %w", a.Email, err)
	}

	user := &model.User{
		ID:              uuid.New(),
		Name:            a.Name,
		Email:           a.Email,
		PasswordHash:    hash,
		Role:            a.Role,
		GymName:         a.GymName,
		Location:        a.Location,
		Specialization:  a.Specialization,
		CreatedBy:       createdBy,
		AssignedTrainer: trainer,
	}
	user.SetStatus(a.Status)
	if a.Role == model.RoleGymOwner && a.Status == model.StatusApproved {
		now := time.Now().UTC()
		user.ApprovedAt = &now
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", a.Email, err)
	}
	return user, true, nil
}

func count(created bool, c, s *int) {
	if created {
		*c++
	} else {
		*s++
	}
}
