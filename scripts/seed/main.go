package main

import (
	"context"
	"fmt"
	"log"

	"github.com/odyssey-erp/odyssey-iam/internal/app"
	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver == app.StorageMemory {
		log.Fatal("seed: memory driver seeds itself on server start")
	}
	logger := app.NewLogger(cfg)

	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer storage.Close()

	fmt.Println("→ Seeding permission catalog, Admin role and admin user...")
	result, err := app.Seed(ctx, rbac.NewService(storage.Store, logger), storage.Store, auth.NewBcryptHasher(cfg.BcryptCost), app.SeedParams{
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
	}, logger)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	fmt.Printf("→ %d permissions, role %s holds %d\n", result.Permissions, result.Role.Name, len(result.Role.PermissionIDs))
	if result.AdminCreated {
		fmt.Printf("✅ Admin user created: %s\n", result.Admin.Email)
	} else {
		fmt.Printf("ℹ️ Admin user already exists: %s\n", result.Admin.Email)
	}
	fmt.Println("✅ Seed completed")
}
