package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/routes"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)
	svc := services.New(db, utils.NewLocker(), services.RulesFromConfig(cfg))

	seedCatalog(svc, cfg.CatalogPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Reconciliation is best-effort and only reports drift
	utils.StartPeriodic(ctx, "ledger-audit", time.Duration(cfg.AuditIntervalMinutes)*time.Minute, svc.Auditor.Run)

	r := routes.SetupRouter(db, svc)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, cancel, utils.CloseRedis); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func seedCatalog(svc *services.Services, path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		utils.Sugar.Infof("catalog file %s not found, skipping seed", path)
		return
	}
	file, err := services.LoadCatalogFile(path)
	if err != nil {
		utils.Sugar.Fatalf("failed to read catalog %s: %v", path, err)
	}
	if _, err := svc.Catalog.Seed(context.Background(), file); err != nil {
		utils.Sugar.Fatalf("failed to seed catalog: %v", err)
	}
}
