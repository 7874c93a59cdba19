package main

import (
	"context"
	"errors"

	"github.com/cppla/spiritfit/config"
	"github.com/cppla/spiritfit/models"
	"github.com/cppla/spiritfit/progress"
	"github.com/cppla/spiritfit/realtime"
	"github.com/cppla/spiritfit/routes"
	"github.com/cppla/spiritfit/storage"
	"github.com/cppla/spiritfit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	utils.InitRedis(cfg)
	db := config.InitDatabase(models.All()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := progress.SeedMilestones(ctx, db, progress.DefaultMilestones); err != nil {
		utils.Sugar.Fatalf("failed to seed milestones: %v", err)
	}

	hub := realtime.NewHub(64)
	pub, bus := realtime.NewPublisher(utils.GetRedis(), hub)
	if bus != nil {
		go func() {
			if err := bus.Forward(ctx); err != nil && !errors.Is(err, context.Canceled) {
				utils.Sugar.Errorw("realtime forwarder stopped", "err", err)
			}
		}()
	}

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	r := routes.SetupRouter(routes.NewDeps(db, hub, pub, store))

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.AppConfig) (storage.ObjectStore, func()) {
	if cfg.StorageMode == "gcs" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.PublicBaseURL)
		if err != nil {
			utils.Sugar.Fatalf("failed to open gcs bucket %q: %v", cfg.GCSBucket, err)
		}
		return gcs, func() { _ = gcs.Close() }
	}
	return storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL), func() {}
}
