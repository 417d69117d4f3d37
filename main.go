package main

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/blogd/config"
	"github.com/cppla/blogd/middleware"
	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/routes"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
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

	r := routes.SetupRouter(db, cfg)

	scheduler, err := utils.StartScheduler(housekeeping(db)...)
	if err != nil {
		utils.Sugar.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func housekeeping(db *gorm.DB) []utils.Job {
	tags := services.NewTagsService(db)
	return []utils.Job{
		{Name: "warm-popular-tags", Spec: "@every 10m", Run: func() {
			if _, err := tags.FindPopular(context.Background(), 10); err != nil {
				utils.Sugar.Warnf("warm popular tags: %v", err)
			}
		}},
		{Name: "purge-revoked-tokens", Spec: "@every 15m", Run: func() {
			if n := utils.PurgeExpiredTokens(); n > 0 {
				utils.Sugar.Infof("purged %d expired revoked tokens", n)
			}
		}},
		{Name: "reap-rate-limiters", Spec: "@every 5m", Run: func() {
			middleware.ReapLimiters()
		}},
	}
}
