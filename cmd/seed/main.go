package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/cppla/blogd/config"
	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/seed"
	"github.com/cppla/blogd/utils"
)

func main() {
	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	utils.InitRedis(cfg)
	db := config.InitDatabase(models.All()...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sum, err := seed.Run(ctx, db, seed.Options{
		BcryptCost: cfg.BcryptCost,
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	if err != nil {
		utils.Sugar.Fatalf("seed failed: %v", err)
	}
	utils.Sugar.Infow("seed completed",
		"users", sum.Users,
		"categories", sum.Categories,
		"tags", sum.Tags,
		"posts", sum.Posts,
		"comments", sum.Comments,
	)
	utils.Sugar.Info("credentials: admin@blog.com / admin123, test@blog.com / test123")
}
