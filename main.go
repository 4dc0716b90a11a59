package main

import (
	"github.com/cppla/creditbonus/bonus"
	"github.com/cppla/creditbonus/config"
	"github.com/cppla/creditbonus/repository"
	"github.com/cppla/creditbonus/routes"
	"github.com/cppla/creditbonus/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	policy, err := cfg.BonusPolicy()
	if err != nil {
		utils.Sugar.Fatalf("invalid bonus policy: %v", err)
	}

	var store bonus.Store
	if cfg.DBDriver == "memory" {
		utils.Sugar.Warn("using in-memory store; claims are lost on restart")
		store = bonus.NewMemoryStore()
	} else {
		db, err := config.InitDatabase()
		if err != nil {
			utils.Sugar.Fatalf("database init failed: %v", err)
		}
		store = repository.New(db)
	}

	rc := utils.GetRedis()
	engine, err := bonus.NewEngine(store, policy,
		bonus.WithNotifier(utils.NewRedisNotifier(rc, cfg.NotifyChannel)),
		bonus.WithLogger(utils.Logger.Named("bonus")),
	)
	if err != nil {
		utils.Sugar.Fatalf("bonus engine init failed: %v", err)
	}

	r := routes.SetupRouter(cfg, engine, utils.NewStatusCache(rc))

	addr := ":" + cfg.AppPort
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		utils.Sugar.Infof("Starting TLS server on port %s (graceful)", cfg.AppPort)
		err = utils.GraceServerTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile, r)
	} else {
		utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
		err = utils.GraceServer(addr, r)
	}
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
