// Command server is the composition root: it wires the identity
// service, ledger, order book engine, legacy sell list, batch
// executor, trade stream hub, and optional persistence store into one
// HTTP server, the same way the teacher's cmd/node/main.go assembles
// its node from independently testable packages.
package main

import (
	"log"

	"energyexchange/internal/batch"
	"energyexchange/internal/clock"
	"energyexchange/internal/config"
	"energyexchange/internal/httpapi"
	"energyexchange/internal/identity"
	"energyexchange/internal/ledger"
	"energyexchange/internal/legacy"
	"energyexchange/internal/logging"
	"energyexchange/internal/orderbook"
	"energyexchange/internal/persistence"
	"energyexchange/internal/stream"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadFromEnv("")

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	c := clock.RealClock{}
	idSvc := identity.New()
	led := ledger.New(c)
	hub := stream.NewHub(logger)

	var store *persistence.Store
	if cfg.PersistentDir != "" {
		store, err = persistence.Open(cfg.PersistentDir, logger)
		if err != nil {
			log.Fatalf("persistence: %v", err)
		}
		defer store.Close()
	}

	liveSink := stream.LiveSink{Ledger: led, Hub: hub}
	engine := orderbook.New(c, idSvc, led, liveSink)

	if store != nil {
		if bookSnap, ledgerSnap, ok := store.Load(); ok {
			engine.Restore(bookSnap)
			led.Restore(ledgerSnap)
			logger.Info("restored snapshot from persistent store")
		}
	}

	sellList := legacy.New(c, led)
	executor := batch.New(c, idSvc, engine, led, hub)

	server := httpapi.NewServer(httpapi.Deps{
		Clock:      c,
		Identity:   idSvc,
		Engine:     engine,
		Ledger:     led,
		SellList:   sellList,
		Executor:   executor,
		Hub:        hub,
		Store:      store,
		AdminToken: cfg.AdminToken,
		Logger:     logger,
	})

	logger.Sugar().Infof("listening on :%s", cfg.Port)
	if err := server.Start(":" + cfg.Port); err != nil {
		log.Fatalf("http server: %v", err)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.LogFile != "" {
		return logging.NewWithFile(cfg.LogFile)
	}
	return logging.New()
}
