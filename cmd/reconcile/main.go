// Command reconcile runs one order-reconciliation pass against the payment
// provider and exits. Useful for repairing a window of missed webhooks by
// hand; the worker binary runs the same sweep on a schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/events"
	"pawtrait_backend/internal/order"
	"pawtrait_backend/internal/payment"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/db"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"
)

func main() {
	window := flag.Duration("window", 24*time.Hour, "how far back to re-check payment sessions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting reconciliation pass", "window", window.String())

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	cat, err := catalog.Load(cfg.GetCatalogPath())
	if err != nil {
		log.Error("failed to load product catalog", "error", err)
		panic("failed to load product catalog: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	paymentModule := payment.NewModule(cfg, log)
	orderModule := order.NewModule(pool, paymentModule.Client(), cat, eventBus, cfg, validator.New(), log)

	results, err := orderModule.Service().ReconcileWindow(ctx, *window)
	if err != nil {
		log.Error("reconciliation pass failed", "error", err)
		panic("reconciliation pass failed: " + err.Error())
	}

	var failed int
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Printf("%s\tstatus=%s\terror=%v\n", result.SessionID, result.Status, result.Err)
			continue
		}
		fmt.Printf("%s\tstatus=%s\torder=%s\n", result.SessionID, result.Status, result.OrderID)
	}

	log.Info("reconciliation pass complete", "sessions", len(results), "failed", failed)
}
