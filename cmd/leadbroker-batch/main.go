// Command leadbroker-batch runs the scheduled batch-distribute sweep
// (SPEC_FULL.md §9) on a cron schedule via github.com/robfig/cron, giving
// backlog leads — those still new or pending_reassignment with no active
// assignment — another attempt each time it fires. Leads already marked
// unassigned are not part of the sweep.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/leadbroker/broker/internal/assign"
	"github.com/leadbroker/broker/internal/batch"
	"github.com/leadbroker/broker/internal/capacity"
	"github.com/leadbroker/broker/internal/config"
	"github.com/leadbroker/broker/internal/eligibility"
	"github.com/leadbroker/broker/internal/logging"
	"github.com/leadbroker/broker/internal/notify"
	"github.com/leadbroker/broker/internal/store"
	"github.com/leadbroker/broker/pkg/clock"
	"github.com/leadbroker/broker/pkg/idgen"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Development: cfg.Env == "development", Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := store.Migrate(sqlDB); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	st := store.New(pool)
	cursors := store.NewRedisCursorStore(redisClient)
	clk := clock.NewReal()
	ids := idgen.New()

	var ops notify.OpsNotifier
	if cfg.SlackBotToken != "" {
		ops = notify.NewSlackOpsNotifier(slack.New(cfg.SlackBotToken), cfg.SlackOpsChannel)
	}

	resolver := eligibility.New(st)
	capFilter := capacity.New(st, clk)
	coordinator := assign.New(cursors, st, st, ids, clk, cfg.DistributionRetryMax)
	distributor := batch.New(st, st, st, resolver, capFilter, coordinator, nil, ops)

	c := cron.New()
	if err := c.AddFunc(cfg.BatchSweepCron, func() {
		res := distributor.RunOnce(ctx, 0)
		log.Info("batch sweep complete",
			zap.Int("attempted", res.Attempted),
			zap.Int("assigned", res.Assigned),
			zap.Int("skipped", res.Skipped),
			zap.Int("errors", len(res.Errors)),
		)
	}); err != nil {
		return err
	}

	log.Info("batch distributor starting", zap.String("schedule", cfg.BatchSweepCron))
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}
