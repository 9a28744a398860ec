package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/unimart/unimart-api/internal/config"
	"github.com/unimart/unimart-api/internal/domain/order"
	"github.com/unimart/unimart-api/internal/pkg/database"
	"github.com/unimart/unimart-api/internal/pkg/events"
	"github.com/unimart/unimart-api/internal/pkg/imaging"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/storage"
)

const idleLogEvery = time.Minute

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: "receipt-worker"})

	log.Info().Msg("Starting receipt-worker")

	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = 4
	pool.MaxIdleConns = 2
	db, err := database.NewPostgres(cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(context.Background(), database.RedisConfig{URL: cfg.RedisURL, PoolSize: 4, Optional: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	st, err := storage.New(storage.Config{
		Driver: cfg.StorageDriver,
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		LocalPath: cfg.LocalStoragePath,
		LocalURL:  cfg.LocalStorageURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// polling is the main mechanism; order events only shorten the wait
	wake := make(chan struct{}, 1)
	if rdb != nil {
		go subscribeWakeups(ctx, rdb, wake)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	w := &worker{
		queue: order.NewImageQueue(db),
		store: st,
		proc:  imaging.NewProcessor(imaging.DefaultConfig()),
	}
	w.run(ctx, cfg.ReceiptWorkerPoll, wake)
	log.Info().Msg("receipt-worker stopped")
}

type worker struct {
	queue order.ImageQueue
	store storage.Storage
	proc  *imaging.Processor
}

func (w *worker) run(ctx context.Context, poll time.Duration, wake <-chan struct{}) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	var lastIdleLog time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-ticker.C:
		}

		// drain everything claimable before sleeping again
		for ctx.Err() == nil {
			processed, err := w.step(ctx)
			if err != nil {
				log.Error().Err(err).Msg("DB error while claiming job")
				break
			}
			if !processed {
				if now := time.Now(); now.Sub(lastIdleLog) >= idleLogEvery {
					log.Debug().Msg("Idle: no receipt images pending")
					lastIdleLog = now
				}
				break
			}
		}
	}
}

// step claims and processes at most one job. It reports whether a job was
// claimed; processing failures are recorded on the item, not returned.
func (w *worker) step(ctx context.Context) (bool, error) {
	job, ok, err := w.queue.ClaimImageJob(ctx)
	if err != nil || !ok {
		return false, err
	}

	start := time.Now()
	l := log.With().Str("item_id", job.ItemID.String()).Str("order_id", job.OrderID.String()).Logger()

	key, err := w.snapshot(ctx, job)
	if err != nil {
		l.Error().Err(err).Msg("Receipt image failed")
		if err2 := w.queue.MarkImageFailed(ctx, job.ItemID, err.Error()); err2 != nil {
			l.Error().Err(err2).Msg("Failed to update DB status=failed")
		}
		return true, nil
	}

	if err := w.queue.MarkImageDone(ctx, job.ItemID, key); err != nil {
		l.Error().Err(err).Msg("Failed to update DB status=done")
		return true, nil
	}
	l.Info().Str("key", key).Dur("took", time.Since(start)).Msg("Receipt image stored")
	return true, nil
}

func (w *worker) snapshot(ctx context.Context, job *order.ImageJob) (string, error) {
	rc, err := w.store.Get(ctx, job.ImageKey)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer rc.Close()

	snap, err := w.proc.Snapshot(rc)
	if err != nil {
		return "", err
	}

	key := job.SnapshotKey()
	if err := w.store.Put(ctx, key, bytes.NewReader(snap.Data), snap.ContentType); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return key, nil
}

func subscribeWakeups(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	sub := rdb.Subscribe(ctx, events.Channel(events.TypeOrderCompleted))
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Channel():
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}
