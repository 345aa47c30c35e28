package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cacheredis "github.com/polydock/engine/cache/redis"
	"github.com/polydock/engine/cascade"
	"github.com/polydock/engine/config"
	instanceredis "github.com/polydock/engine/instance/redis"
	"github.com/polydock/engine/jobs"
	"github.com/polydock/engine/provider"
	"github.com/polydock/engine/provider/noop"
	queueredis "github.com/polydock/engine/queue/redis"
	"github.com/polydock/engine/webhook"
	webhookredis "github.com/polydock/engine/webhook/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

/* The worker binary runs the lifecycle pipeline: it consumes stage jobs,
 * executes providers, publishes status-change events, and delivers
 * webhooks. Multiple workers can run side by side; the conditional status
 * write keeps them from double-executing a stage.
 */

// factories maps provider keys to their constructors. New providers
// register here.
var factories = map[string]provider.Factory{
	noop.Key: noop.Factory,
}

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "polydock-worker").Logger()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	providerConfigs, err := provider.Load(cfg.ProvidersFile)
	if err != nil {
		fmt.Println(fmt.Errorf("loading provider configs: %w", err))
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		fmt.Println(fmt.Errorf("connecting to redis: %w", err))
		return
	}
	defer client.Close()

	repo := instanceredis.NewRepositoryWithClient(client)
	broker := queueredis.NewQueueWithClient(client)
	whStore := webhookredis.NewStoreWithClient(client)

	whService, err := webhook.NewService(
		whStore,
		cacheredis.NewCache(client, "cache"),
		webhook.Config{
			MaxAttempts:        cfg.WebhookMaxAttempts,
			RetryBackoff:       cfg.WebhookRetryBackoff,
			ExtraSensitiveKeys: cfg.SensitiveKeys(),
		},
		logger,
	)
	if err != nil {
		fmt.Println(fmt.Errorf("initializing webhook delivery: %w", err))
		return
	}

	// Status changes fan out to the advancer (enqueues the next stage) and
	// the webhook service (notifies subscribers).
	dispatcher := cascade.NewDispatcher(logger)
	advancer := cascade.NewAdvancer(broker, logger)
	dispatcher.Subscribe(advancer).Subscribe(whService).SubscribeCreated(advancer)

	runner, err := jobs.NewRunner(repo, broker, dispatcher, factories, providerConfigs, jobs.RunnerConfig{
		MaxAttempts:  cfg.StageMaxAttempts,
		RetryBackoff: cfg.StageRetryBackoff,
		PollInterval: cfg.PollInterval(),
	}, logger)
	if err != nil {
		fmt.Println(fmt.Errorf("initializing stage runner: %w", err))
		return
	}

	worker := jobs.NewWorker(broker, runner, logger)
	retrier := webhook.NewRetrier(whStore, whService, logger)

	// Re-enqueue instances parked mid-pipeline by a previous crash. Stale
	// duplicates are harmless: the entry-status guard drops them.
	pending, err := repo.ListPending(ctx)
	if err != nil {
		fmt.Println(fmt.Errorf("listing pending instances: %w", err))
		return
	}
	for _, inst := range pending {
		if err := advancer.Resume(ctx, inst); err != nil {
			logger.Error().Err(err).Str("instance_id", inst.ID).Msg("resuming instance")
		}
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		retrier.Run(ctx)
	}()

	<-ctx.Done()
	fmt.Printf("\nShutting down worker...\n")
	wg.Wait()
}
