package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheredis "github.com/polydock/engine/cache/redis"
	"github.com/polydock/engine/cascade"
	"github.com/polydock/engine/config"
	"github.com/polydock/engine/instance"
	instanceredis "github.com/polydock/engine/instance/redis"
	"github.com/polydock/engine/internal/http/chi"
	"github.com/polydock/engine/metrics"
	queueredis "github.com/polydock/engine/queue/redis"
	"github.com/polydock/engine/webhook"
	webhookredis "github.com/polydock/engine/webhook/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* The API binary owns the administrative surface: creating instances,
 * inspecting them, managing webhook subscriptions, and exposing metrics.
 * Lifecycle work itself runs in the worker binary; the only coupling is
 * the shared Redis backing and the jobs the API enqueues.
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "polydock-api").Logger()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

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

	/* Instance creation raises created events; the advancer turns them into
	 * the first stage job of the pipeline. Status changes persisted here
	 * (removal kickoff) fan out exactly like worker-side ones, so webhook
	 * subscribers see them too.
	 */
	dispatcher := cascade.NewDispatcher(logger)
	advancer := cascade.NewAdvancer(broker, logger)
	dispatcher.Subscribe(advancer).Subscribe(whService).SubscribeCreated(advancer)
	go dispatcher.Run(ctx)

	instanceService := instance.NewService(repo, dispatcher)
	policy := whService.Policy()

	collector := metrics.NewRedisCollector(client)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(fmt.Errorf("initializing metrics exporter: %w", err))
		return
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(ctx, instanceService, broker, whStore, policy, collector, exporter.ServeHTTP())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info().Str("port", cfg.Port).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
