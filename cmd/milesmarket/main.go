// Package main запускает HTTP-сервер маркетплейса миль.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/milesmarket/internal/cache"
	"github.com/mmeshcher/milesmarket/internal/config"
	"github.com/mmeshcher/milesmarket/internal/handler"
	"github.com/mmeshcher/milesmarket/internal/middleware"
	"github.com/mmeshcher/milesmarket/internal/notify"
	"github.com/mmeshcher/milesmarket/internal/repository"
	"github.com/mmeshcher/milesmarket/internal/service"
)

const notificationBuffer = 1024

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var airlines service.AirlineSource
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer client.Close()
		airlines = cache.NewAirlineCache(client, repo, cfg.AirlineCacheTTL, logger)
	}

	emitters := notify.Multi{notify.NewLogEmitter(logger)}
	if cfg.AMQPURL != "" {
		broker, err := notify.NewAMQPEmitter(cfg.AMQPURL, notify.DefaultQueue)
		if err != nil {
			sugar.Fatalw("broker initialization error", "error", err.Error())
		}
		defer broker.Close()
		emitters = append(emitters, broker)
	}
	if cfg.NotifyWebhookURL != "" {
		emitters = append(emitters, notify.NewWebhookEmitter(cfg.NotifyWebhookURL))
	}
	dispatcher := notify.NewDispatcher(emitters, logger, notificationBuffer)

	svc := service.NewService(repo, airlines, dispatcher)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, cfg.JWTTTL)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.RunAddress)
	if err != nil {
		sugar.Fatalw("listen error", "addr", cfg.RunAddress, "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("starting milesmarket server", "addr", ln.Addr().String())
	if err := serve(ctx, server, ln, dispatcher, sugar); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
		os.Exit(1)
	}
}

// serve обслуживает запросы до отмены ctx. Доставка уведомлений останавливается
// только после завершения Shutdown.
func serve(ctx context.Context, server *http.Server, ln net.Listener, dispatcher *notify.Dispatcher, sugar *zap.SugaredLogger) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatcher.Run(dispatchCtx)
		return nil
	})

	g.Go(func() error {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer stopDispatch()

		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
