package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/reactsync/server/internal/bus/inprocess"
	"github.com/reactsync/server/internal/controller"
	roomredis "github.com/reactsync/server/internal/repository/room/redis"
	sessioninmemory "github.com/reactsync/server/internal/repository/session/inmemory"
	"github.com/reactsync/server/internal/service/relay"
	"github.com/reactsync/server/internal/service/session"
	"github.com/reactsync/server/pkg/ctxlogger"
	"github.com/reactsync/server/pkg/randstr"
	"github.com/reactsync/server/pkg/redisclient"
)

const roomIDLetters = "abcdefghijklmnopqrstuvwxyz0123456789"

type AppConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	LogLevel           string `json:"log_level"`
	RedisPort          int    `json:"redis_port"`
	RedisHost          string `json:"redis_host"`
	RedisPassword      string `json:"-"`
	RoomExpireHours    int    `json:"room_expire_hours"`
	PresenceThrottleMs int    `json:"presence_throttle_ms"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.RoomExpireHours < 1 {
		return fmt.Errorf("room expire must be greater than 0")
	}
	if cfg.PresenceThrottleMs < 0 {
		return fmt.Errorf("presence throttle must not be negative")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := roomredis.NewRepo(rc, logger, time.Duration(cfg.RoomExpireHours)*time.Hour)
	sessionRepo := sessioninmemory.NewRepo(logger)
	messageBus := inprocess.NewBus(logger)

	coordinator := relay.NewCoordinator(roomRepo, sessionRepo, messageBus, logger, &relay.Config{
		PresenceThrottle: time.Duration(cfg.PresenceThrottleMs) * time.Millisecond,
	})
	if err := coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}
	defer coordinator.Stop()

	sessionService := session.NewService(roomRepo, sessionRepo, messageBus, randstr.New([]byte(roomIDLetters)), logger)
	ctrl := controller.NewController(sessionService, messageBus, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: ctrl.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
