package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/config"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/cloudincsa/leave-plugin-sub004/internal/fixtures"
	appHTTP "github.com/cloudincsa/leave-plugin-sub004/internal/handler/http"
	"github.com/cloudincsa/leave-plugin-sub004/internal/handler/http/middleware"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/cache"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/cron"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/database"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/email"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/jwt"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/kafka"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/sse"
	cacheRepo "github.com/cloudincsa/leave-plugin-sub004/internal/repository/cache"
	"github.com/cloudincsa/leave-plugin-sub004/internal/repository/memory"
	"github.com/cloudincsa/leave-plugin-sub004/internal/repository/postgresql"
	leaveService "github.com/cloudincsa/leave-plugin-sub004/internal/service/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/service/notification"
)

var version = "dev"

type repositories struct {
	tx       leave.Transactor
	requests leave.LeaveRequestRepository
	balances leave.LeaveBalanceRepository
	users    user.UserRepository
	close    func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With("app", "leave-service", "version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	users := repos.users
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, 3)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		users = cacheRepo.NewUserRepository(users, rdb, cfg.Redis.UserTTL)
	}

	hub := sse.NewHub(0)
	sinks := []notification.Sink{notification.NewHubSink(hub)}
	if len(cfg.Kafka.Brokers) > 0 {
		writer := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		defer func() {
			if err := writer.Close(); err != nil {
				slog.Error("Failed to close kafka writer", "error", err)
			}
		}()
		sinks = append(sinks, notification.NewKafkaSink(writer))
	} else {
		sinks = append(sinks, notification.LogSink{})
	}
	if cfg.SMTP.Host != "" {
		mailer, err := email.NewMailer(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
		sinks = append(sinks, notification.NewEmailSink(users, mailer))
	}
	dispatcher := notification.NewDispatcher(notification.Config{}, sinks...)
	defer dispatcher.Close()

	dayCount, err := leave.ParseDayCountPolicy(cfg.Leave.DayCountPolicy)
	if err != nil {
		return fmt.Errorf("LEAVE_DAY_COUNT_POLICY: %w", err)
	}

	allowances := cfg.Leave.Allowances
	if len(allowances) == 0 {
		allowances = fixtures.DefaultAllowances()
	}
	balanceService := leaveService.NewBalanceService(
		repos.balances,
		users,
		leaveService.NewAllowanceTable(cfg.Leave.DefaultTotalDays, allowances),
	)
	requestService := leaveService.NewRequestService(repos.tx, repos.requests, users, balanceService, leaveService.Policy{
		DayCount:               dayCount,
		CancelledBlocksOverlap: cfg.Leave.CancelledBlocksOverlap,
	})
	service := leaveService.NewLeaveService(requestService, balanceService, dispatcher)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Env:         cfg.App.Env,
			Version:     version,
			LogLevel:    cfg.SlogLevel(),
			CORSOrigins: cfg.App.CORSOrigins,
		},
		JWTService,
		limiter,
		appHTTP.NewLeaveHandler(service),
		appHTTP.NewEventHandler(hub, JWTService),
	)

	scheduler := cron.NewScheduler()
	scheduler.Register(cron.NewLeaveJobs(balanceService, limiter, cfg.Leave.BalanceInitInterval))
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store := memory.NewStore()
		for _, u := range fixtures.DemoUsers(time.Now().UTC()) {
			store.PutUser(u)
		}
		slog.Warn("Using in-memory storage, data is lost on restart")
		return repositories{
			tx:       store,
			requests: store.Requests(),
			balances: store.Balances(),
			users:    store.Users(),
			close:    func() {},
		}, nil
	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			StatementTimeout: cfg.Database.StatementTimeout,
		})
		if err != nil {
			return repositories{}, fmt.Errorf("connect database: %w", err)
		}
		return repositories{
			tx:       postgresql.NewTransactor(db, cfg.Leave.TxMaxAttempts),
			requests: postgresql.NewLeaveRequestRepository(db),
			balances: postgresql.NewLeaveBalanceRepository(db),
			users:    postgresql.NewUserRepository(db),
			close:    db.Close,
		}, nil
	}
}
