package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/and161185/sakhatype/internal/cache"
	"github.com/and161185/sakhatype/internal/clock"
	"github.com/and161185/sakhatype/internal/config"
	"github.com/and161185/sakhatype/internal/limiter"
	"github.com/and161185/sakhatype/internal/migrate"
	"github.com/and161185/sakhatype/internal/repository"
	"github.com/and161185/sakhatype/internal/repository/memory"
	"github.com/and161185/sakhatype/internal/repository/postgres"
	grpcserver "github.com/and161185/sakhatype/internal/server/grpc"
	httpserver "github.com/and161185/sakhatype/internal/server/http"
	"github.com/and161185/sakhatype/internal/service"
)

const shutdownGrace = 5 * time.Second

// devWords seed the memory store.
var devWords = []string{
	"сахалыы", "тыл", "күн", "ый", "сыл", "дьиэ", "уу", "от", "мас", "таас",
	"балык", "ат", "ынах", "сир", "халлаан", "сулус", "кыһын", "сайын", "үлэ", "оҕо",
}

type stores struct {
	users   repository.UserRepository
	results repository.ResultRepository
	board   repository.LeaderboardRepository
	words   repository.WordRepository
	ping    repository.Pinger
	lim     limiter.Limiter
	close   func()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and gRPC health servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func openStores(ctx context.Context, cfg *config.Config, clk clock.Clock, log *zap.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		st := memory.New(devWords...)
		return &stores{users: st, results: st, board: st, words: st, ping: st, lim: limiter.Nop{}, close: func() {}}, nil
	}

	if cfg.Database.Migrate {
		if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
			return nil, err
		}
	}
	db, err := postgres.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:   postgres.NewUserRepo(db),
		results: postgres.NewResultRepo(db),
		board:   postgres.NewLeaderboardRepo(db),
		words:   postgres.NewWordRepo(db),
		ping:    db,
		lim:     limiter.NewPG(db.Pool, clk, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor),
		close:   db.Close,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("store", cfg.Store),
		zap.String("http", cfg.HTTP.Addr),
		zap.String("grpc", cfg.GRPC.Addr),
	)

	clk := clock.Real{}
	st, err := openStores(ctx, cfg, clk, logger)
	if err != nil {
		logger.Error("open store", zap.Error(err))
		return err
	}
	defer st.close()

	modes := service.TimeModes(cfg.Leaderboard.TimeModes)
	authSvc := service.NewAuthService(st.users, []byte(cfg.Auth.JWTKey), cfg.Auth.AccessTTL, st.lim, clk)
	var resultSvc service.ResultService = service.NewResultService(st.results, modes, clk, logger)
	var boardSvc service.LeaderboardService = service.NewLeaderboardService(st.board, modes, clk)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, cache will fall through", zap.Error(err))
		}
		store := cache.NewRedisStore(rdb)
		boardSvc = cache.NewLeaderboard(boardSvc, store, cfg.Redis.TTL, clk, logger)
		resultSvc = cache.NewResults(resultSvc, store, logger)
	}

	api := httpserver.New(
		authSvc,
		resultSvc,
		boardSvc,
		service.NewProfileService(st.users),
		service.NewWordService(st.words),
		st.ping,
		logger,
		httpserver.Options{
			RequestTimeout: cfg.HTTP.RequestTimeout,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Limits: httpserver.Limits{
				Leaderboard: cfg.Leaderboard.DefaultLimit,
				History:     cfg.Leaderboard.HistoryLimit,
				Words:       cfg.Leaderboard.WordsLimit,
			},
			TimeModes: cfg.Leaderboard.TimeModes,
		},
	)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		grpcSrv, err = startHealth(ctx, cfg.GRPC, st.ping, logger, errCh)
		if err != nil {
			_ = httpSrv.Close()
			return err
		}
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		shutdown(httpSrv, grpcSrv)
		return err
	}

	shutdown(httpSrv, grpcSrv)
	logger.Info("shutdown complete")
	return nil
}

func startHealth(ctx context.Context, cfg config.GRPCConfig, ping repository.Pinger, logger *zap.Logger, errCh chan<- error) (*grpc.Server, error) {
	var opts []grpc.ServerOption
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Error("failed to load TLS cert/key", zap.Error(err))
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
	}

	h := grpcserver.NewHealth(ping, cfg.ProbeInterval, logger)
	go h.Run(ctx)

	s := grpcserver.NewServer(logger, h, cfg.Reflection, opts...)
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Error("listen", zap.Error(err))
		return nil, err
	}
	go func() {
		logger.Info("grpc health listening", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSCert != ""))
		if err := s.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	return s, nil
}

// shutdown drains both servers, forcing gRPC closed after the grace period.
func shutdown(httpSrv *http.Server, grpcSrv *grpc.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	if grpcSrv == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		grpcSrv.Stop()
	}
}
