package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/woundrisk/internal/auth"
	"github.com/example/woundrisk/internal/config"
	"github.com/example/woundrisk/internal/engine"
	"github.com/example/woundrisk/internal/grpcapi"
	"github.com/example/woundrisk/internal/handlers"
	"github.com/example/woundrisk/internal/logging"
	"github.com/example/woundrisk/internal/netutil"
	"github.com/example/woundrisk/internal/repository"
	"github.com/example/woundrisk/internal/usecase"
	"github.com/example/woundrisk/internal/weights"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := weights.NewStore(cfg.WeightsPath)
	if err != nil {
		logger.Error("failed to load weights, service is not ready until a reload succeeds",
			zap.String("path", cfg.WeightsPath), zap.Error(err))
	} else if missing := store.Snapshot().Missing(); len(missing) > 0 {
		logger.Warn("weights file has no entry for some signals, they will not affect the score",
			zap.Strings("missing", missing))
	}

	eng := engine.New(store, engine.WithMaxEdge(cfg.MaxImageEdge))
	var opts []usecase.Option

	if cfg.PersistenceEnabled() {
		db := initDatabase(ctx, cfg.DatabaseDSN, logger)
		repo := repository.NewAssessmentRepository(db, logger)
		if err := repo.AutoMigrate(ctx); err != nil {
			logger.Fatal("auto migrate failed", zap.Error(err))
		}
		opts = append(opts, usecase.WithRepository(repo))
	}

	if cfg.CacheEnabled() {
		redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
		defer redisCancel()
		redisClient := initRedis(redisCtx, cfg.RedisAddr, logger)
		defer redisClient.Close()
		opts = append(opts, usecase.WithCache(usecase.NewRedisResultCache(redisClient, cfg.ResultTTL)))
	}

	uc := usecase.NewAssessmentUseCase(eng, store, logger, opts...)
	authn := auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTAudience)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newHTTPHandler(cfg, uc, authn, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopReload := watchReloadSignal(uc, logger)
	defer stopReload()

	if cfg.GRPCAddr != "" {
		grpcServer, err := startGRPCServer(cfg, uc, authn, logger)
		if err != nil {
			logger.Fatal("failed to start grpc server", zap.Error(err))
		}
		defer grpcServer.GracefulStop()
	}

	logger.Info("Backend running. Mobile clients can connect at",
		zap.String("url", netutil.ListenURL(cfg.HTTPAddr)),
		zap.String("addr", cfg.HTTPAddr),
		zap.Bool("ready", uc.Ready()),
	)
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newHTTPHandler(cfg *config.Config, uc *usecase.AssessmentUseCase, authn *auth.Authenticator, logger *zap.Logger) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestID(), handlers.AccessLog(logger))
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	handlers.RegisterRoutes(r, uc, authn, handlers.Options{MaxUploadSize: cfg.MaxUploadBytes, Logger: logger})
	return handlers.CORS(cfg.CORSAllowedOrigins)(r)
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func startGRPCServer(cfg *config.Config, uc *usecase.AssessmentUseCase, authn *auth.Authenticator, logger *zap.Logger) (*grpc.Server, error) {
	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return nil, logging.NewOperationError("grpc.listen", "", err)
	}

	// Base64 grows the image by a third; leave room for the symptom fields.
	maxMsg := int(cfg.MaxUploadBytes)*4/3 + 64<<10
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsg),
		grpc.UnaryInterceptor(grpcapi.LoggingInterceptor(logger)),
	)
	grpcapi.RegisterRiskAssessorServer(srv, grpcapi.NewServer(uc, authn, int(cfg.MaxUploadBytes), logger))

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc server stopped", zap.Error(err))
		}
	}()
	logger.Info("gRPC API listening", zap.String("addr", cfg.GRPCAddr), zap.String("service", grpcapi.ServiceName))
	return srv, nil
}

// watchReloadSignal reloads the weight file on SIGHUP until the returned stop
// function is called.
func watchReloadSignal(uc *usecase.AssessmentUseCase, logger *zap.Logger) func() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-hup:
				logger.Info("received SIGHUP, reloading weights")
				_, _ = uc.ReloadWeights()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(hup)
		close(done)
	}
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
