package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcAdapter "github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/grpc"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/router"
	natsAdapter "github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/repository/memory"
	mongoRepo "github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/semantic"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/mailer"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/tracer"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

// repositories groups the storage ports chosen by STORAGE_DRIVER.
type repositories struct {
	listings  domain.ListingRepository
	images    domain.ImageRepository
	links     domain.LinkRepository
	favorites domain.FavoriteRepository
	tx        domain.TxRunner
	users     mailer.EmailLookup
	close     func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("INFO: .env file not found or error loading: %v. Relying on OS environment variables.\n", err)
	}

	appLogger := logger.NewLogger()
	defer func() { _ = appLogger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	appLogger.Info("Application starting...",
		zap.String("service_name", cfg.ServiceName),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
	)
	if cfg.InsecureJWTSecret() {
		appLogger.Warn("JWT_SECRET is the built-in development value; set it in production")
	}

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTExporterOTLPEndpoint, appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)

	ctx := context.Background()
	repos, err := openRepositories(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize repositories", zap.Error(err))
	}
	defer repos.close()

	minioClient, err := s3.NewMinioClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		appLogger.Fatal("Failed to create MinIO client", zap.Error(err))
	}
	blobStore := s3.NewBlobStore(minioClient, cfg.MinIOBucket, appLogger)
	if err := blobStore.EnsureBucket(ctx); err != nil {
		appLogger.Fatal("Failed to prepare image bucket", zap.String("bucket", cfg.MinIOBucket), zap.Error(err))
	}

	var listingCache domain.ListingCache
	if cfg.RedisAddress != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		listingCache = cache.NewListingCache(redisClient, appLogger)
	} else {
		appLogger.Info("Listing cache disabled (REDIS_ADDRESS not set)")
	}

	var publisher domain.EventPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natsAdapter.NewPublisher(cfg.NATSURL, appLogger, cfg.ServiceName)
		if err != nil {
			appLogger.Fatal("Failed to initialize NATS publisher", zap.Error(err))
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	} else {
		appLogger.Info("Event publishing disabled (NATS_URL not set)")
	}

	var searcher domain.SemanticSearcher
	if cfg.SemanticSearchURL != "" {
		client := semantic.NewClient(cfg.SemanticSearchURL, cfg.SemanticSearchTimeout, appLogger)
		searcher = semantic.NewCachingSearcher(client, cfg.SemanticCacheSize, cfg.SemanticCacheTTL)
	} else {
		appLogger.Info("Semantic search disabled (SEMANTIC_SEARCH_URL not set); free-text queries return no results")
	}

	listingOpts := []usecase.ListingOption{
		usecase.WithListingMetrics(metricsManager),
		usecase.WithListingCache(listingCache, cfg.ListingCacheTTL),
		usecase.WithListingPublisher(publisher),
	}
	if cfg.MailerEnabled() {
		notifier := mailer.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPEmail, cfg.SMTPPassword, repos.users, appLogger)
		listingOpts = append(listingOpts, usecase.WithListingNotifier(notifier))
	} else {
		appLogger.Info("Owner e-mail notifications disabled (SMTP_EMAIL/SMTP_PASSWORD not set)")
	}

	projector := usecase.NewProjector(repos.listings, repos.images, repos.links, listingCache, appLogger)
	listingUC := usecase.NewListingUsecase(repos.listings, repos.favorites, appLogger, listingOpts...)
	assetUC := usecase.NewAssetUsecase(repos.listings, repos.images, repos.links, blobStore, repos.tx, projector, publisher, metricsManager, appLogger)
	searchUC := usecase.NewSearchUsecase(repos.listings, repos.favorites, searcher, metricsManager, appLogger)
	favoriteUC := usecase.NewFavoriteUsecase(repos.favorites, repos.listings, metricsManager, appLogger)
	reconciler := usecase.NewReconciler(repos.listings, projector, metricsManager, appLogger)

	runCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go reconciler.Run(runCtx, cfg.ReconcileInterval)

	annonceHandler := handler.NewAnnonceHandler(listingUC, assetUC, searchUC, favoriteUC, appLogger)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router.NewRouter(annonceHandler, cfg.JWTSecret, metricsManager, appLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		appLogger.Fatal("Failed to listen for gRPC", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcSrv := grpcAdapter.NewServer(cfg.ServiceName, appLogger)
	grpcSrv.SetServing(true)
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLogger.Fatal("gRPC server Serve error", zap.Error(err))
		}
	}()

	var metricsSrv *http.Server
	if cfg.PrometheusMetricsPort != "" {
		metricsSrv = metrics.NewMetricsServer(cfg.PrometheusMetricsPort, metricsManager.Registry)
		go func() {
			appLogger.Info("Starting Prometheus metrics server", zap.String("port", cfg.PrometheusMetricsPort))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("Prometheus metrics server failed", zap.Error(err))
			}
		}()
	} else {
		appLogger.Info("Prometheus metrics server not started (PROMETHEUS_METRICS_PORT not set)")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	grpcSrv.SetServing(false)
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	grpcSrv.GracefulStop()
	appLogger.Info("Application shut down")
}

func openRepositories(ctx context.Context, cfg *config.Config, log *logger.Logger) (*repositories, error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("Using in-memory storage; data is lost on restart")
		return &repositories{
			listings:  memory.NewListingRepository(),
			images:    memory.NewImageRepository(),
			links:     memory.NewLinkRepository(),
			favorites: memory.NewFavoriteRepository(),
			tx:        memory.TxRunner{},
			users:     memory.NewUserRepository(),
			close:     func() {},
		}, nil
	}

	client, err := mongoRepo.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	closeClient := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}
	db := client.Database(cfg.MongoDatabase)
	log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	listings, err := mongoRepo.NewListingRepository(db, log)
	if err != nil {
		closeClient()
		return nil, err
	}
	images, err := mongoRepo.NewImageRepository(db, log)
	if err != nil {
		closeClient()
		return nil, err
	}
	links, err := mongoRepo.NewLinkRepository(db, log)
	if err != nil {
		closeClient()
		return nil, err
	}
	favorites, err := mongoRepo.NewFavoriteRepository(db, log)
	if err != nil {
		closeClient()
		return nil, err
	}
	return &repositories{
		listings:  listings,
		images:    images,
		links:     links,
		favorites: favorites,
		tx:        mongoRepo.NewTxRunner(client, cfg.MongoUseTransactions, log),
		users:     mongoRepo.NewUserRepository(db, log),
		close:     closeClient,
	}, nil
}
