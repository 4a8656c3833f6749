package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/insuredocs/docgen/handlers"
	"github.com/insuredocs/docgen/internal/clients"
	"github.com/insuredocs/docgen/internal/config"
	"github.com/insuredocs/docgen/internal/database"
	"github.com/insuredocs/docgen/internal/document/handler"
	"github.com/insuredocs/docgen/internal/document/repository"
	"github.com/insuredocs/docgen/internal/document/service"
	"github.com/insuredocs/docgen/internal/docx"
	"github.com/insuredocs/docgen/internal/storage"
	"github.com/insuredocs/docgen/internal/tokens"
	"github.com/insuredocs/docgen/pkg/logger"
	"github.com/insuredocs/docgen/pkg/metrics"
	"github.com/insuredocs/docgen/pkg/middleware"
)

// cors is a permissive policy for the browser form; tighten per deployment.
func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+middleware.ClientKeyHeader)
	c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v strict=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.Render.Strict)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors, gin.Logger(), gin.Recovery())
	health := handlers.NewHealth()

	// Redis backs the shared rate limiter and link revocation; both degrade
	// to process-local behaviour without it.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
		} else {
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
		tokens.SetRevocationClient(rdb)
		health.Optional("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	var (
		templateRepo repository.TemplateRepository = repository.NewMemoryTemplates()
		documentRepo repository.GeneratedRepository = repository.NewMemoryGenerated()
		clientSrc    clients.Source
	)
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			logger.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		templateRepo, documentRepo, clientSrc = mongoStores(ctx, client, cfg.MongoDB.Database)
		health.Require("mongo", func(ctx context.Context) error { return client.Ping(ctx, nil) })
	}
	if clientSrc == nil {
		clientSrc = memoryClients(cfg.Clients.FixturePath)
	}

	var blobs storage.BlobStore = storage.NewMemoryStorage()
	if cfg.MinIO.Endpoint != "" {
		mc, err := storage.NewMinIOStorage(ctx, &storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Fatalf("failed to initialize MinIO: %v", err)
		}
		blobs = mc
		health.Require("minio", mc.Ping)
	} else {
		logger.Warn("MINIO_ENDPOINT is not set; template and document files are kept in memory")
	}

	cache := docx.NewCache(cfg.Render.CacheSize)
	cache.OnLookup = metrics.CacheLookup
	templates := service.NewTemplateService(templateRepo, blobs, cache)
	generator := service.NewGenerator(templates, documentRepo, blobs, clientSrc, service.GeneratorConfig{
		Strict:     cfg.Render.Strict,
		DateLayout: cfg.Render.DateLayout,
	})
	documents := service.NewDocumentService(documentRepo, blobs, cfg.Download.Secret, cfg.Download.TTL)

	health.Register(r)
	handlers.RegisterSwagger(r)
	handlers.NewClientHandler(clientSrc).Register(r)
	handler.New(templates, generator, documents, cfg.Server.MaxUploadBytes).Register(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting docgen on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

func mongoStores(ctx context.Context, client *mongo.Client, dbName string) (repository.TemplateRepository, repository.GeneratedRepository, clients.Source) {
	db := client.Database(dbName)
	tpls, err := repository.NewMongoTemplates(ctx, db.Collection(database.TemplatesCollection))
	if err != nil {
		logger.Fatalf("templates collection: %v", err)
	}
	docs, err := repository.NewMongoGenerated(ctx, db.Collection(database.DocumentsCollection))
	if err != nil {
		logger.Fatalf("documents collection: %v", err)
	}
	src := clients.NewMongo(db.Collection(database.ClientsCollection), db.Collection(database.PoliciesCollection))
	logger.Infof("using MongoDB database %q", dbName)
	return tpls, docs, src
}

func memoryClients(fixture string) clients.Source {
	if fixture == "" {
		logger.Warn("no client data source configured; generation works with request variables only")
		return clients.NewMemory()
	}
	mem, err := clients.LoadFixtureFile(fixture)
	if err != nil {
		logger.Fatalf("failed to load client fixture %s: %v", fixture, err)
	}
	logger.Infof("loaded client fixture %s", fixture)
	return mem
}
