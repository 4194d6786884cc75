package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/advisorhub/backoffice/handlers"
	"github.com/advisorhub/backoffice/internal/backup"
	"github.com/advisorhub/backoffice/internal/config"
	"github.com/advisorhub/backoffice/internal/database"
	"github.com/advisorhub/backoffice/internal/notify"
	"github.com/advisorhub/backoffice/internal/stocks"
	"github.com/advisorhub/backoffice/internal/storage"
	"github.com/advisorhub/backoffice/internal/store"
	"github.com/advisorhub/backoffice/internal/upgrade"
	"github.com/advisorhub/backoffice/pkg/logger"
	"github.com/advisorhub/backoffice/pkg/metrics"
	"github.com/advisorhub/backoffice/pkg/middleware"

	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v backup_dir=%s", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Backup.Dir)

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early so the rate limiter and the maintenance lock can use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// Connect to MongoDB; the store is the one hard dependency
	var mongoClient *mongo.Client
	var st store.Store
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongo(context.Background(), cfg.MongoDB)
		if err != nil {
			logger.Fatalf("mongo: %v", err)
		}
		st = store.NewMongoStore(mongoClient, cfg.MongoDB.Database)
		logger.Infof("Connected to MongoDB database %s", cfg.MongoDB.Database)
	} else {
		logger.Warnf("MONGODB_URI not set; using in-memory store (state is lost on restart)")
		st = store.NewMemoryStore()
	}

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"store": st != nil,
			"redis": redisClient != nil || cfg.Redis.Host == "",
		}
		ready := deps["store"] && deps["redis"]
		status := http.StatusOK
		body := gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
		}
		c.JSON(status, body)
	})

	// Snapshot engine, with a distributed maintenance lock when Redis is up
	hostname, _ := os.Hostname()
	engine := backup.NewEngine(st, cfg.Backup.Dir, hostname)
	if redisClient != nil {
		engine.WithLocker(backup.NewRedisLocker(redisClient, "maintenance:lock", 10*time.Minute))
	}

	// Optional off-site archive mirror
	var archiveStorage *storage.ArchiveStorage
	if cfg.MinIO.Endpoint != "" {
		archiveStorage, err = storage.NewArchiveStorage(cfg.MinIO)
		if err != nil {
			logger.Warnf("minio unavailable, archives stay local only: %v", err)
			archiveStorage = nil
		}
	}

	// Notifications: persist to Mongo when available, else log only
	var notifier notify.Notifier = notify.LogNotifier{}
	var mongoNotifier *notify.MongoNotifier
	if mongoClient != nil {
		mongoNotifier = notify.NewMongoNotifier(mongoClient.Database(cfg.MongoDB.Database))
		notifier = mongoNotifier
	}

	upgradeSvc := upgrade.NewService(st, notifier, cfg.Upgrade.RejectionCooldownDays)

	// Route groups: /api requires a valid token, /api/admin additionally the admin role
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	adminAPI := api.Group("/admin")
	adminAPI.Use(middleware.RequireRole("ADMIN"))

	upgradeHandler := handlers.NewUpgradeHandler(upgradeSvc)
	upgradeHandler.RegisterSelfService(api)
	upgradeHandler.RegisterAdmin(adminAPI)

	handlers.NewBackupHandler(engine, archiveStorage, cfg.Backup).Register(adminAPI)
	if mongoNotifier != nil {
		handlers.NewNotificationsHandler(mongoNotifier).Register(adminAPI)
	}
	handlers.NewPortfolioHandler(st, stocks.NewStubProvider()).Register(api)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting back-office service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
