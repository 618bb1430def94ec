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
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/studysync/studysync/handlers"
	"github.com/studysync/studysync/internal/answer"
	"github.com/studysync/studysync/internal/config"
	"github.com/studysync/studysync/internal/dashboard"
	"github.com/studysync/studysync/internal/database"
	"github.com/studysync/studysync/internal/doubt"
	"github.com/studysync/studysync/internal/identity"
	"github.com/studysync/studysync/internal/note"
	"github.com/studysync/studysync/internal/sessions"
	"github.com/studysync/studysync/internal/store"
	"github.com/studysync/studysync/internal/tokens"
	"github.com/studysync/studysync/internal/users"
	"github.com/studysync/studysync/pkg/logger"
	"github.com/studysync/studysync/pkg/metrics"
	"github.com/studysync/studysync/pkg/middleware"
)

var startTime = time.Now()

// appIndexes are the indexes the compound feed/dashboard queries hint at; a
// missing one surfaces to clients as a precondition error until recreated.
var appIndexes = []store.IndexSpec{
	{Collection: doubt.Collection, Keys: []store.IndexKey{{Field: "createdAt", Desc: true}}},
	{Collection: doubt.Collection, Keys: []store.IndexKey{{Field: "authorId"}, {Field: "createdAt", Desc: true}}},
	{Collection: answer.Collection, Keys: []store.IndexKey{{Field: "doubtId"}, {Field: "createdAt"}}},
	{Collection: answer.Collection, Keys: []store.IndexKey{{Field: "authorId"}, {Field: "createdAt", Desc: true}}},
	{Collection: note.Collection, Keys: []store.IndexKey{{Field: "createdAt", Desc: true}}},
	{Collection: note.Collection, Keys: []store.IndexKey{{Field: "authorId"}, {Field: "createdAt", Desc: true}}},
	{Collection: identity.Collection, Keys: []store.IndexKey{{Field: "email"}}, Unique: true},
}

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s mongo=%v redis=%v", cfg.Store.Driver, cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple; production should use a stricter policy.)
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

	ctx := context.Background()

	// Connect to Redis early so sessions, blacklist and the rate-limiter can use it
	var importedRedis *redis.Client
	if cfg.Redis.Host != "" {
		importedRedis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := importedRedis.Ping(ctx).Err(); err == nil {
			sessions.SetBlacklistClient(importedRedis)
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		} else {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			importedRedis = nil
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && importedRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(importedRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Document store wiring. When mongo is configured but unreachable the
	// Unconfigured driver is installed so every data operation reports a
	// configuration error instead of hanging.
	var docStore store.Store = store.Unconfigured{}
	var mongoClient *mongo.Client
	switch cfg.Store.Driver {
	case "memory":
		docStore = store.NewMemory()
		logger.Infof("using in-memory document store")
	default:
		if cfg.MongoDB.URI != "" {
			// Retry/backoff when connecting to MongoDB to tolerate startup races
			const maxAttempts = 5
			backoff := time.Second
			var errConn error
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
				if errConn == nil {
					break
				}
				logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
				if attempt < maxAttempts {
					time.Sleep(backoff)
					backoff *= 2
				}
			}
			if errConn != nil {
				logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
			} else {
				defer func() { _ = mongoClient.Disconnect(ctx) }()
				ms := store.NewMongo(mongoClient.Database(cfg.MongoDB.Database), 0)
				if err := ms.EnsureIndexes(ctx, appIndexes); err != nil {
					logger.Warnf("index bootstrap failed: %v", err)
				}
				docStore = ms
			}
		}
	}

	// Sessions: prefer Redis, then Mongo, then in-process (memory driver dev mode)
	var sessionsSvc *sessions.Service
	if importedRedis != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(importedRedis, "session:"))
		logger.Infof("Using Redis for session storage")
	} else if mongoClient != nil {
		col := mongoClient.Database(cfg.MongoDB.Database).Collection("sessions")
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(col))
	} else {
		sessionsSvc = sessions.NewService(sessions.NewMemoryRepository())
		logger.Warnf("no Redis or MongoDB available, sessions are in-process only")
	}

	identitySvc := identity.NewService(docStore)
	broker := identity.NewBroker()
	usersSvc := users.NewService(docStore)
	doubtSvc := doubt.NewService(docStore)
	answerSvc := answer.NewService(docStore)
	noteSvc := note.NewService(docStore)
	dashboardSvc := dashboard.NewService(docStore)
	verifier := tokens.NewVerifier(cfg)
	authRequired := middleware.AuthMiddleware(verifier)

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint; 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		_, storeConfigured := docStore.(store.Unconfigured)
		deps["store"] = !storeConfigured
		if storeConfigured {
			ready = false
		}
		deps["sessions"] = sessionsSvc != nil
		if cfg.Redis.Host != "" {
			deps["redis"] = importedRedis != nil
			if importedRedis == nil {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Auth + API routes
	authHandler := handlers.NewAuthHandler(cfg, identitySvc, usersSvc, sessionsSvc, broker)
	authHandler.Register(r.Group("/"))

	api := r.Group("/api/v1")
	api.GET("/me", authRequired, authHandler.Me)
	handlers.NewDoubtsHandler(doubtSvc).Register(api, authRequired)
	handlers.NewAnswersHandler(answerSvc).Register(api, authRequired)
	handlers.NewNotesHandler(noteSvc).Register(api, authRequired)
	handlers.NewDashboardHandler(dashboardSvc).Register(api, authRequired)
	handlers.NewLiveHandler(doubtSvc, answerSvc, broker).Register(api, authRequired)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Config summary: store=%s redis=%v jwt_secret_set=%v", cfg.Store.Driver, importedRedis != nil, cfg.JWT.Secret != "")
	logger.Infof("Starting studysync service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
