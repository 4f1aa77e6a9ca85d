package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"protein-atlas/config"
	"protein-atlas/repository"
	"protein-atlas/search"
	"protein-atlas/services"
	"protein-atlas/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var bookmarkChangesCounter *prometheus.CounterVec

func init() {
	bookmarkChangesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_bookmark_changes_total",
			Help: "Total number of bookmark mutations by action.",
		},
		[]string{"action"},
	)
	prometheus.MustRegister(bookmarkChangesCounter)
}

// articleStore fasst alles zusammen, was die Routen vom Store brauchen.
type articleStore interface {
	search.Repository
	services.BookmarkStore
	services.StatsStore
	Ping(ctx context.Context) error
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Store
	var store articleStore
	switch cfg.Store {
	case "memory":
		mem := repository.NewMemory()
		repository.SeedDemo(mem)
		store = mem
		logging.Info("Using in-memory store with demo data.")
	default:
		pg, err := repository.Open(cfg.DSN(), logging)
		if err != nil {
			logging.Fatal("Failed to connect to database", zap.Error(err))
		}
		if !cfg.FamilyPushdown {
			pg = pg.WithoutFamilyPushdown()
		}
		store = pg
		logging.Info("Successfully connected to article database.")
	}

	// Setup Engine
	engine := search.NewEngine(store, search.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}, logging, search.NewMetrics(prometheus.DefaultRegisterer))

	calibrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	level, err := engine.Calibrate(calibrateCtx)
	cancel()
	if err != nil {
		logging.Warn("Text search calibration failed, keeping default level", zap.Error(err))
	} else {
		logging.Info("Text search level", zap.String("level", level.String()))
	}

	// Setup Services
	stats := services.NewStatsService(store, 5*time.Minute, logging)
	bookmarks := services.NewBookmarkService(store, logging)
	retry := cfg.RetryPolicy()

	var exporter *services.ExportService
	if cfg.ExportEnabled() {
		s3Store, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		exporter = services.NewExportService(engine, s3Store, services.ExportOptions{
			Prefix:   cfg.ExportPrefix,
			Keep:     cfg.KeepExports,
			PageSize: cfg.MaxPageSize,
			Retry:    retry,
		}, logging)
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupHealthRoutes(router, store)
	setupSearchRoutes(router, engine, bookmarks, retry, logging)
	setupStatsRoutes(router, stats, logging)
	setupBookmarkRoutes(router, bookmarks, logging)
	if exporter != nil {
		setupExportRoutes(router, exporter, bookmarks, logging)
	}

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.StatsCronSchedule, func() {
		logging.Info("Running scheduled stats refresh...")
		if _, err := stats.Refresh(context.Background()); err != nil {
			logging.Error("Cron job failed", zap.Error(err))
		}
	})
	if err != nil {
		logging.Fatal("Invalid cron schedule", zap.String("schedule", cfg.StatsCronSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// respondError schreibt die kurze Meldung für die Oberfläche; die technische
// Ursache steht in "detail".
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	var se *search.Error
	switch {
	case errors.Is(err, search.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found", "detail": err.Error()})
		return
	case errors.Is(err, services.ErrInvalidUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id", "detail": err.Error()})
		return
	case errors.As(err, &se) && se.Kind == search.KindInvalid:
		status = http.StatusBadRequest
	case errors.As(err, &se) && se.Kind == search.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": search.UserMessage(err), "detail": err.Error()})
}

func userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func setupHealthRoutes(router *gin.Engine, store articleStore) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type searchRequest struct {
	search.FilterParams
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func setupSearchRoutes(router *gin.Engine, engine *search.Engine, bookmarks *services.BookmarkService, retry search.RetryPolicy, log *zap.Logger) {
	rg := router.Group("/articles")

	rg.POST("/search", func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		spec, err := req.Spec()
		if err != nil {
			respondError(c, log, err)
			return
		}

		var bookmarked []int64
		if spec.BookmarksOnly() {
			if bookmarked, err = bookmarks.List(c.Request.Context(), userID(c)); err != nil {
				respondError(c, log, err)
				return
			}
		}

		res, err := search.Retry(c.Request.Context(), retry, func(ctx context.Context) (*search.Result, error) {
			return engine.Search(ctx, spec, req.Page, req.PageSize, bookmarked)
		})
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"articles":    res.Articles,
			"total_count": res.TotalCount,
			"total_pages": res.TotalPages(),
			"count_exact": res.CountExact,
			"text_level":  res.TextLevel,
			"notice":      res.Notice,
			"page":        res.Page,
			"page_size":   res.PageSize,
			"description": spec.Description(),
		})
	})

	rg.GET("/page-sizes", func(c *gin.Context) {
		c.JSON(http.StatusOK, search.PageSizeOptions)
	})
}

func setupStatsRoutes(router *gin.Engine, stats *services.StatsService, log *zap.Logger) {
	router.GET("/stats", func(c *gin.Context) {
		res, err := stats.Get(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}

func setupBookmarkRoutes(router *gin.Engine, bookmarks *services.BookmarkService, log *zap.Logger) {
	rg := router.Group("/bookmarks")

	rg.GET("", func(c *gin.Context) {
		ids, err := bookmarks.List(c.Request.Context(), userID(c))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"article_ids": ids})
	})

	articleID := func(c *gin.Context) (int64, bool) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
			return 0, false
		}
		return id, true
	}

	rg.POST("/:id", func(c *gin.Context) {
		id, ok := articleID(c)
		if !ok {
			return
		}
		if err := bookmarks.Add(c.Request.Context(), userID(c), id); err != nil {
			respondError(c, log, err)
			return
		}
		bookmarkChangesCounter.WithLabelValues("added").Inc()
		c.JSON(http.StatusOK, gin.H{"article_id": id, "bookmarked": true})
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, ok := articleID(c)
		if !ok {
			return
		}
		if err := bookmarks.Remove(c.Request.Context(), userID(c), id); err != nil {
			respondError(c, log, err)
			return
		}
		bookmarkChangesCounter.WithLabelValues("removed").Inc()
		c.JSON(http.StatusOK, gin.H{"article_id": id, "bookmarked": false})
	})

	rg.POST("/:id/toggle", func(c *gin.Context) {
		id, ok := articleID(c)
		if !ok {
			return
		}
		on, err := bookmarks.Toggle(c.Request.Context(), userID(c), id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		action := "removed"
		if on {
			action = "added"
		}
		bookmarkChangesCounter.WithLabelValues(action).Inc()
		c.JSON(http.StatusOK, gin.H{"article_id": id, "bookmarked": on})
	})
}

func setupExportRoutes(router *gin.Engine, exporter *services.ExportService, bookmarks *services.BookmarkService, log *zap.Logger) {
	router.POST("/articles/export", func(c *gin.Context) {
		var params search.FilterParams
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		spec, err := params.Spec()
		if err != nil {
			respondError(c, log, err)
			return
		}
		var bookmarked []int64
		if spec.BookmarksOnly() {
			if bookmarked, err = bookmarks.List(c.Request.Context(), userID(c)); err != nil {
				respondError(c, log, err)
				return
			}
		}

		go func() {
			res, err := exporter.Run(context.Background(), spec, bookmarked)
			if err != nil {
				log.Error("Async export failed", zap.Error(err))
				return
			}
			log.Info("Async export completed", zap.String("key", res.Key), zap.Int("articles", res.Articles))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Export triggered."})
	})
}
