package main

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"protein-atlas/config"
	"protein-atlas/repository"
	"protein-atlas/search"
	"protein-atlas/services"
	"protein-atlas/storage"
)

// ExportJobConfig beschreibt den einmaligen Export-Lauf.
type ExportJobConfig struct {
	// Filter als JSON, z.B. {"protein_family":["Spider Silk"]}
	Filter string `envconfig:"EXPORT_FILTER" default:"{}"`
	UserID string `envconfig:"EXPORT_USER_ID"`
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starte Export-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}
	var job ExportJobConfig
	if err := envconfig.Process("", &job); err != nil {
		logging.Fatal("Fehler beim Laden der Export-Konfiguration", zap.Error(err))
	}
	if !cfg.ExportEnabled() {
		logging.Fatal("EXPORT_S3_URL und EXPORT_S3_BUCKET müssen gesetzt sein")
	}

	var params search.FilterParams
	dec := json.NewDecoder(strings.NewReader(job.Filter))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		logging.Fatal("Ungültiger EXPORT_FILTER", zap.Error(err))
	}
	spec, err := params.Spec()
	if err != nil {
		logging.Fatal("Ungültiger EXPORT_FILTER", zap.Error(err))
	}

	ctx := context.Background()

	// 1. Datenbank verbinden
	repo, err := repository.Open(cfg.DSN(), logging)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	if !cfg.FamilyPushdown {
		repo = repo.WithoutFamilyPushdown()
	}
	engine := search.NewEngine(repo, search.Options{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}, logging, nil)
	if _, err := engine.Calibrate(ctx); err != nil {
		logging.Warn("Text search calibration failed", zap.Error(err))
	}

	// 2. Bookmarks des Benutzers (nur für "nur Bookmarks")
	var bookmarked []int64
	if spec.BookmarksOnly() {
		bookmarks := services.NewBookmarkService(repo, logging)
		if bookmarked, err = bookmarks.List(ctx, job.UserID); err != nil {
			logging.Fatal("Fehler beim Laden der Bookmarks", zap.Error(err))
		}
	}

	// 3. S3-Ziel
	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	// 4. Export schreiben und alte Exporte rotieren
	exporter := services.NewExportService(engine, store, services.ExportOptions{
		Prefix:   cfg.ExportPrefix,
		Keep:     cfg.KeepExports,
		PageSize: cfg.MaxPageSize,
		Retry:    cfg.RetryPolicy(),
	}, logging)
	res, err := exporter.Run(ctx, spec, bookmarked)
	if err != nil {
		logging.Fatal("Export fehlgeschlagen", zap.Error(err))
	}

	logging.Info("Export-Prozess erfolgreich abgeschlossen.",
		zap.String("key", res.Key),
		zap.String("link", res.Link),
		zap.Int("articles", res.Articles),
	)
}
