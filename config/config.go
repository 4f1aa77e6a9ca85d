package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"protein-atlas/search"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"protein_atlas"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// "postgres" oder "memory" (Entwicklung, mit Beispieldaten)
	Store string `envconfig:"STORE" default:"postgres"`
	// false: Familien-Overlap wird nach dem Laden im Speicher geprüft
	FamilyPushdown bool `envconfig:"FAMILY_PUSHDOWN" default:"true"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"10"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"100"`

	// Retry-Policy für Aufrufer der Suche (nicht für die Engine selbst)
	RetryMaxAttempts  int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelay time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"100ms"`
	RetryMaxDelay     time.Duration `envconfig:"RETRY_MAX_DELAY" default:"2s"`

	StatsCronSchedule string `envconfig:"STATS_CRON_SCHEDULE" default:"*/5 * * * *"`

	ExportS3Key    string `envconfig:"EXPORT_S3_KEY"`
	ExportS3Secret string `envconfig:"EXPORT_S3_SECRET"`
	ExportS3URL    string `envconfig:"EXPORT_S3_URL"`
	ExportS3Region string `envconfig:"EXPORT_S3_REGION" default:"eu-central-1"`
	ExportS3Bucket string `envconfig:"EXPORT_S3_BUCKET"`
	ExportPrefix   string `envconfig:"EXPORT_PREFIX" default:"exports/"`
	KeepExports    int    `envconfig:"KEEP_EXPORTS" default:"10"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ExportEnabled meldet, ob ein S3-Ziel für Exporte konfiguriert ist.
func (c *Config) ExportEnabled() bool {
	return c.ExportS3URL != "" && c.ExportS3Bucket != ""
}

// RetryPolicy liefert die Wiederholungs-Policy für Suchaufrufe.
func (c *Config) RetryPolicy() search.RetryPolicy {
	return search.RetryPolicy{
		MaxAttempts:     c.RetryMaxAttempts,
		InitialInterval: c.RetryInitialDelay,
		MaxDelay:        c.RetryMaxDelay,
	}
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE %q (expected postgres or memory)", c.Store)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1")
	}
	return nil
}
