// Package config loads server configuration from the environment and wires
// the catalog service together from it.
package config

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
	catalogfs "github.com/prepstack/bookshelf/pkg/bookshelf/catalog/fs"
	catalogmemory "github.com/prepstack/bookshelf/pkg/bookshelf/catalog/memory"
	catalogpsql "github.com/prepstack/bookshelf/pkg/bookshelf/catalog/psql"
	"github.com/prepstack/bookshelf/pkg/bookshelf/cover"
	"github.com/prepstack/bookshelf/pkg/bookshelf/storage/archive"
	"github.com/prepstack/bookshelf/pkg/bookshelf/storage/memory"
	"github.com/prepstack/bookshelf/pkg/bookshelf/storage/s3"
)

// Config is the full server configuration, read from the environment.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	AdminPassword  string `env:"ADMIN_PASSWORD"`
	SessionSecret  string `env:"SESSION_SECRET"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" env-default:"314572800"`

	Categories             []string `env:"CATEGORIES" env-separator:"," env-default:"jee,neet"`
	AllowedDocExtensions   []string `env:"ALLOWED_DOC_EXTENSIONS" env-separator:"," env-default:"pdf"`
	AllowedImageExtensions []string `env:"ALLOWED_IMAGE_EXTENSIONS" env-separator:"," env-default:"png,jpg,jpeg,webp"`

	CoverDir string `env:"COVER_DIR" env-default:"uploads"`

	CatalogStore string `env:"CATALOG_STORE" env-default:"file"`
	CatalogFile  string `env:"CATALOG_FILE" env-default:"books.json"`
	DB           DbConfig

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"archive"`
	Archive        ArchiveConfig
	S3             S3Config
}

// DbConfig configures the Postgres snapshot store.
type DbConfig struct {
	Port     uint16 `env:"CATALOG_PG_PORT" env-default:"5432"`
	Host     string `env:"CATALOG_PG_HOST" env-default:"localhost"`
	Name     string `env:"CATALOG_PG_NAME" env-default:"bookshelf_db"`
	User     string `env:"CATALOG_PG_USER" env-default:"bookshelf"`
	Password string `env:"CATALOG_PG_PASSWORD" env-default:"pwd"`
}

// ArchiveConfig configures the Internet Archive backend.
type ArchiveConfig struct {
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	Endpoint  string `env:"ARCHIVE_ENDPOINT" env-default:"https://s3.us.archive.org"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	BucketName      string `env:"AWS_S3_BUCKET"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PublicBaseURL   string `env:"AWS_S3_PUBLIC_BASE_URL"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET_IF_NOT_EXIST" env-default:"false"`
}

func (c DbConfig) toDatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the parts cleanenv defaults cannot cover.
func (c *Config) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	switch c.CatalogStore {
	case "file", "postgres", "memory":
	default:
		return fmt.Errorf("unknown catalog store %q", c.CatalogStore)
	}
	switch c.StorageBackend {
	case "archive", "s3", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.StorageBackend == "archive" && (c.Archive.AccessKey == "" || c.Archive.SecretKey == "") {
		return fmt.Errorf("ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY are required for the archive backend")
	}
	if c.StorageBackend == "s3" && c.S3.BucketName == "" {
		return fmt.Errorf("AWS_S3_BUCKET is required for the s3 backend")
	}
	return nil
}

// BuildService constructs the catalog service from the configuration.
func (c *Config) BuildService(ctx context.Context) (bookshelf.Service, error) {
	store, err := c.buildCatalogStore(ctx)
	if err != nil {
		return nil, err
	}

	publisher, retriever, err := c.buildStorageBackend()
	if err != nil {
		return nil, err
	}

	covers, err := cover.New(cover.Config{BaseDir: c.CoverDir})
	if err != nil {
		return nil, fmt.Errorf("failed to create cover store: %w", err)
	}

	categories := make([]bookshelf.Category, len(c.Categories))
	for i, cat := range c.Categories {
		categories[i] = bookshelf.Category(cat)
	}

	return bookshelf.New(ctx,
		bookshelf.WithCatalogStore(store),
		bookshelf.WithPublisher(publisher),
		bookshelf.WithRetriever(retriever),
		bookshelf.WithCoverStore(covers),
		bookshelf.WithCategories(categories...),
		bookshelf.WithAllowedDocExtensions(c.AllowedDocExtensions...),
		bookshelf.WithAllowedImageExtensions(c.AllowedImageExtensions...),
	)
}

func (c *Config) buildCatalogStore(ctx context.Context) (bookshelf.CatalogStore, error) {
	switch c.CatalogStore {
	case "file":
		return catalogfs.New(catalogfs.Config{Path: c.CatalogFile})
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DB.toDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return catalogpsql.New(ctx, pool)
	case "memory":
		return catalogmemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown catalog store %q", c.CatalogStore)
	}
}

func (c *Config) buildStorageBackend() (bookshelf.BlobPublisher, bookshelf.BlobRetriever, error) {
	switch c.StorageBackend {
	case "archive":
		backend, err := archive.New(archive.Config{
			AccessKey: c.Archive.AccessKey,
			SecretKey: c.Archive.SecretKey,
			Endpoint:  c.Archive.Endpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create archive backend: %w", err)
		}
		return backend, backend, nil
	case "s3":
		backend, err := s3.New(s3.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.BucketName,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			PublicBaseURL:          c.S3.PublicBaseURL,
			CreateBucketIfNotExist: c.S3.CreateBucket,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		return backend, backend, nil
	case "memory":
		backend := memory.New()
		return backend, backend, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}
